// Package pipeline runs the document stages: text extraction, then field
// extraction.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/guidify/internal/extract"
	"github.com/joseph-ayodele/guidify/internal/metrics"
	"github.com/joseph-ayodele/guidify/internal/ocr"
)

// Processor coordinates text extraction then heuristic field extraction.
type Processor struct {
	logger  *slog.Logger
	text    extract.TextExtractor
	fields  extract.FieldExtractor
	metrics *metrics.Metrics
}

func NewProcessor(logger *slog.Logger, text extract.TextExtractor, fields extract.FieldExtractor, m *metrics.Metrics) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger, text: text, fields: fields, metrics: m}
}

type MarksResult struct {
	Text          ocr.ExtractedText
	DetectedMarks int
	EntranceMarks *int
	FinalMarks    int
}

type ResumeResult struct {
	Text    ocr.ExtractedText
	Profile extract.StructuredProfile
}

// Text runs stage 1 only.
func (p *Processor) Text(ctx context.Context, doc ocr.RawDocument) (ocr.ExtractedText, error) {
	res, err := p.text.Extract(ctx, doc)
	if err != nil {
		p.logger.Warn("pipeline.text.rejected", "name", doc.Name, "error", err)
		return res, err
	}
	p.metrics.Extraction(res.Format, string(res.Provenance))
	if res.Empty() {
		p.logger.Warn("pipeline.text.empty", "name", doc.Name, "format", res.Format, "warnings", res.Warnings)
	}
	return res, nil
}

// Marksheet extracts the overall percentage and averages it with the
// entrance score when one is given.
func (p *Processor) Marksheet(ctx context.Context, doc ocr.RawDocument, entrance *int) (MarksResult, error) {
	text, err := p.Text(ctx, doc)
	if err != nil {
		return MarksResult{}, err
	}
	marks := p.fields.ExtractMarks(text.Text)
	final := extract.FinalMarks(marks, entrance)
	p.logger.Info("pipeline.marksheet.ok",
		"name", doc.Name,
		"provenance", text.Provenance,
		"detected", marks,
		"final", final,
	)
	return MarksResult{Text: text, DetectedMarks: marks, EntranceMarks: entrance, FinalMarks: final}, nil
}

// Resume extracts the heuristic profile of a CV.
func (p *Processor) Resume(ctx context.Context, doc ocr.RawDocument) (ResumeResult, error) {
	text, err := p.Text(ctx, doc)
	if err != nil {
		return ResumeResult{}, err
	}
	profile := p.fields.ExtractProfile(text.Text)
	p.logger.Info("pipeline.resume.ok",
		"name", doc.Name,
		"provenance", text.Provenance,
		"skills", len(profile.Skills),
		"projects", len(profile.Projects),
		"has_cgpa", profile.CGPA != nil,
	)
	return ResumeResult{Text: text, Profile: profile}, nil
}
