// Package extract turns raw document text into structured fields using
// ordered, named heuristic rules.
package extract

import (
	"context"

	"github.com/joseph-ayodele/guidify/internal/ocr"
)

// TextExtractor is stage 1: document -> text. *ocr.Extractor satisfies it.
type TextExtractor interface {
	Extract(ctx context.Context, doc ocr.RawDocument) (ocr.ExtractedText, error)
}

// FieldExtractor is stage 2: text -> fields.
type FieldExtractor interface {
	ExtractMarks(text string) int
	ExtractProfile(text string) StructuredProfile
}

// StructuredProfile is what the resume heuristics recover.
type StructuredProfile struct {
	Skills    []string `json:"skills"`
	CGPA      *float64 `json:"cgpa"`
	Education string   `json:"education,omitempty"`
	Projects  []string `json:"projects"`
}

var _ FieldExtractor = (*Extractor)(nil)
