// Package ocr turns uploaded documents into plain text. PDFs are read from
// their text layer first and only rasterized and OCR'd when that layer is too
// thin; images always go through tesseract.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/guidify/constants"
	"github.com/joseph-ayodele/guidify/internal/common"
)

// Provenance records which path produced the text.
type Provenance string

const (
	ProvenanceDirect Provenance = "direct"
	ProvenanceOCR    Provenance = "ocr"
)

// DefaultMinDirectChars is the trimmed text-layer length below which a PDF is OCR'd.
const DefaultMinDirectChars = 100

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit

	MinDirectChars int           // default 100
	Timeout        time.Duration // bound on the OCR pass, 0 = none
	TempDir        string        // parent for per-call temp dirs, "" = os.TempDir()
}

// RawDocument is an uploaded file. Ext wins over the extension of Name.
type RawDocument struct {
	Name string
	Ext  string
	Data []byte
}

func (d RawDocument) extension() string {
	if d.Ext != "" {
		return constants.NormalizeExt(d.Ext)
	}
	return constants.NormalizeExt(filepath.Ext(d.Name))
}

type ExtractedText struct {
	Text       string
	Provenance Provenance
	Format     string // constants.PDF | IMAGE | DOCX | TXT
	Pages      int
	Duration   time.Duration
	Warnings   []string
}

// Empty reports whether no usable text was found.
func (t ExtractedText) Empty() bool {
	return strings.TrimSpace(t.Text) == ""
}

type Extractor struct {
	cfg    Config
	runner Runner
	pdf    PDFReader
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner swaps the command runner, mainly for tests.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithPDFReader swaps the text-layer reader.
func WithPDFReader(p PDFReader) Option {
	return func(e *Extractor) {
		if p != nil {
			e.pdf = p
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinDirectChars <= 0 {
		cfg.MinDirectChars = DefaultMinDirectChars
	}
	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, pdf: pdfcpuReader{}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// UnsupportedMarker is the text returned alongside ErrUnsupportedFormat.
func UnsupportedMarker(ext string) string {
	return fmt.Sprintf("Unsupported file format: .%s", ext)
}

// Extract picks a strategy based on the document extension. The only errors
// returned are common.ErrEmptyDocument and common.ErrUnsupportedFormat; every
// other failure yields empty text with warnings.
func (e *Extractor) Extract(ctx context.Context, doc RawDocument) (ExtractedText, error) {
	start := time.Now()
	ext := doc.extension()
	format := constants.MapExtToFormat(ext)

	if format == "" {
		e.logger.Warn("ocr.extract.unsupported", "name", doc.Name, "ext", ext)
		return ExtractedText{Text: UnsupportedMarker(ext)},
			common.NewAppError("UNSUPPORTED_FORMAT", fmt.Sprintf("unsupported file format: .%s", ext), common.ErrUnsupportedFormat)
	}
	if len(doc.Data) == 0 {
		e.logger.Warn("ocr.extract.empty", "name", doc.Name, "ext", ext)
		return ExtractedText{Format: format}, common.NewAppError("EMPTY_DOCUMENT", "uploaded file is empty", common.ErrEmptyDocument)
	}

	e.logger.Debug("ocr.extract.start", "name", doc.Name, "ext", ext, "format", format, "bytes", len(doc.Data))

	var res ExtractedText
	switch format {
	case constants.PDF:
		res = e.extractPDF(ctx, doc.Data)
	case constants.IMAGE:
		res = e.extractImage(ctx, doc.Data, ext)
	case constants.DOCX:
		res = e.extractDOCX(doc.Data)
	case constants.TXT:
		res = ExtractedText{Text: decodeLossyUTF8(doc.Data), Provenance: ProvenanceDirect, Pages: 1}
	}
	res.Format = format
	res.Text = Normalize(res.Text)
	res.Duration = time.Since(start)

	e.logger.Info("ocr.extract.ok",
		"name", doc.Name,
		"format", format,
		"provenance", res.Provenance,
		"pages", res.Pages,
		"chars", utf8.RuneCountInString(res.Text),
		"warnings", len(res.Warnings),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// ocrContext bounds the OCR pass when a timeout is configured.
func (e *Extractor) ocrContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return common.WithTimeout(ctx, e.cfg.Timeout)
}
