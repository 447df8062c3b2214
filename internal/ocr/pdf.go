package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFReader returns the text layer of each page, in page order.
type PDFReader interface {
	PageTexts(data []byte) ([]string, error)
}

type pdfcpuReader struct{}

func (pdfcpuReader) PageTexts(data []byte) (pages []string, err error) {
	// pdfcpu panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfcpu panic: %v", r)
		}
	}()

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	pages = make([]string, 0, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		pages = append(pages, pageText(ctx, pageNr))
	}
	return pages, nil
}

// pageText is "" for pages whose content stream cannot be read.
func pageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ""
	}
	return textFromContentStream(data)
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) ExtractedText {
	var warns []string
	pages, err := e.pdf.PageTexts(data)
	if err != nil {
		e.logger.Warn("ocr.pdf.text_layer_failed", "error", err)
		warns = append(warns, err.Error())
	}
	direct := strings.Join(pages, "\n")
	chars := utf8.RuneCountInString(strings.TrimSpace(direct))
	if chars >= e.cfg.MinDirectChars {
		return ExtractedText{Text: direct, Provenance: ProvenanceDirect, Pages: len(pages), Warnings: warns}
	}

	e.logger.Info("ocr.pdf.fallback", "direct_chars", chars, "threshold", e.cfg.MinDirectChars, "dpi", e.cfg.DPI)
	ocrCtx, cancel := e.ocrContext(ctx)
	defer cancel()
	text, n, w := e.pdfToOCR(ocrCtx, data)
	return ExtractedText{Text: text, Provenance: ProvenanceOCR, Pages: n, Warnings: append(warns, w...)}
}

func (e *Extractor) pdfToOCR(ctx context.Context, data []byte) (string, int, []string) {
	tmpDir, err := os.MkdirTemp(e.cfg.TempDir, "guidify-pdf-*")
	if err != nil {
		return "", 0, []string{err.Error()}
	}
	defer e.removeAll(tmpDir)

	in := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return "", 0, []string{err.Error()}
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", in, prefix)
	if err != nil {
		return "", 0, []string{"pdftoppm: " + err.Error(), string(errb)}
	}

	// prefix-1.png, prefix-2.png, ... zero padded when there are many pages
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}
	}

	var b strings.Builder
	var warns []string
	for _, img := range matches {
		txt, err := e.tesseract(ctx, img)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(txt)
	}
	return b.String(), len(matches), warns
}

func (e *Extractor) removeAll(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		e.logger.Warn("ocr.tmp.cleanup_failed", "dir", dir, "error", err)
	}
}

// textFromContentStream pulls shown strings out of a page content stream.
// Text-positioning operators become line breaks; large negative kerning inside
// TJ arrays becomes a space.
func textFromContentStream(data []byte) string {
	var (
		out     strings.Builder
		pending []byte
		inArray bool
	)
	newline := func() {
		s := out.String()
		if len(s) > 0 && !strings.HasSuffix(s, "\n") {
			out.WriteByte('\n')
		}
	}
	flush := func() {
		if len(pending) > 0 {
			out.WriteString(decodeShown(pending))
		}
		pending = pending[:0]
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isPDFSpace(c):
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			s, next := readLiteral(data, i)
			pending = append(pending, s...)
			i = next
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			i += 2
		case c == '>' && i+1 < len(data) && data[i+1] == '>':
			i += 2
		case c == '<':
			s, next := readHex(data, i)
			pending = append(pending, s...)
			i = next
		case c == '[':
			inArray = true
			i++
		case c == ']':
			inArray = false
			i++
		default:
			j := i
			for j < len(data) && !isPDFSpace(data[j]) && !isPDFDelim(data[j]) {
				j++
			}
			if j == i {
				j++
			}
			tok := string(data[i:j])
			i = j
			switch tok {
			case "Tj", "TJ":
				flush()
			case "'", "\"":
				newline()
				flush()
			case "T*", "Td", "TD", "Tm", "ET":
				newline()
				pending = pending[:0]
			default:
				if inArray {
					if v, err := strconv.ParseFloat(tok, 64); err == nil && v <= -200 {
						pending = append(pending, ' ')
					}
				} else if !isNumber(tok) {
					pending = pending[:0]
				}
			}
		}
	}
	return out.String()
}

func isPDFSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isPDFDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func isNumber(tok string) bool {
	_, err := strconv.ParseFloat(tok, 64)
	return err == nil
}

// readLiteral reads a (...) string starting at data[i], honoring nesting and escapes.
func readLiteral(data []byte, i int) ([]byte, int) {
	var out []byte
	depth := 0
	for i < len(data) {
		c := data[i]
		switch {
		case c == '\\' && i+1 < len(data):
			i++
			switch e := data[i]; e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b', 'f':
			case '\r', '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					v := 0
					k := 0
					for k < 3 && i < len(data) && data[i] >= '0' && data[i] <= '7' {
						v = v*8 + int(data[i]-'0')
						i++
						k++
					}
					out = append(out, byte(v))
					continue
				}
				out = append(out, e)
			}
			i++
		case c == '(':
			if depth > 0 {
				out = append(out, c)
			}
			depth++
			i++
		case c == ')':
			depth--
			i++
			if depth == 0 {
				return out, i
			}
			out = append(out, c)
		default:
			out = append(out, c)
			i++
		}
	}
	return out, i
}

// readHex reads a <...> hex string starting at data[i].
func readHex(data []byte, i int) ([]byte, int) {
	i++
	var digits []byte
	for i < len(data) && data[i] != '>' {
		if h := data[i]; (h >= '0' && h <= '9') || (h >= 'a' && h <= 'f') || (h >= 'A' && h <= 'F') {
			digits = append(digits, h)
		}
		i++
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for k := 0; k < len(digits); k += 2 {
		v, _ := strconv.ParseUint(string(digits[k:k+2]), 16, 8)
		out = append(out, byte(v))
	}
	return out, i + 1
}

// decodeShown treats non-UTF-8 string bytes as Latin-1.
func decodeShown(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
