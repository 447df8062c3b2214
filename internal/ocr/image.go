package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

func (e *Extractor) extractImage(ctx context.Context, data []byte, ext string) ExtractedText {
	ocrCtx, cancel := e.ocrContext(ctx)
	defer cancel()

	tmpDir, err := os.MkdirTemp(e.cfg.TempDir, "guidify-img-*")
	if err != nil {
		return ExtractedText{Provenance: ProvenanceOCR, Warnings: []string{err.Error()}}
	}
	defer e.removeAll(tmpDir)

	path := filepath.Join(tmpDir, "input."+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return ExtractedText{Provenance: ProvenanceOCR, Warnings: []string{err.Error()}}
	}

	txt, err := e.tesseract(ocrCtx, path)
	if err != nil {
		return ExtractedText{Provenance: ProvenanceOCR, Pages: 1, Warnings: []string{err.Error()}}
	}
	return ExtractedText{Text: txt, Provenance: ProvenanceOCR, Pages: 1}
}

func (e *Extractor) tesseract(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract %s: %w: %s", filepath.Base(path), err, truncate(string(errb), 512))
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}
