package ocr

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

func (e *Extractor) extractDOCX(data []byte) ExtractedText {
	text, err := docxText(data)
	if err != nil {
		e.logger.Warn("ocr.docx.failed", "error", err)
		return ExtractedText{Provenance: ProvenanceDirect, Warnings: []string{err.Error()}}
	}
	return ExtractedText{Text: text, Provenance: ProvenanceDirect, Pages: 1}
}

// docxText returns the paragraphs of word/document.xml joined by newlines.
// Empty paragraphs are kept so section boundaries survive as blank lines.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()
		return paragraphs(rc)
	}
	return "", errors.New("docx has no word/document.xml")
}

func paragraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		paras  []string
		cur    strings.Builder
		inPara bool
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
				cur.Reset()
			case "t":
				inText = true
			case "tab":
				if inPara {
					cur.WriteByte('\t')
				}
			case "br", "cr":
				if inPara {
					cur.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inPara {
					paras = append(paras, cur.String())
				}
				inPara = false
			}
		case xml.CharData:
			if inText && inPara {
				cur.Write(t)
			}
		}
	}
	return strings.Join(paras, "\n"), nil
}
