package ocr

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/guidify/internal/common"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   []string
	pages   int
	ocrText string
	failOCR bool
	tmpDirs []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	switch name {
	case "pdftoppm":
		prefix := args[len(args)-1]
		f.tmpDirs = append(f.tmpDirs, filepath.Dir(prefix))
		for i := 1; i <= f.pages; i++ {
			p := prefix + "-" + string(rune('0'+i)) + ".png"
			if err := os.WriteFile(p, []byte("png"), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		f.tmpDirs = append(f.tmpDirs, filepath.Dir(args[0]))
		if f.failOCR {
			return nil, []byte("boom"), errors.New("exit status 1")
		}
		return []byte(f.ocrText + " " + filepath.Base(args[0])), nil, nil
	}
	return nil, nil, errors.New("unexpected command " + name)
}

func (f *fakeRunner) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

type fakePDF struct {
	pages []string
	err   error
}

func (f fakePDF) PageTexts([]byte) ([]string, error) { return f.pages, f.err }

func newTestExtractor(r *fakeRunner, pdf PDFReader) *Extractor {
	return NewExtractor(Config{}, nil, WithRunner(r), WithPDFReader(pdf))
}

func TestExtract_PDFWithTextLayerSkipsOCR(t *testing.T) {
	long := strings.Repeat("Percentage: 87% Board of Secondary Education ", 4)
	r := &fakeRunner{pages: 2, ocrText: "scanned"}
	e := newTestExtractor(r, fakePDF{pages: []string{long, ""}})

	res, err := e.Extract(context.Background(), RawDocument{Name: "marks.pdf", Data: []byte("%PDF-1.7")})
	require.NoError(t, err)

	assert.Equal(t, ProvenanceDirect, res.Provenance)
	assert.Equal(t, 0, len(r.calls))
	assert.Contains(t, res.Text, "Percentage: 87%")
	assert.Equal(t, 2, res.Pages)
}

func TestExtract_PDFBelowThresholdUsesOCR(t *testing.T) {
	r := &fakeRunner{pages: 2, ocrText: "scanned page"}
	e := newTestExtractor(r, fakePDF{pages: []string{"tiny"}})

	res, err := e.Extract(context.Background(), RawDocument{Name: "scan.PDF", Data: []byte("%PDF-1.7")})
	require.NoError(t, err)

	assert.Equal(t, ProvenanceOCR, res.Provenance)
	assert.Equal(t, 1, r.count("pdftoppm"))
	assert.Equal(t, 2, r.count("tesseract"))
	assert.NotContains(t, res.Text, "tiny")
	assert.Contains(t, res.Text, "scanned page page-1.png")
	assert.Contains(t, res.Text, "scanned page page-2.png")
	for _, d := range r.tmpDirs {
		assert.NoDirExists(t, d)
	}
}

func TestExtract_PDFUnreadableTextLayerFallsBack(t *testing.T) {
	r := &fakeRunner{pages: 1, ocrText: "from ocr"}
	e := newTestExtractor(r, fakePDF{err: errors.New("corrupt xref")})

	res, err := e.Extract(context.Background(), RawDocument{Ext: ".pdf", Data: []byte("junk")})
	require.NoError(t, err)
	assert.Equal(t, ProvenanceOCR, res.Provenance)
	assert.Contains(t, res.Text, "from ocr")
	assert.NotEmpty(t, res.Warnings)
}

func TestExtract_ImageOCRFailureDegradesToEmpty(t *testing.T) {
	r := &fakeRunner{failOCR: true}
	e := newTestExtractor(r, fakePDF{})

	res, err := e.Extract(context.Background(), RawDocument{Name: "card.jpeg", Data: []byte{0xff, 0xd8}})
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, ProvenanceOCR, res.Provenance)
	require.Len(t, r.tmpDirs, 1)
	assert.NoDirExists(t, r.tmpDirs[0])
}

func TestExtract_ImageAlwaysOCR(t *testing.T) {
	for _, ext := range []string{"png", "jpg", "bmp", "tif", "tiff"} {
		r := &fakeRunner{ocrText: "Marks: 91"}
		e := newTestExtractor(r, fakePDF{pages: []string{strings.Repeat("x", 500)}})

		res, err := e.Extract(context.Background(), RawDocument{Name: "sheet." + ext, Data: []byte("img")})
		require.NoError(t, err, ext)
		assert.Equal(t, ProvenanceOCR, res.Provenance, ext)
		assert.Equal(t, 1, r.count("tesseract"), ext)
		assert.Contains(t, res.Text, "Marks: 91", ext)
	}
}

func TestExtract_TextDropsInvalidUTF8(t *testing.T) {
	e := newTestExtractor(&fakeRunner{}, fakePDF{})
	data := []byte("Name: Asha\xff\xfe\nPercentage: 82\r\n")

	res, err := e.Extract(context.Background(), RawDocument{Name: "notes.txt", Data: data})
	require.NoError(t, err)
	assert.Equal(t, "Name: Asha\nPercentage: 82", res.Text)
	assert.Equal(t, ProvenanceDirect, res.Provenance)
}

func TestExtract_DOCXParagraphs(t *testing.T) {
	doc := buildDOCX(t, []string{"SKILLS", "Python, SQL", "", "EDUCATION", "B.Sc Physics"})
	e := newTestExtractor(&fakeRunner{}, fakePDF{})

	res, err := e.Extract(context.Background(), RawDocument{Name: "resume.docx", Data: doc})
	require.NoError(t, err)
	assert.Equal(t, "SKILLS\nPython, SQL\n\nEDUCATION\nB.Sc Physics", res.Text)
}

func TestExtract_BrokenDOCXIsEmptyNotError(t *testing.T) {
	e := newTestExtractor(&fakeRunner{}, fakePDF{})
	res, err := e.Extract(context.Background(), RawDocument{Name: "resume.docx", Data: []byte("not a zip")})
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestExtract_UnsupportedAndEmpty(t *testing.T) {
	e := newTestExtractor(&fakeRunner{}, fakePDF{})

	res, err := e.Extract(context.Background(), RawDocument{Name: "slides.pptx", Data: []byte("x")})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.Equal(t, "Unsupported file format: .pptx", res.Text)

	_, err = e.Extract(context.Background(), RawDocument{Name: "empty.pdf"})
	assert.ErrorIs(t, err, common.ErrEmptyDocument)
}

func TestTextFromContentStream(t *testing.T) {
	stream := []byte("BT /F1 12 Tf 72 712 Td (Percentage: 87%) Tj T* [(Mark)-250(sheet)] TJ ET\n" +
		"BT (Roll \\(A\\) \\061) Tj ET <48656c6c6f> Tj")
	got := textFromContentStream(stream)
	assert.Equal(t, "Percentage: 87%\nMark sheet\nRoll (A) 1\nHello", got)
}

func TestNormalize(t *testing.T) {
	in := "a\t\tb   c  \r\n\r\n\r\n\r\nd\fe  "
	assert.Equal(t, "a b c\n\nd\ne", Normalize(in))
}

func buildDOCX(t *testing.T, paras []string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paras {
		if p == "" {
			body.WriteString(`<w:p/>`)
			continue
		}
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">` + p + `</w:t></w:r></w:p>`)
	}
	xmlDoc := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(xmlDoc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
