package zip2pdf

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/alnah/go-zip2pdf/internal/history"
	"github.com/alnah/go-zip2pdf/internal/pipeline"
)

// pngHeader is enough for content sniffing to report image/png.
const pngHeader = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"

type zipFile struct {
	name string
	body string
}

func buildZip(t *testing.T, files ...zipFile) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatalf("creating %s: %v", f.name, err)
		}
		if _, err := w.Write([]byte(f.body)); err != nil {
			t.Fatalf("writing %s: %v", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

// buildPDF writes a minimal uncompressed PDF with blank pages and an info
// dictionary.
func buildPDF(pages int) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	// 1 catalog, 2 pages, 3 info, 4.. page objects
	total := 3 + pages
	offsets := make([]int, total+1)
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = strconv.Itoa(4+i) + " 0 R"
	}

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [" + strings.Join(kids, " ") + "] /Count " + strconv.Itoa(pages) + " >>\nendobj\n")
	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Producer (test) >>\nendobj\n")
	for i := 0; i < pages; i++ {
		n := 4 + i
		offsets[n] = b.Len()
		b.WriteString(strconv.Itoa(n) + " 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] >>\nendobj\n")
	}

	xref := b.Len()
	b.WriteString("xref\n0 " + strconv.Itoa(total+1) + "\n0000000000 65535 f \n")
	for i := 1; i <= total; i++ {
		off := strconv.Itoa(offsets[i])
		b.WriteString(strings.Repeat("0", 10-len(off)) + off + " 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size " + strconv.Itoa(total+1) + " /Root 1 0 R /Info 3 0 R >>\nstartxref\n" + strconv.Itoa(xref) + "\n%%EOF\n")
	return []byte(b.String())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockRenderer struct {
	mu       sync.Mutex
	pdf      []byte
	err      error
	panicMsg string
	docs     []*pipeline.RenderableDocument
	dirs     []string
	closed   int
}

func (m *mockRenderer) Render(ctx context.Context, doc *pipeline.RenderableDocument, dir string) ([]byte, error) {
	m.mu.Lock()
	m.docs = append(m.docs, doc)
	m.dirs = append(m.dirs, dir)
	m.mu.Unlock()

	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.err != nil {
		return nil, m.err
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	return m.pdf, nil
}

func (m *mockRenderer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *mockRenderer) lastDoc() *pipeline.RenderableDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.docs) == 0 {
		return nil
	}
	return m.docs[len(m.docs)-1]
}

type mockHTMLConverter struct {
	err error
}

func (m *mockHTMLConverter) ToHTML(context.Context, string) (string, error) {
	return "", m.err
}

func withHTMLConverter(h pipeline.HTMLConverter) Option {
	return func(c *Converter) { c.htmlConverter = h }
}

type mockRecorder struct {
	mu      sync.Mutex
	records []history.Record
}

func (m *mockRecorder) Add(_ context.Context, r history.Record) (history.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return r, nil
}

// cancelingDetector cancels a context on its nth call, letting tests fail
// a conversion between two stages.
type cancelingDetector struct {
	inner  interface{ Detect([]byte) string }
	cancel context.CancelFunc
	after  int
	calls  int
}

func (d *cancelingDetector) Detect(head []byte) string {
	d.calls++
	if d.calls == d.after {
		d.cancel()
	}
	return d.inner.Detect(head)
}
