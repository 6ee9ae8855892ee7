package zip2pdf

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-zip2pdf/internal/pipeline"
)

func TestNewRodRenderer(t *testing.T) {
	t.Parallel()

	r, err := NewRodRenderer("", 0, nil)
	if err != nil {
		t.Fatalf("NewRodRenderer() error = %v", err)
	}
	if r.pageFormat != DefaultPageFormat || r.timeout != defaultTimeout {
		t.Errorf("defaults not applied: format=%q timeout=%v", r.pageFormat, r.timeout)
	}

	if _, err := NewRodRenderer("B5", time.Second, nil); !errors.Is(err, ErrPageFormat) {
		t.Errorf("NewRodRenderer(B5) error = %v, want ErrPageFormat", err)
	}
}

func TestRodRenderer_PrintOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format        string
		width, height float64
	}{
		{"A4", 8.27, 11.69},
		{"letter", 8.5, 11},
		{"Legal", 8.5, 14},
	}
	for _, tt := range tests {
		r, err := NewRodRenderer(tt.format, time.Second, nil)
		if err != nil {
			t.Fatal(err)
		}
		opts := r.printOptions("Report")
		if *opts.PaperWidth != tt.width || *opts.PaperHeight != tt.height {
			t.Errorf("%s: paper = %vx%v, want %vx%v", tt.format, *opts.PaperWidth, *opts.PaperHeight, tt.width, tt.height)
		}
		if !opts.PrintBackground || !opts.DisplayHeaderFooter {
			t.Errorf("%s: background/footer not enabled", tt.format)
		}
	}
}

func TestFooterTemplate(t *testing.T) {
	t.Parallel()

	got := footerTemplate(`<b>R&D</b>`)
	if !strings.Contains(got, "&lt;b&gt;R&amp;D&lt;/b&gt;") {
		t.Errorf("title not escaped: %s", got)
	}
	if !strings.Contains(got, `class="pageNumber"`) || !strings.Contains(got, `class="totalPages"`) {
		t.Errorf("page counters missing: %s", got)
	}
}

func TestRodRenderer_CanceledContext(t *testing.T) {
	t.Parallel()

	r, err := NewRodRenderer("A4", time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Fails before touching the browser.
	if _, err := r.Render(ctx, &pipeline.RenderableDocument{}, t.TempDir()); !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() on unused renderer = %v", err)
	}
}
