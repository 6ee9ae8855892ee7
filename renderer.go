package zip2pdf

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-zip2pdf/internal/fileutil"
	"github.com/alnah/go-zip2pdf/internal/hints"
	"github.com/alnah/go-zip2pdf/internal/pipeline"
	"github.com/alnah/go-zip2pdf/internal/process"
	"github.com/alnah/go-zip2pdf/internal/rewrite"
)

// Renderer turns an assembled document into PDF bytes. dir is a private
// directory the renderer may write scratch files to; it is removed by the
// caller.
type Renderer interface {
	Render(ctx context.Context, doc *pipeline.RenderableDocument, dir string) ([]byte, error)
	Close() error
}

// Compile-time interface check.
var _ Renderer = (*RodRenderer)(nil)

const defaultTimeout = 5 * time.Minute

// RodRenderer renders with headless Chrome via go-rod. The browser is
// launched lazily on first use; rod downloads Chromium if none is found.
// A RodRenderer renders one document at a time.
type RodRenderer struct {
	mu         sync.Mutex
	browser    *rod.Browser
	launcher   *launcher.Launcher
	timeout    time.Duration
	pageFormat string
	logger     *slog.Logger
}

// NewRodRenderer creates a renderer for the given page format.
func NewRodRenderer(pageFormat string, timeout time.Duration, logger *slog.Logger) (*RodRenderer, error) {
	if pageFormat == "" {
		pageFormat = DefaultPageFormat
	}
	if err := ValidatePageFormat(pageFormat); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RodRenderer{timeout: timeout, pageFormat: pageFormat, logger: logger}, nil
}

// ensureBrowser lazily connects to the browser. Callers hold r.mu.
func (r *RodRenderer) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" || hints.IsInContainer() {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v%s", ErrBrowserConnect, err, hints.ForBrowserConnect())
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		r.kill(l)
		return fmt.Errorf("%w: %v%s", ErrBrowserConnect, err, hints.ForBrowserConnect())
	}
	r.browser = browser
	r.launcher = l
	r.logger.Debug("browser launched", slog.Int("pid", l.PID()))
	return nil
}

// Close releases browser resources, killing the whole process group so no
// renderer helpers outlive the browser.
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		r.kill(r.launcher)
		r.launcher = nil
	}
	return err
}

func (r *RodRenderer) kill(l *launcher.Launcher) {
	process.KillProcessGroup(l.PID())
	l.Kill()
	l.Cleanup()
}

// Render writes the document into dir and prints it to PDF.
func (r *RodRenderer) Render(ctx context.Context, doc *pipeline.RenderableDocument, dir string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	htmlPath, cleanup, err := fileutil.WriteTempFile(dir, doc.HTML(), "html")
	if err != nil {
		return nil, fmt.Errorf("%w: writing page: %v", ErrPDFGeneration, err)
	}
	defer cleanup()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}
	return r.renderFile(ctx, htmlPath, doc.Title)
}

// renderFile opens a local HTML file and prints it. Browser failures become
// errors rather than panics.
func (r *RodRenderer) renderFile(ctx context.Context, htmlPath, title string) ([]byte, error) {
	page, err := r.browser.Page(proto.TargetCreateTarget{URL: rewrite.FileURL(htmlPath)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	page = page.Context(ctx)

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v%s", ErrPageLoad, err, hints.ForTimeout())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := page.PDF(r.printOptions(title))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdf, nil
}

// printOptions builds the print settings for the configured page format.
func (r *RodRenderer) printOptions(title string) *proto.PagePrintToPDF {
	size := paperSizes[strings.ToLower(r.pageFormat)]
	return &proto.PagePrintToPDF{
		PaperWidth:          floatPtr(size.Width),
		PaperHeight:         floatPtr(size.Height),
		MarginTop:           floatPtr(marginInches),
		MarginBottom:        floatPtr(marginBottomInches),
		MarginLeft:          floatPtr(marginInches),
		MarginRight:         floatPtr(marginInches),
		PrintBackground:     true,
		DisplayHeaderFooter: true,
		HeaderTemplate:      "<span></span>",
		FooterTemplate:      footerTemplate(title),
	}
}

// footerTemplate shows the title on the left and page numbers on the right.
// Chrome fills the pageNumber and totalPages classes.
func footerTemplate(title string) string {
	return fmt.Sprintf(`<div style="font-size: 9px; font-family: sans-serif; color: #888; width: 100%%; padding: 0 0.6in; display: flex; justify-content: space-between;">`+
		`<span>%s</span><span><span class="pageNumber"></span> / <span class="totalPages"></span></span></div>`,
		html.EscapeString(title))
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
