package zip2pdf

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"runtime/debug"
	"time"

	"github.com/alnah/go-zip2pdf/internal/archive"
	"github.com/alnah/go-zip2pdf/internal/assets"
	"github.com/alnah/go-zip2pdf/internal/classify"
	"github.com/alnah/go-zip2pdf/internal/history"
	"github.com/alnah/go-zip2pdf/internal/mimetype"
	"github.com/alnah/go-zip2pdf/internal/pdfmeta"
	"github.com/alnah/go-zip2pdf/internal/pipeline"
	"github.com/alnah/go-zip2pdf/internal/rewrite"
	"github.com/alnah/go-zip2pdf/internal/workspace"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.HTMLConverter = (*pipeline.GoldmarkConverter)(nil)
	_ pipeline.Sanitizer     = (*pipeline.BodySanitizer)(nil)
	_ mimetype.Detector      = mimetype.Sniffer{}
	_ Recorder               = (*history.Store)(nil)
)

// Creator is written into the PDF document properties.
const Creator = "go-zip2pdf"

// Recorder receives one record per finished conversion.
type Recorder interface {
	Add(ctx context.Context, r history.Record) (history.Record, error)
}

// Branding carries the organisation shown on cover pages.
type Branding struct {
	CompanyName string
	Subtitle    string
	Logo        string // embedded asset name, file path or URL
	DateFormat  string // dateutil tokens or preset name
}

// TOCSettings configures the table of contents.
type TOCSettings struct {
	Title    string
	MinDepth int
	MaxDepth int
}

// converterConfig holds construction-time settings.
type converterConfig struct {
	limits          archive.Limits
	workspaceDir    string
	assetPath       string
	style           string
	toc             TOCSettings
	syntaxHighlight bool
	branding        Branding
	pageFormat      string
	timeout         time.Duration
	workers         int
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) { c.logger = l }
}

// WithLimits bounds uploads and extraction. Zero fields keep the defaults.
func WithLimits(l archive.Limits) Option {
	return func(c *Converter) { c.cfg.limits = l }
}

// WithWorkspaceDir sets where workspaces are created (default os.TempDir).
func WithWorkspaceDir(dir string) Option {
	return func(c *Converter) { c.cfg.workspaceDir = dir }
}

// WithAssetPath overlays a directory of styles, templates and images on
// the embedded defaults.
func WithAssetPath(dir string) Option {
	return func(c *Converter) { c.cfg.assetPath = dir }
}

// WithAssetLoader replaces the template store entirely.
func WithAssetLoader(l assets.AssetLoader) Option {
	return func(c *Converter) { c.loader = l }
}

// WithStyle selects the stylesheet by name.
func WithStyle(name string) Option {
	return func(c *Converter) { c.cfg.style = name }
}

// WithTOC configures the table of contents.
func WithTOC(s TOCSettings) Option {
	return func(c *Converter) { c.cfg.toc = s }
}

// WithSyntaxHighlight enables chroma colouring of code blocks.
func WithSyntaxHighlight(on bool) Option {
	return func(c *Converter) { c.cfg.syntaxHighlight = on }
}

// WithBranding sets cover page branding.
func WithBranding(b Branding) Option {
	return func(c *Converter) { c.cfg.branding = b }
}

// WithPageFormat sets the paper size (A4, Letter, Legal, A3, A5).
func WithPageFormat(name string) Option {
	return func(c *Converter) { c.cfg.pageFormat = name }
}

// WithTimeout bounds each conversion.
func WithTimeout(d time.Duration) Option {
	return func(c *Converter) { c.cfg.timeout = d }
}

// WithWorkers sets the number of parallel renderers (0 = auto).
func WithWorkers(n int) Option {
	return func(c *Converter) { c.cfg.workers = n }
}

// WithRenderer uses r for every conversion instead of a pool of browsers.
// Close closes r if a conversion has used it.
func WithRenderer(r Renderer) Option {
	return func(c *Converter) { c.renderer = r }
}

// WithDetector sets the content-type inspector.
func WithDetector(d mimetype.Detector) Option {
	return func(c *Converter) { c.detector = d }
}

// WithRecorder logs every conversion to r.
func WithRecorder(r Recorder) Option {
	return func(c *Converter) { c.recorder = r }
}

// Converter turns zip bundles into branded PDFs. It is safe for concurrent
// use; each conversion gets its own workspace.
type Converter struct {
	cfg           converterConfig
	logger        *slog.Logger
	loader        assets.AssetLoader
	detector      mimetype.Detector
	htmlConverter pipeline.HTMLConverter
	assembler     *pipeline.Assembler
	workspaces    *workspace.Manager
	renderer      Renderer
	pool          *RendererPool
	recorder      Recorder
	now           func() time.Time
	release       func(*workspace.Workspace)
}

// NewConverter creates a Converter. It fails when the stylesheet or cover
// template cannot be loaded, so a broken deployment refuses to start.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg: converterConfig{
			style:      assets.DefaultStyleName,
			pageFormat: DefaultPageFormat,
			timeout:    defaultTimeout,
		},
		logger:   slog.Default(),
		detector: mimetype.NewSniffer(),
		now:      time.Now,
		release:  (*workspace.Workspace).Release,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	if err := ValidatePageFormat(c.cfg.pageFormat); err != nil {
		return nil, err
	}

	if c.loader == nil {
		if c.cfg.assetPath != "" {
			resolver, err := assets.NewAssetResolver(c.cfg.assetPath)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidAsset, err)
			}
			c.loader = resolver
		} else {
			c.loader = assets.NewEmbeddedLoader()
		}
	}
	if err := assets.ValidateRequirements(c.loader, c.cfg.style); err != nil {
		return nil, &ConversionError{Kind: KindTemplateMissing, Message: kindMessages[KindTemplateMissing], Err: err}
	}

	if c.htmlConverter == nil {
		c.htmlConverter = pipeline.NewGoldmarkConverter(c.cfg.syntaxHighlight)
	}
	c.assembler = pipeline.NewAssembler(c.loader,
		pipeline.WithConverter(c.htmlConverter),
		pipeline.WithStyle(c.cfg.style),
		pipeline.WithTOC(pipeline.TOCOptions{
			Title:    c.cfg.toc.Title,
			MinDepth: c.cfg.toc.MinDepth,
			MaxDepth: c.cfg.toc.MaxDepth,
		}),
		pipeline.WithLogger(c.logger),
	)

	c.workspaces = workspace.NewManager(c.cfg.workspaceDir, c.logger)

	if c.renderer != nil {
		r := c.renderer
		c.pool = NewRendererPool(1, func() (Renderer, error) { return r, nil })
	} else {
		format, timeout, logger := c.cfg.pageFormat, c.cfg.timeout, c.logger
		c.pool = NewRendererPool(ResolvePoolSize(c.cfg.workers), func() (Renderer, error) {
			return NewRodRenderer(format, timeout, logger)
		})
	}
	return c, nil
}

// Close releases every browser.
func (c *Converter) Close() error {
	return c.pool.Close()
}

// Workers returns the renderer pool size.
func (c *Converter) Workers() int { return c.pool.Size() }

// PageFormat returns the configured paper size.
func (c *Converter) PageFormat() string { return c.cfg.pageFormat }

// Limits returns the effective archive limits.
func (c *Converter) Limits() archive.Limits { return c.cfg.limits.WithDefaults() }

// SweepWorkspaces removes workspaces older than olderThan left behind by a
// previous process.
func (c *Converter) SweepWorkspaces(olderThan time.Duration) (int, error) {
	return c.workspaces.Sweep(olderThan)
}

// Convert turns a zip bundle into a PDF. The workspace holding the
// extracted files is removed before Convert returns, whatever the outcome.
// Every error is a *ConversionError; internal panics are recovered into
// KindInternal.
func (c *Converter) Convert(ctx context.Context, data []byte, title string, includeTOC bool) (res *Result, err error) {
	start := c.now()
	if c.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.timeout)
		defer cancel()
	}

	var primary string
	defer func() {
		c.record(ctx, title, primary, res, err, c.now().Sub(start))
	}()

	title, err = ValidateTitle(title)
	if err != nil {
		return nil, wrapError(err)
	}

	ws, err := c.workspaces.Acquire()
	if err != nil {
		return nil, wrapError(err)
	}
	defer c.release(ws)

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("conversion panicked",
				slog.String("workspace", ws.ID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			res = nil
			err = &ConversionError{Kind: KindInternal, Message: kindMessages[KindInternal], Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	logger := c.logger.With(slog.String("workspace", ws.ID))
	if id := RequestIDFrom(ctx); id != "" {
		logger = logger.With(slog.String("request_id", id))
	}

	res, err = c.convert(ctx, ws, data, title, includeTOC, logger, &primary)
	if err != nil {
		err = wrapError(err)
		logger.Warn("conversion failed",
			slog.String("kind", string(KindOf(err))),
			slog.String("error", err.Error()))
		return nil, err
	}
	res.Duration = c.now().Sub(start)
	logger.Info("conversion completed",
		slog.String("primary", res.Primary),
		slog.Int("pages", res.Pages),
		slog.Int("pdf_bytes", len(res.PDF)),
		slog.Int("unresolved", len(res.Unresolved)),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// convert runs the stages in order, checking for cancellation between them.
func (c *Converter) convert(ctx context.Context, ws *workspace.Workspace, data []byte, title string, includeTOC bool, logger *slog.Logger, primary *string) (*Result, error) {
	entries, err := archive.Extract(data, ws.Root, c.cfg.limits, c.detector)
	if err != nil {
		return nil, err
	}
	logger.Debug("archive extracted", slog.Int("entries", len(entries)))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inv, err := classify.Classify(ws.Root)
	if err != nil {
		return nil, err
	}
	*primary = inv.Primary
	if len(inv.Documents) > 1 {
		logger.Info("multiple documents found",
			slog.Int("documents", len(inv.Documents)),
			slog.String("primary", inv.Primary))
	}

	text, fellBack, err := inv.ReadPrimary()
	if err != nil {
		return nil, err
	}
	if fellBack {
		logger.Warn("document is not valid UTF-8, decoded as Latin-1", slog.String("file", inv.Primary))
	}

	resources, err := rewrite.VerifyResources(ctx, inv.Resources, c.detector, logger)
	if err != nil {
		return nil, err
	}
	rewritten := rewrite.RewriteRelative(text, path.Dir(inv.Primary), resources)
	if len(rewritten.Unresolved) > 0 {
		logger.Warn("unresolved image references", slog.Any("images", rewritten.Unresolved))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := c.assembler.Assemble(ctx, pipeline.AssembleInput{
		Markdown:   rewritten.Text,
		Title:      title,
		IncludeTOC: includeTOC,
		Branding: pipeline.Branding{
			CompanyName: c.cfg.branding.CompanyName,
			Subtitle:    c.cfg.branding.Subtitle,
			Logo:        c.cfg.branding.Logo,
			DateFormat:  c.cfg.branding.DateFormat,
		},
		Now: c.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf, err := c.render(ctx, doc, ws)
	if err != nil {
		return nil, err
	}

	pages, err := pdfmeta.Inspect(pdf)
	if err != nil {
		return nil, err
	}
	// Chrome already sets Title from <title>; these are custom entries.
	if annotated, err := pdfmeta.Annotate(pdf, map[string]string{
		"Company":        c.cfg.branding.CompanyName,
		"SourceDocument": inv.Primary,
		"Generator":      Creator,
	}); err != nil {
		logger.Warn("could not set PDF properties", slog.String("error", err.Error()))
	} else {
		pdf = annotated
	}

	return &Result{
		PDF:        pdf,
		HTML:       doc.HTML(),
		Primary:    inv.Primary,
		Unresolved: rewritten.Unresolved,
		Pages:      pages,
		Entries:    len(entries),
	}, nil
}

// render borrows a renderer for the duration of one document.
func (c *Converter) render(ctx context.Context, doc *pipeline.RenderableDocument, ws *workspace.Workspace) ([]byte, error) {
	r, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer c.pool.Release(r)
	return r.Render(ctx, doc, ws.Root)
}

// record writes the outcome to the history store, if any. It must not fail
// the conversion.
func (c *Converter) record(ctx context.Context, title, primary string, res *Result, err error, d time.Duration) {
	if c.recorder == nil {
		return
	}
	rec := history.Record{
		RequestID: RequestIDFrom(ctx),
		Title:     title,
		Primary:   primary,
		Status:    history.StatusSucceeded,
		Duration:  d,
	}
	if err != nil {
		rec.Status = history.StatusFailed
		rec.ErrorKind = string(KindOf(err))
	}
	if res != nil {
		rec.Pages = res.Pages
		rec.Bytes = int64(len(res.PDF))
		rec.Unresolved = len(res.Unresolved)
	}
	if _, recErr := c.recorder.Add(context.WithoutCancel(ctx), rec); recErr != nil {
		c.logger.Warn("recording conversion failed", slog.String("error", recErr.Error()))
	}
}

type requestIDKey struct{}

// ContextWithRequestID tags ctx so logs and history carry the request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request id set by ContextWithRequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
