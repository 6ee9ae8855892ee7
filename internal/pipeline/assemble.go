package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"html/template"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-zip2pdf/internal/assets"
	"github.com/alnah/go-zip2pdf/internal/dateutil"
	"github.com/alnah/go-zip2pdf/internal/fileutil"
	"github.com/alnah/go-zip2pdf/internal/mimetype"
)

// ErrTemplateMissing indicates the stylesheet could not be loaded.
var ErrTemplateMissing = errors.New("stylesheet template missing")

// Branding carries the organisation details shown on the cover and
// substituted into the stylesheet.
type Branding struct {
	CompanyName string
	Subtitle    string
	Logo        string // embedded asset name, file path or http(s) URL; empty for none
	DateFormat  string // dateutil format or preset; empty for the default
}

// AssembleInput is everything needed to assemble one document.
type AssembleInput struct {
	Markdown   string
	Title      string
	IncludeTOC bool
	Branding   Branding
	Now        time.Time // zero means time.Now()
}

// RenderableDocument is an assembled document ready for the PDF renderer.
// It must not be modified once handed to a renderer.
type RenderableDocument struct {
	Title        string
	Organization string
	LogoURL      string
	GeneratedAt  time.Time
	CoverHTML    string
	TOCHTML      string // empty when no TOC was generated
	BodyHTML     string
	CSS          string
}

// HTML composes the complete page: cover, then table of contents, then body.
func (d *RenderableDocument) HTML() string {
	var b strings.Builder
	b.Grow(len(d.CSS) + len(d.CoverHTML) + len(d.TOCHTML) + len(d.BodyHTML) + 512)

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	b.WriteString("<title>")
	b.WriteString(html.EscapeString(d.Title))
	b.WriteString("</title>\n<style>")
	b.WriteString(d.CSS)
	b.WriteString("</style>\n</head>\n<body>\n")
	b.WriteString(d.CoverHTML)
	b.WriteString("\n")
	if d.TOCHTML != "" {
		b.WriteString(d.TOCHTML)
		b.WriteString("\n")
	}
	b.WriteString("<div class=\"content\">\n")
	b.WriteString(d.BodyHTML)
	b.WriteString("\n</div>\n</body>\n</html>\n")
	return b.String()
}

// Assembler turns markdown into a RenderableDocument.
// It is safe for concurrent use once constructed.
type Assembler struct {
	converter HTMLConverter
	sanitizer Sanitizer
	loader    assets.AssetLoader
	detector  mimetype.Detector
	style     string
	toc       TOCOptions
	logger    *slog.Logger
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithConverter sets the markdown converter.
func WithConverter(c HTMLConverter) AssemblerOption {
	return func(a *Assembler) { a.converter = c }
}

// WithSanitizer sets the body sanitiser.
func WithSanitizer(s Sanitizer) AssemblerOption {
	return func(a *Assembler) { a.sanitizer = s }
}

// WithStyle sets the stylesheet asset name.
func WithStyle(name string) AssemblerOption {
	return func(a *Assembler) { a.style = name }
}

// WithTOC sets table of contents options.
func WithTOC(opts TOCOptions) AssemblerOption {
	return func(a *Assembler) { a.toc = opts }
}

// WithLogger sets the logger for non-fatal conditions.
func WithLogger(l *slog.Logger) AssemblerOption {
	return func(a *Assembler) { a.logger = l }
}

// NewAssembler creates an Assembler reading templates from loader.
func NewAssembler(loader assets.AssetLoader, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		converter: NewGoldmarkConverter(false),
		sanitizer: NewBodySanitizer(),
		loader:    loader,
		detector:  mimetype.NewSniffer(),
		style:     assets.DefaultStyleName,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.toc = a.toc.withDefaults()
	return a
}

// Assemble builds the document. A missing stylesheet fails with
// ErrTemplateMissing; a broken cover template or logo degrades with a warning.
func (a *Assembler) Assemble(ctx context.Context, in AssembleInput) (*RenderableDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	style, err := a.loader.LoadStyle(a.style)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplateMissing, err)
	}

	body, err := a.converter.ToHTML(ctx, in.Markdown)
	if err != nil {
		return nil, err
	}
	body = a.sanitizer.Sanitize(body)

	tree, err := parseFragment(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing body: %v", ErrHTMLConversion, err)
	}
	headings, changed := collectHeadings(tree)
	if changed {
		if body, err = renderFragment(tree); err != nil {
			return nil, fmt.Errorf("%w: rendering body: %v", ErrHTMLConversion, err)
		}
	}

	var toc string
	if in.IncludeTOC {
		toc = buildTOC(headings, a.toc)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logo := a.resolveLogo(in.Branding.Logo)
	cover := a.cover(CoverData{
		DocumentTitle:    in.Title,
		DocumentSubtitle: in.Branding.Subtitle,
		CompanyName:      in.Branding.CompanyName,
		LogoPath:         logo,
		GenerationDate:   a.formatDate(now, in.Branding.DateFormat),
	})

	return &RenderableDocument{
		Title:        in.Title,
		Organization: in.Branding.CompanyName,
		LogoURL:      string(logo),
		GeneratedAt:  now,
		CoverHTML:    cover,
		TOCHTML:      toc,
		BodyHTML:     body,
		CSS:          applyPlaceholders(style, in.Branding.CompanyName, in.Title),
	}, nil
}

func (a *Assembler) cover(data CoverData) string {
	tmpl, err := a.loader.LoadTemplate(assets.CoverTemplate)
	if err == nil {
		var out string
		if out, err = renderCover(tmpl, data); err == nil {
			return out
		}
	}
	a.logger.Warn("cover template unusable, using fallback cover",
		slog.String("error", err.Error()))
	return fallbackCover(data)
}

func (a *Assembler) formatDate(t time.Time, format string) string {
	s, err := dateutil.Format(t, format)
	if err != nil {
		a.logger.Warn("invalid cover date format, using default",
			slog.String("format", format),
			slog.String("error", err.Error()))
		s, _ = dateutil.Format(t, dateutil.DefaultDateFormat)
	}
	return s
}

// resolveLogo returns a URL the renderer can load without network access for
// local logos. Failures are logged and yield no logo.
func (a *Assembler) resolveLogo(logo string) template.URL {
	if logo == "" {
		return ""
	}
	if fileutil.IsURL(logo) {
		return template.URL(logo) // #nosec G203 -- operator-configured branding
	}

	var content []byte
	var err error
	if fileutil.IsFilePath(logo) {
		content, err = os.ReadFile(logo) // #nosec G304 -- operator-configured branding
	} else {
		content, err = a.loader.LoadAsset(logo)
	}
	if err != nil {
		a.logger.Warn("logo unavailable", slog.String("logo", logo), slog.String("error", err.Error()))
		return ""
	}

	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(logo)))
	if ct == "" {
		ct = a.detector.Detect(content)
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return template.URL("data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(content)) // #nosec G203 -- encoded locally
}
