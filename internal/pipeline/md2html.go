package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// ErrHTMLConversion indicates HTML conversion failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

var crlfOrCR = regexp.MustCompile(`\r\n?`)

// HTMLConverter abstracts Markdown to HTML conversion.
type HTMLConverter interface {
	ToHTML(ctx context.Context, content string) (string, error)
}

// GoldmarkConverter converts Markdown to an HTML fragment using goldmark.
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// NewGoldmarkConverter creates a GoldmarkConverter with GFM extensions,
// footnotes, attribute lists and heading IDs. Raw HTML passes through; the
// output must be sanitised before use.
//
// Code blocks render as plain highlight markup unless syntaxHighlight is set,
// in which case chroma colours them with CSS classes.
func NewGoldmarkConverter(syntaxHighlight bool) *GoldmarkConverter {
	extensions := []goldmark.Extender{
		extension.GFM,      // Tables, strikethrough, autolinks, task lists
		extension.Footnote, // [^1] footnotes
	}
	rendererOpts := []renderer.Option{html.WithUnsafe()}

	if syntaxHighlight {
		extensions = append(extensions, highlighting.NewHighlighting(
			highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
		))
	} else {
		rendererOpts = append(rendererOpts,
			renderer.WithNodeRenderers(util.Prioritized(&codeBlockRenderer{}, 200)))
	}

	md := goldmark.New(
		goldmark.WithExtensions(extensions...),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(), // Required for TOC anchors
			parser.WithAttribute(),     // {#id .class} on headings
		),
		goldmark.WithRendererOptions(rendererOpts...),
	)
	return &GoldmarkConverter{md: md}
}

// ToHTML converts Markdown content to an HTML body fragment.
// Goldmark has no context support, so conversion runs in a goroutine and
// the caller stops waiting on cancellation.
func (c *GoldmarkConverter) ToHTML(ctx context.Context, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		src := crlfOrCR.ReplaceAllString(content, "\n")
		if err := c.md.Convert([]byte(src), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

// codeBlockRenderer writes code blocks as
// <div class="highlight"><pre><code class="language-x">, uncoloured.
type codeBlockRenderer struct{}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFenced)
	reg.Register(ast.KindCodeBlock, r.renderIndented)
}

func (r *codeBlockRenderer) renderFenced(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)
	writeCodeBlock(w, source, n.Lines(), CanonicalLanguage(string(n.Language(source))))
	return ast.WalkSkipChildren, nil
}

func (r *codeBlockRenderer) renderIndented(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	writeCodeBlock(w, source, node.Lines(), "")
	return ast.WalkSkipChildren, nil
}

func writeCodeBlock(w util.BufWriter, source []byte, lines *text.Segments, lang string) {
	_, _ = w.WriteString(`<div class="highlight"><pre><code`)
	if lang != "" {
		_, _ = w.WriteString(` class="language-` + lang + `"`)
	}
	_ = w.WriteByte('>')
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		_, _ = w.Write(util.EscapeHTML(seg.Value(source)))
	}
	_, _ = w.WriteString("</code></pre></div>\n")
}

var unsafeLangChars = regexp.MustCompile(`[^a-z0-9_+#-]`)

// CanonicalLanguage maps a fenced code block info string to a stable class
// suffix: known aliases resolve through chroma's lexer registry ("golang"
// becomes "go"), unknown names are lower-cased and stripped of characters
// that are unsafe in a class attribute.
func CanonicalLanguage(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	if lexer := lexers.Get(name); lexer != nil {
		cfg := lexer.Config()
		if len(cfg.Aliases) > 0 {
			name = strings.ToLower(cfg.Aliases[0])
		} else {
			name = strings.ToLower(cfg.Name)
		}
	}
	return unsafeLangChars.ReplaceAllString(name, "")
}
