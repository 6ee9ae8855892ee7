// Package pipeline assembles a branded HTML document from markdown.
//
// Stages, in order:
//   - Markdown to HTML conversion via Goldmark
//   - Sanitisation of the rendered body with bluemonday
//   - Heading discovery and table of contents generation
//   - Cover page rendering from an html/template asset
//   - Stylesheet loading and placeholder substitution
//
// The result is a RenderableDocument whose sections always appear in the
// order cover, table of contents, body. PDF rendering is handled by the root
// zip2pdf package using headless Chrome (go-rod).
package pipeline
