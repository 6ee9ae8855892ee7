package pipeline

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// heading is a heading found in the rendered body.
type heading struct {
	Level int    // 1-6
	ID    string // anchor ID
	Text  string // text content, entities decoded
}

// parseFragment parses an HTML body fragment into a detached container node.
func parseFragment(content string) (*html.Node, error) {
	body := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return nil, err
	}

	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, nil
}

// renderFragment renders the container's children without a wrapper.
func renderFragment(doc *html.Node) (string, error) {
	var buf strings.Builder
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// collectHeadings walks the tree in document order. Headings without an id
// (raw HTML headings) are given a unique "section-N" id so the TOC can link
// to them; it reports whether any id was added.
func collectHeadings(doc *html.Node) (headings []heading, changed bool) {
	used := make(map[string]bool)
	walk(doc, func(n *html.Node) {
		if id := attr(n, "id"); id != "" {
			used[id] = true
		}
	})

	next := 1
	walk(doc, func(n *html.Node) {
		level := headingLevel(n)
		if level == 0 {
			return
		}
		id := attr(n, "id")
		if id == "" {
			for used["section-"+strconv.Itoa(next)] {
				next++
			}
			id = "section-" + strconv.Itoa(next)
			used[id] = true
			n.Attr = append(n.Attr, html.Attribute{Key: "id", Val: id})
			changed = true
		}
		headings = append(headings, heading{
			Level: level,
			ID:    id,
			Text:  strings.Join(strings.Fields(textContent(n)), " "),
		})
	})
	return headings, changed
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func headingLevel(n *html.Node) int {
	switch n.DataAtom {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
