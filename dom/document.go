package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed page. It owns the tree root and the page-wide focus
// and pointer state.
type Document struct {
	root  *Element
	focus *Element
	hover *Element
}

// NewDocument wraps an existing root element
func NewDocument(root *Element) *Document {
	return &Document{root: root}
}

// Parse builds a Document from an HTML page
func Parse(r io.Reader) (*Document, error) {
	n, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	root := NewElement("#document")
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if el := convert(c); el != nil {
			root.AppendChild(el)
		}
	}
	return &Document{root: root}, nil
}

// ParseFragment parses server-returned markup into detached elements
func ParseFragment(markup string) ([]*Element, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		if el := convert(n); el != nil {
			out = append(out, el)
		}
	}
	return out, nil
}

func convert(n *html.Node) *Element {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return nil
		}
		return NewText(n.Data)
	case html.ElementNode:
	default:
		return nil
	}

	el := NewElement(n.Data)
	for _, a := range n.Attr {
		el.SetAttr(a.Key, a.Val)
	}

	// textarea and script bodies are raw text; keep it as value / text
	switch n.DataAtom {
	case atom.Textarea:
		if c := n.FirstChild; c != nil && c.Type == html.TextNode {
			el.value = c.Data
		}
		return el
	case atom.Script:
		var b strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			b.WriteString(c.Data)
		}
		el.Text = b.String()
		return el
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if child := convert(c); child != nil {
			el.AppendChild(child)
		}
	}
	return el
}

func (d *Document) Root() *Element { return d.root }

// Contains reports whether el is still reachable from the document root
func (d *Document) Contains(el *Element) bool {
	if el == nil {
		return false
	}
	for n := el; n != nil; n = n.parent {
		if n == d.root {
			return true
		}
	}
	return false
}

// ByID returns the element with the given id, or nil
func (d *Document) ByID(id string) *Element {
	var found *Element
	d.root.Walk(func(n *Element) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Find returns the nearest element carrying class
func (d *Document) Find(class string) *Element { return d.root.Find(class) }

// FindAll returns every element carrying class, in document order
func (d *Document) FindAll(class string) []*Element { return d.root.FindAll(class) }

// Meta returns the content of <meta name="...">
func (d *Document) Meta(name string) string {
	var content string
	d.root.Walk(func(n *Element) bool {
		if content != "" {
			return false
		}
		if n.Tag == "meta" {
			if v, _ := n.Attr("name"); v == name {
				content, _ = n.Attr("content")
			}
		}
		return true
	})
	return content
}

// Title returns the page title text
func (d *Document) Title() string {
	if t := d.root.FindTag("title", ""); t != nil {
		return strings.TrimSpace(t.TextContent())
	}
	return ""
}
