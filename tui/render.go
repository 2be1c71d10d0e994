package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/njyeung/threads/dom"
	"github.com/njyeung/threads/thread"
)

// line is one rendered row plus what it was rendered from
type line struct {
	text  string
	el    *dom.Element // innermost block the row belongs to
	spans []span
}

// span is the cell range a focusable element occupies on its row
type span struct {
	start, end int
	el         *dom.Element
}

// target returns the element under column x
func (l line) target(x int) *dom.Element {
	for _, s := range l.spans {
		if x >= s.start && x < s.end {
			return s.el
		}
	}
	return l.el
}

type word struct {
	text   string
	style  lipgloss.Style
	target *dom.Element
}

var skipTags = map[string]bool{
	"head": true, "script": true, "style": true, "template": true,
	"meta": true, "link": true, "title": true, "noscript": true,
	"img": true, "svg": true,
}

var blockTags = map[string]bool{
	"html": true, "body": true, "div": true, "p": true, "ul": true, "ol": true,
	"li": true, "form": true, "section": true, "article": true, "header": true,
	"footer": true, "nav": true, "main": true, "aside": true, "blockquote": true,
	"pre": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "table": true, "tr": true, "hr": true,
}

// renderer flattens the visible part of a document into rows
type renderer struct {
	width   int
	focus   *dom.Element
	editing *dom.Element
	editor  string

	lines  []line
	words  []word
	blocks []*dom.Element
}

func renderDocument(doc *dom.Document, width int, focus, editing *dom.Element, editor string) []line {
	r := &renderer{
		width:   max(width, 20),
		focus:   focus,
		editing: editing,
		editor:  editor,
	}
	r.blocks = []*dom.Element{doc.Root()}
	r.walk(doc.Root())
	r.flush()
	return r.lines
}

func (r *renderer) walk(el *dom.Element) {
	if el.IsText() {
		style := textStyleFor(el.Parent())
		for _, f := range strings.Fields(el.Text) {
			r.words = append(r.words, word{text: f, style: style})
		}
		return
	}
	if skipTags[el.Tag] || dom.Hidden(el) {
		return
	}

	switch el.Tag {
	case "br":
		r.flush()
		return
	case "textarea":
		r.flush()
		r.field(el)
		return
	case "input":
		typ, _ := el.Attr("type")
		switch strings.ToLower(typ) {
		case "hidden":
		case "submit", "button", "reset":
			label := el.Value()
			if label == "" {
				label = "Submit"
			}
			r.button(el, label)
		default:
			r.flush()
			r.field(el)
		}
		return
	case "button", "a":
		label := strings.Join(strings.Fields(el.TextContent()), " ")
		if label == "" {
			label = el.Tag
		}
		r.button(el, label)
		return
	}

	block := blockTags[el.Tag]
	if block {
		r.flush()
		r.blocks = append(r.blocks, el)
	}
	for _, c := range el.Children() {
		r.walk(c)
	}
	if block {
		r.flush()
		r.blocks = r.blocks[:len(r.blocks)-1]
	}
}

func (r *renderer) button(el *dom.Element, label string) {
	style := buttonStyle
	if el == r.focus {
		style = focusStyle
	}
	r.words = append(r.words, word{text: "[" + label + "]", style: style, target: el})
}

// field renders a text entry box; the one being edited shows the live editor
func (r *renderer) field(el *dom.Element) {
	block := r.block()
	indent := indentOf(block)
	inner := max(r.width-indent-2, 8)

	var body string
	switch {
	case el == r.editing:
		body = r.editor
	case el.Value() != "":
		body = strings.Join(wrapByWidth(el.Value(), inner), "\n")
	default:
		placeholder, _ := el.Attr("placeholder")
		if placeholder == "" {
			placeholder = "write a reply"
		}
		body = mutedStyle.Render(placeholder)
	}

	style := fieldStyle
	if el == r.focus {
		style = fieldFocusStyle
	}
	box := style.Width(inner).Render(body)

	pad := strings.Repeat(" ", indent)
	for _, row := range strings.Split(box, "\n") {
		w := lipgloss.Width(row)
		r.lines = append(r.lines, line{
			text:  pad + row,
			el:    el,
			spans: []span{{start: indent, end: indent + w, el: el}},
		})
	}
}

// flush lays out pending words under the innermost open block
func (r *renderer) flush() {
	if len(r.words) == 0 {
		return
	}
	block := r.block()
	indent := indentOf(block)
	avail := max(r.width-indent, 10)
	pad := strings.Repeat(" ", indent)

	var b strings.Builder
	var spans []span
	col := 0
	emit := func() {
		r.lines = append(r.lines, line{text: pad + b.String(), el: block, spans: spans})
		b.Reset()
		spans = nil
		col = 0
	}

	for _, w := range r.words {
		for _, chunk := range wrapByWidth(w.text, avail) {
			cw := runewidth.StringWidth(chunk)
			if col > 0 && col+1+cw > avail {
				emit()
			}
			if col > 0 {
				b.WriteString(" ")
				col++
			}
			start := indent + col
			b.WriteString(w.style.Render(chunk))
			col += cw
			if w.target != nil {
				spans = append(spans, span{start: start, end: indent + col, el: w.target})
			}
		}
	}
	if col > 0 {
		emit()
	}
	r.words = r.words[:0]
}

func (r *renderer) block() *dom.Element {
	return r.blocks[len(r.blocks)-1]
}

// indentOf nests comments two cells per level
func indentOf(el *dom.Element) int {
	depth := el.Depth(thread.CommentClass)
	if el.HasClass(thread.CommentClass) {
		depth++
	}
	return 2 * max(depth-1, 0)
}

func textStyleFor(el *dom.Element) lipgloss.Style {
	if el == nil {
		return textStyle
	}
	if el.Closest(thread.CurtainClass) != nil {
		return curtainStyle
	}
	for n := el; n != nil; n = n.Parent() {
		switch n.Tag {
		case "h1", "h2", "h3":
			return headingStyle
		case "small", "time":
			return mutedStyle
		}
	}
	return textStyle
}

// focusables lists, in document order, the elements keyboard focus can reach:
// shown ones, and ones hidden only until a hover container is entered.
func focusables(doc *dom.Document) []*dom.Element {
	var out []*dom.Element
	doc.Root().Walk(func(n *dom.Element) bool {
		if skipTags[n.Tag] {
			return false
		}
		if dom.Focusable(n) && reachable(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

func reachable(el *dom.Element) bool {
	for n := el; n != nil; n = n.Parent() {
		if dom.Hidden(n) && !revealedOnHover(n) {
			return false
		}
	}
	return true
}

func revealedOnHover(el *dom.Element) bool {
	for n := el.Parent(); n != nil; n = n.Parent() {
		if n.HasHandler(dom.MouseEnter) {
			return true
		}
	}
	return false
}
