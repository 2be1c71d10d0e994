package dom

import "strings"

// TextTag is the tag given to text nodes
const TextTag = "#text"

// Element is a node of the UI tree. Text nodes are elements with Tag == TextTag.
type Element struct {
	Tag  string
	ID   string
	Text string

	attrs   map[string]string
	classes []string
	value   string

	parent   *Element
	children []*Element

	handlers map[EventType][]Handler
}

// NewElement creates a detached element
func NewElement(tag string) *Element {
	return &Element{Tag: tag, attrs: make(map[string]string)}
}

// NewText creates a detached text node
func NewText(text string) *Element {
	return &Element{Tag: TextTag, Text: text}
}

func (el *Element) IsText() bool { return el.Tag == TextTag }

func (el *Element) Parent() *Element { return el.parent }

// Children returns a copy of the element's child list, text nodes included
func (el *Element) Children() []*Element {
	out := make([]*Element, len(el.children))
	copy(out, el.children)
	return out
}

// LastChild returns the last non-text child, or nil
func (el *Element) LastChild() *Element {
	for i := len(el.children) - 1; i >= 0; i-- {
		if !el.children[i].IsText() {
			return el.children[i]
		}
	}
	return nil
}

// Attr returns the attribute value and whether it is set
func (el *Element) Attr(name string) (string, bool) {
	switch name {
	case "id":
		return el.ID, el.ID != ""
	case "class":
		return strings.Join(el.classes, " "), len(el.classes) > 0
	}
	v, ok := el.attrs[name]
	return v, ok
}

func (el *Element) SetAttr(name, value string) {
	switch name {
	case "id":
		el.ID = value
		return
	case "class":
		el.classes = strings.Fields(value)
		return
	case "value":
		el.value = value
	}
	if el.attrs == nil {
		el.attrs = make(map[string]string)
	}
	el.attrs[name] = value
}

// Value is the current value of a form field
func (el *Element) Value() string { return el.value }

func (el *Element) SetValue(v string) { el.value = v }

func (el *Element) HasClass(class string) bool {
	for _, c := range el.classes {
		if c == class {
			return true
		}
	}
	return false
}

func (el *Element) AddClass(class string) {
	if el.HasClass(class) {
		return
	}
	el.classes = append(el.classes, class)
}

func (el *Element) RemoveClass(class string) {
	out := el.classes[:0]
	for _, c := range el.classes {
		if c != class {
			out = append(out, c)
		}
	}
	el.classes = out
}

// Classes returns a copy of the element's class list
func (el *Element) Classes() []string {
	return append([]string(nil), el.classes...)
}

// AppendChild moves child to the end of el's children.
func (el *Element) AppendChild(child *Element) {
	child.Remove()
	child.parent = el
	el.children = append(el.children, child)
}

// InsertBefore places nodes, in order, immediately before el in its parent.
// A detached el ignores the call.
func (el *Element) InsertBefore(nodes ...*Element) {
	p := el.parent
	if p == nil {
		return
	}
	for _, n := range nodes {
		n.Remove()
		n.parent = p
	}
	idx := p.indexOf(el)
	rest := append([]*Element(nil), p.children[idx:]...)
	p.children = append(append(p.children[:idx], nodes...), rest...)
}

// Remove detaches el from its parent. Removing a detached element is a no-op.
func (el *Element) Remove() {
	p := el.parent
	if p == nil {
		return
	}
	if i := p.indexOf(el); i >= 0 {
		p.children = append(p.children[:i], p.children[i+1:]...)
	}
	el.parent = nil
}

func (el *Element) indexOf(child *Element) int {
	for i, c := range el.children {
		if c == child {
			return i
		}
	}
	return -1
}

// TextContent concatenates all descendant text
func (el *Element) TextContent() string {
	if el.IsText() {
		return el.Text
	}
	var b strings.Builder
	el.Walk(func(n *Element) bool {
		if n.IsText() {
			b.WriteString(n.Text)
		}
		return true
	})
	return b.String()
}

// Walk visits el and its descendants in document order. Returning false
// from fn skips the node's subtree.
func (el *Element) Walk(fn func(*Element) bool) {
	if !fn(el) {
		return
	}
	for _, c := range el.Children() {
		c.Walk(fn)
	}
}

// Find returns the nearest descendant carrying class (breadth first)
func (el *Element) Find(class string) *Element {
	queue := append([]*Element(nil), el.children...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.HasClass(class) {
			return n
		}
		queue = append(queue, n.children...)
	}
	return nil
}

// FindAll returns every descendant carrying class, in document order
func (el *Element) FindAll(class string) []*Element {
	var out []*Element
	for _, c := range el.children {
		c.Walk(func(n *Element) bool {
			if n.HasClass(class) {
				out = append(out, n)
			}
			return true
		})
	}
	return out
}

// FindTag returns the first descendant with the given tag and, when name is
// non-empty, the given name attribute.
func (el *Element) FindTag(tag, name string) *Element {
	var found *Element
	for _, c := range el.children {
		c.Walk(func(n *Element) bool {
			if found != nil {
				return false
			}
			if n.Tag == tag {
				if v, _ := n.Attr("name"); name == "" || v == name {
					found = n
					return false
				}
			}
			return true
		})
	}
	return found
}

// ChildrenWithClass returns the direct children carrying class
func (el *Element) ChildrenWithClass(class string) []*Element {
	var out []*Element
	for _, c := range el.children {
		if c.HasClass(class) {
			out = append(out, c)
		}
	}
	return out
}

// Closest returns el or its nearest ancestor carrying class
func (el *Element) Closest(class string) *Element {
	for n := el; n != nil; n = n.parent {
		if n.HasClass(class) {
			return n
		}
	}
	return nil
}

// Siblings returns el's siblings carrying class, excluding el
func (el *Element) Siblings(class string) []*Element {
	if el.parent == nil {
		return nil
	}
	var out []*Element
	for _, c := range el.parent.children {
		if c != el && c.HasClass(class) {
			out = append(out, c)
		}
	}
	return out
}

// SiblingsByTag returns el's siblings with the given tag, excluding el
func (el *Element) SiblingsByTag(tag string) []*Element {
	if el.parent == nil {
		return nil
	}
	var out []*Element
	for _, c := range el.parent.children {
		if c != el && c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// Depth is the number of ancestors carrying class
func (el *Element) Depth(class string) int {
	d := 0
	for n := el.parent; n != nil; n = n.parent {
		if n.HasClass(class) {
			d++
		}
	}
	return d
}
