package dom

import (
	"net/url"
	"strings"
)

// Serialize collects the named, enabled field values of form in document order
func Serialize(form *Element) url.Values {
	vals := url.Values{}
	form.Walk(func(n *Element) bool {
		if n == form {
			return true
		}
		name, ok := n.Attr("name")
		if !ok || name == "" {
			return true
		}
		if _, disabled := n.Attr("disabled"); disabled {
			return true
		}
		switch n.Tag {
		case "textarea":
			vals.Add(name, n.Value())
		case "select":
			for _, v := range selected(n) {
				vals.Add(name, v)
			}
			return false
		case "input":
			typ, _ := n.Attr("type")
			switch strings.ToLower(typ) {
			case "submit", "button", "reset", "file", "image":
			case "checkbox", "radio":
				if _, checked := n.Attr("checked"); checked {
					v := n.Value()
					if v == "" {
						v = "on"
					}
					vals.Add(name, v)
				}
			default:
				vals.Add(name, n.Value())
			}
		}
		return true
	})
	return vals
}

// selected returns the values a select submits: its selected options, or the
// first enabled option when a single select has none marked
func selected(sel *Element) []string {
	_, multiple := sel.Attr("multiple")
	var out []string
	var first *Element
	sel.Walk(func(n *Element) bool {
		if n.Tag != "option" {
			return true
		}
		if _, disabled := n.Attr("disabled"); disabled {
			return false
		}
		if first == nil {
			first = n
		}
		if _, ok := n.Attr("selected"); ok {
			out = append(out, optionValue(n))
		}
		return false
	})
	switch {
	case multiple:
		return out
	case len(out) > 0:
		return out[len(out)-1:]
	case first != nil:
		return []string{optionValue(first)}
	}
	return nil
}

func optionValue(opt *Element) string {
	if v, ok := opt.Attr("value"); ok {
		return v
	}
	return strings.TrimSpace(opt.TextContent())
}

// Action returns the form's declared target address
func Action(form *Element) string {
	action, _ := form.Attr("action")
	return action
}

// Focusable reports whether el takes keyboard focus
func Focusable(el *Element) bool {
	switch el.Tag {
	case "a", "button", "textarea", "select":
		return true
	case "input":
		typ, _ := el.Attr("type")
		return typ != "hidden"
	}
	return false
}

// Form returns the form el belongs to, if any
func Form(el *Element) *Element {
	for n := el; n != nil; n = n.parent {
		if n.Tag == "form" {
			return n
		}
	}
	return nil
}
