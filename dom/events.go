package dom

// EventType names a UI event
type EventType string

const (
	Click      EventType = "click"
	Submit     EventType = "submit"
	MouseEnter EventType = "mouseenter"
	MouseLeave EventType = "mouseleave"
)

// bubbles reports whether events of this type propagate to ancestors
func (t EventType) bubbles() bool {
	return t == Click || t == Submit
}

// Event is passed to handlers during dispatch
type Event struct {
	Type    EventType
	Target  *Element
	Current *Element

	defaultPrevented bool
}

// PreventDefault suppresses the default action of the event's target
func (e *Event) PreventDefault() { e.defaultPrevented = true }

func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// Handler reacts to a dispatched event
type Handler func(*Event)

// On registers h for events of type t on el
func (el *Element) On(t EventType, h Handler) {
	if el.handlers == nil {
		el.handlers = make(map[EventType][]Handler)
	}
	el.handlers[t] = append(el.handlers[t], h)
}

// Off drops every handler of type t registered on el
func (el *Element) Off(t EventType) {
	delete(el.handlers, t)
}

func (el *Element) HasHandler(t EventType) bool {
	return len(el.handlers[t]) > 0
}

// Dispatch fires an event of type t at target. Click and submit bubble to the
// root; enter/leave only reach the target.
func Dispatch(target *Element, t EventType) *Event {
	ev := &Event{Type: t, Target: target}
	for n := target; n != nil; n = n.parent {
		ev.Current = n
		for _, h := range append([]Handler(nil), n.handlers[t]...) {
			h(ev)
		}
		if !t.bubbles() {
			break
		}
	}
	return ev
}

// Focus moves input focus to el (nil clears it)
func (d *Document) Focus(el *Element) { d.focus = el }

// Focused returns the focused element if it is still attached
func (d *Document) Focused() *Element {
	if d.focus != nil && !d.Contains(d.focus) {
		d.focus = nil
	}
	return d.focus
}

// Hovered returns the element under the pointer
func (d *Document) Hovered() *Element { return d.hover }

// Hover moves the pointer to el, firing mouseleave on every container the
// pointer exits (innermost first) and mouseenter on every container it enters
// (outermost first).
func (d *Document) Hover(el *Element) {
	if el == d.hover {
		return
	}
	oldChain := ancestry(d.hover)
	newChain := ancestry(el)
	inNew := make(map[*Element]bool, len(newChain))
	for _, n := range newChain {
		inNew[n] = true
	}
	inOld := make(map[*Element]bool, len(oldChain))
	for _, n := range oldChain {
		inOld[n] = true
	}
	d.hover = el

	for _, n := range oldChain {
		if !inNew[n] {
			Dispatch(n, MouseLeave)
		}
	}
	for i := len(newChain) - 1; i >= 0; i-- {
		if n := newChain[i]; !inOld[n] {
			Dispatch(n, MouseEnter)
		}
	}
}

// ancestry lists el and its ancestors, innermost first
func ancestry(el *Element) []*Element {
	var out []*Element
	for n := el; n != nil; n = n.parent {
		out = append(out, n)
	}
	return out
}
