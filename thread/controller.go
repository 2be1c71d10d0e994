package thread

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/njyeung/threads/backend"
	"github.com/njyeung/threads/dom"
)

// Submitter performs the asynchronous exchange for a form
type Submitter interface {
	Submit(form *dom.Element, onSuccess backend.Handler)
}

// StateKind is the lifecycle state of the single reply form
type StateKind int

const (
	Absent StateKind = iota
	OpenForRoot
	OpenForNode
)

// State reports which target, if any, the open reply form is bound to
type State struct {
	Kind   StateKind
	NodeID string
}

func (s State) String() string {
	switch s.Kind {
	case OpenForRoot:
		return "open for root"
	case OpenForNode:
		return "open for node " + s.NodeID
	default:
		return "absent"
	}
}

// ReplyForm is the live reply-entry fragment
type ReplyForm struct {
	Target   Target
	Fragment *dom.Element
	Form     *dom.Element
	Message  *dom.Element
	Parent   *dom.Element

	token uint64
}

// Controller owns the reply-form lifecycle and splices submitted comments into
// the thread. All methods must run on the UI goroutine.
type Controller struct {
	doc      *dom.Document
	thread   *Thread
	template string
	sub      Submitter
	log      zerolog.Logger

	buttons  []*dom.Element
	byButton map[*dom.Element]*CommentNode

	// the only reply form; replaced on every open
	open *ReplyForm
	gen  uint64
}

// New creates a controller and binds the answer button of every indexed node.
// template is the markup of one reply form.
func New(doc *dom.Document, t *Thread, template string, sub Submitter, log zerolog.Logger) *Controller {
	c := &Controller{
		doc:      doc,
		thread:   t,
		template: template,
		sub:      sub,
		log:      log,
		byButton: make(map[*dom.Element]*CommentNode),
	}
	c.bindNodes(t.Roots)
	return c
}

func (c *Controller) Thread() *Thread { return c.thread }

// Buttons returns the sibling set of answer buttons
func (c *Controller) Buttons() []*dom.Element {
	return append([]*dom.Element(nil), c.buttons...)
}

// Open returns the live reply form, or nil
func (c *Controller) Open() *ReplyForm { return c.open }

func (c *Controller) State() State {
	switch {
	case c.open == nil:
		return State{Kind: Absent}
	case c.open.Target.IsRoot():
		return State{Kind: OpenForRoot}
	default:
		return State{Kind: OpenForNode, NodeID: c.open.Target.NodeID}
	}
}

// OpenReplyForm destroys the current reply form, wherever it is attached, and
// appends a fresh one to target's form slot. For a comment target the form's
// parent reference is set and the message field takes focus.
func (c *Controller) OpenReplyForm(target Target) (*ReplyForm, error) {
	slot := c.thread.RootSlot
	if !target.IsRoot() {
		n, ok := c.thread.Node(target.NodeID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownNode, target.NodeID)
		}
		slot = n.FormSlot
	}

	rf, err := c.build(target)
	if err != nil {
		return nil, err
	}

	c.release()
	c.gen++
	rf.token = c.gen
	slot.AppendChild(rf.Fragment)

	if !target.IsRoot() {
		rf.Form.SetAttr("id", CommentFormClass+target.NodeID)
		if rf.Parent != nil {
			rf.Parent.SetValue(target.NodeID)
		}
		if rf.Message != nil {
			c.doc.Focus(rf.Message)
		}
	}

	rf.Form.On(dom.Submit, func(ev *dom.Event) {
		ev.PreventDefault()
		c.sub.Submit(rf.Form, c.completion(rf))
	})

	c.open = rf
	c.log.Debug().Str("target", target.String()).Uint64("token", rf.token).Msg("reply form opened")
	return rf, nil
}

// OnAnswerButtonActivated suppresses the default action, reveals every button
// of siblings, hides button and opens a reply form under button's comment.
func (c *Controller) OnAnswerButtonActivated(ev *dom.Event, button *dom.Element, siblings []*dom.Element) error {
	if ev != nil {
		ev.PreventDefault()
	}
	n, ok := c.byButton[button]
	if !ok {
		return fmt.Errorf("%w: button %q", ErrUnknownNode, button.ID)
	}
	dom.Show(siblings...)
	dom.Hide(button)

	_, err := c.OpenReplyForm(Node(n.ID))
	return err
}

// release drops the current handle and detaches every reply form in the
// document, including one the page rendered before it was bound
func (c *Controller) release() {
	if c.open != nil {
		c.open.Fragment.Remove()
		c.open = nil
	}
	for _, box := range c.doc.FindAll(FormBoxClass) {
		box.Remove()
	}
}

func (c *Controller) live(rf *ReplyForm) bool {
	return c.open != nil && c.open.token == rf.token && c.doc.Contains(rf.Fragment)
}

// completion splices the comment returned for rf into the thread. A response
// for a form that has since been replaced is dropped.
func (c *Controller) completion(rf *ReplyForm) backend.Handler {
	return func(resp backend.Response) error {
		if !c.live(rf) {
			c.log.Info().Str("target", rf.Target.String()).Uint64("token", rf.token).
				Msg("discarding completion for a replaced reply form")
			return nil
		}
		if resp.Comment == nil {
			return fmt.Errorf("%w: no comment field", backend.ErrMalformedResponse)
		}
		els, err := dom.ParseFragment(*resp.Comment)
		if err != nil {
			return fmt.Errorf("%w: %v", backend.ErrMalformedResponse, err)
		}

		c.release()

		if rf.Target.IsRoot() {
			c.thread.RootSlot.InsertBefore(els...)
		} else {
			n, ok := c.thread.Node(rf.Target.NodeID)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownNode, rf.Target.NodeID)
			}
			dom.Show(n.Affordances...)
			for _, el := range els {
				n.Replies.AppendChild(el)
			}
		}
		c.adopt(els)

		_, err = c.OpenReplyForm(Root)
		return err
	}
}

// adopt indexes comments that arrived as markup and binds their buttons
func (c *Controller) adopt(els []*dom.Element) {
	var added []*CommentNode
	for _, el := range els {
		el.Walk(func(n *dom.Element) bool {
			if !n.HasClass(CommentClass) {
				return true
			}
			node, err := c.thread.index(n)
			if err != nil {
				c.log.Warn().Err(err).Msg("inserted comment could not be indexed")
				return false
			}
			if _, bound := c.byButton[node.Answer]; !bound {
				added = append(added, node)
			}
			return true
		})
	}
	for _, n := range added {
		c.bindAnswer(n)
	}
}

func (c *Controller) bindNodes(nodes []*CommentNode) {
	for _, n := range nodes {
		c.bindAnswer(n)
		c.bindNodes(n.Children)
	}
}

func (c *Controller) bindAnswer(n *CommentNode) {
	if n.Answer == nil {
		return
	}
	button := n.Answer
	c.buttons = append(c.buttons, button)
	c.byButton[button] = n
	button.On(dom.Click, func(ev *dom.Event) {
		if err := c.OnAnswerButtonActivated(ev, button, c.buttons); err != nil {
			c.log.Error().Err(err).Msg("answer button activation failed")
		}
	})
}

// build instantiates a detached reply form from the template
func (c *Controller) build(target Target) (*ReplyForm, error) {
	els, err := dom.ParseFragment(c.template)
	if err != nil {
		return nil, err
	}

	var frag *dom.Element
	for _, el := range els {
		if !el.IsText() {
			frag = el
			break
		}
	}
	if frag == nil {
		return nil, fmt.Errorf("reply form template is empty")
	}
	if !frag.HasClass(FormBoxClass) {
		box := dom.NewElement("div")
		box.AddClass(FormBoxClass)
		box.AppendChild(frag)
		frag = box
	}

	form := frag.Find(CommentFormClass)
	if form == nil {
		form = frag.FindTag("form", "")
	}
	if form == nil {
		return nil, fmt.Errorf("reply form template has no form")
	}

	rf := &ReplyForm{
		Target:   target,
		Fragment: frag,
		Form:     form,
		Message:  findField(form, "textarea", MessageFieldID),
		Parent:   findField(form, "input", ParentFieldID),
	}
	return rf, nil
}

func findField(form *dom.Element, tag, id string) *dom.Element {
	var found *dom.Element
	form.Walk(func(n *dom.Element) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
		}
		return true
	})
	if found == nil {
		found = form.FindTag(tag, id)
	}
	return found
}
