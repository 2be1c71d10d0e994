package thread

import (
	"errors"
	"fmt"
	"strings"

	"github.com/njyeung/threads/dom"
)

// Class names and ids of the page structure the controller binds to
const (
	CommentsClass    = "comments"
	CommentClass     = "comment"
	FormSlotClass    = "comment-form-box"
	RepliesClass     = "comment-children"
	AnswerClass      = "answer-button"
	FormBoxClass     = "form-box"
	CommentFormClass = "commentForm"

	FormTemplateID = "comment-form-template"
	ParentFieldID  = "parent_id"
	MessageFieldID = "body_md"

	answerIDPrefix = "answer"
)

var (
	ErrNoCommentForm = errors.New("page has no comment form slot")
	ErrUnknownNode   = errors.New("unknown comment node")
)

// Target is what a reply form is bound to: the thread root, or one comment
type Target struct {
	NodeID string
}

// Root targets the top level of the thread
var Root = Target{}

// Node targets the comment with the given id
func Node(id string) Target { return Target{NodeID: id} }

func (t Target) IsRoot() bool { return t.NodeID == "" }

func (t Target) String() string {
	if t.IsRoot() {
		return "root"
	}
	return "node " + t.NodeID
}

// CommentNode is one comment of the thread with references to its rendered
// subtree, captured once when the node is indexed.
type CommentNode struct {
	ID       string
	ParentID string
	Children []*CommentNode

	Elem        *dom.Element
	Answer      *dom.Element   // reply affordance
	Affordances []*dom.Element // the reply-affordance group holding Answer
	FormSlot    *dom.Element
	Replies     *dom.Element
}

// Thread indexes the comments of a post by id
type Thread struct {
	Container *dom.Element
	RootSlot  *dom.Element
	Roots     []*CommentNode

	nodes map[string]*CommentNode
}

// IndexThread scans the comments container of doc once and records every
// comment node with the elements later mutations need.
func IndexThread(doc *dom.Document) (*Thread, error) {
	container := doc.Find(CommentsClass)
	if container == nil {
		return nil, ErrNoCommentForm
	}
	slots := container.ChildrenWithClass(FormSlotClass)
	if len(slots) == 0 {
		return nil, ErrNoCommentForm
	}

	t := &Thread{
		Container: container,
		RootSlot:  slots[0],
		nodes:     make(map[string]*CommentNode),
	}
	for _, el := range container.FindAll(CommentClass) {
		if _, err := t.index(el); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Node looks up a comment by id
func (t *Thread) Node(id string) (*CommentNode, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Len returns the number of indexed comments
func (t *Thread) Len() int { return len(t.nodes) }

// index records el, whose ancestors must already be indexed
func (t *Thread) index(el *dom.Element) (*CommentNode, error) {
	answer := ownAnswerButton(el)
	id := commentID(el, answer)
	if id == "" {
		return nil, fmt.Errorf("comment element without an id")
	}
	if n, ok := t.nodes[id]; ok {
		return n, nil
	}

	n := &CommentNode{
		ID:       id,
		Elem:     el,
		Answer:   answer,
		FormSlot: ensureChild(el, FormSlotClass),
		Replies:  ensureChild(el, RepliesClass),
	}
	if answer != nil {
		n.Affordances = []*dom.Element{answer}
		if p := answer.Parent(); p != nil && p != el {
			n.Affordances = append(n.Affordances, answer.SiblingsByTag("a")...)
		}
	}

	if p := el.Parent(); p != nil {
		if pe := p.Closest(CommentClass); pe != nil {
			parent, err := t.index(pe)
			if err != nil {
				return nil, err
			}
			n.ParentID = parent.ID
			parent.Children = append(parent.Children, n)
		}
	}
	if n.ParentID == "" {
		t.Roots = append(t.Roots, n)
	}
	t.nodes[id] = n
	return n, nil
}

// ownAnswerButton finds the answer button belonging to el itself rather than
// to a nested reply
func ownAnswerButton(el *dom.Element) *dom.Element {
	for _, b := range el.FindAll(AnswerClass) {
		if b.Closest(CommentClass) == el {
			return b
		}
	}
	return nil
}

// commentID prefers data-id, then an id of the form comment-<id>, then the
// suffix of the answer button's id
func commentID(el, answer *dom.Element) string {
	if v, ok := el.Attr("data-id"); ok && v != "" {
		return v
	}
	if rest, ok := strings.CutPrefix(el.ID, "comment-"); ok && rest != "" {
		return rest
	}
	if answer != nil {
		if rest, ok := strings.CutPrefix(answer.ID, answerIDPrefix); ok && rest != "" {
			return rest
		}
	}
	return ""
}

func ensureChild(el *dom.Element, class string) *dom.Element {
	if cs := el.ChildrenWithClass(class); len(cs) > 0 {
		return cs[0]
	}
	tag := "div"
	if class == RepliesClass {
		tag = "ul"
	}
	c := dom.NewElement(tag)
	c.AddClass(class)
	el.AppendChild(c)
	return c
}
