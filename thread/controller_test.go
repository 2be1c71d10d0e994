package thread

import (
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njyeung/threads/backend"
	"github.com/njyeung/threads/dom"
)

const formTemplate = `<script type="text/html" id="comment-form-template">
<div class="form-box"><form class="commentForm" action="/post/comment" method="post">
<input type="hidden" id="parent_id" name="parent_id">
<textarea id="body_md" name="body_md"></textarea>
<button type="submit">Send</button>
</form></div>
</script>`

const postPage = `<html><head><meta name="csrf-token" content="t0k"></head><body>
<div class="post-main-image">
  <div class="post-buttons hidden">
    <form class="status-form" action="/post/status/hello" method="post"><button type="submit">toggle</button></form>
  </div>
</div>
<div class="post-off hidden">this post is off</div>
<div class="comments">
  <div class="comment" data-id="41">
    <div class="comment-body">first</div>
    <p><a href="#" class="answer-button" id="answer41">reply</a></p>
    <div class="comment-form-box"></div>
    <ul class="comment-children">
      <li class="comment" id="comment-42">
        <div class="comment-body">nested</div>
        <p><a href="#" class="answer-button" id="answer42">reply</a></p>
        <div class="comment-form-box"></div>
        <ul class="comment-children"></ul>
      </li>
    </ul>
  </div>
  <div class="comment">
    <div class="comment-body">second</div>
    <p><a href="#" class="answer-button" id="answer43">reply</a></p>
  </div>
  <div class="comment-form-box"></div>
</div>
` + formTemplate + `
</body></html>`

type submission struct {
	form      *dom.Element
	values    url.Values
	onSuccess backend.Handler
}

// fakeSubmitter records submissions; tests resolve them by hand
type fakeSubmitter struct {
	subs []submission
}

func (f *fakeSubmitter) Submit(form *dom.Element, onSuccess backend.Handler) {
	f.subs = append(f.subs, submission{form: form, values: dom.Serialize(form), onSuccess: onSuccess})
}

func (f *fakeSubmitter) last(t *testing.T) submission {
	t.Helper()
	require.NotEmpty(t, f.subs)
	return f.subs[len(f.subs)-1]
}

func loadPost(t *testing.T) (*Page, *fakeSubmitter) {
	t.Helper()
	doc, err := dom.Parse(strings.NewReader(postPage))
	require.NoError(t, err)
	sub := &fakeSubmitter{}
	p, err := Bind(doc, sub, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, p.Controller)
	return p, sub
}

func comment(markup string) backend.Response {
	return backend.Response{Comment: &markup}
}

func formBoxes(doc *dom.Document) []*dom.Element {
	return doc.FindAll(FormBoxClass)
}

func node(t *testing.T, c *Controller, id string) *CommentNode {
	t.Helper()
	n, ok := c.Thread().Node(id)
	require.True(t, ok, "node %s", id)
	return n
}

func TestBindOpensRootForm(t *testing.T) {
	p, _ := loadPost(t)
	c := p.Controller

	assert.Equal(t, State{Kind: OpenForRoot}, c.State())
	boxes := formBoxes(p.Doc)
	require.Len(t, boxes, 1)
	assert.Equal(t, c.Thread().RootSlot, boxes[0].Parent())

	rf := c.Open()
	assert.Empty(t, rf.Parent.Value())
	assert.Nil(t, p.Doc.Focused())
	assert.Equal(t, 1, p.StatusForms)
	assert.Equal(t, 1, p.Hovers)
}

func TestSingleOpenFormInvariant(t *testing.T) {
	p, _ := loadPost(t)
	c := p.Controller

	targets := []Target{Node("41"), Node("42"), Root, Node("42"), Node("43"), Root}
	for _, target := range targets {
		rf, err := c.OpenReplyForm(target)
		require.NoError(t, err)

		boxes := formBoxes(p.Doc)
		require.Len(t, boxes, 1, "after opening for %s", target)
		assert.Same(t, rf.Fragment, boxes[0])
		assert.Same(t, rf, c.Open())

		if target.IsRoot() {
			assert.Equal(t, State{Kind: OpenForRoot}, c.State())
			assert.Same(t, c.Thread().RootSlot, rf.Fragment.Parent())
		} else {
			n := node(t, c, target.NodeID)
			assert.Equal(t, State{Kind: OpenForNode, NodeID: target.NodeID}, c.State())
			assert.Same(t, n.FormSlot, rf.Fragment.Parent())
			assert.Same(t, rf.Fragment, n.FormSlot.LastChild())
		}
	}
}

func TestOpenForNodeSetsParentAndFocus(t *testing.T) {
	p, _ := loadPost(t)
	c := p.Controller

	rf, err := c.OpenReplyForm(Node("42"))
	require.NoError(t, err)

	assert.Equal(t, "42", rf.Parent.Value())
	assert.Equal(t, "commentForm42", rf.Form.ID)
	assert.Same(t, rf.Message, p.Doc.Focused())

	rf, err = c.OpenReplyForm(Root)
	require.NoError(t, err)
	assert.Empty(t, rf.Parent.Value())
	assert.Nil(t, p.Doc.Focused())
}

func TestOpenUnknownNodeKeepsCurrentForm(t *testing.T) {
	p, _ := loadPost(t)
	c := p.Controller
	before := c.Open()

	_, err := c.OpenReplyForm(Node("nope"))
	require.ErrorIs(t, err, ErrUnknownNode)
	assert.Same(t, before, c.Open())
	assert.True(t, p.Doc.Contains(before.Fragment))
}

func TestAnswerButtonOutsideThreadIsIgnored(t *testing.T) {
	p, _ := loadPost(t)
	c := p.Controller
	before := c.Open()

	stray := dom.NewElement("a")
	stray.SetAttr("id", "answer99")
	b41 := p.Doc.ByID("answer41")
	dom.Hide(b41)

	err := c.OnAnswerButtonActivated(nil, stray, c.Buttons())
	require.ErrorIs(t, err, ErrUnknownNode)
	assert.False(t, dom.Hidden(stray))
	assert.True(t, dom.Hidden(b41))
	assert.Same(t, before, c.Open())
}

func TestBindReplacesRenderedReplyForm(t *testing.T) {
	rendered := strings.Replace(postPage,
		`<div class="comment-form-box"></div>
</div>`,
		`<div class="comment-form-box"><div class="form-box"><form class="commentForm" action="/post/comment" method="post">
<input type="hidden" name="parent_id"><textarea name="body_md">typed before bind</textarea>
<button type="submit">Send</button></form></div></div>
</div>`, 1)
	require.NotEqual(t, postPage, rendered)

	doc, err := dom.Parse(strings.NewReader(rendered))
	require.NoError(t, err)
	require.Len(t, formBoxes(doc), 1)
	dom.Hide(doc.ByID("answer42"))

	p, err := Bind(doc, &fakeSubmitter{}, zerolog.Nop())
	require.NoError(t, err)
	c := p.Controller

	boxes := formBoxes(doc)
	require.Len(t, boxes, 1)
	assert.Same(t, c.Open().Fragment, boxes[0])
	assert.Empty(t, c.Open().Message.Value())
	assert.False(t, dom.Hidden(doc.ByID("answer42")))

	dom.Dispatch(doc.ByID("answer41"), dom.Click)
	boxes = formBoxes(doc)
	require.Len(t, boxes, 1)
	assert.Same(t, node(t, c, "41").FormSlot, boxes[0].Parent())
	assert.Equal(t, State{Kind: OpenForNode, NodeID: "41"}, c.State())
}

func TestAnswerButtonsAreMutuallyExclusive(t *testing.T) {
	p, _ := loadPost(t)
	c := p.Controller
	b41, b42, b43 := p.Doc.ByID("answer41"), p.Doc.ByID("answer42"), p.Doc.ByID("answer43")
	require.Len(t, c.Buttons(), 3)

	// arbitrary prior visibility
	dom.Hide(b43)

	ev := dom.Dispatch(b41, dom.Click)
	assert.True(t, ev.DefaultPrevented())
	assert.True(t, dom.Hidden(b41))
	assert.False(t, dom.Hidden(b42))
	assert.False(t, dom.Hidden(b43))
	assert.Equal(t, State{Kind: OpenForNode, NodeID: "41"}, c.State())

	dom.Dispatch(b42, dom.Click)
	assert.False(t, dom.Hidden(b41))
	assert.True(t, dom.Hidden(b42))
	assert.False(t, dom.Hidden(b43))
	assert.Equal(t, State{Kind: OpenForNode, NodeID: "42"}, c.State())
	assert.Len(t, formBoxes(p.Doc), 1)
	assert.Same(t, node(t, c, "42").FormSlot, c.Open().Fragment.Parent())
}

func TestRootSubmissionInsertsBeforeSlot(t *testing.T) {
	p, sub := loadPost(t)
	c := p.Controller
	old := c.Open()
	old.Message.SetValue("top level")

	ev := dom.Dispatch(old.Form, dom.Submit)
	assert.True(t, ev.DefaultPrevented())
	s := sub.last(t)
	assert.Equal(t, "top level", s.values.Get("body_md"))
	assert.Empty(t, s.values.Get("parent_id"))

	require.NoError(t, s.onSuccess(comment(`<li>X</li>`)))

	slot := c.Thread().RootSlot
	children := c.Thread().Container.Children()
	idx := -1
	for i, ch := range children {
		if ch == slot {
			idx = i
		}
	}
	require.Greater(t, idx, 0)
	inserted := children[idx-1]
	assert.Equal(t, "li", inserted.Tag)
	assert.Equal(t, "X", inserted.TextContent())

	assert.False(t, p.Doc.Contains(old.Fragment))
	require.Len(t, formBoxes(p.Doc), 1)
	assert.NotSame(t, old, c.Open())
	assert.Equal(t, State{Kind: OpenForRoot}, c.State())
	assert.Same(t, slot, c.Open().Fragment.Parent())
}

func TestNodeSubmissionAppendsToReplies(t *testing.T) {
	p, sub := loadPost(t)
	c := p.Controller
	b42 := p.Doc.ByID("answer42")

	dom.Dispatch(b42, dom.Click)
	rf := c.Open()
	rf.Message.SetValue("a reply")
	dom.Dispatch(rf.Form, dom.Submit)

	s := sub.last(t)
	assert.Equal(t, "42", s.values.Get("parent_id"))
	assert.Equal(t, "a reply", s.values.Get("body_md"))

	markup := `<li class="comment" data-id="99"><div class="comment-body">a reply</div>` +
		`<p><a href="#" class="answer-button" id="answer99">reply</a></p></li>`
	require.NoError(t, s.onSuccess(comment(markup)))

	n42 := node(t, c, "42")
	last := n42.Replies.LastChild()
	require.NotNil(t, last)
	assert.Equal(t, "99", func() string { v, _ := last.Attr("data-id"); return v }())
	assert.False(t, dom.Hidden(b42))
	assert.False(t, p.Doc.Contains(rf.Fragment))
	assert.Equal(t, State{Kind: OpenForRoot}, c.State())
	assert.Len(t, formBoxes(p.Doc), 1)

	// the new comment is part of the thread and replyable
	n99 := node(t, c, "99")
	assert.Equal(t, "42", n99.ParentID)
	assert.Contains(t, n42.Children, n99)
	assert.Len(t, c.Buttons(), 4)

	dom.Dispatch(p.Doc.ByID("answer99"), dom.Click)
	assert.Equal(t, State{Kind: OpenForNode, NodeID: "99"}, c.State())
	assert.Same(t, n99.FormSlot, c.Open().Fragment.Parent())
}

func TestFailedSubmissionLeavesFormOpen(t *testing.T) {
	p, sub := loadPost(t)
	c := p.Controller
	rf, err := c.OpenReplyForm(Node("41"))
	require.NoError(t, err)
	rf.Message.SetValue("draft")

	// the exchange fails: the handler is never invoked
	dom.Dispatch(rf.Form, dom.Submit)
	require.Len(t, sub.subs, 1)

	assert.Same(t, rf, c.Open())
	assert.True(t, p.Doc.Contains(rf.Fragment))
	assert.Equal(t, "draft", rf.Message.Value())
	assert.Equal(t, State{Kind: OpenForNode, NodeID: "41"}, c.State())
}

func TestMalformedCommentResponse(t *testing.T) {
	p, sub := loadPost(t)
	c := p.Controller
	rf := c.Open()
	dom.Dispatch(rf.Form, dom.Submit)

	err := sub.last(t).onSuccess(backend.Response{})
	require.ErrorIs(t, err, backend.ErrMalformedResponse)
	assert.Same(t, rf, c.Open())
	assert.True(t, p.Doc.Contains(rf.Fragment))
}

func TestStaleCompletionIsDiscarded(t *testing.T) {
	p, sub := loadPost(t)
	c := p.Controller
	rootForm := c.Open()
	dom.Dispatch(rootForm.Form, dom.Submit)
	stale := sub.last(t)

	nodeForm, err := c.OpenReplyForm(Node("43"))
	require.NoError(t, err)
	before := len(c.Thread().Container.Children())

	require.NoError(t, stale.onSuccess(comment(`<li>late</li>`)))

	assert.Same(t, nodeForm, c.Open())
	assert.Equal(t, State{Kind: OpenForNode, NodeID: "43"}, c.State())
	assert.Len(t, c.Thread().Container.Children(), before)
}

func TestIndexThread(t *testing.T) {
	p, _ := loadPost(t)
	th := p.Controller.Thread()

	assert.Equal(t, 3, th.Len())
	require.Len(t, th.Roots, 2)
	assert.Equal(t, "41", th.Roots[0].ID)
	assert.Equal(t, "43", th.Roots[1].ID) // from the answer button suffix

	n42 := node(t, p.Controller, "42")
	assert.Equal(t, "41", n42.ParentID)
	assert.Equal(t, []*CommentNode{n42}, th.Roots[0].Children)

	// missing slot and replies containers are created
	n43 := th.Roots[1]
	assert.Same(t, n43.Elem, n43.FormSlot.Parent())
	assert.Same(t, n43.Elem, n43.Replies.Parent())
}

func TestIndexThreadWithoutSlot(t *testing.T) {
	doc, err := dom.Parse(strings.NewReader(`<div class="comments"></div>`))
	require.NoError(t, err)
	_, err = IndexThread(doc)
	assert.ErrorIs(t, err, ErrNoCommentForm)
}
