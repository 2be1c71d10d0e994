package thread

import (
	"github.com/rs/zerolog"

	"github.com/njyeung/threads/dom"
)

// Page structure outside the thread
const (
	ShortPostClass  = "short-post"
	MainImageClass  = "post-main-image"
	ThumbnailClass  = "photo-thumbnail"
	PostButtons     = "post-buttons"
	ClipboardClass  = "to-clipboard"
	CurtainClass    = "post-off"
	StatusFormClass = "status-form"
)

// Page is the result of wiring a loaded document
type Page struct {
	Doc *dom.Document

	// Controller is nil unless the page is a post view
	Controller *Controller

	Hovers      int
	StatusForms int
}

// Bind wires a freshly loaded document: hover reveals, per-item and page-level
// status forms, and, on a post view, the comment thread with its root reply
// form. Structural lookups happen here only.
func Bind(doc *dom.Document, sub Submitter, log zerolog.Logger) (*Page, error) {
	p := &Page{Doc: doc}

	p.Hovers += dom.BindHoverAll(doc, ShortPostClass, PostButtons)
	p.Hovers += dom.BindHoverAll(doc, MainImageClass, PostButtons)
	p.Hovers += dom.BindHoverAll(doc, ThumbnailClass, ClipboardClass)

	// post list: one curtain per item
	for _, item := range doc.FindAll(ShortPostClass) {
		form := item.Find(StatusFormClass)
		curtains := item.ChildrenWithClass(CurtainClass)
		if form == nil || len(curtains) == 0 {
			continue
		}
		BindStatusForm(form, curtains[0], sub)
		p.StatusForms++
	}

	// post view: one shared curtain
	if main := doc.Find(MainImageClass); main != nil {
		if form := main.Find(StatusFormClass); form != nil {
			if curtain := pageCurtain(doc); curtain != nil {
				BindStatusForm(form, curtain, sub)
				p.StatusForms++
			}
		}
	}

	tmpl := doc.ByID(FormTemplateID)
	if tmpl == nil {
		log.Debug().Int("hovers", p.Hovers).Int("status_forms", p.StatusForms).Msg("page bound (no thread)")
		return p, nil
	}

	t, err := IndexThread(doc)
	if err != nil {
		return nil, err
	}
	markup := tmpl.Text
	if markup == "" {
		markup = tmpl.Value()
	}
	p.Controller = New(doc, t, markup, sub, log)
	dom.Show(p.Controller.Buttons()...)
	if _, err := p.Controller.OpenReplyForm(Root); err != nil {
		return nil, err
	}

	log.Debug().Int("hovers", p.Hovers).Int("status_forms", p.StatusForms).
		Int("comments", t.Len()).Msg("page bound")
	return p, nil
}

// pageCurtain is the first curtain that does not belong to a list item
func pageCurtain(doc *dom.Document) *dom.Element {
	for _, c := range doc.FindAll(CurtainClass) {
		if c.Closest(ShortPostClass) == nil {
			return c
		}
	}
	return nil
}
