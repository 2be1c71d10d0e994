package thread

import (
	"fmt"

	"github.com/njyeung/threads/backend"
	"github.com/njyeung/threads/dom"
)

// MakeStatusHandler returns a completion handler that hides curtain when the
// response reports status true and shows it when false.
func MakeStatusHandler(curtain *dom.Element) backend.Handler {
	return func(resp backend.Response) error {
		if resp.Status == nil {
			return fmt.Errorf("%w: no status field", backend.ErrMalformedResponse)
		}
		if *resp.Status {
			dom.Hide(curtain)
		} else {
			dom.Show(curtain)
		}
		return nil
	}
}

// BindStatusForm submits form asynchronously and toggles curtain with the result
func BindStatusForm(form, curtain *dom.Element, sub Submitter) {
	handler := MakeStatusHandler(curtain)
	form.On(dom.Submit, func(ev *dom.Event) {
		ev.PreventDefault()
		sub.Submit(form, handler)
	})
}
