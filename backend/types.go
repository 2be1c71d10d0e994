package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/njyeung/threads/dom"
)

// Backend defines the interface between the terminal frontend and the site
type Backend interface {

	// Load fetches the post page, installs its anti-forgery token and
	// returns the parsed document
	Load(ctx context.Context, pageURL string) (*dom.Document, error)

	// Submit posts form asynchronously. onSuccess runs on the UI goroutine
	// once a successful response arrives; failures are only logged.
	Submit(form *dom.Element, onSuccess Handler)

	// Pending returns the number of submissions still in flight
	Pending() int

	// Close aborts in-flight exchanges
	Close()
}

// PageSource produces the raw post page
type PageSource interface {
	Fetch(ctx context.Context, pageURL string) (*Page, error)
}

// Scheduler runs completions on the UI goroutine, one at a time
type Scheduler interface {
	Schedule(fn func())
}

// SchedulerFunc adapts a function to Scheduler
type SchedulerFunc func(fn func())

func (f SchedulerFunc) Schedule(fn func()) { f(fn) }

// Handler consumes a successful response. A non-nil error means the response
// did not have the shape the handler needs.
type Handler func(Response) error

const (
	// CSRFHeader carries the anti-forgery token on state-changing requests
	CSRFHeader = "X-CSRFToken"

	// CSRFMetaName is the <meta> name the page embeds the token under
	CSRFMetaName = "csrf-token"

	// maxResponseBytes bounds how much of a response body is decoded
	maxResponseBytes = 1 << 20
)

// Page is a fetched post page plus the session cookies that came with it
type Page struct {
	URL     *url.URL
	Body    []byte
	Cookies []*http.Cookie
}

// Response is the JSON body returned by comment and status endpoints.
// Fields absent from the body stay nil.
type Response struct {
	Status  *bool   `json:"status"`
	Comment *string `json:"comment"`
}
