package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njyeung/threads/dom"
)

const testPage = `<html><head><title>hello</title><meta name="csrf-token" content="s3cret"></head>
<body><div class="comments"><div class="comment-form-box"></div></div></body></html>`

// chanScheduler hands completions to the test goroutine
type chanScheduler chan func()

func (s chanScheduler) Schedule(fn func()) { s <- fn }

func (s chanScheduler) next(t *testing.T) func() {
	t.Helper()
	select {
	case fn := <-s:
		return fn
	case <-time.After(2 * time.Second):
		t.Fatal("no completion scheduled")
		return nil
	}
}

type received struct {
	header http.Header
	form   url.Values
}

func newSite(t *testing.T, reply func(w http.ResponseWriter)) (*httptest.Server, chan received) {
	t.Helper()
	got := make(chan received, 4)
	mux := http.NewServeMux()
	mux.HandleFunc("/post/hello", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPage))
	})
	mux.HandleFunc("/post/comment", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		got <- received{header: r.Header.Clone(), form: r.PostForm}
		reply(w)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, got
}

func replyJSON(v any) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
}

func commentForm(t *testing.T, action string) *dom.Element {
	t.Helper()
	els, err := dom.ParseFragment(`<form class="commentForm" action="` + action + `" method="post">` +
		`<input type="hidden" name="parent_id" value="42"><textarea name="body_md">hi there</textarea></form>`)
	require.NoError(t, err)
	require.Len(t, els, 1)
	return els[0]
}

func loadClient(t *testing.T, srv *httptest.Server, sched Scheduler) *Client {
	t.Helper()
	c := NewClient(sched)
	t.Cleanup(c.Close)
	doc, err := c.Load(context.Background(), srv.URL+"/post/hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", doc.Title())
	return c
}

func TestLoadInstallsToken(t *testing.T) {
	srv, _ := newSite(t, replyJSON(map[string]any{}))
	c := loadClient(t, srv, make(chanScheduler, 1))
	assert.Equal(t, "s3cret", c.Token())
}

func TestLoadNonOK(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewClient(make(chanScheduler, 1))
	defer c.Close()
	_, err := c.Load(context.Background(), srv.URL+"/post/missing")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestSubmitDeliversCommentOnSchedulerGoroutine(t *testing.T) {
	srv, got := newSite(t, replyJSON(map[string]any{"comment": "<li>X</li>"}))
	sched := make(chanScheduler, 1)
	c := loadClient(t, srv, sched)

	var resp *Response
	c.Submit(commentForm(t, "/post/comment"), func(r Response) error {
		resp = &r
		return nil
	})

	r := <-got
	assert.Equal(t, "s3cret", r.header.Get(CSRFHeader))
	assert.Equal(t, "XMLHttpRequest", r.header.Get("X-Requested-With"))
	assert.Equal(t, "42", r.form.Get("parent_id"))
	assert.Equal(t, "hi there", r.form.Get("body_md"))

	fn := sched.next(t)
	assert.Nil(t, resp, "handler must not run before the scheduler does")
	assert.Equal(t, 1, c.Pending())
	fn()

	require.NotNil(t, resp)
	require.NotNil(t, resp.Comment)
	assert.Equal(t, "<li>X</li>", *resp.Comment)
	assert.Nil(t, resp.Status)
	assert.Equal(t, 0, c.Pending())
}

func TestSubmitStatusResponse(t *testing.T) {
	srv, _ := newSite(t, replyJSON(map[string]any{"status": false}))
	sched := make(chanScheduler, 1)
	c := loadClient(t, srv, sched)

	var status *bool
	c.Submit(commentForm(t, "/post/comment"), func(r Response) error {
		status = r.Status
		return nil
	})
	sched.next(t)()

	require.NotNil(t, status)
	assert.False(t, *status)
}

func TestSubmitFailuresNeverReachHandler(t *testing.T) {
	tests := []struct {
		name  string
		reply func(w http.ResponseWriter)
	}{
		{"bad request", func(w http.ResponseWriter) { http.Error(w, "bad token", http.StatusBadRequest) }},
		{"server error", func(w http.ResponseWriter) { w.WriteHeader(http.StatusInternalServerError) }},
		{"not json", func(w http.ResponseWriter) { w.Write([]byte("<html>oops</html>")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := newSite(t, tt.reply)
			sched := make(chanScheduler, 1)
			c := loadClient(t, srv, sched)

			called := false
			c.Submit(commentForm(t, "/post/comment"), func(Response) error {
				called = true
				return nil
			})
			<-got

			require.Eventually(t, func() bool { return c.Pending() == 0 }, 2*time.Second, 10*time.Millisecond)
			select {
			case <-sched:
				t.Fatal("failed exchange scheduled a completion")
			default:
			}
			assert.False(t, called)
		})
	}
}

func TestExchangeErrors(t *testing.T) {
	srv, _ := newSite(t, func(w http.ResponseWriter) { w.Write([]byte("nope")) })
	c := loadClient(t, srv, make(chanScheduler, 1))

	_, err := c.exchange(mustURL(t, srv.URL+"/post/comment"), "")
	assert.ErrorIs(t, err, ErrMalformedResponse)

	bad, _ := newSite(t, func(w http.ResponseWriter) { w.WriteHeader(http.StatusForbidden) })
	_, err = c.exchange(mustURL(t, bad.URL+"/post/comment"), "")
	assert.True(t, IsStatus(err, http.StatusForbidden))
}

func TestSubmitCrossOriginOmitsToken(t *testing.T) {
	srv, _ := newSite(t, replyJSON(map[string]any{}))
	other, got := newSite(t, replyJSON(map[string]any{"comment": "<li>X</li>"}))
	sched := make(chanScheduler, 1)
	c := loadClient(t, srv, sched)

	c.Submit(commentForm(t, other.URL+"/post/comment"), func(Response) error { return nil })
	r := <-got
	assert.Empty(t, r.header.Get(CSRFHeader))
	sched.next(t)()
}

// staticSource serves a canned page with session cookies
type staticSource struct {
	page *Page
}

func (s staticSource) Fetch(context.Context, string) (*Page, error) { return s.page, nil }

func TestLoadFromSourceInstallsCookies(t *testing.T) {
	var cookie string
	mux := http.NewServeMux()
	mux.HandleFunc("/post/comment", func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("sessionid"); err == nil {
			cookie = ck.Value
		}
		replyJSON(map[string]any{"comment": "<li>X</li>"})(w)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page := &Page{
		URL:     mustURL(t, srv.URL+"/post/hello"),
		Body:    []byte(testPage),
		Cookies: []*http.Cookie{{Name: "sessionid", Value: "abc", Path: "/"}},
	}
	sched := make(chanScheduler, 1)
	c := NewClient(sched, WithSource(staticSource{page: page}))
	defer c.Close()

	_, err := c.Load(context.Background(), page.URL.String())
	require.NoError(t, err)
	c.Submit(commentForm(t, "/post/comment"), func(Response) error { return nil })
	sched.next(t)()

	assert.Equal(t, "abc", cookie)
}

func TestSubmitWithoutPageNeedsAbsoluteAction(t *testing.T) {
	c := NewClient(make(chanScheduler, 1))
	defer c.Close()

	c.Submit(commentForm(t, "/post/comment"), func(Response) error { return nil })
	assert.Equal(t, 0, c.Pending())
}
