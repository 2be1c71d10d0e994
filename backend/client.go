package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"

	"github.com/njyeung/threads/dom"
)

// Client implements Backend over HTTP
type Client struct {
	ctx    context.Context
	cancel context.CancelFunc

	http   *http.Client
	csrf   *CSRFTransport
	source PageSource
	sched  Scheduler
	log    zerolog.Logger

	page    *url.URL
	pending atomic.Int32
}

// Option configures a Client
type Option func(*Client)

// WithTransport sets the transport underneath the anti-forgery layer
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.csrf.Base = rt }
}

// WithSource replaces the default HTTP page source
func WithSource(src PageSource) Option {
	return func(c *Client) { c.source = src }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client whose completions are delivered through sched
func NewClient(sched Scheduler, opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	// cookiejar.New never returns a non-nil error
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	csrf := NewCSRFTransport(nil)

	c := &Client{
		ctx:    ctx,
		cancel: cancel,
		http:   &http.Client{Transport: csrf, Jar: jar},
		csrf:   csrf,
		sched:  sched,
		log:    zerolog.Nop(),
	}
	c.source = httpSource{client: c.http}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetScheduler replaces the completion scheduler. Call before any Submit.
func (c *Client) SetScheduler(s Scheduler) { c.sched = s }

// Token returns the anti-forgery token read from the last loaded page
func (c *Client) Token() string { return c.csrf.Token() }

// Load fetches and parses the post page
func (c *Client) Load(ctx context.Context, pageURL string) (*dom.Document, error) {
	page, err := c.source.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if len(page.Cookies) > 0 {
		c.http.Jar.SetCookies(page.URL, page.Cookies)
	}

	doc, err := dom.Parse(bytes.NewReader(page.Body))
	if err != nil {
		return nil, err
	}

	token := doc.Meta(CSRFMetaName)
	if token == "" {
		c.log.Warn().Str("url", page.URL.String()).Msg("page carries no anti-forgery token")
	}
	c.csrf.SetToken(page.URL, token)
	c.page = page.URL

	c.log.Info().Str("url", page.URL.String()).Msg("page loaded")
	return doc, nil
}

// Submit serializes form and posts it to the form's action. The exchange runs
// in its own goroutine; onSuccess is scheduled onto the UI goroutine.
func (c *Client) Submit(form *dom.Element, onSuccess Handler) {
	action := dom.Action(form)
	target, err := c.resolve(action)
	if err != nil {
		c.log.Error().Err(err).Str("action", action).Msg("cannot resolve form action")
		return
	}
	body := dom.Serialize(form).Encode()
	log := c.log.With().Str("action", target.String()).Str("method", http.MethodPost).Logger()

	c.pending.Add(1)
	go func() {
		resp, err := c.exchange(target, body)
		if err != nil {
			c.pending.Add(-1)
			log.Error().Err(err).Msg("submission failed")
			return
		}
		c.sched.Schedule(func() {
			c.pending.Add(-1)
			if err := onSuccess(resp); err != nil {
				log.Error().Err(err).Msg("unexpected response")
			}
		})
	}()
}

func (c *Client) Pending() int { return int(c.pending.Load()) }

func (c *Client) Close() { c.cancel() }

func (c *Client) resolve(action string) (*url.URL, error) {
	ref, err := url.Parse(action)
	if err != nil {
		return nil, fmt.Errorf("invalid form action %q: %w", action, err)
	}
	if c.page == nil {
		if !ref.IsAbs() {
			return nil, fmt.Errorf("relative form action %q with no page loaded", action)
		}
		return ref, nil
	}
	return c.page.ResolveReference(ref), nil
}

func (c *Client) exchange(target *url.URL, body string) (Response, error) {
	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, target.String(), strings.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	res, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(res.Body, maxResponseBytes))
		return Response{}, &StatusError{Code: res.StatusCode, Status: res.Status}
	}

	var out Response
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBytes)).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}

// httpSource fetches the page with a plain GET
type httpSource struct {
	client *http.Client
}

func (s httpSource) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: res.StatusCode, Status: res.Status}
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	// redirects may have moved us; the final URL is the origin
	return &Page{URL: res.Request.URL, Body: body}, nil
}
