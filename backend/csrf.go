package backend

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// CSRFTransport attaches the page's anti-forgery token to every same-origin
// request whose method is not GET, HEAD, OPTIONS or TRACE.
type CSRFTransport struct {
	Base http.RoundTripper

	mu     sync.RWMutex
	origin *url.URL
	token  string
}

// NewCSRFTransport wraps base (http.DefaultTransport when nil)
func NewCSRFTransport(base http.RoundTripper) *CSRFTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &CSRFTransport{Base: base}
}

// SetToken installs the token read from the page served at origin
func (t *CSRFTransport) SetToken(origin *url.URL, token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.origin = origin
	t.token = token
}

// Token returns the installed token
func (t *CSRFTransport) Token() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

func (t *CSRFTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.RLock()
	origin, token := t.origin, t.token
	t.mu.RUnlock()

	if token != "" && !safeMethod(req.Method) && sameOrigin(origin, req.URL) {
		req = req.Clone(req.Context())
		req.Header.Set(CSRFHeader, token)
	}
	return t.Base.RoundTrip(req)
}

func safeMethod(method string) bool {
	switch strings.ToUpper(method) {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func sameOrigin(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Scheme, b.Scheme) &&
		strings.EqualFold(a.Hostname(), b.Hostname()) &&
		port(a) == port(b)
}

func port(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		return "443"
	case "http":
		return "80"
	}
	return ""
}
