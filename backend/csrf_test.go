package backend

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures the requests it is asked to send
type recorder struct {
	reqs []*http.Request
}

func (r *recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	r.reqs = append(r.reqs, req)
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("{}")),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestCSRFTransport(t *testing.T) {
	tests := []struct {
		name   string
		method string
		url    string
		want   string
	}{
		{"post same origin", http.MethodPost, "https://site.test/post/comment", "tok"},
		{"put same origin", http.MethodPut, "https://site.test/x", "tok"},
		{"delete same origin", http.MethodDelete, "https://site.test/x", "tok"},
		{"explicit default port", http.MethodPost, "https://site.test:443/post/comment", "tok"},
		{"get", http.MethodGet, "https://site.test/post/hello", ""},
		{"head", http.MethodHead, "https://site.test/post/hello", ""},
		{"options", http.MethodOptions, "https://site.test/post/hello", ""},
		{"trace", http.MethodTrace, "https://site.test/post/hello", ""},
		{"other host", http.MethodPost, "https://evil.test/post/comment", ""},
		{"other scheme", http.MethodPost, "http://site.test/post/comment", ""},
		{"other port", http.MethodPost, "https://site.test:8443/post/comment", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			tr := NewCSRFTransport(rec)
			tr.SetToken(mustURL(t, "https://site.test/post/hello"), "tok")

			req, err := http.NewRequest(tt.method, tt.url, nil)
			require.NoError(t, err)
			res, err := tr.RoundTrip(req)
			require.NoError(t, err)
			res.Body.Close()

			require.Len(t, rec.reqs, 1)
			assert.Equal(t, tt.want, rec.reqs[0].Header.Get(CSRFHeader))
			assert.Empty(t, req.Header.Get(CSRFHeader), "caller's request is not mutated")
		})
	}
}

func TestCSRFTransportWithoutToken(t *testing.T) {
	rec := &recorder{}
	tr := NewCSRFTransport(rec)
	tr.SetToken(mustURL(t, "https://site.test/"), "")

	req, err := http.NewRequest(http.MethodPost, "https://site.test/post/comment", nil)
	require.NoError(t, err)
	_, err = tr.RoundTrip(req)
	require.NoError(t, err)

	_, set := rec.reqs[0].Header[CSRFHeader]
	assert.False(t, set)
	assert.Empty(t, tr.Token())
}
