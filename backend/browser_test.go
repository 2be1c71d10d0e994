package backend

import (
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTTPCookies(t *testing.T) {
	in := []*network.Cookie{
		{Name: "sessionid", Value: "abc", Domain: "site.test", Path: "/", HTTPOnly: true, Secure: true, Expires: 1700000000.5},
		{Name: "pref", Value: "dark", Domain: "site.test", Path: "/", Expires: -1},
	}

	out := toHTTPCookies(in)
	require.Len(t, out, 2)

	assert.Equal(t, "sessionid", out[0].Name)
	assert.True(t, out[0].HttpOnly)
	assert.True(t, out[0].Secure)
	assert.Equal(t, time.Unix(1700000000, 5e8), out[0].Expires)

	assert.True(t, out[1].Expires.IsZero(), "session cookie keeps no expiry")
}
