package backend

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// ChromeSource renders the post page in Chrome using a persistent profile, so
// an existing browser session (and the scripts that run on the page) apply.
type ChromeSource struct {
	userDataDir string
	headless    bool
	settle      time.Duration
	log         zerolog.Logger
}

// NewChromeSource creates a source backed by the Chrome profile at userDataDir
func NewChromeSource(userDataDir string, headless bool, log zerolog.Logger) *ChromeSource {
	return &ChromeSource{
		userDataDir: userDataDir,
		headless:    headless,
		settle:      500 * time.Millisecond,
		log:         log,
	}
}

// Fetch navigates to pageURL and returns the rendered markup together with the
// session cookies Chrome holds for it
func (s *ChromeSource) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url: %w", err)
	}

	// Create user data directory for persistent sessions
	if err := os.MkdirAll(s.userDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create user data dir: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(s.userDataDir),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("headless", s.headless),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	cctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(s.log.Printf))
	defer cancel()

	var markup string
	var cookies []*network.Cookie
	err = chromedp.Run(cctx,
		network.Enable(),
		chromedp.Navigate(u.String()),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.settle), // let page scripts finish mutating the tree
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().WithURLs([]string{u.String()}).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}

	var location string
	if err := chromedp.Run(cctx, chromedp.Location(&location)); err == nil && location != "" {
		if final, err := url.Parse(location); err == nil {
			u = final
		}
	}

	s.log.Debug().Str("url", u.String()).Int("cookies", len(cookies)).Msg("page rendered in browser")

	return &Page{
		URL:     u,
		Body:    []byte(markup),
		Cookies: toHTTPCookies(cookies),
	}, nil
}

func toHTTPCookies(in []*network.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(in))
	for _, c := range in {
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		// session cookies report a non-positive expiry
		if c.Expires > 0 {
			sec, frac := math.Modf(c.Expires)
			hc.Expires = time.Unix(int64(sec), int64(frac*1e9))
		}
		out = append(out, hc)
	}
	return out
}
