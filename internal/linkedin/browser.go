package linkedin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	loginURL = "https://www.linkedin.com/login"
	feedURL  = "https://www.linkedin.com/feed/"
)

// ChromeBrowser implements Browser on top of chromedp. The browser runs
// headful so the user can complete the login form; everything else the run
// does goes over plain HTTP with the exported cookies.
type ChromeBrowser struct {
	logger *zap.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

func NewChromeBrowser(ctx context.Context, logger *zap.Logger) *ChromeBrowser {
	if logger == nil {
		logger = zap.NewNop()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", false),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	return &ChromeBrowser{
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}
}

func (b *ChromeBrowser) Close() {
	b.browserCancel()
	b.allocCancel()
}

func (b *ChromeBrowser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.browserCtx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()

	select {
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// ProbeSession navigates to the feed and reports whether the session held.
// A logged-out browser gets bounced to the login page or the authwall.
func (b *ChromeBrowser) ProbeSession(ctx context.Context) (bool, error) {
	var location string
	err := b.run(ctx, 30*time.Second,
		chromedp.Navigate(feedURL),
		chromedp.WaitReady("body"),
		chromedp.Location(&location),
	)
	if err != nil {
		return false, fmt.Errorf("probing session: %w", err)
	}

	loggedIn := !strings.Contains(location, "/login") && !strings.Contains(location, "authwall")
	b.logger.Debug("session probe", zap.String("location", location), zap.Bool("logged_in", loggedIn))
	return loggedIn, nil
}

// BeginManualLogin opens the login page and returns immediately. The user
// completes the form in the visible browser window.
func (b *ChromeBrowser) BeginManualLogin(ctx context.Context) error {
	err := b.run(ctx, 30*time.Second,
		chromedp.Navigate(loginURL),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		return fmt.Errorf("opening login page: %w", err)
	}
	return nil
}

func (b *ChromeBrowser) ExportCookies(ctx context.Context) ([]*Cookie, error) {
	var cookies []*Cookie
	err := b.run(ctx, 15*time.Second,
		chromedp.ActionFunc(func(ctx context.Context) error {
			raw, err := network.GetCookies().Do(ctx)
			if err != nil {
				return err
			}
			for _, c := range raw {
				if !strings.Contains(c.Domain, "linkedin.com") {
					continue
				}
				cookies = append(cookies, &Cookie{
					Name:     c.Name,
					Value:    c.Value,
					Domain:   c.Domain,
					Path:     c.Path,
					Secure:   c.Secure,
					HTTPOnly: c.HTTPOnly,
					Expires:  c.Expires,
				})
			}
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("exporting cookies: %w", err)
	}

	return cookies, nil
}

func (b *ChromeBrowser) ImportCookies(ctx context.Context, cookies []*Cookie) error {
	err := b.run(ctx, 15*time.Second,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				p := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly)
				if c.Expires > 0 {
					expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
					p = p.WithExpires(&expires)
				}
				if err := p.Do(ctx); err != nil {
					return fmt.Errorf("setting cookie %s: %w", c.Name, err)
				}
			}
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("importing cookies: %w", err)
	}

	return nil
}
