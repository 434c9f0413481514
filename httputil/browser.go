package httputil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"transfer_agents/metrics"
)

// BrowserFetcher loads pages through headless Chromium for sites that reject
// plain HTTP clients. The browser is started lazily on first Fetch.
type BrowserFetcher struct {
	userAgent string
	timeout   time.Duration
	metrics   *metrics.Metrics

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
}

func NewBrowserFetcher(userAgent string, timeout time.Duration, m *metrics.Metrics) *BrowserFetcher {
	return &BrowserFetcher{
		userAgent: userAgent,
		timeout:   timeout,
		metrics:   m,
	}
}

func (f *BrowserFetcher) start() error {
	if f.context != nil {
		return nil
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("launch chromium: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(f.userAgent),
		Locale:    playwright.String("en-US"),
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return fmt.Errorf("new browser context: %w", err)
	}

	f.pw = pw
	f.browser = browser
	f.context = bctx
	return nil
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.start(); err != nil {
		f.metrics.ObserveFetch(metrics.FetchTransportError)
		return nil, &FetchError{URL: url, Err: err}
	}

	page, err := f.context.NewPage()
	if err != nil {
		f.metrics.ObserveFetch(metrics.FetchTransportError)
		return nil, &FetchError{URL: url, Err: fmt.Errorf("new page: %w", err)}
	}
	defer page.Close()

	resp, err := page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(f.timeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		f.metrics.ObserveFetch(metrics.FetchTransportError)
		return nil, &FetchError{URL: url, Err: fmt.Errorf("goto: %w", err)}
	}
	if resp == nil {
		f.metrics.ObserveFetch(metrics.FetchTransportError)
		return nil, &FetchError{URL: url, Err: fmt.Errorf("goto: no response")}
	}
	if resp.Status() != 200 {
		f.metrics.ObserveFetch(metrics.FetchHTTPError)
		return nil, &FetchError{URL: url, Status: resp.Status()}
	}

	content, err := page.Content()
	if err != nil {
		f.metrics.ObserveFetch(metrics.FetchTransportError)
		return nil, &FetchError{URL: url, Err: fmt.Errorf("read content: %w", err)}
	}

	f.metrics.ObserveFetch(metrics.FetchOK)
	return &Page{URL: url, Status: resp.Status(), Body: []byte(content)}, nil
}

// Close shuts the browser down if it was started.
func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pw == nil {
		return nil
	}
	if f.browser != nil {
		f.browser.Close()
	}
	err := f.pw.Stop()
	f.pw, f.browser, f.context = nil, nil, nil
	return err
}
