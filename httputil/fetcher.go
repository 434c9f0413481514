package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"transfer_agents/metrics"
)

const maxBodyBytes = 10 << 20

// Page is a successfully fetched HTML document.
type Page struct {
	URL    string
	Status int
	Body   []byte
}

// FetchError is returned for any fetch that did not produce a 200 page.
// Status is set for HTTP failures; Err is set for transport failures.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Transport() {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status: %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transport reports whether the request failed before an HTTP status was received.
func (e *FetchError) Transport() bool {
	return e.Status == 0
}

// Fetcher retrieves a page. Implementations do not retry.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// HTTPFetcher fetches pages with a plain HTTP client and a browser identity.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	metrics   *metrics.Metrics
}

func NewHTTPFetcher(client *http.Client, userAgent string, m *metrics.Metrics) *HTTPFetcher {
	return &HTTPFetcher{
		client:    client,
		userAgent: userAgent,
		metrics:   m,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.metrics.ObserveFetch(metrics.FetchTransportError)
		return nil, &FetchError{URL: url, Err: fmt.Errorf("create request: %w", err)}
	}
	SetBrowserHeaders(req, f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.metrics.ObserveFetch(metrics.FetchTransportError)
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		f.metrics.ObserveFetch(metrics.FetchHTTPError)
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		f.metrics.ObserveFetch(metrics.FetchTransportError)
		return nil, &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	f.metrics.ObserveFetch(metrics.FetchOK)
	return &Page{URL: url, Status: resp.StatusCode, Body: body}, nil
}

// SetBrowserHeaders makes a request look like it came from a desktop browser.
func SetBrowserHeaders(req *http.Request, userAgent string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}
