package httputil

import (
	"net/http"
	"net/url"
	"time"

	"transfer_agents/config"
)

// NewScrapingClient returns the client used against the listing site. Its
// timeout is always finite.
func NewScrapingClient(cfg config.FetchConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ProxyURL != "" {
		if proxyURL, err := url.Parse(cfg.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
