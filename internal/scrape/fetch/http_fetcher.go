// Package fetch is the shared HTTP retrieval layer of the scrape providers:
// one pooled client, per-domain rate limiting, and a hard response size cap.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

// HTTPFetcher performs single-attempt GETs. A failed or throttled page is
// skipped by the caller rather than retried; the next scheduled run picks
// it up again.
type HTTPFetcher struct {
	client    *http.Client
	limiter   *HostRateLimiter
	userAgent string
	logger    *slog.Logger
}

type HTTPFetcherConfig struct {
	Timeout      time.Duration
	UserAgent    string
	RateLimitRPS float64
	RateBurst    int
}

func NewHTTPFetcher(logger *slog.Logger, cfg HTTPFetcherConfig) *HTTPFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 1.5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 2
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       60 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		limiter:   NewHostRateLimiter(cfg.RateLimitRPS, cfg.RateBurst),
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Get returns the response body and status for rawURL. Non-2xx statuses are
// returned without error so callers can inspect them.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, int, error) {
	if f == nil {
		return nil, 0, errors.New("fetcher is nil")
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid url: %w", err)
	}
	if err := f.limiter.Wait(ctx, parsedURL.Hostname()); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")
	for k, v := range headers {
		if k == "" || v == "" {
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
