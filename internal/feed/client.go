// Package feed downloads CSV feeds and turns their rows into validated
// records.
package feed

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const userAgent = "beermap-feed/1.0"

// Client performs feed downloads.
type Client struct {
	httpClient *http.Client
	userAgent  string
	log        *zap.Logger
}

// NewClient returns a Client whose requests are bounded by timeout.
func NewClient(timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		log:        log,
	}
}

// NewClientWithHTTP wraps an existing http.Client.
func NewClientWithHTTP(hc *http.Client, log *zap.Logger) *Client {
	return &Client{httpClient: hc, userAgent: userAgent, log: log}
}

// Fetch GETs url and returns the body. Network failures and non-2xx
// responses are reported as *FetchError carrying message.
func (c *Client) Fetch(ctx context.Context, url, message string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Message: message, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Message: message, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, Status: resp.StatusCode, Message: message}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Status: resp.StatusCode, Message: message, Err: err}
	}
	c.log.Debug("feed fetched",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
		zap.Duration("took", time.Since(start)))
	return body, nil
}
