package feed

import (
	"context"
	"io"
	"net/http"
	"time"
)

const (
	userAgent    = "newsdeck/1.0"
	maxBodyBytes = 10 << 20
)

// Fetcher retrieves raw feed documents over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher with a bounded per-request timeout so an
// unresponsive source cannot stall a whole ingestion pass.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch performs a GET against the feed URL and returns the raw body.
// Transport failures and non-2xx responses surface as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return body, nil
}
