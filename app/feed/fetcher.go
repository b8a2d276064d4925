package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lysyi3m/landing-comb/app/catalog"
)

const maxBodySize = 32 << 20

type Fetcher struct {
	httpClient *http.Client
	parser     *Parser
	userAgent  string
	timeout    time.Duration
	now        func() time.Time
}

func NewFetcher(httpClient *http.Client, userAgent string, timeout time.Duration) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		httpClient: httpClient,
		parser:     NewParser(),
		userAgent:  userAgent,
		timeout:    timeout,
		now:        time.Now,
	}
}

// Fetch downloads one feed with a cache-busting parameter and converts it to a storable payload.
func (f *Fetcher) Fetch(ctx context.Context, source catalog.FeedSource) (*Payload, error) {
	data, err := f.get(ctx, CacheBust(source.URL, f.now()))
	if err != nil {
		return nil, err
	}

	switch source.Format {
	case catalog.FormatRSS:
		articles, err := f.parser.Run(data)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(articles)
		if err != nil {
			return nil, fmt.Errorf("failed to encode articles: %w", err)
		}
		return &Payload{Articles: encoded, Count: len(articles)}, nil
	default:
		return decodeJSON(data)
	}
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

func decodeJSON(data []byte) (*Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotArray, err)
	}

	entries, changed := backfillExcerpts(entries)
	if !changed {
		return &Payload{Articles: json.RawMessage(trimmed), Count: len(entries)}, nil
	}

	encoded, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode articles: %w", err)
	}
	return &Payload{Articles: encoded, Count: len(entries)}, nil
}

// CacheBust appends t=<unix millis> to rawURL, keeping any existing query parameters.
func CacheBust(rawURL string, now time.Time) string {
	stamp := strconv.FormatInt(now.UnixMilli(), 10)

	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL + "?t=" + stamp
	}
	q := u.Query()
	q.Set("t", stamp)
	u.RawQuery = q.Encode()
	return u.String()
}
