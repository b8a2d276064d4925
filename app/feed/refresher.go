package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/landing-comb/app/catalog"
)

type FeedFetcher interface {
	Fetch(ctx context.Context, source catalog.FeedSource) (*Payload, error)
}

type DocumentWriter interface {
	UpsertArticles(ctx context.Context, key string, articles json.RawMessage, count int) error
}

var _ FeedFetcher = (*Fetcher)(nil)

type RefresherOptions struct {
	Workers    int
	Attempts   int
	RetryDelay time.Duration
}

// Refresher re-pulls raw feeds and stores each one wholesale under its key.
type Refresher struct {
	fetcher FeedFetcher
	store   DocumentWriter
	opts    RefresherOptions
}

func NewRefresher(fetcher FeedFetcher, store DocumentWriter, opts RefresherOptions) *Refresher {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	return &Refresher{fetcher: fetcher, store: store, opts: opts}
}

type outcome int

const (
	outcomeRefreshed outcome = iota
	outcomeSkipped
	outcomeFailed
)

// Refresh fetches sources concurrently. A feed that fails or returns a non-array payload is
// logged and left as previously stored; the rest of the batch is unaffected.
func (r *Refresher) Refresh(ctx context.Context, sources []catalog.FeedSource) Result {
	outcomes := make([]outcome, len(sources))

	var g errgroup.Group
	g.SetLimit(r.opts.Workers)

	for i, source := range sources {
		g.Go(func() error {
			outcomes[i] = r.refreshOne(ctx, source)
			return nil
		})
	}
	_ = g.Wait()

	result := Result{}
	for i, source := range sources {
		switch outcomes[i] {
		case outcomeRefreshed:
			result.Refreshed = append(result.Refreshed, source.Key)
		case outcomeSkipped:
			result.Skipped = append(result.Skipped, source.Key)
		default:
			result.Failed = append(result.Failed, source.Key)
		}
	}
	return result
}

func (r *Refresher) refreshOne(ctx context.Context, source catalog.FeedSource) outcome {
	var payload *Payload
	var err error

	for attempt := 1; attempt <= r.opts.Attempts; attempt++ {
		payload, err = r.fetcher.Fetch(ctx, source)
		if err == nil || errors.Is(err, ErrNotArray) {
			break
		}
		if attempt == r.opts.Attempts {
			break
		}

		slog.Warn("Feed fetch failed, retrying", "key", source.Key, "attempt", attempt, "max_attempts", r.opts.Attempts, "error", err)

		select {
		case <-ctx.Done():
			slog.Warn("Feed refresh cancelled", "key", source.Key, "error", ctx.Err())
			return outcomeFailed
		case <-time.After(r.opts.RetryDelay):
		}
	}

	if errors.Is(err, ErrNotArray) {
		slog.Warn("Feed payload is not an array, skipping", "key", source.Key)
		return outcomeSkipped
	}
	if err != nil {
		slog.Warn("Failed to update feed", "key", source.Key, "error", err)
		return outcomeFailed
	}

	if err := r.store.UpsertArticles(ctx, source.Key, payload.Articles, payload.Count); err != nil {
		slog.Error("Failed to store feed", "key", source.Key, "error", err)
		return outcomeFailed
	}

	slog.Debug("Updated feed", "key", source.Key, "articles", payload.Count)
	return outcomeRefreshed
}
