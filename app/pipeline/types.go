package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/lysyi3m/landing-comb/app/catalog"
	"github.com/lysyi3m/landing-comb/app/content"
	"github.com/lysyi3m/landing-comb/app/feed"
	"github.com/lysyi3m/landing-comb/app/landing"
)

// Trigger rejections. Neither means a run failed.
var (
	ErrBusy        = errors.New("pipeline is already processing")
	ErrTooFrequent = errors.New("pipeline triggered too frequently")
)

const DefaultCooldown = 2 * time.Second

type PostSource interface {
	LatestPosts(ctx context.Context) ([]content.Post, error)
}

type PostCache interface {
	Load(ctx context.Context) ([]content.CachedPost, error)
	Replace(ctx context.Context, records []content.CachedPost) error
}

type TopicMatcher interface {
	Match(categories []string) []string
}

type Notifier interface {
	NotifyTopics(ctx context.Context, post content.Post, topics []string, categories []string, isNew bool) int
	SchedulePing(post content.Post, categories []string) (cancel func() bool)
}

type FeedRefresher interface {
	Refresh(ctx context.Context, sources []catalog.FeedSource) feed.Result
}

type LandingAssembler interface {
	Assemble(ctx context.Context, categories []catalog.CategoryDef) landing.Report
}

type Deps struct {
	Posts     PostSource
	Cache     PostCache
	Catalog   *catalog.Catalog
	Router    TopicMatcher
	Notifier  Notifier
	Refresher FeedRefresher
	Assembler LandingAssembler
}

type Options struct {
	Cooldown time.Duration
	Now      func() time.Time
}

// RunReport summarizes one change cycle.
type RunReport struct {
	RunID          string         `json:"run_id"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
	Posts          int            `json:"posts"`
	New            []string       `json:"new"`
	Updated        []string       `json:"updated"`
	NotifyFailures int            `json:"notify_failures"`
	Touched        []string       `json:"touched"`
	Feeds          feed.Result    `json:"feeds"`
	Landings       landing.Report `json:"landings"`
	Error          string         `json:"error,omitempty"`
}

type RefreshReport struct {
	Feeds    feed.Result    `json:"feeds"`
	Landings landing.Report `json:"landings"`
}

type State struct {
	Processing   bool       `json:"processing"`
	RunID        string     `json:"run_id,omitempty"`
	LastAccepted time.Time  `json:"last_accepted"`
	LastRun      *RunReport `json:"last_run,omitempty"`
}
