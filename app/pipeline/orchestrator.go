package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/landing-comb/app/catalog"
	"github.com/lysyi3m/landing-comb/app/change"
)

// Orchestrator runs change cycles one at a time: Idle, Processing, Idle.
type Orchestrator struct {
	deps     Deps
	cooldown time.Duration
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	processing   bool
	runID        string
	lastAccepted time.Time
	lastReport   *RunReport
}

func NewOrchestrator(deps Deps, opts Options) *Orchestrator {
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		deps:     deps,
		cooldown: opts.Cooldown,
		now:      opts.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Trigger starts a change cycle in the background and returns its run id. It returns ErrBusy or
// ErrTooFrequent without starting anything when a run is in progress or the previous accepted
// trigger is within the cooldown window.
func (o *Orchestrator) Trigger() (string, error) {
	runID, err := o.begin()
	if err != nil {
		return "", err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		_, _ = o.run(o.ctx, runID)
	}()

	return runID, nil
}

// Run is Trigger for callers that wait for the cycle to finish.
func (o *Orchestrator) Run(ctx context.Context) (RunReport, error) {
	runID, err := o.begin()
	if err != nil {
		return RunReport{}, err
	}
	return o.run(ctx, runID)
}

// Wait blocks until background runs have finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Stop cancels background runs and waits for them to return.
func (o *Orchestrator) Stop() {
	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return State{
		Processing:   o.processing,
		RunID:        o.runID,
		LastAccepted: o.lastAccepted,
		LastRun:      o.lastReport,
	}
}

func (o *Orchestrator) LastReport() *RunReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastReport
}

// begin is the atomic Idle to Processing transition.
func (o *Orchestrator) begin() (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.processing {
		return "", ErrBusy
	}
	now := o.now()
	if !o.lastAccepted.IsZero() && now.Sub(o.lastAccepted) < o.cooldown {
		return "", ErrTooFrequent
	}

	o.processing = true
	o.lastAccepted = now
	o.runID = uuid.NewString()
	return o.runID, nil
}

func (o *Orchestrator) finish(report *RunReport) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.processing = false
	o.runID = ""
	o.lastReport = report
}

func (o *Orchestrator) run(ctx context.Context, runID string) (report RunReport, err error) {
	report = RunReport{RunID: runID, StartedAt: o.now()}
	logger := slog.With("run_id", runID)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panicked: %v", r)
		}
		if err != nil {
			report.Error = err.Error()
			logger.Error("Change cycle failed", "error", err)
		}
		report.FinishedAt = o.now()
		o.finish(&report)
	}()

	logger.Info("Processing change cycle")

	cached, cacheErr := o.deps.Cache.Load(ctx)
	if cacheErr != nil {
		logger.Warn("Could not read post cache, treating every post as new", "error", cacheErr)
		cached = nil
	}

	latest, err := o.deps.Posts.LatestPosts(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to fetch latest posts: %w", err)
	}
	report.Posts = len(latest)

	changes := change.Detect(latest, cached)
	touched := make(map[string]bool)

	for _, c := range changes {
		post := c.Post
		if c.IsNew {
			report.New = append(report.New, post.Slug)
		} else {
			report.Updated = append(report.Updated, post.Slug)
		}

		topics := o.deps.Router.Match(post.Categories)
		report.NotifyFailures += o.deps.Notifier.NotifyTopics(ctx, post, topics, post.Categories, c.IsNew)
		o.deps.Notifier.SchedulePing(post, post.Categories)

		for _, name := range post.Categories {
			key := o.deps.Catalog.TouchedKey(name)
			if !touched[key] {
				touched[key] = true
				report.Touched = append(report.Touched, key)
			}
		}
	}

	if len(changes) == 0 {
		logger.Info("No new or modified posts")
	}

	for _, key := range report.Touched {
		if _, ok := o.deps.Catalog.Feed(key); !ok {
			logger.Warn("Changed category has no feed", "key", key)
		}
	}

	if sources := o.deps.Catalog.FeedsFor(touched); len(sources) > 0 {
		report.Feeds = o.deps.Refresher.Refresh(ctx, sources)
	}

	if err := o.deps.Cache.Replace(ctx, change.FingerprintAll(latest)); err != nil {
		logger.Error("Failed to update post cache", "error", err)
	}

	if len(report.Touched) > 0 {
		categories := o.deps.Catalog.AffectedCategories(report.Touched)
		report.Landings = o.deps.Assembler.Assemble(ctx, categories)
		logger.Info("Generated landing pages", "categories", titles(categories))
	}

	logger.Info("Processed change cycle",
		"new", len(report.New),
		"updated", len(report.Updated),
		"touched", len(report.Touched),
		"feeds_refreshed", len(report.Feeds.Refreshed))
	return report, nil
}

// RefreshAll re-fetches every feed in the catalog and rebuilds every landing page. It does not
// touch the post cache and does not take the run guard.
func (o *Orchestrator) RefreshAll(ctx context.Context) RefreshReport {
	var report RefreshReport

	report.Feeds = o.deps.Refresher.Refresh(ctx, o.deps.Catalog.Feeds())
	report.Landings = o.deps.Assembler.Assemble(ctx, o.deps.Catalog.Categories())

	slog.Info("Full refresh completed",
		"refreshed", len(report.Feeds.Refreshed),
		"skipped", len(report.Feeds.Skipped),
		"failed", len(report.Feeds.Failed),
		"landings", len(report.Landings.Written))
	return report
}

func titles(categories []catalog.CategoryDef) []string {
	result := make([]string, len(categories))
	for i, cat := range categories {
		result[i] = cat.Title
	}
	return result
}
