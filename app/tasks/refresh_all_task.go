package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// RefreshAllTask re-fetches every feed and rebuilds every landing page.
type RefreshAllTask struct {
	Task
	pipeline Pipeline
}

func NewRefreshAllTask(p Pipeline) *RefreshAllTask {
	return &RefreshAllTask{
		Task:     NewTask(TaskTypeRefreshAll, DefaultMaxRetries),
		pipeline: p,
	}
}

func (t *RefreshAllTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	report := t.pipeline.RefreshAll(ctx)

	if len(report.Feeds.Refreshed) == 0 && len(report.Feeds.Failed) > 0 {
		return fmt.Errorf("all %d feed fetches failed", len(report.Feeds.Failed))
	}

	slog.Info("Refresh task completed",
		"task", t.ID,
		"refreshed", len(report.Feeds.Refreshed),
		"failed", len(report.Feeds.Failed),
		"landings", len(report.Landings.Written),
		"duration", t.GetDuration().String())
	return nil
}
