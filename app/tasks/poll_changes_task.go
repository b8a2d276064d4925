package tasks

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lysyi3m/landing-comb/app/pipeline"
)

// PollChangesTask asks the pipeline for a change cycle. A rejected trigger is not a failure.
type PollChangesTask struct {
	Task
	pipeline Pipeline
}

func NewPollChangesTask(p Pipeline) *PollChangesTask {
	return &PollChangesTask{
		Task:     NewTask(TaskTypePollChanges, 0),
		pipeline: p,
	}
}

func (t *PollChangesTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	runID, err := t.pipeline.Trigger()
	switch {
	case errors.Is(err, pipeline.ErrBusy), errors.Is(err, pipeline.ErrTooFrequent):
		slog.Debug("Scheduled change check skipped", "task", t.ID, "reason", err)
		return nil
	case err != nil:
		return err
	}

	slog.Debug("Scheduled change check started", "task", t.ID, "run_id", runID)
	return nil
}
