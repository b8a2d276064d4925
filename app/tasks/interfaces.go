package tasks

import (
	"context"

	"github.com/lysyi3m/landing-comb/app/pipeline"
)

// TaskSchedulerInterface is the scheduler as seen by main and the HTTP API.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

type Pipeline interface {
	Trigger() (string, error)
	RefreshAll(ctx context.Context) pipeline.RefreshReport
}
