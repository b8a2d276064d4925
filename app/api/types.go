package api

import (
	"context"

	"github.com/lysyi3m/landing-comb/app/database"
	"github.com/lysyi3m/landing-comb/app/notify"
	"github.com/lysyi3m/landing-comb/app/pipeline"
	"github.com/lysyi3m/landing-comb/app/tasks"
)

type DocumentReader interface {
	GetDocument(ctx context.Context, key string) (*database.Document, error)
	GetDocumentCount(ctx context.Context) (database.DocumentCounts, error)
}

type Pipeline interface {
	tasks.Pipeline
	State() pipeline.State
}

type NotifyStats interface {
	Stats() notify.Stats
}

var (
	_ DocumentReader = (database.DocumentRepository)(nil)
	_ Pipeline       = (*pipeline.Orchestrator)(nil)
	_ NotifyStats    = (*notify.Dispatcher)(nil)
)

type Handler struct {
	docs      DocumentReader
	pipeline  Pipeline
	notifier  NotifyStats
	scheduler tasks.TaskSchedulerInterface
	version   string
}
