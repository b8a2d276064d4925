package database

import (
	"context"
	"encoding/json"

	"github.com/lysyi3m/landing-comb/app/content"
)

type DocumentRepository interface {
	GetDocument(ctx context.Context, key string) (*Document, error)
	GetArticles(ctx context.Context, key string) ([]content.Article, error)
	ListDocuments(ctx context.Context, kind DocumentKind) ([]Document, error)
	GetDocumentCount(ctx context.Context) (DocumentCounts, error)

	UpsertArticles(ctx context.Context, key string, articles json.RawMessage, count int) error
	UpsertLanding(ctx context.Context, key string, items content.Items) error
}

type PostCacheRepository interface {
	Load(ctx context.Context) ([]content.CachedPost, error)
	Replace(ctx context.Context, records []content.CachedPost) error
}
