package postcache

import (
	"context"

	"github.com/lysyi3m/landing-comb/app/content"
	"github.com/lysyi3m/landing-comb/app/database"
)

// Store persists the last-seen fingerprinted post set between pipeline runs.
type Store interface {
	Load(ctx context.Context) ([]content.CachedPost, error)
	Replace(ctx context.Context, records []content.CachedPost) error
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (database.PostCacheRepository)(nil)
)
