package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lysyi3m/landing-comb/app/content"
)

var _ PostCacheRepository = (*postCacheRepository)(nil)

type postCacheRepository struct {
	db *DB
}

func NewPostCacheRepository(db *DB) PostCacheRepository {
	return &postCacheRepository{db: db}
}

// Load returns the cached records in the order they were last written.
func (r *postCacheRepository) Load(ctx context.Context) ([]content.CachedPost, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT slug, title, modified, checksum, categories, date
		FROM post_cache
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load post cache: %w", err)
	}
	defer rows.Close()

	var records []content.CachedPost
	for rows.Next() {
		var record content.CachedPost
		var categories string
		if err := rows.Scan(&record.Slug, &record.Title, &record.Modified, &record.Checksum, &categories, &record.Date); err != nil {
			return nil, fmt.Errorf("failed to scan cached post: %w", err)
		}
		if err := json.Unmarshal([]byte(categories), &record.Categories); err != nil {
			return nil, fmt.Errorf("failed to decode categories for %s: %w", record.Slug, err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post cache: %w", err)
	}
	return records, nil
}

// Replace overwrites the whole cache in one transaction. Later duplicates of a slug win.
func (r *postCacheRepository) Replace(ctx context.Context, records []content.CachedPost) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_cache`); err != nil {
		return fmt.Errorf("failed to clear post cache: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO post_cache (slug, position, title, modified, checksum, categories, date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			position = excluded.position,
			title = excluded.title,
			modified = excluded.modified,
			checksum = excluded.checksum,
			categories = excluded.categories,
			date = excluded.date
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, record := range records {
		categories := record.Categories
		if categories == nil {
			categories = []string{}
		}
		encoded, err := json.Marshal(categories)
		if err != nil {
			return fmt.Errorf("failed to encode categories for %s: %w", record.Slug, err)
		}

		if _, err := stmt.ExecContext(ctx, record.Slug, i, record.Title, record.Modified, record.Checksum, string(encoded), record.Date); err != nil {
			return fmt.Errorf("failed to insert cached post %s: %w", record.Slug, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit post cache: %w", err)
	}
	return nil
}
