package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/landing-comb/app/content"
)

var _ DocumentRepository = (*documentRepository)(nil)

type documentRepository struct {
	db  *DB
	now func() time.Time
}

func NewDocumentRepository(db *DB) DocumentRepository {
	return &documentRepository{db: db, now: time.Now}
}

func (r *documentRepository) GetDocument(ctx context.Context, key string) (*Document, error) {
	var doc Document
	var kind string
	var articles string

	err := r.db.QueryRowContext(ctx, `
		SELECT key, kind, articles, article_count, updated_at
		FROM documents
		WHERE key = ?
	`, key).Scan(&doc.Key, &kind, &articles, &doc.ArticleCount, &doc.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", key, err)
	}

	doc.Kind = DocumentKind(kind)
	doc.Articles = json.RawMessage(articles)
	return &doc, nil
}

// GetArticles decodes a stored document as a list of articles. A missing key yields an empty list.
func (r *documentRepository) GetArticles(ctx context.Context, key string) ([]content.Article, error) {
	doc, err := r.GetDocument(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	articles, err := content.DecodeArticles(doc.Articles, func(index int, err error) {
		slog.Warn("Skipping article that does not decode", "key", key, "index", index, "error", err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode articles for %s: %w", key, err)
	}
	return articles, nil
}

func (r *documentRepository) ListDocuments(ctx context.Context, kind DocumentKind) ([]Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT key, kind, article_count, updated_at
		FROM documents
		WHERE kind = ?
		ORDER BY key
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var k string
		if err := rows.Scan(&doc.Key, &k, &doc.ArticleCount, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Kind = DocumentKind(k)
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

func (r *documentRepository) GetDocumentCount(ctx context.Context) (DocumentCounts, error) {
	var counts DocumentCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN kind = 'raw' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = 'landing' THEN 1 ELSE 0 END), 0)
		FROM documents
	`).Scan(&counts.Raw, &counts.Landing)
	if err != nil {
		return DocumentCounts{}, fmt.Errorf("failed to count documents: %w", err)
	}
	return counts, nil
}

// UpsertArticles replaces a raw feed document wholesale with the fetched payload.
func (r *documentRepository) UpsertArticles(ctx context.Context, key string, articles json.RawMessage, count int) error {
	return r.upsert(ctx, key, DocumentKindRaw, articles, count)
}

// UpsertLanding replaces an assembled landing document wholesale.
func (r *documentRepository) UpsertLanding(ctx context.Context, key string, items content.Items) error {
	if items == nil {
		items = content.Items{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode landing %s: %w", key, err)
	}
	return r.upsert(ctx, key, DocumentKindLanding, data, len(items))
}

func (r *documentRepository) upsert(ctx context.Context, key string, kind DocumentKind, articles json.RawMessage, count int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (key, kind, articles, article_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			kind = excluded.kind,
			articles = excluded.articles,
			article_count = excluded.article_count,
			updated_at = excluded.updated_at
	`, key, string(kind), string(articles), count, r.now().UTC())

	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", key, err)
	}
	return nil
}
