package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/anton-kx/timetable-api/internal/models"
)

// SourceFileRepository manages persistence for ingested documents.
type SourceFileRepository struct {
	db *sqlx.DB
}

// NewSourceFileRepository constructs a SourceFileRepository.
func NewSourceFileRepository(db *sqlx.DB) *SourceFileRepository {
	return &SourceFileRepository{db: db}
}

// Upsert inserts the source file unless its sha256 is already known and
// returns the row id. The second return is true when the hash was already
// present, which callers treat as "skip parsing".
func (r *SourceFileRepository) Upsert(ctx context.Context, meta models.SourceFileMeta) (int64, bool, error) {
	return upsertSource(ctx, r.db, meta)
}

// KnownHash reports whether a source with this content hash already exists.
// It is the cheap read-only pre-check that lets callers skip downloading and
// parsing; the Upsert inside the load transaction remains the authority.
func (r *SourceFileRepository) KnownHash(ctx context.Context, sha256 string) (bool, error) {
	const query = `SELECT 1 FROM source_file WHERE sha256 = $1 LIMIT 1`
	var one int
	err := r.db.GetContext(ctx, &one, query, sha256)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check source hash: %w", err)
	}
	return true, nil
}

// upsertSource runs against either the pool or a transaction. The unique
// constraint on sha256 arbitrates concurrent inserts of the same content:
// losing the race is reported as existing=true, not as an error.
func upsertSource(ctx context.Context, q sqlx.ExtContext, meta models.SourceFileMeta) (int64, bool, error) {
	fetchedAt := meta.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	const insert = `INSERT INTO source_file (url, sha256, semester, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (sha256) DO NOTHING
		RETURNING id`

	var id int64
	err := sqlx.GetContext(ctx, q, &id, insert, meta.URL, meta.SHA256, meta.Semester, fetchedAt)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("insert source file: %w", err)
	}

	const query = `SELECT id FROM source_file WHERE sha256 = $1`
	if err := sqlx.GetContext(ctx, q, &id, query, meta.SHA256); err != nil {
		return 0, false, fmt.Errorf("find source file by hash: %w", err)
	}
	return id, true, nil
}
