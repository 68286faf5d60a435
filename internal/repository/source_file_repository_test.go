package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anton-kx/timetable-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSourceFileUpsertNew(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSourceFileRepository(db)
	meta := models.SourceFileMeta{URL: "https://guu.ru/f.xlsx", SHA256: "abc", FetchedAt: time.Now()}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO source_file")).
		WithArgs(meta.URL, meta.SHA256, nil, meta.FetchedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	id, existing, err := repo.Upsert(context.Background(), meta)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.False(t, existing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceFileUpsertExisting(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSourceFileRepository(db)
	meta := models.SourceFileMeta{URL: "https://guu.ru/f.xlsx", SHA256: "abc", FetchedAt: time.Now()}

	// ON CONFLICT DO NOTHING returns no rows for a known hash.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO source_file")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM source_file WHERE sha256")).
		WithArgs(meta.SHA256).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	id, existing, err := repo.Upsert(context.Background(), meta)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.True(t, existing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceFileUpsertURLConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSourceFileRepository(db)
	meta := models.SourceFileMeta{URL: "https://guu.ru/f.xlsx", SHA256: "changed", FetchedAt: time.Now()}

	// Same url with different content trips the unique constraint on url;
	// unlike a sha256 conflict this is a real error, reported per file.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO source_file")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "source_file_url_key"})

	_, _, err := repo.Upsert(context.Background(), meta)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert source file")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceFileKnownHash(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSourceFileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM source_file")).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	known, err := repo.KnownHash(context.Background(), "abc")
	require.NoError(t, err)
	assert.True(t, known)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM source_file")).
		WithArgs("def").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	known, err = repo.KnownHash(context.Background(), "def")
	require.NoError(t, err)
	assert.False(t, known)

	require.NoError(t, mock.ExpectationsWereMet())
}
