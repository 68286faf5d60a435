package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anton-kx/timetable-api/internal/discovery"
	"github.com/anton-kx/timetable-api/internal/ingest"
	"github.com/anton-kx/timetable-api/internal/models"
	"github.com/anton-kx/timetable-api/internal/repository"
	"github.com/anton-kx/timetable-api/pkg/storage"
)

type mockLister struct {
	links []discovery.FileLink
	err   error
}

func (m *mockLister) ListFiles(ctx context.Context) ([]discovery.FileLink, error) {
	return m.links, m.err
}

// mockDownloader spools canned bytes per URL.
type mockDownloader struct {
	spool   *storage.Spool
	content map[string][]byte
	errs    map[string]error
}

func (m *mockDownloader) Download(ctx context.Context, link discovery.FileLink) (string, error) {
	if err, ok := m.errs[link.URL]; ok {
		return "", err
	}
	return m.spool.Save(link.Filename, m.content[link.URL])
}

// mockParser turns file contents into lessons; the literal "bad" fails.
type mockParser struct {
	calls int
}

func (m *mockParser) ParseFile(path string) ([]models.Lesson, error) {
	m.calls++
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if string(data) == "bad" {
		return nil, errors.New("parse failed")
	}
	lesson, err := models.NewLesson("БИ-101", time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC),
		models.TimeOfDay{Hour: 10, Minute: 30}, models.TimeOfDay{Hour: 12, Minute: 5}, "Математика", "", "")
	if err != nil {
		return nil, err
	}
	return []models.Lesson{lesson}, nil
}

type mockChecker struct {
	known map[string]bool
}

func (m *mockChecker) KnownHash(ctx context.Context, sha256 string) (bool, error) {
	return m.known[sha256], nil
}

type mockLoader struct {
	metas  []models.SourceFileMeta
	counts []int
	err    error
}

func (m *mockLoader) LoadBatch(ctx context.Context, meta models.SourceFileMeta, lessons []models.Lesson) (repository.LoadResult, error) {
	if m.err != nil {
		return repository.LoadResult{}, m.err
	}
	m.metas = append(m.metas, meta)
	m.counts = append(m.counts, len(lessons))
	return repository.LoadResult{SourceID: int64(len(m.metas)), Inserted: len(lessons)}, nil
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) InvalidateAll(ctx context.Context) { m.calls++ }

func newSyncFixture(t *testing.T, lister *mockLister, dl *mockDownloader, checker *mockChecker, loader *mockLoader, inv *mockInvalidator, maxFiles int) (*SyncService, *mockParser) {
	t.Helper()
	parser := &mockParser{}
	svc := NewSyncService(lister, dl, dl.spool, parser, checker, loader, inv, nil, maxFiles, nil)
	return svc, parser
}

func TestSyncIsolatesFailures(t *testing.T) {
	spool, err := storage.NewSpool(t.TempDir())
	require.NoError(t, err)

	lister := &mockLister{links: []discovery.FileLink{
		{URL: "https://guu.ru/a.xlsx", Filename: "a.xlsx"},
		{URL: "https://guu.ru/b.xlsx", Filename: "b.xlsx"},
		{URL: "https://guu.ru/c.xlsx", Filename: "c.xlsx"},
	}}
	dl := &mockDownloader{spool: spool, content: map[string][]byte{
		"https://guu.ru/a.xlsx": []byte("good"),
		"https://guu.ru/b.xlsx": []byte("bad"),
		"https://guu.ru/c.xlsx": []byte("also good"),
	}}
	loader := &mockLoader{}
	inv := &mockInvalidator{}
	svc, _ := newSyncFixture(t, lister, dl, &mockChecker{}, loader, inv, 0)

	outcomes, err := svc.Sync(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, FileInserted, outcomes[0].Status)
	assert.Equal(t, 1, outcomes[0].Inserted)
	assert.Equal(t, FileFailed, outcomes[1].Status)
	assert.Error(t, outcomes[1].Err)
	assert.Equal(t, FileInserted, outcomes[2].Status)

	assert.Len(t, loader.metas, 2)
	assert.Equal(t, 1, inv.calls)
}

func TestSyncSkipsKnownHashes(t *testing.T) {
	spool, err := storage.NewSpool(t.TempDir())
	require.NoError(t, err)

	content := []byte("already imported")
	lister := &mockLister{links: []discovery.FileLink{{URL: "https://guu.ru/a.xlsx", Filename: "a.xlsx"}}}
	dl := &mockDownloader{spool: spool, content: map[string][]byte{"https://guu.ru/a.xlsx": content}}
	checker := &mockChecker{known: map[string]bool{ingest.HashBytes(content): true}}
	loader := &mockLoader{}
	inv := &mockInvalidator{}
	svc, parser := newSyncFixture(t, lister, dl, checker, loader, inv, 0)

	outcomes, err := svc.Sync(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, FileSkipped, outcomes[0].Status)

	// A known hash short-circuits before parsing or loading.
	assert.Equal(t, 0, parser.calls)
	assert.Empty(t, loader.metas)
	assert.Equal(t, 0, inv.calls)
}

func TestSyncListingErrorFailsRun(t *testing.T) {
	spool, err := storage.NewSpool(t.TempDir())
	require.NoError(t, err)
	dl := &mockDownloader{spool: spool}
	svc, _ := newSyncFixture(t, &mockLister{err: errors.New("listing down")}, dl, &mockChecker{}, &mockLoader{}, &mockInvalidator{}, 0)

	_, err = svc.Sync(context.Background())
	require.Error(t, err)
}

func TestSyncHonoursFileCap(t *testing.T) {
	spool, err := storage.NewSpool(t.TempDir())
	require.NoError(t, err)

	lister := &mockLister{links: []discovery.FileLink{
		{URL: "https://guu.ru/a.xlsx", Filename: "a.xlsx"},
		{URL: "https://guu.ru/b.xlsx", Filename: "b.xlsx"},
	}}
	dl := &mockDownloader{spool: spool, content: map[string][]byte{
		"https://guu.ru/a.xlsx": []byte("good"),
		"https://guu.ru/b.xlsx": []byte("more"),
	}}
	svc, _ := newSyncFixture(t, lister, dl, &mockChecker{}, &mockLoader{}, &mockInvalidator{}, 1)

	outcomes, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Len(t, outcomes, 1)
}

func TestSyncDiscardsSpooledFiles(t *testing.T) {
	// The relative case matters: the production default download dir is
	// ./downloads, and discarding by the saved path must not re-join it.
	dirs := map[string]func(t *testing.T) string{
		"absolute": func(t *testing.T) string { return t.TempDir() },
		"relative": func(t *testing.T) string {
			wd, err := os.Getwd()
			require.NoError(t, err)
			require.NoError(t, os.Chdir(t.TempDir()))
			t.Cleanup(func() { require.NoError(t, os.Chdir(wd)) })
			return "./downloads"
		},
	}

	for name, makeDir := range dirs {
		t.Run(name, func(t *testing.T) {
			dir := makeDir(t)
			spool, err := storage.NewSpool(dir)
			require.NoError(t, err)

			lister := &mockLister{links: []discovery.FileLink{{URL: "https://guu.ru/a.xlsx", Filename: "a.xlsx"}}}
			dl := &mockDownloader{spool: spool, content: map[string][]byte{"https://guu.ru/a.xlsx": []byte("good")}}
			svc, _ := newSyncFixture(t, lister, dl, &mockChecker{}, &mockLoader{}, &mockInvalidator{}, 0)

			_, err = svc.Sync(context.Background())
			require.NoError(t, err)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}
