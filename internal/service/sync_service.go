package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/anton-kx/timetable-api/internal/discovery"
	"github.com/anton-kx/timetable-api/internal/ingest"
	"github.com/anton-kx/timetable-api/internal/models"
	"github.com/anton-kx/timetable-api/pkg/storage"
)

// FileStatus classifies the outcome of one file within a sync run.
type FileStatus string

const (
	FileInserted FileStatus = "inserted"
	FileSkipped  FileStatus = "skipped"
	FileFailed   FileStatus = "failed"
)

// FileOutcome reports what happened to a single discovered file. A failed
// file carries its error; the run itself still succeeds.
type FileOutcome struct {
	URL      string     `json:"url"`
	Status   FileStatus `json:"status"`
	Inserted int        `json:"inserted,omitempty"`
	Err      error      `json:"-"`
}

type fileLister interface {
	ListFiles(ctx context.Context) ([]discovery.FileLink, error)
}

type fileDownloader interface {
	Download(ctx context.Context, link discovery.FileLink) (string, error)
}

// SyncService crawls the university schedule page and ingests every new
// workbook it finds. One bad file never aborts the run: its outcome is
// recorded as failed and the walk continues.
type SyncService struct {
	lister      fileLister
	downloader  fileDownloader
	spool       *storage.Spool
	workbook    workbookParser
	sources     sourceChecker
	loader      lessonLoader
	invalidator scheduleInvalidator
	metrics     *MetricsService
	maxFiles    int
	logger      *zap.Logger
}

// NewSyncService constructs a SyncService. maxFiles <= 0 means no cap.
func NewSyncService(lister fileLister, downloader fileDownloader, spool *storage.Spool, workbook workbookParser, sources sourceChecker, loader lessonLoader, invalidator scheduleInvalidator, metrics *MetricsService, maxFiles int, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		lister:      lister,
		downloader:  downloader,
		spool:       spool,
		workbook:    workbook,
		sources:     sources,
		loader:      loader,
		invalidator: invalidator,
		metrics:     metrics,
		maxFiles:    maxFiles,
		logger:      logger,
	}
}

// Sync lists the schedule page and processes each discovered file in turn.
// It returns one outcome per file; the error is non-nil only when the listing
// itself could not be fetched.
func (s *SyncService) Sync(ctx context.Context) ([]FileOutcome, error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveSyncRun(time.Since(started))
	}()

	links, err := s.lister.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	if s.maxFiles > 0 && len(links) > s.maxFiles {
		s.logger.Warn("discovered more files than the run cap, truncating",
			zap.Int("discovered", len(links)), zap.Int("cap", s.maxFiles))
		links = links[:s.maxFiles]
	}

	outcomes := make([]FileOutcome, 0, len(links))
	inserted := 0
	for _, link := range links {
		outcome := s.processFile(ctx, link)
		s.metrics.RecordSyncFile(string(outcome.Status))
		if outcome.Status == FileFailed {
			s.logger.Error("sync: file failed", zap.String("url", link.URL), zap.Error(outcome.Err))
		}
		inserted += outcome.Inserted
		outcomes = append(outcomes, outcome)
	}

	if inserted > 0 {
		s.metrics.AddLessonsInserted(inserted)
		if s.invalidator != nil {
			s.invalidator.InvalidateAll(ctx)
		}
	}
	s.logger.Info("sync finished",
		zap.Int("files", len(outcomes)),
		zap.Int("lessons_inserted", inserted),
		zap.Duration("took", time.Since(started)),
	)
	return outcomes, nil
}

func (s *SyncService) processFile(ctx context.Context, link discovery.FileLink) FileOutcome {
	path, err := s.downloader.Download(ctx, link)
	if err != nil {
		return FileOutcome{URL: link.URL, Status: FileFailed, Err: err}
	}
	defer func() {
		if err := s.spool.Discard(path); err != nil {
			s.logger.Warn("sync: could not discard spooled file", zap.String("path", path), zap.Error(err))
		}
	}()

	hash, err := ingest.HashFile(path)
	if err != nil {
		return FileOutcome{URL: link.URL, Status: FileFailed, Err: err}
	}
	if known, err := s.sources.KnownHash(ctx, hash); err != nil {
		return FileOutcome{URL: link.URL, Status: FileFailed, Err: err}
	} else if known {
		return FileOutcome{URL: link.URL, Status: FileSkipped}
	}

	lessons, err := s.workbook.ParseFile(path)
	if err != nil {
		return FileOutcome{URL: link.URL, Status: FileFailed, Err: err}
	}

	meta := models.SourceFileMeta{
		URL:       link.URL,
		SHA256:    hash,
		FetchedAt: time.Now().UTC(),
	}
	result, err := s.loader.LoadBatch(ctx, meta, lessons)
	if err != nil {
		return FileOutcome{URL: link.URL, Status: FileFailed, Err: err}
	}
	if result.Skipped {
		return FileOutcome{URL: link.URL, Status: FileSkipped}
	}
	return FileOutcome{URL: link.URL, Status: FileInserted, Inserted: result.Inserted}
}
