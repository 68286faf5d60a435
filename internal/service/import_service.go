package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anton-kx/timetable-api/internal/ingest"
	"github.com/anton-kx/timetable-api/internal/models"
	"github.com/anton-kx/timetable-api/internal/repository"
	appErrors "github.com/anton-kx/timetable-api/pkg/errors"
)

type lessonLoader interface {
	LoadBatch(ctx context.Context, meta models.SourceFileMeta, lessons []models.Lesson) (repository.LoadResult, error)
}

type sourceChecker interface {
	KnownHash(ctx context.Context, sha256 string) (bool, error)
}

type workbookParser interface {
	ParseFile(path string) ([]models.Lesson, error)
}

type delimitedParser interface {
	Parse(r io.Reader) ([]models.Lesson, error)
}

type sheetImporter interface {
	FetchLessons(ctx context.Context, sheetURL string) ([]models.Lesson, []byte, error)
}

type scheduleInvalidator interface {
	InvalidateAll(ctx context.Context)
}

// ImportResult reports one administrative import.
type ImportResult struct {
	SourceID int64 `json:"source_id"`
	Inserted int   `json:"inserted"`
	Skipped  bool  `json:"skipped"`
}

// ImportService is the bulk-import entry point behind the admin commands.
// Errors surface as single descriptive messages suitable for a human
// operator waiting on the result; internal detail stays in the logs.
type ImportService struct {
	loader      lessonLoader
	sources     sourceChecker
	workbook    workbookParser
	delimited   delimitedParser
	sheet       sheetImporter
	invalidator scheduleInvalidator
	metrics     *MetricsService
	logger      *zap.Logger

	// sheetContentHash switches shared-sheet dedup from the synthetic
	// gsheet:<url> key to a real content hash of the fetched CSV.
	sheetContentHash bool
}

// NewImportService constructs an ImportService.
func NewImportService(loader lessonLoader, sources sourceChecker, workbook workbookParser, delimited delimitedParser, sheet sheetImporter, invalidator scheduleInvalidator, metrics *MetricsService, sheetContentHash bool, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		loader:           loader,
		sources:          sources,
		workbook:         workbook,
		delimited:        delimited,
		sheet:            sheet,
		invalidator:      invalidator,
		metrics:          metrics,
		sheetContentHash: sheetContentHash,
		logger:           logger,
	}
}

// ImportFile ingests an uploaded .xlsx or .csv file. The declared filename
// decides the parser; anything else is rejected before any store mutation.
func (s *ImportService) ImportFile(ctx context.Context, path, declaredName string) (*ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(declaredName))
	if ext != ".xlsx" && ext != ".csv" {
		return nil, appErrors.ErrUnsupportedFile
	}

	hash, err := ingest.HashFile(path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read uploaded file")
	}
	if known, err := s.sources.KnownHash(ctx, hash); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for duplicates")
	} else if known {
		return &ImportResult{Skipped: true}, nil
	}

	var lessons []models.Lesson
	switch ext {
	case ".xlsx":
		lessons, err = s.workbook.ParseFile(path)
	case ".csv":
		var f *os.File
		f, err = os.Open(path)
		if err == nil {
			defer f.Close() //nolint:errcheck
			lessons, err = s.delimited.Parse(f)
		}
	}
	if err != nil {
		return nil, asParseError(err)
	}

	meta := models.SourceFileMeta{
		URL:       "uploaded:" + declaredName,
		SHA256:    hash,
		FetchedAt: time.Now().UTC(),
	}
	return s.load(ctx, meta, lessons)
}

// ImportSheet ingests a publicly shared spreadsheet by URL. A URL that does
// not look like a sharing link is rejected before anything is fetched.
func (s *ImportService) ImportSheet(ctx context.Context, sheetURL string) (*ImportResult, error) {
	lessons, data, err := s.sheet.FetchLessons(ctx, sheetURL)
	if err != nil {
		return nil, asParseError(err)
	}

	key := ingest.SheetKey(sheetURL)
	if s.sheetContentHash {
		key = ingest.HashBytes(data)
	}
	if known, err := s.sources.KnownHash(ctx, key); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for duplicates")
	} else if known {
		return &ImportResult{Skipped: true}, nil
	}

	meta := models.SourceFileMeta{
		URL:       sheetURL,
		SHA256:    key,
		FetchedAt: time.Now().UTC(),
	}
	return s.load(ctx, meta, lessons)
}

func (s *ImportService) load(ctx context.Context, meta models.SourceFileMeta, lessons []models.Lesson) (*ImportResult, error) {
	result, err := s.loader.LoadBatch(ctx, meta, lessons)
	if err != nil {
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrUnknownGroup.Code {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store lessons")
	}

	if !result.Skipped {
		s.metrics.AddLessonsInserted(result.Inserted)
		if s.invalidator != nil {
			s.invalidator.InvalidateAll(ctx)
		}
	}
	s.logger.Info("import finished",
		zap.String("url", meta.URL),
		zap.Int("inserted", result.Inserted),
		zap.Bool("skipped", result.Skipped),
	)
	return &ImportResult{SourceID: result.SourceID, Inserted: result.Inserted, Skipped: result.Skipped}, nil
}

// asParseError keeps already-typed errors and turns everything else into a
// short user-facing validation message.
func asParseError(err error) *appErrors.Error {
	appErr := appErrors.FromError(err)
	if appErr.Code != appErrors.ErrInternal.Code {
		return appErr
	}
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("parse error: %v", err))
}
