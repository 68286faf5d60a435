package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anton-kx/timetable-api/internal/models"
	appErrors "github.com/anton-kx/timetable-api/pkg/errors"
)

var sheetIDRe = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)/`)

// sheetFetcher fetches bytes over HTTP; satisfied by pkg/fetch.Client.
type sheetFetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Sheet imports lessons from a publicly shared spreadsheet by downloading
// its CSV export. Column names are matched case-insensitively and "group"
// is accepted as an alias for "group_code".
type Sheet struct {
	fetcher sheetFetcher
	logger  *zap.Logger
}

// NewSheet builds a shared-sheet importer.
func NewSheet(fetcher sheetFetcher, logger *zap.Logger) *Sheet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sheet{fetcher: fetcher, logger: logger}
}

// ExportURL derives the CSV export endpoint from a sharing link.
func ExportURL(sheetURL string) (string, error) {
	m := sheetIDRe.FindStringSubmatch(sheetURL)
	if m == nil {
		return "", appErrors.ErrBadSheetURL
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", m[1]), nil
}

// Fetch downloads the sheet's CSV export.
func (s *Sheet) Fetch(ctx context.Context, sheetURL string) ([]byte, error) {
	exportURL, err := ExportURL(sheetURL)
	if err != nil {
		return nil, err
	}
	data, err := s.fetcher.Get(ctx, exportURL)
	if err != nil {
		return nil, fmt.Errorf("download sheet export: %w", err)
	}
	return data, nil
}

// FetchLessons downloads and parses the sheet in one step.
func (s *Sheet) FetchLessons(ctx context.Context, sheetURL string) ([]models.Lesson, []byte, error) {
	data, err := s.Fetch(ctx, sheetURL)
	if err != nil {
		return nil, nil, err
	}
	lessons, err := s.ParseCSV(data)
	if err != nil {
		return nil, nil, err
	}
	return lessons, data, nil
}

// ParseCSV converts the exported CSV into lessons. Rows whose time cell does
// not match the combined H:MM-H:MM pattern are silently skipped; rows that
// fail date parsing or record validation are skipped as well.
func (s *Sheet) ParseCSV(data []byte) ([]models.Lesson, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "sheet export has no header row")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := index["group_code"]; !ok {
		if i, ok := index["group"]; ok {
			index["group_code"] = i
		}
	}

	var missing []string
	for _, name := range []string{"group_code", "date", "time", "subject"} {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("sheet missing columns: %s", strings.Join(missing, ", ")))
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var lessons []models.Lesson
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("sheet line %d: %w", line, err)
		}

		start, end, ok := ParseSheetTimeRange(field(row, "time"))
		if !ok {
			continue
		}

		date, err := parseSheetDate(field(row, "date"))
		if err != nil {
			s.logger.Debug("skip sheet row: bad date", zap.Int("row", line), zap.Error(err))
			continue
		}

		lesson, err := models.NewLesson(
			field(row, "group_code"),
			date,
			start,
			end,
			field(row, "subject"),
			field(row, "teacher"),
			field(row, "room"),
		)
		if err != nil {
			s.logger.Debug("skip sheet row: validation failed", zap.Int("row", line), zap.Error(err))
			continue
		}
		lessons = append(lessons, lesson)
	}

	return lessons, nil
}

// parseSheetDate accepts the strict DD.MM.YYYY export format and the ISO
// form some sheets use for typed date cells.
func parseSheetDate(s string) (time.Time, error) {
	for _, layout := range []string{"02.01.2006", "2006-01-02"} {
		if d, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid sheet date %q", s)
}
