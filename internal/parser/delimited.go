package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/anton-kx/timetable-api/internal/models"
	appErrors "github.com/anton-kx/timetable-api/pkg/errors"
)

var delimitedRequired = []string{"group_code", "date", "start_time", "end_time", "subject"}

// Delimited parses CSV uploads with a fixed, case-sensitive header. Unlike
// the workbook parser, any malformed row fails the whole file: delimited
// input is produced deliberately and is expected to be well-formed.
type Delimited struct{}

// Parse reads the full CSV stream and converts every row.
func (Delimited) Parse(r io.Reader) ([]models.Lesson, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "csv has no header row")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range delimitedRequired {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("csv missing columns: %s", strings.Join(missing, ", ")))
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
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		date, err := CoerceDate(field(row, "date"))
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		start, err := models.ParseTimeOfDay(field(row, "start_time"))
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		end, err := models.ParseTimeOfDay(field(row, "end_time"))
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
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
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		lessons = append(lessons, lesson)
	}

	return lessons, nil
}
