package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/anton-kx/timetable-api/internal/models"
	appErrors "github.com/anton-kx/timetable-api/pkg/errors"
)

const headerScanRows = 10

// ColumnLayout maps lesson fields to zero-based workbook column positions.
type ColumnLayout struct {
	Date    int
	Time    int
	Subject int
	Teacher int
	Room    int
	Group   int
}

// DefaultLayout reproduces the layout the university publishes:
// date, time, subject, teacher, room, group.
func DefaultLayout() ColumnLayout {
	return ColumnLayout{Date: 0, Time: 1, Subject: 2, Teacher: 3, Room: 4, Group: 5}
}

// LayoutFromNames builds a layout from an ordered list of column names.
// An empty list yields the default layout.
func LayoutFromNames(names []string) (ColumnLayout, error) {
	if len(names) == 0 {
		return DefaultLayout(), nil
	}
	layout := ColumnLayout{Date: -1, Time: -1, Subject: -1, Teacher: -1, Room: -1, Group: -1}
	for i, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			layout.Date = i
		case "time":
			layout.Time = i
		case "subject":
			layout.Subject = i
		case "teacher":
			layout.Teacher = i
		case "room":
			layout.Room = i
		case "group":
			layout.Group = i
		default:
			return ColumnLayout{}, fmt.Errorf("unknown workbook column %q", name)
		}
	}
	for field, idx := range map[string]int{"date": layout.Date, "time": layout.Time, "subject": layout.Subject, "group": layout.Group} {
		if idx < 0 {
			return ColumnLayout{}, fmt.Errorf("workbook layout missing required column %q", field)
		}
	}
	return layout, nil
}

// Workbook parses xlsx timetable files. It is a pure transformation of the
// file contents; rows that cannot be interpreted are skipped with a logged
// reason, and only a missing header row fails the whole file.
type Workbook struct {
	layout ColumnLayout
	logger *zap.Logger
}

// NewWorkbook builds a parser with the given column layout.
func NewWorkbook(columns []string, logger *zap.Logger) (*Workbook, error) {
	layout, err := LayoutFromNames(columns)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workbook{layout: layout, logger: logger}, nil
}

// ParseFile opens the workbook at path and parses its first sheet.
func (w *Workbook) ParseFile(path string) ([]models.Lesson, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return w.parse(f)
}

// Parse reads a workbook from r and parses its first sheet.
func (w *Workbook) Parse(r io.Reader) ([]models.Lesson, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return w.parse(f)
}

func (w *Workbook) parse(f *excelize.File) ([]models.Lesson, error) {
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, appErrors.Clone(appErrors.ErrHeaderNotFound, "workbook has no sheets")
	}

	// Raw values keep native dates as excel serial numbers instead of
	// locale-formatted text.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	headerIdx := -1
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		for _, cell := range rows[i] {
			if HasGroupCode(cell) {
				headerIdx = i
				break
			}
		}
		if headerIdx >= 0 {
			break
		}
	}
	if headerIdx < 0 {
		return nil, appErrors.ErrHeaderNotFound
	}

	var lessons []models.Lesson
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		dateVal := cellAt(row, w.layout.Date)
		timeVal := cellAt(row, w.layout.Time)
		subjectVal := cellAt(row, w.layout.Subject)
		teacherVal := cellAt(row, w.layout.Teacher)
		roomVal := cellAt(row, w.layout.Room)
		groupVal := cellAt(row, w.layout.Group)

		if dateVal == "" || timeVal == "" || subjectVal == "" || groupVal == "" {
			continue
		}

		date, err := w.parseDateCell(dateVal)
		if err != nil {
			w.logger.Debug("skip row: bad date", zap.Int("row", i+1), zap.String("value", dateVal), zap.Error(err))
			continue
		}
		start, end, err := ParseTimeRange(timeVal)
		if err != nil {
			w.logger.Debug("skip row: bad time", zap.Int("row", i+1), zap.String("value", timeVal), zap.Error(err))
			continue
		}

		lesson, err := models.NewLesson(groupVal, date, start, end, subjectVal, teacherVal, roomVal)
		if err != nil {
			w.logger.Debug("skip row: validation failed", zap.Int("row", i+1), zap.Error(err))
			continue
		}
		lessons = append(lessons, lesson)
	}

	return lessons, nil
}

// parseDateCell accepts excel serial dates (native date cells under raw
// reading) and the textual D.M.YY[YY] forms.
func (w *Workbook) parseDateCell(s string) (time.Time, error) {
	if serial, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		d, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	if d, err := ParseDateCell(s); err == nil {
		return d, nil
	}
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.UTC)
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
