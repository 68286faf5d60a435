package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anton-kx/timetable-api/internal/models"
)

var (
	// groupCodeRe recognises group tokens like "БИ-101" or "MEN21-3" in
	// Cyrillic or Latin, case-insensitive.
	groupCodeRe = regexp.MustCompile(`(?i)[А-ЯA-ZЁ-]+\d{2,3}`)

	// dateCellRe matches D.M.YY or D.M.YYYY with '.', '-' or '/' separators.
	dateCellRe = regexp.MustCompile(`^(\d{1,2})[.\-/](\d{1,2})[.\-/](\d{2,4})$`)

	// dashRe splits time ranges on an ASCII hyphen or the Unicode
	// hyphen/en-dash/em-dash variants that show up in real files.
	dashRe = regexp.MustCompile("[‐–—-]")

	// sheetTimeRe is the combined pattern shared-sheet time cells must match.
	sheetTimeRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*[\x{2010}\x{2013}\x{2014}-]\s*(\d{1,2}):(\d{2})`)
)

// HasGroupCode reports whether the string contains a recognisable group token.
func HasGroupCode(s string) bool {
	return groupCodeRe.MatchString(s)
}

// ParseDateCell parses textual date cells. Two-digit years are interpreted as
// 2000+YY.
func ParseDateCell(s string) (time.Time, error) {
	m := dateCellRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalises out-of-range components; reject those.
	if d.Day() != day || int(d.Month()) != month || d.Year() != year {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return d, nil
}

// CoerceDate accepts the common textual date formats used by delimited input.
func CoerceDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02.01.2006"} {
		if d, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return d, nil
		}
	}
	return ParseDateCell(s)
}

// ParseTimeRange splits strings like "10:30-12:05" (any dash variant) into
// start and end times.
func ParseTimeRange(s string) (models.TimeOfDay, models.TimeOfDay, error) {
	parts := dashRe.Split(strings.TrimSpace(s), -1)
	if len(parts) != 2 {
		return models.TimeOfDay{}, models.TimeOfDay{}, fmt.Errorf("invalid time range %q", s)
	}
	start, err := models.ParseTimeOfDay(parts[0])
	if err != nil {
		return models.TimeOfDay{}, models.TimeOfDay{}, err
	}
	end, err := models.ParseTimeOfDay(parts[1])
	if err != nil {
		return models.TimeOfDay{}, models.TimeOfDay{}, err
	}
	return start, end, nil
}

// ParseSheetTimeRange matches the single combined pattern used by shared
// sheets. The second return is false when the cell does not look like a time
// range at all.
func ParseSheetTimeRange(s string) (models.TimeOfDay, models.TimeOfDay, bool) {
	m := sheetTimeRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return models.TimeOfDay{}, models.TimeOfDay{}, false
	}
	sh, _ := strconv.Atoi(m[1])
	sm, _ := strconv.Atoi(m[2])
	eh, _ := strconv.Atoi(m[3])
	em, _ := strconv.Atoi(m[4])
	return models.TimeOfDay{Hour: sh, Minute: sm}, models.TimeOfDay{Hour: eh, Minute: em}, true
}
