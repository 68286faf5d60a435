package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var lessonValidate = validator.New()

// TimeOfDay is a wall-clock time with minute precision, stored in Postgres
// TIME columns.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts HH:MM or HH:MM:SS.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
			return TimeOfDay{}, fmt.Errorf("invalid time %q", s)
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Before reports whether t is earlier than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	if t.Hour != other.Hour {
		return t.Hour < other.Hour
	}
	return t.Minute < other.Minute
}

// Value implements driver.Valuer.
func (t TimeOfDay) Value() (driver.Value, error) {
	return fmt.Sprintf("%02d:%02d:00", t.Hour, t.Minute), nil
}

// Scan implements sql.Scanner for TIME columns.
func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseTimeOfDay(v)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case []byte:
		return t.Scan(string(v))
	case time.Time:
		*t = TimeOfDay{Hour: v.Hour(), Minute: v.Minute()}
		return nil
	case nil:
		*t = TimeOfDay{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

// Lesson is one parsed class occurrence, produced by the parsers and consumed
// by the loader. Values are validated on construction and treated as
// immutable afterwards.
type Lesson struct {
	GroupCode string `validate:"required"`
	Date      time.Time
	StartTime TimeOfDay
	EndTime   TimeOfDay
	Subject   string `validate:"required"`
	Teacher   *string
	Room      *string
}

// NewLesson normalises and validates the raw field values. Group codes are
// upper-cased; blank teacher/room become nil.
func NewLesson(groupCode string, date time.Time, start, end TimeOfDay, subject, teacher, room string) (Lesson, error) {
	l := Lesson{
		GroupCode: strings.ToUpper(strings.TrimSpace(groupCode)),
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Subject:   strings.TrimSpace(subject),
		Teacher:   optional(teacher),
		Room:      optional(room),
	}
	if err := lessonValidate.Struct(l); err != nil {
		return Lesson{}, fmt.Errorf("invalid lesson: %w", err)
	}
	if date.IsZero() {
		return Lesson{}, fmt.Errorf("invalid lesson: missing date")
	}
	if !l.StartTime.Before(l.EndTime) {
		return Lesson{}, fmt.Errorf("invalid lesson: start %s not before end %s", l.StartTime, l.EndTime)
	}
	return l, nil
}

// SourceFileMeta describes one ingested document, keyed by content hash.
type SourceFileMeta struct {
	URL       string
	SHA256    string
	Semester  *string
	FetchedAt time.Time
}

func optional(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
