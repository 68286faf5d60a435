package models

import (
	"strings"
	"time"
)

// Faculty groups study groups under a common short code.
type Faculty struct {
	ID        int64   `db:"id" json:"id"`
	ShortName string  `db:"short_name" json:"short_name"`
	FullName  *string `db:"full_name" json:"full_name,omitempty"`
}

// Group is a study group; unique per faculty and code. Groups are seeded
// out-of-band and never auto-created during imports.
type Group struct {
	ID        int64  `db:"id" json:"id"`
	FacultyID int64  `db:"faculty_id" json:"faculty_id"`
	Code      string `db:"code" json:"code"`
	Course    int    `db:"course" json:"course"`
}

// Teacher is a dimension row, unique by exact name.
type Teacher struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Room is a dimension row, unique by building and number.
type Room struct {
	ID       int64  `db:"id" json:"id"`
	Building string `db:"building" json:"building"`
	Number   string `db:"number" json:"number"`
}

// SplitRoomKey parses room references like "Б-204" into building and number.
// Without a hyphen the whole string is the number and the building is empty.
func SplitRoomKey(key string) (building, number string) {
	key = strings.TrimSpace(key)
	if i := strings.Index(key, "-"); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}

// SourceFile is a persisted ingested document. The sha256 column carries the
// unique constraint that makes re-imports of identical content a no-op.
type SourceFile struct {
	ID       int64     `db:"id" json:"id"`
	URL      string    `db:"url" json:"url"`
	SHA256   string    `db:"sha256" json:"sha256"`
	Semester *string   `db:"semester" json:"semester,omitempty"`
	AddedAt  time.Time `db:"added_at" json:"added_at"`
}

// LessonRow is the persisted lesson referencing dimension rows.
type LessonRow struct {
	ID        int64     `db:"id" json:"id"`
	GroupID   int64     `db:"group_id" json:"group_id"`
	Date      time.Time `db:"date" json:"date"`
	StartTime TimeOfDay `db:"start_time" json:"start_time"`
	EndTime   TimeOfDay `db:"end_time" json:"end_time"`
	Subject   string    `db:"subject" json:"subject"`
	TeacherID *int64    `db:"teacher_id" json:"teacher_id,omitempty"`
	RoomID    *int64    `db:"room_id" json:"room_id,omitempty"`
	SourceID  *int64    `db:"source_id" json:"source_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LessonDetail is a lesson row joined with its teacher and room names, the
// shape the query layer serves to the chat front end.
type LessonDetail struct {
	ID           int64     `db:"id" json:"id"`
	GroupID      int64     `db:"group_id" json:"group_id"`
	Date         time.Time `db:"date" json:"date"`
	StartTime    TimeOfDay `db:"start_time" json:"start_time"`
	EndTime      TimeOfDay `db:"end_time" json:"end_time"`
	Subject      string    `db:"subject" json:"subject"`
	TeacherName  *string   `db:"teacher_name" json:"teacher_name,omitempty"`
	RoomBuilding *string   `db:"room_building" json:"room_building,omitempty"`
	RoomNumber   *string   `db:"room_number" json:"room_number,omitempty"`
}

// GroupFilter narrows group listings.
type GroupFilter struct {
	Search   string
	Page     int
	PageSize int
}

// Pagination describes list slicing for API responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
