package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/anton-kx/timetable-api/internal/models"
)

// LessonRepository loads parsed lessons and serves the query side.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// LoadResult reports the outcome of loading one source file's batch.
type LoadResult struct {
	SourceID int64
	Inserted int
	Skipped  bool
}

// LoadBatch registers the source file and stores all of its lessons in one
// transaction. When the source's content hash is already known the batch is
// skipped and nothing is written. Any failure rolls the whole batch back,
// including the source row, so a file whose load fails is retried intact on
// the next run. The inserted count equals the input length; duplicate lesson
// content is not deduplicated here, only source-file dedup exists.
func (r *LessonRepository) LoadBatch(ctx context.Context, meta models.SourceFileMeta, lessons []models.Lesson) (LoadResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return LoadResult{}, fmt.Errorf("begin lesson batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	sourceID, existing, err := upsertSource(ctx, tx, meta)
	if err != nil {
		return LoadResult{}, err
	}
	if existing {
		return LoadResult{SourceID: sourceID, Skipped: true}, nil
	}

	if err := insertBatchTx(ctx, tx, lessons, sourceID); err != nil {
		return LoadResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return LoadResult{}, fmt.Errorf("commit lesson batch: %w", err)
	}
	return LoadResult{SourceID: sourceID, Inserted: len(lessons)}, nil
}

func insertBatchTx(ctx context.Context, tx *sqlx.Tx, lessons []models.Lesson, sourceID int64) error {
	resolver := NewResolver(tx)

	const insert = `INSERT INTO lesson (group_id, date, start_time, end_time, subject, teacher_id, room_id, source_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	now := time.Now().UTC()
	for _, lesson := range lessons {
		groupID, err := resolver.GroupID(ctx, lesson.GroupCode)
		if err != nil {
			return err
		}

		var teacherID, roomID *int64
		if lesson.Teacher != nil {
			id, err := resolver.TeacherID(ctx, *lesson.Teacher)
			if err != nil {
				return err
			}
			teacherID = &id
		}
		if lesson.Room != nil {
			id, err := resolver.RoomID(ctx, *lesson.Room)
			if err != nil {
				return err
			}
			roomID = &id
		}

		if _, err := tx.ExecContext(ctx, insert,
			groupID, lesson.Date, lesson.StartTime, lesson.EndTime, lesson.Subject,
			teacherID, roomID, sourceID, now,
		); err != nil {
			return fmt.Errorf("insert lesson for group %s: %w", lesson.GroupCode, err)
		}
	}

	return nil
}

// LessonsForDay returns a group's lessons on a date, ordered by start time,
// with teacher and room names joined in.
func (r *LessonRepository) LessonsForDay(ctx context.Context, groupID int64, date time.Time) ([]models.LessonDetail, error) {
	const query = `SELECT l.id, l.group_id, l.date, l.start_time, l.end_time, l.subject,
			t.name AS teacher_name, ro.building AS room_building, ro.number AS room_number
		FROM lesson l
		LEFT JOIN teacher t ON t.id = l.teacher_id
		LEFT JOIN room ro ON ro.id = l.room_id
		WHERE l.group_id = $1 AND l.date = $2
		ORDER BY l.start_time`

	var lessons []models.LessonDetail
	if err := r.db.SelectContext(ctx, &lessons, query, groupID, date); err != nil {
		return nil, fmt.Errorf("lessons for day: %w", err)
	}
	return lessons, nil
}
