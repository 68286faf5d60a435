package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/anton-kx/timetable-api/internal/models"
	appErrors "github.com/anton-kx/timetable-api/pkg/errors"
)

// Resolver maps the free-text group/teacher/room references of one batch to
// dimension row ids. It is scoped to a single transaction and must not be
// reused across batches: the teacher and room sets grow between imports.
// Groups are looked up only; a miss is a hard failure because groups carry
// faculty metadata that cannot be invented here. Teachers and rooms are
// created on first sight, with the store's uniqueness constraints as the
// final arbiter under concurrent batches.
type Resolver struct {
	tx       *sqlx.Tx
	groups   map[string]int64
	teachers map[string]int64
	rooms    map[string]int64
}

// NewResolver builds a resolver bound to tx.
func NewResolver(tx *sqlx.Tx) *Resolver {
	return &Resolver{
		tx:       tx,
		groups:   make(map[string]int64),
		teachers: make(map[string]int64),
		rooms:    make(map[string]int64),
	}
}

// GroupID resolves a group code. Unknown codes fail the batch.
func (r *Resolver) GroupID(ctx context.Context, code string) (int64, error) {
	if id, ok := r.groups[code]; ok {
		return id, nil
	}
	var id int64
	err := r.tx.GetContext(ctx, &id, `SELECT id FROM "group" WHERE code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, appErrors.Clone(appErrors.ErrUnknownGroup, fmt.Sprintf("unknown group %s; import group seeds first", code))
	}
	if err != nil {
		return 0, fmt.Errorf("resolve group %s: %w", code, err)
	}
	r.groups[code] = id
	return id, nil
}

// TeacherID resolves a teacher by exact name, creating the row when absent.
func (r *Resolver) TeacherID(ctx context.Context, name string) (int64, error) {
	if id, ok := r.teachers[name]; ok {
		return id, nil
	}

	var id int64
	err := r.tx.GetContext(ctx, &id,
		`INSERT INTO teacher (name) VALUES ($1) ON CONFLICT (name) DO NOTHING RETURNING id`, name)
	if errors.Is(err, sql.ErrNoRows) {
		err = r.tx.GetContext(ctx, &id, `SELECT id FROM teacher WHERE name = $1`, name)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve teacher %s: %w", name, err)
	}
	r.teachers[name] = id
	return id, nil
}

// RoomID resolves a room key like "Б-204" or "101", creating the row when
// absent.
func (r *Resolver) RoomID(ctx context.Context, key string) (int64, error) {
	if id, ok := r.rooms[key]; ok {
		return id, nil
	}
	building, number := models.SplitRoomKey(key)

	var id int64
	err := r.tx.GetContext(ctx, &id,
		`INSERT INTO room (building, number) VALUES ($1, $2) ON CONFLICT (building, number) DO NOTHING RETURNING id`,
		building, number)
	if errors.Is(err, sql.ErrNoRows) {
		err = r.tx.GetContext(ctx, &id, `SELECT id FROM room WHERE building = $1 AND number = $2`, building, number)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve room %s: %w", key, err)
	}
	r.rooms[key] = id
	return id, nil
}
