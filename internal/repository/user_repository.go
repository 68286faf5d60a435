package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/anton-kx/timetable-api/internal/models"
)

// UserRepository manages chat users and their active group selection.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Ensure registers the user on first contact.
func (r *UserRepository) Ensure(ctx context.Context, userID int64) error {
	const query = `INSERT INTO app_user (id, first_seen) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

// SetActiveGroup deactivates the user's previous selection and records the
// new one in a single transaction; the partial unique index on
// user_group(user_id) WHERE is_active keeps concurrent selections from
// leaving two active rows.
func (r *UserRepository) SetActiveGroup(ctx context.Context, userID, groupID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin group selection: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`UPDATE user_group SET is_active = FALSE WHERE user_id = $1 AND is_active`, userID); err != nil {
		return fmt.Errorf("deactivate previous group: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_group (user_id, group_id, selected_at, is_active) VALUES ($1, $2, $3, TRUE)`,
		userID, groupID, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert group selection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit group selection: %w", err)
	}
	return nil
}

// ActiveGroup returns the user's currently selected group, or nil when none
// is set.
func (r *UserRepository) ActiveGroup(ctx context.Context, userID int64) (*models.Group, error) {
	const query = `SELECT g.id, g.faculty_id, g.code, g.course
		FROM "group" g
		JOIN user_group ug ON ug.group_id = g.id
		WHERE ug.user_id = $1 AND ug.is_active`

	var group models.Group
	err := r.db.GetContext(ctx, &group, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active group: %w", err)
	}
	return &group, nil
}
