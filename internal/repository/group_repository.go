package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/anton-kx/timetable-api/internal/models"
)

// GroupRepository reads study groups. Groups are seeded out-of-band; this
// repository deliberately has no create path.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs a GroupRepository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// List returns groups ordered by code, optionally filtered by a substring
// search, along with the total count.
func (r *GroupRepository) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, int, error) {
	base := `FROM "group" WHERE 1=1`
	var args []interface{}

	if filter.Search != "" {
		base += fmt.Sprintf(" AND UPPER(code) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToUpper(filter.Search)+"%")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, faculty_id, code, course %s ORDER BY code LIMIT %d OFFSET %d", base, size, offset)
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list groups: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count groups: %w", err)
	}

	return groups, total, nil
}

// FindByID fetches a group by id.
func (r *GroupRepository) FindByID(ctx context.Context, id int64) (*models.Group, error) {
	const query = `SELECT id, faculty_id, code, course FROM "group" WHERE id = $1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// FindByCode fetches a group by its upper-cased code.
func (r *GroupRepository) FindByCode(ctx context.Context, code string) (*models.Group, error) {
	const query = `SELECT id, faculty_id, code, course FROM "group" WHERE code = $1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, strings.ToUpper(code)); err != nil {
		return nil, err
	}
	return &group, nil
}
