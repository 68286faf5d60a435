package models

import "time"

// User is a chat user, keyed by the messenger's numeric user ID.
type User struct {
	ID        int64     `db:"id" json:"id"`
	FirstSeen time.Time `db:"first_seen" json:"first_seen"`
}

// UserGroup links a user to a study group. A partial unique index on
// (user_id) WHERE is_active guarantees at most one active group per user.
type UserGroup struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	GroupID    int64     `db:"group_id" json:"group_id"`
	SelectedAt time.Time `db:"selected_at" json:"selected_at"`
	IsActive   bool      `db:"is_active" json:"is_active"`
}
