package model

import "time"

type Permission struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	Value     *string   `db:"value" json:"value,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	PermissionSessionsManage    = "sessions.manage"
	PermissionPermissionsManage = "permissions.manage"
	PermissionUsersManage       = "users.manage"
)
