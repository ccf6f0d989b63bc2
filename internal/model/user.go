package model

import "time"

// User : identity record; soft-deleted only (flag + timestamp)
type User struct {
	ID           int64      `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	DisplayName  string     `db:"display_name" json:"display_name"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	IsDisabled   bool       `db:"is_disabled" json:"is_disabled"`
	IsDeleted    bool       `db:"is_deleted" json:"-"`
	DeletedAt    *time.Time `db:"deleted_at" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Blocked reports whether the account may no longer hold sessions.
func (u *User) Blocked() bool {
	return u.IsDisabled || u.IsDeleted
}

// UserProfile : full profile returned with every issued session and by /me
type UserProfile struct {
	User
	Permissions []string `json:"permissions"`
}

// ProfileUpdate : nil fields are left untouched
type ProfileUpdate struct {
	Email       *string
	Username    *string
	DisplayName *string
}

func (p ProfileUpdate) Empty() bool {
	return p.Email == nil && p.Username == nil && p.DisplayName == nil
}

// Registration : fields accepted by register
type Registration struct {
	Email       string
	Username    string
	Password    string
	DisplayName string
}
