package model

import "time"

// Device : per-user client binding; fingerprint is the natural upsert key when present
type Device struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Fingerprint *string   `db:"fingerprint" json:"fingerprint,omitempty"`
	UserAgent   string    `db:"user_agent" json:"user_agent"`
	IP          string    `db:"ip" json:"ip"`
	Name        string    `db:"name" json:"name"`
	LastLoginAt time.Time `db:"last_login_at" json:"last_login_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DeviceContext : what the client told us about itself on login/refresh
type DeviceContext struct {
	Fingerprint string
	UserAgent   string
	IP          string
	Name        string
}

func (d *DeviceContext) HasFingerprint() bool {
	return d != nil && d.Fingerprint != ""
}

// DeviceView : device plus whether it still holds a valid refresh session
type DeviceView struct {
	Device
	Active bool `json:"active"`
}

// DeviceEvent : sent to the webhook when a login registers a device we have not seen
type DeviceEvent struct {
	UserID     int64     `json:"user_id"`
	DeviceID   int64     `json:"device_id"`
	UserAgent  string    `json:"user_agent"`
	IP         string    `json:"ip"`
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
}
