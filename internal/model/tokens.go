package model

import (
	"strconv"
	"time"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
	TokenTypeSingle  TokenType = "single"
)

// RefreshSession : one row per issued refresh token; Valid is 1 or 0
type RefreshSession struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	DeviceID  *int64    `db:"device_id"`
	Token     string    `db:"token"`
	Valid     int       `db:"valid"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *RefreshSession) IsValid() bool {
	return s.Valid == 1
}

// AccessToken : one row per issued access token, owned by a refresh session
type AccessToken struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	RefreshID int64     `db:"refresh_id"`
	Token     string    `db:"token"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// BlacklistEntry : a nil ExpiresAt means the entry never lapses
type BlacklistEntry struct {
	ID        int64      `db:"id"`
	UserID    int64      `db:"user_id"`
	Token     string     `db:"token"`
	TokenType TokenType  `db:"token_type"`
	Reason    string     `db:"reason"`
	ExpiresAt *time.Time `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// TokenPayload : in-token claims, never persisted as a row
type TokenPayload struct {
	Sub       string    `json:"sub"`
	Type      TokenType `json:"type"`
	Aud       string    `json:"aud"`
	Iss       string    `json:"iss"`
	Iat       int64     `json:"iat"`
	Exp       int64     `json:"exp"`
	Vendor    string    `json:"vendor,omitempty"`
	DeviceID  *int64    `json:"deviceId,omitempty"`
	SessionID int64     `json:"sid,omitempty"`
	JTI       string    `json:"jti,omitempty"`
}

// TokenSubject : who a token is minted for
type TokenSubject struct {
	UserID    int64
	DeviceID  *int64
	SessionID int64
	Vendor    string
}

func (p *TokenPayload) UserID() (int64, error) {
	return strconv.ParseInt(p.Sub, 10, 64)
}

// SignedToken : encoded token plus its absolute expiry
type SignedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenPair : access and refresh tokens issued together
type TokenPair struct {
	Access  SignedToken `json:"access"`
	Refresh SignedToken `json:"refresh"`
}

// AuthSession : payload returned by every session-issuing operation
type AuthSession struct {
	User   UserProfile `json:"user"`
	Tokens TokenPair   `json:"tokens"`
}

// VerifyResult : outcome of a stateless signature check; never an error
type VerifyResult struct {
	Valid   bool
	Reason  string
	Payload *TokenPayload
}

// TokenValidation : outcome of the full access-token gate
type TokenValidation struct {
	Valid       bool
	Reason      string
	Code        int
	UserID      int64
	DeviceID    *int64
	Payload     *TokenPayload
	ViaFallback bool
}
