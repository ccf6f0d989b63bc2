package ports

import (
	"context"
	"saas-auth-server/internal/model"
	"time"
)

// SessionStore : refresh/access token rows and the revocation blacklist
type SessionStore interface {
	StoreRefreshToken(ctx context.Context, userID int64, deviceID *int64, token string, expiresAt time.Time) (int64, error)
	StoreAccessToken(ctx context.Context, userID, refreshID int64, token string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, token string) (*model.RefreshSession, error)
	GetRefreshByID(ctx context.Context, id int64) (*model.RefreshSession, error)
	GetAccessToken(ctx context.Context, token string) (*model.AccessToken, error)
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	BlacklistToken(ctx context.Context, userID int64, token string, tokenType model.TokenType, expiresAt *time.Time, reason string) error
	InvalidateRefreshToken(ctx context.Context, session *model.RefreshSession, reason string) error
	RevokeByRefreshToken(ctx context.Context, token, reason string) (bool, error)
	RevokeByAccessToken(ctx context.Context, token, reason string) (bool, error)
	RevokeAllDevices(ctx context.Context, userID int64) (int64, error)
	RevokeByDeviceID(ctx context.Context, userID, deviceID int64) (int64, error)
	RevokeAllUsers(ctx context.Context) (int64, error)
	ListActiveSessions(ctx context.Context, userID int64) ([]model.RefreshSession, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// BlacklistCache : Redis layer in front of the blacklist table; a zero ttl means permanent
type BlacklistCache interface {
	MarkBlacklisted(ctx context.Context, token string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

type TokenCodec interface {
	SignAccess(subject model.TokenSubject) (*model.SignedToken, error)
	SignRefresh(subject model.TokenSubject) (*model.SignedToken, error)
	Verify(token string, expectedType model.TokenType) model.VerifyResult
	Expired(payload *model.TokenPayload) bool
}
