package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"saas-auth-server/config"
	"saas-auth-server/internal/model"
	"saas-auth-server/internal/ports"
	"saas-auth-server/internal/util"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	refreshColumns = `id, user_id, device_id, token, valid, expires_at, created_at, updated_at`
	accessColumns  = `id, user_id, refresh_id, token, expires_at, created_at`

	defaultRevokeReason = "revoked"
)

// SessionRepository : refresh sessions, access tokens and the blacklist.
// Every single-session revocation goes through InvalidateRefreshToken.
type SessionRepository struct {
	*config.Database
	cache ports.BlacklistCache
	now   func() time.Time
}

// NewSessionRepository : cache may be nil, the blacklist table stays authoritative either way
func NewSessionRepository(database *config.Database, cache ports.BlacklistCache) *SessionRepository {
	return &SessionRepository{Database: database, cache: cache, now: time.Now}
}

func (r *SessionRepository) StoreRefreshToken(ctx context.Context, userID int64, deviceID *int64, token string, expiresAt time.Time) (int64, error) {
	query := `
	INSERT INTO refresh_tokens (user_id, device_id, token, valid, expires_at)
	VALUES ($1, $2, $3, 1, $4)
	RETURNING id
	`

	var id int64
	if err := r.DB.QueryRowxContext(ctx, query, userID, deviceID, token, expiresAt).Scan(&id); err != nil {
		return 0, util.LogError("[SessionRepo] refresh token insert failed", err)
	}
	return id, nil
}

func (r *SessionRepository) StoreAccessToken(ctx context.Context, userID, refreshID int64, token string, expiresAt time.Time) error {
	query := `INSERT INTO access_tokens (user_id, refresh_id, token, expires_at) VALUES ($1, $2, $3, $4)`

	if _, err := r.DB.ExecContext(ctx, query, userID, refreshID, token, expiresAt); err != nil {
		return util.LogError("[SessionRepo] access token insert failed", err)
	}
	return nil
}

func (r *SessionRepository) GetRefreshToken(ctx context.Context, token string) (*model.RefreshSession, error) {
	var session model.RefreshSession
	query := `SELECT ` + refreshColumns + ` FROM refresh_tokens WHERE token = $1`
	if err := r.DB.GetContext(ctx, &session, query, token); err != nil {
		return nil, notFoundAsNil("[SessionRepo] refresh token lookup failed", err)
	}
	return &session, nil
}

func (r *SessionRepository) GetRefreshByID(ctx context.Context, id int64) (*model.RefreshSession, error) {
	var session model.RefreshSession
	query := `SELECT ` + refreshColumns + ` FROM refresh_tokens WHERE id = $1`
	if err := r.DB.GetContext(ctx, &session, query, id); err != nil {
		return nil, notFoundAsNil("[SessionRepo] refresh session lookup failed", err)
	}
	return &session, nil
}

func (r *SessionRepository) GetAccessToken(ctx context.Context, token string) (*model.AccessToken, error) {
	var access model.AccessToken
	query := `SELECT ` + accessColumns + ` FROM access_tokens WHERE token = $1`
	if err := r.DB.GetContext(ctx, &access, query, token); err != nil {
		return nil, notFoundAsNil("[SessionRepo] access token lookup failed", err)
	}
	return &access, nil
}

func notFoundAsNil(message string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return util.LogError(message, err)
}

// IsBlacklisted : an entry counts until its own expiry (or forever when it has none), independent of the token's exp
func (r *SessionRepository) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	if r.cache != nil {
		hit, err := r.cache.IsBlacklisted(ctx, token)
		if err != nil {
			log.Printf("[SessionRepo] blacklist cache read failed, using database: %v", err)
		} else if hit {
			return true, nil
		}
	}

	query := `
	SELECT EXISTS (
		SELECT 1 FROM token_blacklist
		WHERE token = $1 AND (expires_at IS NULL OR expires_at > $2)
	)`

	var listed bool
	if err := r.DB.GetContext(ctx, &listed, query, token, r.now()); err != nil {
		return false, util.LogError("[SessionRepo] blacklist lookup failed", err)
	}
	return listed, nil
}

func (r *SessionRepository) BlacklistToken(ctx context.Context, userID int64, token string, tokenType model.TokenType, expiresAt *time.Time, reason string) error {
	if err := insertBlacklist(ctx, r.DB, userID, token, tokenType, expiresAt, reason); err != nil {
		return err
	}
	r.cacheBlacklisted(ctx, token, expiresAt)
	return nil
}

func insertBlacklist(ctx context.Context, exec sqlx.ExecerContext, userID int64, token string, tokenType model.TokenType, expiresAt *time.Time, reason string) error {
	if reason == "" {
		reason = defaultRevokeReason
	}
	query := `
	INSERT INTO token_blacklist (user_id, token, token_type, reason, expires_at)
	VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := exec.ExecContext(ctx, query, userID, token, string(tokenType), reason, expiresAt); err != nil {
		return util.LogError("[SessionRepo] blacklist insert failed", err)
	}
	return nil
}

func (r *SessionRepository) cacheBlacklisted(ctx context.Context, token string, expiresAt *time.Time) {
	if r.cache == nil {
		return
	}

	var ttl time.Duration
	if expiresAt != nil {
		ttl = expiresAt.Sub(r.now())
		if ttl <= 0 {
			return
		}
	}
	if err := r.cache.MarkBlacklisted(ctx, token, ttl); err != nil {
		log.Printf("[SessionRepo] blacklist cache write failed: %v", err)
	}
}

// InvalidateRefreshToken : valid=0, drop the session's access rows, blacklist the refresh token; one transaction
func (r *SessionRepository) InvalidateRefreshToken(ctx context.Context, session *model.RefreshSession, reason string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return util.LogError("[SessionRepo] begin failed", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE refresh_tokens SET valid = 0, updated_at = NOW() WHERE id = $1`, session.ID); err != nil {
		return util.LogError("[SessionRepo] refresh invalidation failed", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM access_tokens WHERE refresh_id = $1`, session.ID); err != nil {
		return util.LogError("[SessionRepo] access token sweep failed", err)
	}
	expiresAt := session.ExpiresAt
	if err := insertBlacklist(ctx, tx, session.UserID, session.Token, model.TokenTypeRefresh, &expiresAt, reason); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return util.LogError("[SessionRepo] commit failed", err)
	}

	session.Valid = 0
	r.cacheBlacklisted(ctx, session.Token, &expiresAt)
	return nil
}

// RevokeByRefreshToken : false when the token was never stored
func (r *SessionRepository) RevokeByRefreshToken(ctx context.Context, token, reason string) (bool, error) {
	session, err := r.GetRefreshToken(ctx, token)
	if err != nil || session == nil {
		return false, err
	}
	if err := r.InvalidateRefreshToken(ctx, session, reason); err != nil {
		return false, err
	}
	return true, nil
}

// RevokeByAccessToken : blacklists the access token itself, then invalidates its parent session
func (r *SessionRepository) RevokeByAccessToken(ctx context.Context, token, reason string) (bool, error) {
	access, err := r.GetAccessToken(ctx, token)
	if err != nil || access == nil {
		return false, err
	}
	session, err := r.GetRefreshByID(ctx, access.RefreshID)
	if err != nil || session == nil {
		return false, err
	}

	expiresAt := access.ExpiresAt
	if err := r.BlacklistToken(ctx, access.UserID, token, model.TokenTypeAccess, &expiresAt, reason); err != nil {
		return false, err
	}
	if err := r.InvalidateRefreshToken(ctx, session, reason); err != nil {
		return false, err
	}
	return true, nil
}

// RevokeAllDevices : bulk invalidation for one user, no per-row blacklist entries
func (r *SessionRepository) RevokeAllDevices(ctx context.Context, userID int64) (int64, error) {
	return r.bulkRevoke(ctx,
		`UPDATE refresh_tokens SET valid = 0, updated_at = NOW() WHERE user_id = $1 AND valid = 1`,
		`DELETE FROM access_tokens WHERE user_id = $1`,
		userID,
	)
}

// RevokeAllUsers : global kill switch
func (r *SessionRepository) RevokeAllUsers(ctx context.Context) (int64, error) {
	return r.bulkRevoke(ctx,
		`UPDATE refresh_tokens SET valid = 0, updated_at = NOW() WHERE valid = 1`,
		`DELETE FROM access_tokens`,
	)
}

func (r *SessionRepository) bulkRevoke(ctx context.Context, invalidate, sweep string, args ...any) (int64, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, util.LogError("[SessionRepo] begin failed", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, invalidate, args...)
	if err != nil {
		return 0, util.LogError("[SessionRepo] bulk invalidation failed", err)
	}
	revoked, err := result.RowsAffected()
	if err != nil {
		return 0, util.LogError("[SessionRepo] rows affected unavailable", err)
	}
	if _, err := tx.ExecContext(ctx, sweep, args...); err != nil {
		return 0, util.LogError("[SessionRepo] access token sweep failed", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, util.LogError("[SessionRepo] commit failed", err)
	}
	return revoked, nil
}

// RevokeByDeviceID : access rows are swept by the device's refresh ids, there is no cascade to rely on
func (r *SessionRepository) RevokeByDeviceID(ctx context.Context, userID, deviceID int64) (int64, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, util.LogError("[SessionRepo] begin failed", err)
	}
	defer func() { _ = tx.Rollback() }()

	var refreshIDs []int64
	if err := tx.SelectContext(ctx, &refreshIDs,
		`SELECT id FROM refresh_tokens WHERE user_id = $1 AND device_id = $2`, userID, deviceID); err != nil {
		return 0, util.LogError("[SessionRepo] device sessions lookup failed", err)
	}
	if len(refreshIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`UPDATE refresh_tokens SET valid = 0, updated_at = NOW() WHERE valid = 1 AND id IN (?)`, refreshIDs)
	if err != nil {
		return 0, fmt.Errorf("build device invalidation: %w", err)
	}
	result, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, util.LogError("[SessionRepo] device invalidation failed", err)
	}
	revoked, err := result.RowsAffected()
	if err != nil {
		return 0, util.LogError("[SessionRepo] rows affected unavailable", err)
	}

	query, args, err = sqlx.In(`DELETE FROM access_tokens WHERE refresh_id IN (?)`, refreshIDs)
	if err != nil {
		return 0, fmt.Errorf("build device sweep: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return 0, util.LogError("[SessionRepo] device access sweep failed", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, util.LogError("[SessionRepo] commit failed", err)
	}
	return revoked, nil
}

func (r *SessionRepository) ListActiveSessions(ctx context.Context, userID int64) ([]model.RefreshSession, error) {
	query := `SELECT ` + refreshColumns + ` FROM refresh_tokens
	WHERE user_id = $1 AND valid = 1 AND expires_at > $2
	ORDER BY created_at DESC`

	sessions := []model.RefreshSession{}
	if err := r.DB.SelectContext(ctx, &sessions, query, userID, r.now()); err != nil {
		return nil, util.LogError("[SessionRepo] active sessions lookup failed", err)
	}
	return sessions, nil
}

// PurgeExpired : removes lapsed access rows and lapsed blacklist entries; refresh rows and permanent entries stay
func (r *SessionRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var purged int64
	for _, query := range []string{
		`DELETE FROM access_tokens WHERE expires_at < $1`,
		`DELETE FROM token_blacklist WHERE expires_at IS NOT NULL AND expires_at < $1`,
	} {
		result, err := r.DB.ExecContext(ctx, query, now)
		if err != nil {
			return purged, util.LogError("[SessionRepo] purge failed", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return purged, util.LogError("[SessionRepo] rows affected unavailable", err)
		}
		purged += rows
	}
	return purged, nil
}
