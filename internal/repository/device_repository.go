package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"saas-auth-server/config"
	"saas-auth-server/internal/model"
	"saas-auth-server/internal/util"
)

const deviceColumns = `id, user_id, fingerprint, user_agent, ip, name, last_login_at, created_at, updated_at`

type DeviceRepository struct {
	*config.Database
}

func NewDeviceRepository(database *config.Database) *DeviceRepository {
	return &DeviceRepository{database}
}

// UpsertDevice : fingerprinted contexts update the matching row in place, others always insert.
// Two first logins racing on one fingerprint hit the partial unique index; the loser retries as an update.
func (r *DeviceRepository) UpsertDevice(ctx context.Context, userID int64, device *model.DeviceContext) (*int64, bool, error) {
	if device == nil {
		return nil, false, nil
	}

	if !device.HasFingerprint() {
		id, err := r.insert(ctx, userID, device)
		if err != nil {
			return nil, false, err
		}
		return &id, true, nil
	}

	if id, found, err := r.touch(ctx, userID, device); err != nil || found {
		return id, false, err
	}

	id, err := r.insert(ctx, userID, device)
	if err == nil {
		return &id, true, nil
	}
	if !isUniqueViolation(err) {
		return nil, false, err
	}

	log.Printf("[DeviceRepo] concurrent insert for user %d, retrying as update", userID)
	existing, found, err := r.touch(ctx, userID, device)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, errors.New("[DeviceRepo] device vanished after unique violation")
	}
	return existing, false, nil
}

func (r *DeviceRepository) touch(ctx context.Context, userID int64, device *model.DeviceContext) (*int64, bool, error) {
	query := `
	UPDATE devices
	SET name = COALESCE(NULLIF($3, ''), name),
		user_agent = COALESCE(NULLIF($4, ''), user_agent),
		ip = COALESCE(NULLIF($5, ''), ip),
		last_login_at = NOW(),
		updated_at = NOW()
	WHERE user_id = $1 AND fingerprint = $2
	RETURNING id
	`

	var id int64
	err := r.DB.QueryRowxContext(ctx, query, userID, device.Fingerprint, device.Name, device.UserAgent, device.IP).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, util.LogError("[DeviceRepo] device update failed", err)
	}
	return &id, true, nil
}

func (r *DeviceRepository) insert(ctx context.Context, userID int64, device *model.DeviceContext) (int64, error) {
	query := `
	INSERT INTO devices (user_id, fingerprint, user_agent, ip, name, last_login_at)
	VALUES ($1, NULLIF($2, ''), $3, $4, $5, NOW())
	RETURNING id
	`

	var id int64
	err := r.DB.QueryRowxContext(ctx, query, userID, device.Fingerprint, device.UserAgent, device.IP, device.Name).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, err
		}
		return 0, util.LogError("[DeviceRepo] device insert failed", err)
	}
	return id, nil
}

// FindByID : scoped to the owner so one user cannot address another user's device
func (r *DeviceRepository) FindByID(ctx context.Context, userID, deviceID int64) (*model.Device, error) {
	var device model.Device
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1 AND user_id = $2`
	if err := r.DB.GetContext(ctx, &device, query, deviceID, userID); err != nil {
		return nil, notFoundAsNil("[DeviceRepo] device lookup failed", err)
	}
	return &device, nil
}

func (r *DeviceRepository) ListByUser(ctx context.Context, userID int64) ([]model.Device, error) {
	devices := []model.Device{}
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE user_id = $1 ORDER BY last_login_at DESC, id DESC`
	if err := r.DB.SelectContext(ctx, &devices, query, userID); err != nil {
		return nil, util.LogError("[DeviceRepo] device list failed", err)
	}
	return devices, nil
}
