package repository

import (
	"context"
	"fmt"
	"saas-auth-server/config"
	"saas-auth-server/internal/model"
	"saas-auth-server/internal/util"

	"github.com/jmoiron/sqlx"
)

type PermissionRepository struct {
	*config.Database
}

func NewPermissionRepository(database *config.Database) *PermissionRepository {
	return &PermissionRepository{database}
}

// HasPermissions : every requested name must be granted; an empty request is always satisfied
func (r *PermissionRepository) HasPermissions(ctx context.Context, userID int64, permissions []string) (bool, error) {
	required := unique(permissions)
	if len(required) == 0 {
		return true, nil
	}

	query, args, err := sqlx.In(`SELECT COUNT(DISTINCT name) FROM user_permissions WHERE user_id = ? AND name IN (?)`, userID, required)
	if err != nil {
		return false, fmt.Errorf("build permission check: %w", err)
	}

	var granted int
	if err := r.DB.GetContext(ctx, &granted, r.DB.Rebind(query), args...); err != nil {
		return false, util.LogError("[PermissionRepo] permission check failed", err)
	}
	return granted == len(required), nil
}

func unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Grant : re-granting replaces the stored value
func (r *PermissionRepository) Grant(ctx context.Context, userID int64, name string, value *string) error {
	query := `
	INSERT INTO user_permissions (user_id, name, value)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id, name) DO UPDATE SET value = EXCLUDED.value
	`
	if _, err := r.DB.ExecContext(ctx, query, userID, name, value); err != nil {
		return util.LogError("[PermissionRepo] grant failed", err)
	}
	return nil
}

func (r *PermissionRepository) Revoke(ctx context.Context, userID int64, name string) (bool, error) {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM user_permissions WHERE user_id = $1 AND name = $2`, userID, name)
	if err != nil {
		return false, util.LogError("[PermissionRepo] revoke failed", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, util.LogError("[PermissionRepo] rows affected unavailable", err)
	}
	return rows > 0, nil
}

func (r *PermissionRepository) List(ctx context.Context, userID int64) ([]model.Permission, error) {
	permissions := []model.Permission{}
	query := `SELECT id, user_id, name, value, created_at FROM user_permissions WHERE user_id = $1 ORDER BY name`
	if err := r.DB.SelectContext(ctx, &permissions, query, userID); err != nil {
		return nil, util.LogError("[PermissionRepo] permission list failed", err)
	}
	return permissions, nil
}
