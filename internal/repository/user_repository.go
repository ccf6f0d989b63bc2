package repository

import (
	"context"
	"database/sql"
	"errors"
	"saas-auth-server/config"
	"saas-auth-server/internal/apperror"
	"saas-auth-server/internal/model"
	"saas-auth-server/internal/util"
)

const userColumns = `id, email, username, COALESCE(password_hash, '') AS password_hash, display_name,
	is_active, is_disabled, is_deleted, deleted_at, created_at, updated_at`

type UserRepository struct {
	*config.Database
}

func NewUserRepository(database *config.Database) *UserRepository {
	return &UserRepository{database}
}

// Create : inserts the user and fills ID and timestamps; a taken email or username is a Conflict
func (r *UserRepository) Create(ctx context.Context, user *model.User) (int64, error) {
	query := `
	INSERT INTO users (email, username, password_hash, display_name, is_active)
	VALUES ($1, $2, NULLIF($3, ''), $4, $5)
	RETURNING id, created_at, updated_at
	`

	err := r.DB.QueryRowxContext(ctx, query, user.Email, user.Username, user.PasswordHash, user.DisplayName, user.IsActive).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperror.Conflict("User already exists")
		}
		return 0, util.LogError("[UserRepo] insert failed", err)
	}

	return user.ID, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// FindByIdentifier : matches the identifier against email or username, case-insensitively
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
	WHERE LOWER(email) = LOWER($1) OR LOWER(username) = LOWER($1)
	ORDER BY id LIMIT 1`
	return r.findOne(ctx, query, identifier)
}

func (r *UserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
	WHERE LOWER(email) = LOWER($1) OR LOWER(username) = LOWER($2)
	ORDER BY id LIMIT 1`
	return r.findOne(ctx, query, email, username)
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	var user model.User
	if err := r.DB.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, util.LogError("[UserRepo] user lookup failed", err)
	}
	return &user, nil
}

// UpdateProfile : nil fields keep their stored value
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, update model.ProfileUpdate) error {
	query := `
	UPDATE users
	SET email = COALESCE($2, email),
		username = COALESCE($3, username),
		display_name = COALESCE($4, display_name),
		updated_at = NOW()
	WHERE id = $1 AND is_deleted = FALSE
	`

	result, err := r.DB.ExecContext(ctx, query, id, update.Email, update.Username, update.DisplayName)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Email or username already taken")
		}
		return util.LogError("[UserRepo] profile update failed", err)
	}
	return expectAffected(result, "User not found")
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, digest string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.DB.ExecContext(ctx, query, id, digest)
	if err != nil {
		return util.LogError("[UserRepo] password update failed", err)
	}
	return expectAffected(result, "User not found")
}

// SoftDelete : flags the row; users are never removed physically
func (r *UserRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `
	UPDATE users SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
	WHERE id = $1 AND is_deleted = FALSE
	`

	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return util.LogError("[UserRepo] soft delete failed", err)
	}
	return expectAffected(result, "User not found")
}

func expectAffected(result sql.Result, notFound string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return util.LogError("[Repo] rows affected unavailable", err)
	}
	if rows == 0 {
		return apperror.NotFound(notFound)
	}
	return nil
}
