package ports

import (
	"context"
	"saas-auth-server/internal/model"
)

// UserRepository : SQL layer; lookups return (nil, nil) when nothing matches
type UserRepository interface {
	Create(ctx context.Context, user *model.User) (int64, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error)
	UpdateProfile(ctx context.Context, id int64, update model.ProfileUpdate) error
	UpdatePassword(ctx context.Context, id int64, digest string) error
	SoftDelete(ctx context.Context, id int64) error
}

type CredentialHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}
