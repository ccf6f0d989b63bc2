package ports

import (
	"context"
	"saas-auth-server/internal/model"
)

// TokenValidator : what the guard middleware needs from the auth core
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (*model.TokenValidation, error)
}

type AuthenticationService interface {
	TokenValidator
	Register(ctx context.Context, input model.Registration, device *model.DeviceContext) (*model.AuthSession, error)
	Login(ctx context.Context, identifier, password string, device *model.DeviceContext) (*model.AuthSession, error)
	VendorLogin(ctx context.Context, vendor string, rawProfile map[string]any) (*model.AuthSession, error)
	Refresh(ctx context.Context, refreshToken string, device *model.DeviceContext) (*model.AuthSession, error)
	Logout(ctx context.Context, refreshToken, accessToken string) error
	LogoutAllDevices(ctx context.Context, userID int64) (int64, error)
	LogoutAllUsers(ctx context.Context) (int64, error)
}

type UserService interface {
	Me(ctx context.Context, userID int64) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, userID int64, update model.ProfileUpdate) (*model.UserProfile, error)
	ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string, logoutAll bool) error
	ListDevices(ctx context.Context, userID int64) ([]model.DeviceView, error)
	LogoutDevice(ctx context.Context, userID, deviceID int64) (int64, error)
	DeleteUser(ctx context.Context, userID int64) error
	GrantPermission(ctx context.Context, userID int64, name string, value *string) error
	RevokePermission(ctx context.Context, userID int64, name string) error
}
