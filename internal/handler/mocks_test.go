package handler_test

import (
	"context"
	"saas-auth-server/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockAuthenticationService struct {
	mock.Mock
}

func session(args mock.Arguments) (*model.AuthSession, error) {
	s, _ := args.Get(0).(*model.AuthSession)
	return s, args.Error(1)
}

func (m *MockAuthenticationService) ValidateAccessToken(ctx context.Context, token string) (*model.TokenValidation, error) {
	args := m.Called(ctx, token)
	v, _ := args.Get(0).(*model.TokenValidation)
	return v, args.Error(1)
}

func (m *MockAuthenticationService) Register(ctx context.Context, input model.Registration, device *model.DeviceContext) (*model.AuthSession, error) {
	return session(m.Called(ctx, input, device))
}

func (m *MockAuthenticationService) Login(ctx context.Context, identifier, password string, device *model.DeviceContext) (*model.AuthSession, error) {
	return session(m.Called(ctx, identifier, password, device))
}

func (m *MockAuthenticationService) VendorLogin(ctx context.Context, vendor string, rawProfile map[string]any) (*model.AuthSession, error) {
	return session(m.Called(ctx, vendor, rawProfile))
}

func (m *MockAuthenticationService) Refresh(ctx context.Context, refreshToken string, device *model.DeviceContext) (*model.AuthSession, error) {
	return session(m.Called(ctx, refreshToken, device))
}

func (m *MockAuthenticationService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	return m.Called(ctx, refreshToken, accessToken).Error(0)
}

func (m *MockAuthenticationService) LogoutAllDevices(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAuthenticationService) LogoutAllUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Me(ctx context.Context, userID int64) (*model.UserProfile, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*model.UserProfile)
	return p, args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, userID int64, update model.ProfileUpdate) (*model.UserProfile, error) {
	args := m.Called(ctx, userID, update)
	p, _ := args.Get(0).(*model.UserProfile)
	return p, args.Error(1)
}

func (m *MockUserService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string, logoutAll bool) error {
	return m.Called(ctx, userID, currentPassword, newPassword, logoutAll).Error(0)
}

func (m *MockUserService) ListDevices(ctx context.Context, userID int64) ([]model.DeviceView, error) {
	args := m.Called(ctx, userID)
	d, _ := args.Get(0).([]model.DeviceView)
	return d, args.Error(1)
}

func (m *MockUserService) LogoutDevice(ctx context.Context, userID, deviceID int64) (int64, error) {
	args := m.Called(ctx, userID, deviceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockUserService) GrantPermission(ctx context.Context, userID int64, name string, value *string) error {
	return m.Called(ctx, userID, name, value).Error(0)
}

func (m *MockUserService) RevokePermission(ctx context.Context, userID int64, name string) error {
	return m.Called(ctx, userID, name).Error(0)
}

type MockPermissionGate struct {
	mock.Mock
}

func (m *MockPermissionGate) HasPermissions(ctx context.Context, userID int64, permissions []string) (bool, error) {
	args := m.Called(ctx, userID, permissions)
	return args.Bool(0), args.Error(1)
}

func (m *MockPermissionGate) Grant(ctx context.Context, userID int64, name string, value *string) error {
	return m.Called(ctx, userID, name, value).Error(0)
}

func (m *MockPermissionGate) Revoke(ctx context.Context, userID int64, name string) (bool, error) {
	args := m.Called(ctx, userID, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockPermissionGate) List(ctx context.Context, userID int64) ([]model.Permission, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).([]model.Permission)
	return p, args.Error(1)
}
