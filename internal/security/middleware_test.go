package security_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"saas-auth-server/internal/model"
	"saas-auth-server/internal/security"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTokenValidator
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateAccessToken(ctx context.Context, token string) (*model.TokenValidation, error) {
	args := m.Called(ctx, token)
	if v, ok := args.Get(0).(*model.TokenValidation); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPermissionGate
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
	if p, ok := args.Get(0).([]model.Permission); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func guardedRequest(t *testing.T, guard *security.AuthGuard, authorization string, permissions ...string) (*httptest.ResponseRecorder, *security.Principal) {
	t.Helper()

	var seen *security.Principal
	handler := guard.Require(permissions...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := security.GetPrincipalFromContext(r.Context())
		require.NoError(t, err)
		seen = principal
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestAuthGuard_MissingToken(t *testing.T) {
	guard := security.NewAuthGuard(new(MockTokenValidator), new(MockPermissionGate))

	rec, _ := guardedRequest(t, guard, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = guardedRequest(t, guard, "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthGuard_InvalidToken(t *testing.T) {
	validator := new(MockTokenValidator)
	validator.On("ValidateAccessToken", mock.Anything, "tok").
		Return(&model.TokenValidation{Valid: false, Reason: "Token revoked"}, nil)
	guard := security.NewAuthGuard(validator, new(MockPermissionGate))

	rec, principal := guardedRequest(t, guard, "Bearer tok")

	assert.Nil(t, principal)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token revoked", decodeError(t, rec)["message"])
}

func TestAuthGuard_ValidationFailure(t *testing.T) {
	validator := new(MockTokenValidator)
	validator.On("ValidateAccessToken", mock.Anything, "tok").Return(nil, errors.New("db down"))
	guard := security.NewAuthGuard(validator, new(MockPermissionGate))

	rec, _ := guardedRequest(t, guard, "Bearer tok")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeError(t, rec)["message"])
}

func TestAuthGuard_Success(t *testing.T) {
	deviceID := int64(5)
	validator := new(MockTokenValidator)
	validator.On("ValidateAccessToken", mock.Anything, "tok").
		Return(&model.TokenValidation{Valid: true, UserID: 42, DeviceID: &deviceID, ViaFallback: true}, nil)
	guard := security.NewAuthGuard(validator, new(MockPermissionGate))

	rec, principal := guardedRequest(t, guard, "bearer tok")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, principal)
	assert.Equal(t, int64(42), principal.UserID)
	assert.Equal(t, &deviceID, principal.DeviceID)
	assert.Equal(t, "tok", principal.Token)
	assert.True(t, principal.ViaFallback)
}

func TestAuthGuard_Permissions(t *testing.T) {
	validator := new(MockTokenValidator)
	validator.On("ValidateAccessToken", mock.Anything, "tok").
		Return(&model.TokenValidation{Valid: true, UserID: 42}, nil)
	gate := new(MockPermissionGate)
	gate.On("HasPermissions", mock.Anything, int64(42), []string{"sessions.manage"}).Return(false, nil).Once()
	gate.On("HasPermissions", mock.Anything, int64(42), []string{"sessions.manage"}).Return(true, nil).Once()
	guard := security.NewAuthGuard(validator, gate)

	rec, _ := guardedRequest(t, guard, "Bearer tok", "sessions.manage")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = guardedRequest(t, guard, "Bearer tok", "sessions.manage")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	gate.AssertExpectations(t)
}

func TestGetPrincipalFromContext_Missing(t *testing.T) {
	_, err := security.GetPrincipalFromContext(context.Background())
	assert.ErrorIs(t, err, security.ErrNoPrincipal)
}
