package service

import (
	"context"
	"log"
	"saas-auth-server/internal/apperror"
	"saas-auth-server/internal/metrics"
	"saas-auth-server/internal/model"
	"saas-auth-server/internal/ports"
	"saas-auth-server/internal/util"
	"strings"
	"time"
)

const (
	methodPassword = "password"
	methodRegister = "register"
	methodVendor   = "vendor"

	notifyTimeout = 10 * time.Second
)

// AuthDependencies : collaborators of the auth core; Notifier, Metrics and Now are optional
type AuthDependencies struct {
	Users          ports.UserRepository
	Sessions       ports.SessionStore
	Devices        ports.DeviceRegistry
	Permissions    ports.PermissionGate
	Codec          ports.TokenCodec
	Hasher         ports.CredentialHasher
	Notifier       ports.Notifier
	Metrics        *metrics.AuthMetrics
	AllowedVendors []string
	Now            func() time.Time
}

// AuthenticationService : the session lifecycle state machine.
// Register, Login and VendorLogin all end in issueSession, the only place a refresh/access pair is minted.
type AuthenticationService struct {
	users       ports.UserRepository
	sessions    ports.SessionStore
	devices     ports.DeviceRegistry
	permissions ports.PermissionGate
	codec       ports.TokenCodec
	hasher      ports.CredentialHasher
	notifier    ports.Notifier
	metrics     *metrics.AuthMetrics
	vendors     *VendorLinkResolver
	allowed     map[string]struct{}
	now         func() time.Time
}

func NewAuthenticationService(deps AuthDependencies) *AuthenticationService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	allowed := make(map[string]struct{}, len(deps.AllowedVendors))
	for _, vendor := range deps.AllowedVendors {
		allowed[strings.ToLower(vendor)] = struct{}{}
	}

	return &AuthenticationService{
		users:       deps.Users,
		sessions:    deps.Sessions,
		devices:     deps.Devices,
		permissions: deps.Permissions,
		codec:       deps.Codec,
		hasher:      deps.Hasher,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		vendors:     NewVendorLinkResolver(deps.Users, deps.Hasher),
		allowed:     allowed,
		now:         now,
	}
}

// Register : validates input, rejects a taken email or username, stores the user and opens a session
func (s *AuthenticationService) Register(ctx context.Context, input model.Registration, device *model.DeviceContext) (session *model.AuthSession, err error) {
	defer func() { s.metrics.Login(methodRegister, err == nil) }()

	input.Email = normalizeEmail(input.Email)
	input.Username = strings.TrimSpace(input.Username)
	if input.Email == "" || input.Username == "" || input.Password == "" {
		return nil, apperror.Validation("Email, username and password are required")
	}
	if err := validateEmail(input.Email); err != nil {
		return nil, err
	}
	if err := validateUsername(input.Username); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmailOrUsername(ctx, input.Email, input.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.Conflict("User already exists")
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, util.LogError("[AuthService] password hashing failed", err)
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = input.Username
	}
	user := &model.User{
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: digest,
		DisplayName:  displayName,
		IsActive:     true,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("[AuthService] registered user %d", user.ID)
	return s.issueSession(ctx, user, device, "")
}

// Login : identifier is an email or a username
func (s *AuthenticationService) Login(ctx context.Context, identifier, password string, device *model.DeviceContext) (session *model.AuthSession, err error) {
	defer func() { s.metrics.Login(methodPassword, err == nil) }()

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperror.Validation("Identifier and password are required")
	}

	user, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsDeleted {
		return nil, apperror.Authentication("Invalid credentials")
	}
	if user.IsDisabled {
		return nil, apperror.Authorization("Account is disabled")
	}
	if user.PasswordHash == "" || !s.hasher.Verify(password, user.PasswordHash) {
		return nil, apperror.Authentication("Invalid credentials")
	}

	return s.issueSession(ctx, user, device, "")
}

// VendorLogin : the profile comes from a trusted OAuth gateway; redirects carry no fingerprint, so the device is anonymous
func (s *AuthenticationService) VendorLogin(ctx context.Context, vendor string, rawProfile map[string]any) (session *model.AuthSession, err error) {
	defer func() { s.metrics.Login(methodVendor, err == nil) }()

	vendor = strings.ToLower(strings.TrimSpace(vendor))
	if vendor == "" {
		return nil, apperror.Validation("Vendor is required")
	}
	if _, ok := s.allowed[vendor]; len(s.allowed) > 0 && !ok {
		return nil, apperror.Validation("Unsupported vendor")
	}

	user, profile, err := s.vendors.Resolve(ctx, vendor, rawProfile)
	if err != nil {
		return nil, err
	}
	if user.IsDeleted {
		return nil, apperror.Authentication("Account is not available")
	}
	if user.IsDisabled {
		return nil, apperror.Authorization("Account is disabled")
	}

	device := &model.DeviceContext{Name: profile.DisplayName + " via " + vendor}
	return s.issueSession(ctx, user, device, vendor)
}

// issueSession : upsert device, sign and store refresh, sign and store access bound to it
func (s *AuthenticationService) issueSession(ctx context.Context, user *model.User, device *model.DeviceContext, vendor string) (*model.AuthSession, error) {
	deviceID, created, err := s.devices.UpsertDevice(ctx, user.ID, device)
	if err != nil {
		return nil, err
	}

	subject := model.TokenSubject{UserID: user.ID, DeviceID: deviceID, Vendor: vendor}
	refresh, err := s.codec.SignRefresh(subject)
	if err != nil {
		return nil, util.LogError("[AuthService] refresh token signing failed", err)
	}
	refreshID, err := s.sessions.StoreRefreshToken(ctx, user.ID, deviceID, refresh.Token, refresh.ExpiresAt)
	if err != nil {
		return nil, err
	}

	subject.SessionID = refreshID
	access, err := s.codec.SignAccess(subject)
	if err != nil {
		return nil, util.LogError("[AuthService] access token signing failed", err)
	}
	if err := s.sessions.StoreAccessToken(ctx, user.ID, refreshID, access.Token, access.ExpiresAt); err != nil {
		return nil, err
	}

	profile, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}

	// vendor redirects carry no fingerprint, so each one is a new row; only fingerprinted devices are announced
	if created && deviceID != nil && (vendor == "" || device.HasFingerprint()) {
		s.notifyNewDevice(user.ID, *deviceID, device)
	}

	return &model.AuthSession{
		User:   *profile,
		Tokens: model.TokenPair{Access: *access, Refresh: *refresh},
	}, nil
}

// Refresh : mints a new access token under an existing refresh session; the refresh token is not rotated
func (s *AuthenticationService) Refresh(ctx context.Context, refreshToken string, device *model.DeviceContext) (session *model.AuthSession, err error) {
	defer func() { s.metrics.Refresh(err == nil) }()

	if refreshToken == "" {
		return nil, apperror.Validation("Refresh token is required")
	}

	verified := s.codec.Verify(refreshToken, model.TokenTypeRefresh)
	if !verified.Valid {
		return nil, apperror.Authentication(verified.Reason)
	}

	stored, err := s.sessions.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, apperror.Authentication("Refresh token not found")
	}
	if !stored.IsValid() {
		return nil, apperror.Authentication("Refresh token revoked")
	}
	if !s.now().Before(stored.ExpiresAt) {
		return nil, apperror.Authentication("Refresh token expired")
	}
	listed, err := s.sessions.IsBlacklisted(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if listed {
		return nil, apperror.Authentication("Refresh token revoked")
	}

	user, err := s.users.FindByID(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Blocked() {
		return nil, apperror.Authentication("Account is not available")
	}

	if device.HasFingerprint() {
		if _, _, err := s.devices.UpsertDevice(ctx, user.ID, device); err != nil {
			return nil, err
		}
	}

	access, err := s.codec.SignAccess(model.TokenSubject{
		UserID:    user.ID,
		DeviceID:  stored.DeviceID,
		SessionID: stored.ID,
		Vendor:    verified.Payload.Vendor,
	})
	if err != nil {
		return nil, util.LogError("[AuthService] access token signing failed", err)
	}
	if err := s.sessions.StoreAccessToken(ctx, user.ID, stored.ID, access.Token, access.ExpiresAt); err != nil {
		return nil, err
	}

	profile, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}

	return &model.AuthSession{
		User: *profile,
		Tokens: model.TokenPair{
			Access:  *access,
			Refresh: model.SignedToken{Token: stored.Token, ExpiresAt: stored.ExpiresAt},
		},
	}, nil
}

func (s *AuthenticationService) profile(ctx context.Context, user *model.User) (*model.UserProfile, error) {
	granted, err := s.permissions.List(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(granted))
	for _, permission := range granted {
		names = append(names, permission.Name)
	}
	return &model.UserProfile{User: *user, Permissions: names}, nil
}

func (s *AuthenticationService) notifyNewDevice(userID, deviceID int64, device *model.DeviceContext) {
	if s.notifier == nil {
		return
	}

	event := model.DeviceEvent{
		UserID:     userID,
		DeviceID:   deviceID,
		UserAgent:  device.UserAgent,
		IP:         device.IP,
		Name:       device.Name,
		OccurredAt: s.now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyNewDevice(ctx, event); err != nil {
			log.Printf("[AuthService] new device webhook failed for user %d: %v", userID, err)
		}
	}()
}
