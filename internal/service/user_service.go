package service

import (
	"context"
	"log"
	"saas-auth-server/internal/apperror"
	"saas-auth-server/internal/model"
	"saas-auth-server/internal/util"
	"strings"
)

func (s *AuthenticationService) Me(ctx context.Context, userID int64) (*model.UserProfile, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, user)
}

func (s *AuthenticationService) activeUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsDeleted {
		return nil, apperror.NotFound("User not found")
	}
	return user, nil
}

func (s *AuthenticationService) UpdateProfile(ctx context.Context, userID int64, update model.ProfileUpdate) (*model.UserProfile, error) {
	if update.Empty() {
		return nil, apperror.Validation("Nothing to update")
	}
	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		update.Email = &email
	}
	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if err := validateUsername(username); err != nil {
			return nil, err
		}
		update.Username = &username
	}

	if err := s.users.UpdateProfile(ctx, userID, update); err != nil {
		return nil, err
	}
	return s.Me(ctx, userID)
}

// ChangePassword : the current password is only checked when a digest exists; logoutAll forces re-authentication everywhere
func (s *AuthenticationService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string, logoutAll bool) error {
	if newPassword == "" {
		return apperror.Validation("New password is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash != "" && !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return apperror.Authentication("Current password is incorrect")
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return util.LogError("[AuthService] password hashing failed", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, digest); err != nil {
		return err
	}

	if logoutAll {
		if _, err := s.LogoutAllDevices(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

// ListDevices : every device of the user, flagged active while it still holds a live refresh session
func (s *AuthenticationService) ListDevices(ctx context.Context, userID int64) ([]model.DeviceView, error) {
	devices, err := s.devices.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListActiveSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	active := make(map[int64]bool, len(sessions))
	for _, session := range sessions {
		if session.DeviceID != nil {
			active[*session.DeviceID] = true
		}
	}

	views := make([]model.DeviceView, 0, len(devices))
	for _, device := range devices {
		views = append(views, model.DeviceView{Device: device, Active: active[device.ID]})
	}
	return views, nil
}

func (s *AuthenticationService) LogoutDevice(ctx context.Context, userID, deviceID int64) (int64, error) {
	device, err := s.devices.FindByID(ctx, userID, deviceID)
	if err != nil {
		return 0, err
	}
	if device == nil {
		return 0, apperror.NotFound("Device not found")
	}

	revoked, err := s.sessions.RevokeByDeviceID(ctx, userID, deviceID)
	if err != nil {
		return 0, err
	}
	s.metrics.Revocation("device", revoked)
	return revoked, nil
}

// DeleteUser : soft delete, then drop every session the user still holds
func (s *AuthenticationService) DeleteUser(ctx context.Context, userID int64) error {
	if err := s.users.SoftDelete(ctx, userID); err != nil {
		return err
	}
	revoked, err := s.LogoutAllDevices(ctx, userID)
	if err != nil {
		return err
	}
	log.Printf("[AuthService] user %d deleted, %d sessions revoked", userID, revoked)
	return nil
}

func (s *AuthenticationService) GrantPermission(ctx context.Context, userID int64, name string, value *string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperror.Validation("Permission name is required")
	}
	if _, err := s.activeUser(ctx, userID); err != nil {
		return err
	}
	return s.permissions.Grant(ctx, userID, name, value)
}

func (s *AuthenticationService) RevokePermission(ctx context.Context, userID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperror.Validation("Permission name is required")
	}
	removed, err := s.permissions.Revoke(ctx, userID, name)
	if err != nil {
		return err
	}
	if !removed {
		return apperror.NotFound("Permission not granted")
	}
	return nil
}
