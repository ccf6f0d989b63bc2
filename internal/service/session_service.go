package service

import (
	"context"
	"log"
	"net/http"
	"saas-auth-server/internal/apperror"
	"saas-auth-server/internal/metrics"
	"saas-auth-server/internal/model"
	"saas-auth-server/internal/security"
)

const (
	reasonLogout         = "logout"
	reasonMissingToken   = "Missing token"
	reasonTokenRevoked   = "Token revoked"
	reasonSessionRevoked = "Session revoked"
	reasonSubjectInvalid = "Invalid token subject"
)

// Logout : revokes by refresh token when given, otherwise through the access token's parent session
func (s *AuthenticationService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	if refreshToken == "" && accessToken == "" {
		return apperror.Validation("Refresh or access token is required")
	}

	if refreshToken != "" {
		revoked, err := s.sessions.RevokeByRefreshToken(ctx, refreshToken, reasonLogout)
		if err != nil {
			return err
		}
		if revoked {
			s.metrics.Revocation("session", 1)
			return nil
		}
	}

	if accessToken != "" {
		revoked, err := s.sessions.RevokeByAccessToken(ctx, accessToken, reasonLogout)
		if err != nil {
			return err
		}
		if revoked {
			s.metrics.Revocation("session", 1)
			return nil
		}
	}

	return apperror.NotFound("Session not found")
}

func (s *AuthenticationService) LogoutAllDevices(ctx context.Context, userID int64) (int64, error) {
	revoked, err := s.sessions.RevokeAllDevices(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.metrics.Revocation("user", revoked)
	return revoked, nil
}

// LogoutAllUsers : administrative kill switch for every session in the system
func (s *AuthenticationService) LogoutAllUsers(ctx context.Context) (int64, error) {
	revoked, err := s.sessions.RevokeAllUsers(ctx)
	if err != nil {
		return 0, err
	}
	log.Printf("[AuthService] global logout revoked %d sessions", revoked)
	s.metrics.Revocation("global", revoked)
	return revoked, nil
}

// ValidateAccessToken : the gate for every protected request.
//
// A token that verifies cryptographically is checked against its stored record when one exists,
// and otherwise accepted on signature while exp has not passed and its parent session (sid) is valid.
// A token that fails verification is still accepted when the database holds an unexpired record
// whose parent session is valid: on disagreement the database is the final authority.
// A live blacklist entry rejects the token on either path.
func (s *AuthenticationService) ValidateAccessToken(ctx context.Context, token string) (*model.TokenValidation, error) {
	if token == "" {
		return rejected(reasonMissingToken), nil
	}

	verified := s.codec.Verify(token, model.TokenTypeAccess)
	record, err := s.sessions.GetAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	path := metrics.PathSignature
	var validation *model.TokenValidation
	if verified.Valid {
		validation, err = s.checkSigned(ctx, verified.Payload, record)
	} else {
		path = metrics.PathDBFallback
		validation, err = s.checkStoredOnly(ctx, record, verified.Reason)
	}
	if err != nil {
		return nil, err
	}

	if validation.Valid {
		listed, err := s.sessions.IsBlacklisted(ctx, token)
		if err != nil {
			return nil, err
		}
		if listed {
			validation = rejected(reasonTokenRevoked)
		}
	}

	if validation.Valid && validation.ViaFallback {
		log.Printf("[AuthService] access token for user %d accepted on database record after failed verification", validation.UserID)
	}
	s.metrics.Validation(path, validation.Valid)
	return validation, nil
}

func (s *AuthenticationService) checkSigned(ctx context.Context, payload *model.TokenPayload, record *model.AccessToken) (*model.TokenValidation, error) {
	userID, err := payload.UserID()
	if err != nil {
		return rejected(security.ReasonMalformed), nil
	}

	if record != nil {
		if record.UserID != userID {
			return rejected(reasonSubjectInvalid), nil
		}
		parent, reason, err := s.checkRecord(ctx, record)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return rejected(reason), nil
		}
		return accepted(userID, payload.DeviceID, payload, false), nil
	}

	if s.codec.Expired(payload) {
		return rejected(security.ReasonExpired), nil
	}
	if payload.SessionID != 0 {
		parent, err := s.sessions.GetRefreshByID(ctx, payload.SessionID)
		if err != nil {
			return nil, err
		}
		if parent == nil || !parent.IsValid() || parent.UserID != userID {
			return rejected(reasonSessionRevoked), nil
		}
	}
	return accepted(userID, payload.DeviceID, payload, false), nil
}

func (s *AuthenticationService) checkStoredOnly(ctx context.Context, record *model.AccessToken, reason string) (*model.TokenValidation, error) {
	if record == nil {
		return rejected(reason), nil
	}

	parent, reason, err := s.checkRecord(ctx, record)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return rejected(reason), nil
	}
	return accepted(record.UserID, parent.DeviceID, nil, true), nil
}

// checkRecord : the stored expiry must not have passed and the parent session must still be valid
func (s *AuthenticationService) checkRecord(ctx context.Context, record *model.AccessToken) (*model.RefreshSession, string, error) {
	if !s.now().Before(record.ExpiresAt) {
		return nil, security.ReasonExpired, nil
	}

	parent, err := s.sessions.GetRefreshByID(ctx, record.RefreshID)
	if err != nil {
		return nil, "", err
	}
	if parent == nil || !parent.IsValid() {
		return nil, reasonSessionRevoked, nil
	}
	return parent, "", nil
}

func rejected(reason string) *model.TokenValidation {
	return &model.TokenValidation{Valid: false, Reason: reason, Code: http.StatusUnauthorized}
}

func accepted(userID int64, deviceID *int64, payload *model.TokenPayload, viaFallback bool) *model.TokenValidation {
	return &model.TokenValidation{
		Valid:       true,
		UserID:      userID,
		DeviceID:    deviceID,
		Payload:     payload,
		ViaFallback: viaFallback,
	}
}
