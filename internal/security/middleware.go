package security

import (
	"context"
	"errors"
	"log"
	"net/http"
	"saas-auth-server/internal/ports"
	"saas-auth-server/internal/util"
	"strings"
)

type contextKey string

const (
	PrincipalContextKey contextKey = "principal"
)

var ErrNoPrincipal = errors.New("request is not authenticated")

// Principal : the caller behind a validated access token
type Principal struct {
	UserID      int64
	DeviceID    *int64
	Token       string
	ViaFallback bool
}

type AuthGuard struct {
	validator   ports.TokenValidator
	permissions ports.PermissionGate
}

func NewAuthGuard(validator ports.TokenValidator, permissions ports.PermissionGate) *AuthGuard {
	return &AuthGuard{validator: validator, permissions: permissions}
}

// Require : rejects the request unless it carries a valid access token and the caller holds every listed permission
func (g *AuthGuard) Require(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				util.HandleError(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			result, err := g.validator.ValidateAccessToken(r.Context(), token)
			if err != nil {
				log.Printf("[AuthGuard] token validation failed: %v", err)
				util.HandleError(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if !result.Valid {
				code := result.Code
				if code == 0 {
					code = http.StatusUnauthorized
				}
				util.HandleError(w, result.Reason, code)
				return
			}

			if len(permissions) > 0 {
				allowed, err := g.permissions.HasPermissions(r.Context(), result.UserID, permissions)
				if err != nil {
					log.Printf("[AuthGuard] permission check failed for user %d: %v", result.UserID, err)
					util.HandleError(w, "internal server error", http.StatusInternalServerError)
					return
				}
				if !allowed {
					util.HandleError(w, "Missing permissions", http.StatusForbidden)
					return
				}
			}

			principal := &Principal{
				UserID:      result.UserID,
				DeviceID:    result.DeviceID,
				Token:       token,
				ViaFallback: result.ViaFallback,
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, principal)
}

func GetPrincipalFromContext(ctx context.Context) (*Principal, error) {
	principal, ok := ctx.Value(PrincipalContextKey).(*Principal)
	if !ok || principal == nil {
		return nil, ErrNoPrincipal
	}
	return principal, nil
}
