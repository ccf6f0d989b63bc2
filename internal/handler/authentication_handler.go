package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"saas-auth-server/config"
	"saas-auth-server/internal/model"
	"saas-auth-server/internal/model/requestresponse"
	"saas-auth-server/internal/ports"
	"saas-auth-server/internal/security"
	"saas-auth-server/internal/util"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	HeaderDeviceFingerprint = "X-Device-Fingerprint"
	HeaderDeviceName        = "X-Device-Name"
	HeaderGatewaySecret     = "X-Gateway-Secret"
)

type AuthenticationHandler struct {
	ports.AuthenticationService
	gatewaySecret string
}

func NewAuthenticationHandler(authenticationService ports.AuthenticationService, vendorConfig *config.VendorConfig) *AuthenticationHandler {
	return &AuthenticationHandler{
		AuthenticationService: authenticationService,
		gatewaySecret:         vendorConfig.GatewaySecret,
	}
}

// Register godoc
// @Summary Register a new account
// @Description Creates the user and opens a first session for the calling device
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.RegisterRequest true "Account data"
// @Param X-Device-Fingerprint header string false "Stable client fingerprint"
// @Param X-Device-Name header string false "Human readable device name"
// @Success 201 {object} requestresponse.SessionResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 409 {object} requestresponse.ErrorResponse "Email or username already taken"
// @Failure 422 {object} requestresponse.ErrorResponse "Password or username policy violated"
// @Failure 429 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/register [post]
func (h *AuthenticationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	session, err := h.AuthenticationService.Register(r.Context(), model.Registration{
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	}, deviceFromRequest(r))
	if err != nil {
		util.HandleAppError(w, "AuthHandler.Register", err)
		return
	}

	util.WriteJSON(w, http.StatusCreated, requestresponse.SessionResponse{Response: session})
}

// Login godoc
// @Summary Log in with a password
// @Description Issues an access/refresh pair; login accepts an email or a username
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.LoginRequest true "Credentials"
// @Param X-Device-Fingerprint header string false "Stable client fingerprint"
// @Param X-Device-Name header string false "Human readable device name"
// @Success 200 {object} requestresponse.SessionResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse "Invalid credentials"
// @Failure 403 {object} requestresponse.ErrorResponse "Account is disabled"
// @Failure 429 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthenticationHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	session, err := h.AuthenticationService.Login(r.Context(), req.Login, req.Password, deviceFromRequest(r))
	if err != nil {
		util.HandleAppError(w, "AuthHandler.Login", err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.SessionResponse{Response: session})
}

// VendorLogin godoc
// @Summary Log in with an external OAuth profile
// @Description Called by the OAuth gateway with an already verified vendor profile. The account is matched by email or username and created on first sight.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param vendor path string true "Vendor name" example(github)
// @Param X-Gateway-Secret header string true "Shared gateway secret"
// @Param body body object true "Raw vendor profile"
// @Success 200 {object} requestresponse.SessionResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/vendor/{vendor} [post]
func (h *AuthenticationHandler) VendorLogin(w http.ResponseWriter, r *http.Request) {
	if h.gatewaySecret == "" {
		util.HandleError(w, "Vendor login is disabled", http.StatusForbidden)
		return
	}
	presented := r.Header.Get(HeaderGatewaySecret)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(h.gatewaySecret)) != 1 {
		util.HandleError(w, "Invalid gateway secret", http.StatusUnauthorized)
		return
	}

	var profile map[string]any
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&profile); err != nil || profile == nil {
		util.HandleError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	session, err := h.AuthenticationService.VendorLogin(r.Context(), chi.URLParam(r, "vendor"), profile)
	if err != nil {
		util.HandleAppError(w, "AuthHandler.VendorLogin", err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.SessionResponse{Response: session})
}

// Refresh godoc
// @Summary Mint a new access token
// @Description Issues a fresh access token under the existing refresh session. The refresh token is returned unchanged.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.RefreshTokenRequest true "Refresh token"
// @Param X-Device-Fingerprint header string false "Stable client fingerprint"
// @Success 200 {object} requestresponse.SessionResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse "Refresh token invalid, revoked or expired"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/refresh [post]
func (h *AuthenticationHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.RefreshTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	session, err := h.AuthenticationService.Refresh(r.Context(), req.RefreshToken, deviceFromRequest(r))
	if err != nil {
		util.HandleAppError(w, "AuthHandler.Refresh", err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.SessionResponse{Response: session})
}

// Logout godoc
// @Summary End a session
// @Description Revokes the session behind the refresh token, or behind the access token from the body or the Authorization header
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.LogoutRequest false "Tokens of the session"
// @Success 200 {object} requestresponse.LogoutResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse "Session not found"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/logout [post]
func (h *AuthenticationHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.LogoutRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			return
		}
	}
	if req.AccessToken == "" {
		req.AccessToken, _ = security.BearerToken(r)
	}

	if err := h.AuthenticationService.Logout(r.Context(), req.RefreshToken, req.AccessToken); err != nil {
		util.HandleAppError(w, "AuthHandler.Logout", err)
		return
	}

	var resp requestresponse.LogoutResponse
	resp.Response.LoggedOut = true
	util.WriteJSON(w, http.StatusOK, resp)
}

// LogoutAll godoc
// @Summary Log out every device of the caller
// @Tags Authentication
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} requestresponse.RevokedResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/logout-all [post]
func (h *AuthenticationHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	revoked, err := h.AuthenticationService.LogoutAllDevices(r.Context(), principal.UserID)
	if err != nil {
		util.HandleAppError(w, "AuthHandler.LogoutAll", err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.NewRevokedResponse(revoked))
}

// deviceFromRequest : the client describes itself through headers; the address comes from the connection
func deviceFromRequest(r *http.Request) *model.DeviceContext {
	return &model.DeviceContext{
		Fingerprint: strings.TrimSpace(r.Header.Get(HeaderDeviceFingerprint)),
		UserAgent:   r.UserAgent(),
		IP:          security.ClientIP(r),
		Name:        strings.TrimSpace(r.Header.Get(HeaderDeviceName)),
	}
}
