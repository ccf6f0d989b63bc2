package handler

import (
	"encoding/json"
	"net/http"
	"saas-auth-server/internal/model/requestresponse"
	"saas-auth-server/internal/ports"
	"saas-auth-server/internal/security"
	"saas-auth-server/internal/util"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	ports.UserService
}

func NewUserHandler(userService ports.UserService) *UserHandler {
	return &UserHandler{userService}
}

// Me godoc
// @Summary Current user profile
// @Description Returns the caller's profile with the names of granted permissions
// @Tags Users
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} requestresponse.ProfileResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/me [get]
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	profile, err := h.UserService.Me(r.Context(), principal.UserID)
	if err != nil {
		util.HandleAppError(w, "UserHandler.Me", err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.ProfileResponse{Response: profile})
}

// UpdateProfile godoc
// @Summary Update the caller's profile
// @Tags Users
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body requestresponse.UpdateProfileRequest true "Fields to change"
// @Success 200 {object} requestresponse.ProfileResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 409 {object} requestresponse.ErrorResponse
// @Failure 422 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/me [patch]
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var req requestresponse.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	profile, err := h.UserService.UpdateProfile(r.Context(), principal.UserID, req.ToModel())
	if err != nil {
		util.HandleAppError(w, "UserHandler.UpdateProfile", err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.ProfileResponse{Response: profile})
}

// ChangePassword godoc
// @Summary Change the caller's password
// @Description By default every session of the user is revoked afterwards
// @Tags Users
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body requestresponse.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} requestresponse.SuccessResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse "Current password is incorrect"
// @Failure 422 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/password [put]
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var req requestresponse.ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	logoutAll := req.LogoutAll == nil || *req.LogoutAll

	if err := h.UserService.ChangePassword(r.Context(), principal.UserID, req.CurrentPassword, req.NewPassword, logoutAll); err != nil {
		util.HandleAppError(w, "UserHandler.ChangePassword", err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.SuccessResponse{Message: "password updated"})
}

// ListDevices godoc
// @Summary Devices of the caller
// @Description Every known device, flagged active while it holds a live refresh session
// @Tags Users
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} requestresponse.DevicesResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/devices [get]
func (h *UserHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	devices, err := h.UserService.ListDevices(r.Context(), principal.UserID)
	if err != nil {
		util.HandleAppError(w, "UserHandler.ListDevices", err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.DevicesResponse{Response: devices})
}

// LogoutDevice godoc
// @Summary Log out one device of the caller
// @Tags Users
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Device id"
// @Success 200 {object} requestresponse.RevokedResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse "Device not found"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/devices/{id} [delete]
func (h *UserHandler) LogoutDevice(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	deviceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	revoked, err := h.UserService.LogoutDevice(r.Context(), principal.UserID, deviceID)
	if err != nil {
		util.HandleAppError(w, "UserHandler.LogoutDevice", err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.NewRevokedResponse(revoked))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		util.HandleError(w, "invalid request body", http.StatusBadRequest)
		return err
	}
	return nil
}

// principalFrom : only fails when a route is mounted without the guard
func principalFrom(w http.ResponseWriter, r *http.Request) (*security.Principal, bool) {
	principal, err := security.GetPrincipalFromContext(r.Context())
	if err != nil {
		util.HandleError(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return principal, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		util.HandleError(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
