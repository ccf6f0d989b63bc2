package handler

import (
	"net/http"
	"saas-auth-server/internal/model/requestresponse"
	"saas-auth-server/internal/ports"
	"saas-auth-server/internal/util"
)

// AdminHandler : routes behind permission-gated guards
type AdminHandler struct {
	auth  ports.AuthenticationService
	users ports.UserService
}

func NewAdminHandler(auth ports.AuthenticationService, users ports.UserService) *AdminHandler {
	return &AdminHandler{auth: auth, users: users}
}

// LogoutAllUsers godoc
// @Summary Revoke every session in the system
// @Description Requires the sessions.manage permission
// @Tags Admin
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} requestresponse.RevokedResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/admin/logout-all-users [post]
func (h *AdminHandler) LogoutAllUsers(w http.ResponseWriter, r *http.Request) {
	revoked, err := h.auth.LogoutAllUsers(r.Context())
	if err != nil {
		util.HandleAppError(w, "AdminHandler.LogoutAllUsers", err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.NewRevokedResponse(revoked))
}

// GrantPermission godoc
// @Summary Grant a permission to a user
// @Description Requires the permissions.manage permission; granting again replaces the value
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "User id"
// @Param body body requestresponse.PermissionRequest true "Permission"
// @Success 200 {object} requestresponse.SuccessResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/admin/users/{id}/permissions [post]
func (h *AdminHandler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req requestresponse.PermissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	if err := h.users.GrantPermission(r.Context(), userID, req.Name, req.Value); err != nil {
		util.HandleAppError(w, "AdminHandler.GrantPermission", err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.SuccessResponse{Message: "permission granted"})
}

// RevokePermission godoc
// @Summary Revoke a permission from a user
// @Tags Admin
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "User id"
// @Param name query string true "Permission name"
// @Success 200 {object} requestresponse.SuccessResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse "Permission not granted"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/admin/users/{id}/permissions [delete]
func (h *AdminHandler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.users.RevokePermission(r.Context(), userID, r.URL.Query().Get("name")); err != nil {
		util.HandleAppError(w, "AdminHandler.RevokePermission", err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.SuccessResponse{Message: "permission revoked"})
}

// DeleteUser godoc
// @Summary Soft-delete a user and revoke their sessions
// @Description Requires the users.manage permission
// @Tags Admin
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "User id"
// @Success 200 {object} requestresponse.SuccessResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.users.DeleteUser(r.Context(), userID); err != nil {
		util.HandleAppError(w, "AdminHandler.DeleteUser", err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.SuccessResponse{Message: "user deleted"})
}
