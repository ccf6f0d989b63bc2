package handler

import (
	"saas-auth-server/internal/model"
	"saas-auth-server/internal/security"

	"github.com/go-chi/chi/v5"
)

// MountRoutes : limiter may be nil
func MountRoutes(r chi.Router, auth *AuthenticationHandler, users *UserHandler, admin *AdminHandler, guard *security.AuthGuard, limiter *security.IPRateLimiter) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.Middleware)
			}
			r.Post("/register", auth.Register)
			r.Post("/login", auth.Login)
			r.Post("/vendor/{vendor}", auth.VendorLogin)
		})
		r.Post("/refresh", auth.Refresh)
		r.Post("/logout", auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(guard.Require())
			r.Get("/me", users.Me)
			r.Patch("/me", users.UpdateProfile)
			r.Put("/password", users.ChangePassword)
			r.Post("/logout-all", auth.LogoutAll)
			r.Get("/devices", users.ListDevices)
			r.Delete("/devices/{id}", users.LogoutDevice)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.With(guard.Require(model.PermissionSessionsManage)).Post("/logout-all-users", admin.LogoutAllUsers)
		r.Route("/users/{id}", func(r chi.Router) {
			r.With(guard.Require(model.PermissionPermissionsManage)).Post("/permissions", admin.GrantPermission)
			r.With(guard.Require(model.PermissionPermissionsManage)).Delete("/permissions", admin.RevokePermission)
			r.With(guard.Require(model.PermissionUsersManage)).Delete("/", admin.DeleteUser)
		})
	})
}
