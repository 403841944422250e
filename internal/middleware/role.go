package middleware // middleware provides shared request processing for handlers

import (
	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/iliyamo/car-rental/internal/apperror"
	"github.com/iliyamo/car-rental/internal/model"
)

var (
	errAuthRequired = apperror.Unauthenticated("authentication required")
	errForbidden    = apperror.Forbidden("insufficient permissions")
)

// RequireAuth rejects anonymous requests with 401.  It assumes
// SessionResolver ran earlier in the chain.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !GetSession(c).Authenticated() {
				return errAuthRequired
			}
			return next(c)
		}
	}
}

// RequirePermission enforces a capability computed by
// model.ResolvePermissions.  Anonymous callers get 401, authenticated
// callers lacking the capability get 403.
func RequirePermission(allowed func(model.Permissions) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := GetSession(c)
			if !s.Authenticated() {
				return errAuthRequired
			}
			if !allowed(s.Permissions) {
				return errForbidden
			}
			return next(c)
		}
	}
}

// Capability selectors for RequirePermission.
func CanEditCatalog(p model.Permissions) bool    { return p.CanEditCatalog }
func CanManageBookings(p model.Permissions) bool { return p.CanManageBookings }
func CanManageUsers(p model.Permissions) bool    { return p.CanManageUsers }
