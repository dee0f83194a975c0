package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	RoleUser   = "user"
	RoleDoctor = "doctor"
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
)

var validRoles = map[string]bool{
	RoleUser:   true,
	RoleDoctor: true,
	RoleAdmin:  true,
	RoleOwner:  true,
}

// ValidRole reports whether role is one of user, doctor, admin, owner.
func ValidRole(role string) bool {
	return validRoles[role]
}

// HasRole reports whether role satisfies any of required. Owners and admins
// satisfy every requirement.
func HasRole(role string, required ...string) bool {
	if role == RoleOwner || role == RoleAdmin {
		return true
	}
	for _, r := range required {
		if role == r {
			return true
		}
	}
	return false
}

// RequireRole returns middleware that checks the session role.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := RoleFromContext(c.Request().Context())
			if role == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if HasRole(role, roles...) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// RequireRoleForWrites applies RequireRole to every method except GET, HEAD
// and OPTIONS.
func RequireRoleForWrites(roles ...string) echo.MiddlewareFunc {
	check := RequireRole(roles...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		guarded := check(next)
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}
			return guarded(c)
		}
	}
}
