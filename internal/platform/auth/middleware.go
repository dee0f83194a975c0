package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/db"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RoleKey   contextKey = "user_role"
	ClaimsKey contextKey = "session_claims"

	SessionCookie = "session"
)

// SessionConfig configures SessionMiddleware.
type SessionConfig struct {
	Issuer *Issuer
	// Required rejects requests without a session. When false, anonymous
	// requests pass with the development identity.
	Required bool
	Skipper  func(c echo.Context) bool
}

// SessionMiddleware verifies the session token from the session cookie or
// an Authorization: Bearer header and publishes its claims. The session's
// tenant is handed to the tenant resolver through db.SessionTenantKey.
func SessionMiddleware(cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			token, err := tokenFromRequest(c)
			if err != nil {
				return err
			}

			if token == "" {
				if cfg.Required {
					return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
				}
				ctx := context.WithValue(c.Request().Context(), UserIDKey, "dev-user")
				ctx = context.WithValue(ctx, RoleKey, RoleOwner)
				c.SetRequest(c.Request().WithContext(ctx))
				return next(c)
			}

			claims, err := cfg.Issuer.ParseSession(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(db.SessionTenantKey, claims.Tenant)
			c.SetRequest(c.Request().WithContext(WithClaims(c.Request().Context(), claims)))
			return next(c)
		}
	}
}

func tokenFromRequest(c echo.Context) (string, error) {
	if header := c.Request().Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", nil
}

// WithClaims stores a verified session on ctx.
func WithClaims(ctx context.Context, claims *SessionClaims) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	return context.WithValue(ctx, RoleKey, claims.Role)
}

func ClaimsFromContext(ctx context.Context) *SessionClaims {
	claims, _ := ctx.Value(ClaimsKey).(*SessionClaims)
	return claims
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(RoleKey).(string)
	return role
}

// SetSessionCookie writes the session cookie.
func SetSessionCookie(c echo.Context, token string, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
