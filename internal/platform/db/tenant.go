package db

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	TenantIDKey contextKey = "tenant_id"
	DBConnKey   contextKey = "db_conn"

	// SessionTenantKey is the echo context key the session middleware uses to
	// publish the tenant carried by a verified token.
	SessionTenantKey = "session_tenant"
)

// Tenant identifiers become MongoDB database names, so they are restricted to
// a charset that is safe in a connection string and fits the 64 byte limit.
// Lower case only: MongoDB refuses database names that differ only by case.
var tenantIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

var reservedTenantIDs = map[string]bool{
	"admin":  true,
	"local":  true,
	"config": true,
	"auth":   true,
}

// ValidateTenantID checks that id can be used as a tenant database name.
func ValidateTenantID(id string) error {
	if id == "" {
		return ErrTenantRequired
	}
	if !tenantIDPattern.MatchString(id) || reservedTenantIDs[id] {
		return fmt.Errorf("%w: %q", ErrInvalidTenant, id)
	}
	return nil
}

// Connector hands out tenant connections. *Manager is the production
// implementation.
type Connector interface {
	Connect(ctx context.Context, tenant string) (*Conn, error)
}

// TenantMiddleware resolves the tenant for routes mounted under /api/:tenant,
// obtains its cached connection and stores both on the request context. No
// handler behind it can run a query without a resolved tenant.
func TenantMiddleware(connector Connector, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tenantID := extractTenantID(c)

			if err := ValidateTenantID(tenantID); err != nil {
				if errors.Is(err, ErrTenantRequired) {
					return echo.NewHTTPError(http.StatusBadRequest, "tenant is required")
				}
				return echo.NewHTTPError(http.StatusBadRequest, "invalid tenant identifier")
			}

			if sessionTenant, ok := c.Get(SessionTenantKey).(string); ok && sessionTenant != "" && sessionTenant != tenantID {
				return echo.NewHTTPError(http.StatusForbidden, "session does not belong to this tenant")
			}

			ctx := c.Request().Context()
			conn, err := connector.Connect(ctx, tenantID)
			if err != nil {
				if errors.Is(err, ErrInvalidTenant) {
					return echo.NewHTTPError(http.StatusBadRequest, "invalid tenant identifier")
				}
				logger.Error().Err(err).Str("tenant", tenantID).Msg("tenant connection failed")
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}

			c.SetRequest(c.Request().WithContext(WithConn(ctx, conn)))
			c.Set("tenant_id", tenantID)

			return next(c)
		}
	}
}

// extractTenantID prefers the routing parameter; the session tenant is only a
// fallback for routes that carry no tenant segment.
func extractTenantID(c echo.Context) string {
	if tid := c.Param("tenant"); tid != "" {
		return tid
	}
	if tid, ok := c.Get(SessionTenantKey).(string); ok {
		return tid
	}
	return ""
}

// WithConn returns a context carrying conn and its tenant identifier.
func WithConn(ctx context.Context, conn *Conn) context.Context {
	ctx = context.WithValue(ctx, TenantIDKey, conn.Tenant())
	return context.WithValue(ctx, DBConnKey, conn)
}

// ConnFromContext retrieves the tenant-scoped database connection from context.
func ConnFromContext(ctx context.Context) *Conn {
	conn, _ := ctx.Value(DBConnKey).(*Conn)
	return conn
}

// TenantFromContext retrieves the tenant ID from context.
func TenantFromContext(ctx context.Context) string {
	tid, _ := ctx.Value(TenantIDKey).(string)
	return tid
}
