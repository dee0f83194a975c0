package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/auth"
)

// AuditEntry describes one mutating request against tenant data.
type AuditEntry struct {
	Tenant     string
	UserID     string
	Role       string
	Action     string // create, update, delete
	Resource   string
	ResourceID string
	Path       string
	Method     string
	StatusCode int
	RequestID  string
	IPAddress  string
	UserAgent  string
	Timestamp  time.Time
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	RecordAccess(ctx context.Context, entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(ctx context.Context, entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(ctx context.Context, entry AuditEntry) error {
	return f(ctx, entry)
}

const tenantRoutePrefix = "/api/:tenant/"

// AuditResourceIDKey lets a handler name the record it touched when the id
// is not part of the URL, e.g. on create.
const AuditResourceIDKey = "audit_resource_id"

// SetAuditResourceID records id as the audited resource id for c.
func SetAuditResourceID(c echo.Context, id string) {
	c.Set(AuditResourceIDKey, id)
}

// Audit records every create, update and delete under /api/:tenant. The
// entry is always logged; recorder, when non-nil, also persists it. A
// recorder failure is logged and never changes the response.
func Audit(logger zerolog.Logger, recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			action := httpMethodToAction(req.Method)
			if action == "" || !strings.HasPrefix(c.Path(), tenantRoutePrefix) {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = statusFromError(err)
			}

			// The resolver publishes the validated tenant; the raw segment is
			// only used when the request never got that far.
			tenant, _ := c.Get("tenant_id").(string)
			if tenant == "" {
				tenant = c.Param("tenant")
			}

			ctx := req.Context()
			entry := AuditEntry{
				Tenant:     tenant,
				UserID:     auth.UserIDFromContext(ctx),
				Role:       auth.RoleFromContext(ctx),
				Action:     action,
				Resource:   resourceFromRoute(c.Path()),
				ResourceID: resourceID(c),
				Path:       req.URL.Path,
				Method:     req.Method,
				StatusCode: status,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				Timestamp:  time.Now().UTC(),
			}
			entry.RequestID, _ = c.Get("request_id").(string)

			if recorder != nil {
				if recErr := recorder.RecordAccess(context.WithoutCancel(ctx), entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("tenant", entry.Tenant).
				Str("user_id", entry.UserID).
				Str("role", entry.Role).
				Str("action", entry.Action).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Int("status", entry.StatusCode).
				Msg("data_change")

			return err
		}
	}
}

// httpMethodToAction maps mutating methods to audit actions; reads map to "".
func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return ""
	}
}

// resourceFromRoute returns the first segment after /api/:tenant/.
func resourceFromRoute(route string) string {
	rest := strings.TrimPrefix(route, tenantRoutePrefix)
	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "unknown"
	}
	return rest
}

// resourceID prefers the :id route parameter, then ?id= as accepted by the
// collection-level DELETE, then whatever the handler recorded.
func resourceID(c echo.Context) string {
	if id := c.Param("id"); id != "" {
		return id
	}
	if id := c.QueryParam("id"); id != "" {
		return id
	}
	id, _ := c.Get(AuditResourceIDKey).(string)
	return id
}
