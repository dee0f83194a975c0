package main

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/admin"
	domainauth "github.com/clinic/clinic/internal/domain/auth"
	"github.com/clinic/clinic/internal/domain/financial"
	"github.com/clinic/clinic/internal/domain/inventory"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/domain/procedure"
	"github.com/clinic/clinic/internal/domain/scheduling"
	"github.com/clinic/clinic/internal/platform/audit"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/middleware"
	"github.com/clinic/clinic/internal/platform/telemetry"
)

const (
	bodyLimit      = "10M"
	requestTimeout = 30 * time.Second
)

// serverDeps are the long-lived collaborators the HTTP server is built from.
// AuditPool, AuditRecorder and AuditSearcher stay nil without an audit
// database.
type serverDeps struct {
	Connector     db.Connector
	Health        db.StatsPinger
	AuditPool     *pgxpool.Pool
	AuditRecorder middleware.AuditRecorder
	AuditSearcher audit.Searcher
	Issuer        *auth.Issuer
	Login         *domainauth.Service
}

func newServer(cfg *config.Config, logger zerolog.Logger, deps serverDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(telemetry.TracingMiddleware())
	e.Use(telemetry.MetricsMiddleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Total-Count", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(middleware.RequestTimeout(requestTimeout))

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}

	e.Use(auth.SessionMiddleware(auth.SessionConfig{
		Issuer:   deps.Issuer,
		Required: cfg.AuthRequired,
		Skipper:  auth.AuthSkipper,
	}))
	e.Use(middleware.Audit(logger, deps.AuditRecorder))

	// Infrastructure
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(deps.Health, deps.AuditPool))
	e.GET("/metrics", telemetry.PrometheusHandler())

	// Login
	authGroup := e.Group("/api/auth", middleware.RateLimit(rateLimitCfg))
	domainauth.NewHandler(deps.Login, cfg.IsProduction()).RegisterRoutes(authGroup)

	// Tenant data
	tenantGroup := e.Group("/api/:tenant",
		middleware.RateLimit(rateLimitCfg),
		db.TenantMiddleware(deps.Connector, logger),
	)
	registerTenantRoutes(tenantGroup, cfg)
	if deps.AuditSearcher != nil {
		audit.NewHandler(deps.AuditSearcher).RegisterRoutes(tenantGroup)
	}

	return e
}

// registerTenantRoutes mounts every clinic resource on g.
func registerTenantRoutes(g *echo.Group, cfg *config.Config) {
	scheduling.NewHandler(scheduling.NewService(scheduling.NewAppointmentRepoMongo(), cfg.MeetingBaseURL)).RegisterRoutes(g)
	patient.NewHandler(patient.NewService(patient.NewPatientRepoMongo(), patient.NewDocumentRepoMongo())).RegisterRoutes(g)
	procedure.NewHandler(procedure.NewService(procedure.NewProcedureRepoMongo())).RegisterRoutes(g)
	financial.NewHandler(financial.NewService(financial.NewIncomeRepoMongo(), financial.NewBillRepoMongo())).RegisterRoutes(g)
	inventory.NewHandler(inventory.NewService(inventory.NewStockRepoMongo(), inventory.NewMovementRepoMongo())).RegisterRoutes(g)
	admin.NewHandler(admin.NewService(admin.NewUserRepoMongo())).RegisterRoutes(g)
}
