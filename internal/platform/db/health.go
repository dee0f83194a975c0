package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents audit connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// StatsPinger is the part of *Manager the health check needs.
type StatsPinger interface {
	PingMain(ctx context.Context) error
	Stats() Stats
	Tenants() []string
}

// PingMain opens (if needed) and pings the main connection.
func (m *Manager) PingMain(ctx context.Context) error {
	conn, err := m.Main(ctx)
	if err != nil {
		return err
	}
	return conn.Ping(ctx)
}

// HealthHandler reports the main MongoDB connection, the tenant cache and,
// when audit is non-nil, the audit pool.
func HealthHandler(mgr StatsPinger, audit *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		body := map[string]interface{}{
			"status":       "healthy",
			"tenants":      mgr.Stats(),
			"open_tenants": mgr.Tenants(),
		}
		status := http.StatusOK

		if err := mgr.PingMain(ctx); err != nil {
			body["status"] = "unhealthy"
			body["error"] = err.Error()
			status = http.StatusServiceUnavailable
		}

		if audit != nil {
			stats := GetPoolStats(audit)
			if err := audit.Ping(ctx); err != nil {
				stats.Healthy = false
				body["status"] = "unhealthy"
				body["audit_error"] = err.Error()
				status = http.StatusServiceUnavailable
			}
			body["audit_pool"] = stats
		}

		return c.JSON(status, body)
	}
}
