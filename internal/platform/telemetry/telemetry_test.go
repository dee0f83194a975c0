package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
)

func TestInit_DisabledWithoutEndpoint(t *testing.T) {
	p, err := Init(context.Background(), TelemetryConfig{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Enabled() {
		t.Error("expected tracing disabled without endpoint")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown of disabled provider: %v", err)
	}
}

func TestTelemetryConfig_Defaults(t *testing.T) {
	cfg := TelemetryConfig{SampleRate: 5}
	cfg.applyDefaults()
	if cfg.ServiceName != "clinic-server" {
		t.Errorf("expected default service name, got %s", cfg.ServiceName)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected out-of-range sample rate reset to 1, got %v", cfg.SampleRate)
	}
	if cfg.Environment != "development" {
		t.Errorf("expected development environment, got %s", cfg.Environment)
	}
}

func TestMetricsMiddleware_LabelsByRoute(t *testing.T) {
	e := echo.New()
	e.Use(MetricsMiddleware())
	e.GET("/api/:tenant/patients", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	before := counterValue(t, httpRequests.WithLabelValues(http.MethodGet, "/api/:tenant/patients", "200"))
	for _, tenant := range []string{"acme", "globex"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/"+tenant+"/patients", nil))
	}
	after := counterValue(t, httpRequests.WithLabelValues(http.MethodGet, "/api/:tenant/patients", "200"))
	if after-before != 2 {
		t.Errorf("expected 2 requests under the route label, got %v", after-before)
	}
}

func TestMetricsMiddleware_ErrorStatus(t *testing.T) {
	e := echo.New()
	e.Use(MetricsMiddleware())
	e.DELETE("/api/:tenant/bills/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "Conta não encontrada")
	})

	before := counterValue(t, httpRequests.WithLabelValues(http.MethodDelete, "/api/:tenant/bills/:id", "404"))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/acme/bills/b1", nil))
	after := counterValue(t, httpRequests.WithLabelValues(http.MethodDelete, "/api/:tenant/bills/:id", "404"))
	if after-before != 1 {
		t.Errorf("expected one 404 observation, got %v", after-before)
	}
}

func TestTracingMiddleware_PassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(TracingMiddleware())
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	h := WrapHandler(e, "clinic-server")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}

func TestPrometheusHandler(t *testing.T) {
	httpRequests.WithLabelValues(http.MethodGet, "/metrics-probe", "200").Inc()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/metrics", nil), rec)
	if err := PrometheusHandler()(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "clinic_http_requests_total") {
		t.Error("expected exposition to contain clinic_http_requests_total")
	}
}

func TestRouteLabel_Unmatched(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/nope", nil), httptest.NewRecorder())
	if got := routeLabel(c); got != "unmatched" {
		t.Errorf("expected unmatched, got %s", got)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}
