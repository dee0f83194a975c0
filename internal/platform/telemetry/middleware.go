package telemetry

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clinic_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clinic_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clinic_http_requests_in_flight",
		Help: "HTTP requests currently being served.",
	})
)

// WrapHandler instruments h with otelhttp so every request starts a server
// span and inherits an incoming trace context.
func WrapHandler(h http.Handler, service string) http.Handler {
	return otelhttp.NewHandler(h, service)
}

// TracingMiddleware names the active request span after the matched route
// and annotates it with the tenant and outcome. It is a no-op on the span
// when no tracer provider is installed.
func TracingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			span := trace.SpanFromContext(c.Request().Context())
			route := routeLabel(c)
			span.SetName(c.Request().Method + " " + route)

			err := next(c)

			status := statusOf(c, err)
			attrs := []attribute.KeyValue{
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", status),
			}
			if tenant := c.Param("tenant"); tenant != "" {
				attrs = append(attrs, attribute.String("clinic.tenant", tenant))
			}
			if rid, ok := c.Get("request_id").(string); ok {
				attrs = append(attrs, attribute.String("clinic.request_id", rid))
			}
			span.SetAttributes(attrs...)
			if status >= 500 {
				if err != nil {
					span.RecordError(err)
				}
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			return err
		}
	}
}

// MetricsMiddleware records request count, latency and in-flight requests.
// Routes are labelled by their pattern so tenant identifiers never become
// label values.
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			start := time.Now()
			err := next(c)

			method := c.Request().Method
			route := routeLabel(c)
			httpRequests.WithLabelValues(method, route, strconv.Itoa(statusOf(c, err))).Inc()
			httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// PrometheusHandler exposes the default registry.
func PrometheusHandler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

func routeLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}

func statusOf(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
