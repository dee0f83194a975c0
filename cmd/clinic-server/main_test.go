package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/admin"
	domainauth "github.com/clinic/clinic/internal/domain/auth"
	"github.com/clinic/clinic/internal/domain/tenant"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/notification"
)

type fakeConnector struct{}

func (fakeConnector) Connect(_ context.Context, tenant string) (*db.Conn, error) {
	return db.NewConn(tenant, nil, nil, 0), nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) PingMain(context.Context) error { return f.err }
func (fakeHealth) Stats() db.Stats                  { return db.Stats{Tenants: 2, MainOpen: true} }
func (fakeHealth) Tenants() []string                { return []string{"acme", "globex"} }

type noTenants struct{}

func (noTenants) ActiveIDs(context.Context) ([]string, error) { return nil, nil }

type noUsers struct{}

func (noUsers) FindByEmail(context.Context, string) (*admin.User, error) {
	return nil, db.ErrNotFound
}

type testServer struct {
	e      *echo.Echo
	issuer *auth.Issuer
	mailer *notification.MockEmailSender
}

func newTestServer(t *testing.T, authRequired bool, health db.StatsPinger) *testServer {
	t.Helper()
	issuer, err := auth.NewIssuer("email-secret", "session-secret")
	if err != nil {
		t.Fatal(err)
	}
	locator, err := domainauth.NewLocator(noTenants{}, fakeConnector{}, noUsers{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(locator.Close)
	redeemer := auth.NewMemoryRedeemer(time.Minute)
	t.Cleanup(redeemer.Stop)

	mailer := &notification.MockEmailSender{}
	cfg := &config.Config{
		Env:            "test",
		AuthRequired:   authRequired,
		CORSOrigins:    []string{"http://localhost:3000"},
		MeetingBaseURL: "https://meet.jit.si",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}
	deps := serverDeps{
		Connector: fakeConnector{},
		Health:    health,
		Issuer:    issuer,
		Login:     domainauth.NewService(issuer, redeemer, locator, mailer, "http://localhost:3000", zerolog.Nop()),
	}
	return &testServer{e: newServer(cfg, zerolog.Nop(), deps), issuer: issuer, mailer: mailer}
}

func (s *testServer) do(method, target, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, true, fakeHealth{})
	rec := s.do(http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), version) {
		t.Errorf("expected version in body, got %s", rec.Body.String())
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("expected security headers, got %v", rec.Header())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected a request id")
	}
}

func TestServer_HealthDB(t *testing.T) {
	s := newTestServer(t, true, fakeHealth{})
	rec := s.do(http.MethodGet, "/health/db", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"open_tenants":["acme","globex"]`) {
		t.Errorf("expected open tenants in body, got %s", rec.Body.String())
	}

	s = newTestServer(t, true, fakeHealth{err: errors.New("no reachable servers")})
	if rec := s.do(http.MethodGet, "/health/db", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, true, fakeHealth{})
	s.do(http.MethodGet, "/health", "", "")
	rec := s.do(http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "clinic_http_requests_in_flight") {
		t.Error("expected clinic metrics in exposition")
	}
}

func TestServer_TenantRoutesRequireSession(t *testing.T) {
	s := newTestServer(t, true, fakeHealth{})
	if rec := s.do(http.MethodGet, "/api/acme/patients", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/api/acme/patients", "", "not-a-jwt"); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a bad token, got %d", rec.Code)
	}
}

func TestServer_SessionTenantMismatch(t *testing.T) {
	s := newTestServer(t, true, fakeHealth{})
	token, _, err := s.issuer.IssueSession("ana@example.com", "u1", "other", auth.RoleOwner)
	if err != nil {
		t.Fatal(err)
	}
	if rec := s.do(http.MethodGet, "/api/acme/patients", "", token); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestServer_ReservedTenant(t *testing.T) {
	s := newTestServer(t, false, fakeHealth{})
	if rec := s.do(http.MethodGet, "/api/admin/patients", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestServer_LoginIsPublic(t *testing.T) {
	s := newTestServer(t, true, fakeHealth{})
	rec := s.do(http.MethodPost, "/api/auth/login", `{"email":"ana@example.com"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(s.mailer.Calls()) != 0 {
		t.Errorf("unknown email must not receive a link, got %d", len(s.mailer.Calls()))
	}

	rec = s.do(http.MethodGet, "/api/auth/lookup?email=ana@example.com", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestServer_MeRequiresSession(t *testing.T) {
	s := newTestServer(t, true, fakeHealth{})
	if rec := s.do(http.MethodGet, "/api/auth/me", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestServer_AuditRoutesNeedStore(t *testing.T) {
	s := newTestServer(t, false, fakeHealth{})
	if rec := s.do(http.MethodGet, "/api/acme/audit", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without audit store, got %d", rec.Code)
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := rootCmd()
	want := map[string]bool{"serve": false, "migrate": false, "tenant": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestTenantCreate_RequiresName(t *testing.T) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"tenant", "create"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "--name is required") {
		t.Errorf("expected missing name error, got %v", err)
	}
}

func TestPrintTenants(t *testing.T) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	printTenants(root, []tenant.Tenant{{ID: "acme", Name: "Clínica Acme", Active: true, CreatedAt: created}})

	got := out.String()
	for _, want := range []string{"ID", "acme", "Clínica Acme", "true", "2024-03-01 09:00:00"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestNewMailer_FallsBackToLog(t *testing.T) {
	m, err := newMailer(&config.Config{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.(notification.LogSender); !ok {
		t.Errorf("expected LogSender, got %T", m)
	}

	m, err = newMailer(&config.Config{SMTPHost: "smtp.example.com", SMTPPort: 587, FromEmail: "no-reply@example.com"}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.(*notification.SMTPSender); !ok {
		t.Errorf("expected SMTPSender, got %T", m)
	}
}

func TestNewRedeemer_MemoryWithoutRedis(t *testing.T) {
	r, closeFn, err := newRedeemer(context.Background(), &config.Config{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()
	if _, ok := r.(*auth.MemoryRedeemer); !ok {
		t.Errorf("expected MemoryRedeemer, got %T", r)
	}
}
