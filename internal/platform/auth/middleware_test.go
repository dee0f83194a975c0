package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/db"
)

func testIssuer(t *testing.T) *Issuer {
	t.Helper()
	iss, err := NewIssuer("email-secret-for-tests", "session-secret-for-tests")
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestSessionMiddleware_BearerToken(t *testing.T) {
	iss := testIssuer(t)
	token, _, err := iss.IssueSession("ana@acme.test", "u1", "acme", RoleDoctor)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/acme/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c := e.NewContext(req, httptest.NewRecorder())

	var userID, role string
	err = SessionMiddleware(SessionConfig{Issuer: iss, Required: true})(func(c echo.Context) error {
		userID = UserIDFromContext(c.Request().Context())
		role = RoleFromContext(c.Request().Context())
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "u1" || role != RoleDoctor {
		t.Errorf("got user %q role %q", userID, role)
	}
	if c.Get(db.SessionTenantKey) != "acme" {
		t.Errorf("expected session tenant acme, got %v", c.Get(db.SessionTenantKey))
	}
}

func TestSessionMiddleware_Cookie(t *testing.T) {
	iss := testIssuer(t)
	token, _, _ := iss.IssueSession("ana@acme.test", "u1", "acme", RoleAdmin)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	c := e.NewContext(req, httptest.NewRecorder())

	var claims *SessionClaims
	err := SessionMiddleware(SessionConfig{Issuer: iss, Required: true})(func(c echo.Context) error {
		claims = ClaimsFromContext(c.Request().Context())
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims == nil || claims.Email != "ana@acme.test" || claims.Tenant != "acme" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestSessionMiddleware_MissingTokenRequired(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	err := SessionMiddleware(SessionConfig{Issuer: testIssuer(t), Required: true})(func(echo.Context) error {
		t.Fatal("handler must not run")
		return nil
	})(c)
	if code := statusOf(t, err); code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}
}

func TestSessionMiddleware_MissingTokenOptional(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	var role string
	err := SessionMiddleware(SessionConfig{Issuer: testIssuer(t)})(func(c echo.Context) error {
		role = RoleFromContext(c.Request().Context())
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != RoleOwner {
		t.Errorf("expected development identity, got role %q", role)
	}
	if c.Get(db.SessionTenantKey) != nil {
		t.Error("development identity must not pin a tenant")
	}
}

func TestSessionMiddleware_InvalidToken(t *testing.T) {
	other, _ := NewIssuer("other-email", "other-session")
	forged, _, _ := other.IssueSession("x@y.z", "u1", "acme", RoleOwner)

	tests := []struct {
		name   string
		header string
	}{
		{"garbage", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + forged},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"empty bearer", "Bearer "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			c := e.NewContext(req, httptest.NewRecorder())
			err := SessionMiddleware(SessionConfig{Issuer: testIssuer(t)})(func(echo.Context) error {
				t.Fatal("handler must not run")
				return nil
			})(c)
			if code := statusOf(t, err); code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", code)
			}
		})
	}
}

func TestSessionMiddleware_EmailTokenIsNotASession(t *testing.T) {
	iss := testIssuer(t)
	emailToken, _, _ := iss.IssueEmailToken("ana@acme.test", "acme")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+emailToken)
	c := e.NewContext(req, httptest.NewRecorder())
	err := SessionMiddleware(SessionConfig{Issuer: iss, Required: true})(func(echo.Context) error { return nil })(c)
	if code := statusOf(t, err); code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}
}

func TestSessionMiddleware_Skipper(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/auth/login", nil), httptest.NewRecorder())
	c.SetPath("/api/auth/login")
	called := false
	err := SessionMiddleware(SessionConfig{Issuer: testIssuer(t), Required: true, Skipper: AuthSkipper})(func(echo.Context) error {
		called = true
		return nil
	})(c)
	if err != nil || !called {
		t.Errorf("expected skipped route to reach handler, err=%v", err)
	}
}

func TestSetAndClearSessionCookie(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	SetSessionCookie(c, "tok", true)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	ck := cookies[0]
	if ck.Name != SessionCookie || ck.Value != "tok" || !ck.HttpOnly || !ck.Secure || ck.SameSite != http.SameSiteLaxMode {
		t.Errorf("unexpected cookie %+v", ck)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	ClearSessionCookie(c, false)
	if ck := rec.Result().Cookies()[0]; ck.MaxAge >= 0 {
		t.Errorf("expected expired cookie, got MaxAge %d", ck.MaxAge)
	}
}
