package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apierr"
	platformauth "github.com/clinic/clinic/internal/platform/auth"
)

var authMsgs = apierr.Messages{Failure: "Falha na autenticação", NotFound: "Usuário não encontrado"}

type Handler struct {
	svc          *Service
	secureCookie bool
}

func NewHandler(svc *Service, secureCookie bool) *Handler {
	return &Handler{svc: svc, secureCookie: secureCookie}
}

// RegisterRoutes mounts the login flow under g, normally /api/auth.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/login", h.Login)
	g.GET("/verify", h.Verify)
	g.GET("/lookup", h.Lookup)
	g.GET("/me", h.Me)
	g.POST("/logout", h.Logout)
}

type loginRequest struct {
	Email  string `json:"email"`
	Tenant string `json:"tenant"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BadBody()
	}
	if err := h.svc.Login(c.Request().Context(), req.Email, req.Tenant); err != nil {
		return apierr.ToHTTP(err, authMsgs)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Se o e-mail estiver cadastrado, você receberá um link de acesso.",
	})
}

func (h *Handler) Verify(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Token é obrigatório")
	}
	session, err := h.svc.Verify(c.Request().Context(), token)
	switch {
	case errors.Is(err, platformauth.ErrInvalidToken):
		return echo.NewHTTPError(http.StatusUnauthorized, "Link inválido ou expirado")
	case errors.Is(err, ErrTokenUsed):
		return echo.NewHTTPError(http.StatusUnauthorized, "Link já utilizado")
	case errors.Is(err, ErrUnknownUser):
		return echo.NewHTTPError(http.StatusUnauthorized, "Usuário não encontrado")
	case err != nil:
		return apierr.ToHTTP(err, authMsgs)
	}
	platformauth.SetSessionCookie(c, session.Token, h.secureCookie)
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) Lookup(c echo.Context) error {
	tenants, err := h.svc.Lookup(c.Request().Context(), c.QueryParam("email"))
	if err != nil {
		return apierr.ToHTTP(err, authMsgs)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tenants": tenants})
}

// Me describes the caller's session.
func (h *Handler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	if claims := platformauth.ClaimsFromContext(ctx); claims != nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"userId": claims.UserID,
			"email":  claims.Email,
			"tenant": claims.Tenant,
			"role":   claims.Role,
		})
	}
	if uid := platformauth.UserIDFromContext(ctx); uid != "" {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"userId": uid,
			"role":   platformauth.RoleFromContext(ctx),
		})
	}
	return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
}

func (h *Handler) Logout(c echo.Context) error {
	platformauth.ClearSessionCookie(c, h.secureCookie)
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
