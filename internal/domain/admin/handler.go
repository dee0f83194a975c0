package admin

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apierr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/middleware"
	"github.com/clinic/clinic/pkg/pagination"
)

var (
	loadMsgs  = apierr.Messages{Failure: "Falha ao carregar usuários", NotFound: "Usuário não encontrado"}
	writeMsgs = apierr.Messages{Failure: "Falha ao salvar usuário", NotFound: "Usuário não encontrado"}
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts user administration. Any staff member may list the
// team; changes require admin or owner.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	r := g.Group("/users", auth.RequireRoleForWrites(auth.RoleAdmin, auth.RoleOwner))
	r.GET("", h.ListUsers)
	r.GET("/:id", h.GetUser)
	r.POST("", h.CreateUser)
	r.PUT("", h.UpdateUser)
	r.PUT("/:id", h.UpdateUser)
	r.PATCH("/:id", h.UpdateUser)
	r.DELETE("", h.DeleteUser)
	r.DELETE("/:id", h.DeleteUser)
}

func (h *Handler) ListUsers(c echo.Context) error {
	f := UserFilter{Role: c.QueryParam("role"), Query: c.QueryParam("q")}
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Parâmetro active inválido")
		}
		f.Active = &active
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUsers(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.ToHTTP(err, loadMsgs)
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetUser(c echo.Context) error {
	u, err := h.svc.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.ToHTTP(err, loadMsgs)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) CreateUser(c echo.Context) error {
	var in UserInput
	if err := c.Bind(&in); err != nil {
		return apierr.BadBody()
	}
	u, err := h.svc.CreateUser(c.Request().Context(), &in)
	if err != nil {
		return apierr.ToHTTP(err, writeMsgs)
	}
	middleware.SetAuditResourceID(c, u.ID)
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) UpdateUser(c echo.Context) error {
	var in UserInput
	if err := c.Bind(&in); err != nil {
		return apierr.BadBody()
	}
	id := c.Param("id")
	if id == "" {
		id = in.ID
	}
	if id == "" {
		return apierr.MissingID()
	}
	middleware.SetAuditResourceID(c, id)
	u, err := h.svc.UpdateUser(c.Request().Context(), id, &in)
	if err != nil {
		return apierr.ToHTTP(err, writeMsgs)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	id := apierr.IDParam(c)
	if id == "" {
		return apierr.MissingID()
	}
	if err := h.svc.DeleteUser(c.Request().Context(), id); err != nil {
		return apierr.ToHTTP(err, writeMsgs)
	}
	return apierr.Success(c)
}
