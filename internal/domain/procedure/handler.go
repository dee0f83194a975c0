package procedure

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
	loadMsgs  = apierr.Messages{Failure: "Falha ao carregar procedimentos", NotFound: "Procedimento não encontrado"}
	writeMsgs = apierr.Messages{Failure: "Falha ao salvar procedimento", NotFound: "Procedimento não encontrado"}
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the catalogue. Everyone may read it; changing prices
// is reserved to doctors and administrators.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	r := g.Group("/procedures", auth.RequireRoleForWrites(auth.RoleDoctor))
	r.GET("", h.ListProcedures)
	r.GET("/:id", h.GetProcedure)
	r.POST("", h.CreateProcedure)
	r.PUT("", h.UpdateProcedure)
	r.PUT("/:id", h.UpdateProcedure)
	r.PATCH("/:id", h.UpdateProcedure)
	r.DELETE("", h.DeleteProcedure)
	r.DELETE("/:id", h.DeleteProcedure)
}

func (h *Handler) ListProcedures(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ProcedureFilter{Category: c.QueryParam("category")}
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Parâmetro active inválido")
		}
		f.Active = &active
	}
	items, total, err := h.svc.ListProcedures(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.ToHTTP(err, loadMsgs)
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetProcedure(c echo.Context) error {
	p, err := h.svc.GetProcedure(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.ToHTTP(err, loadMsgs)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CreateProcedure(c echo.Context) error {
	var in ProcedureInput
	if err := c.Bind(&in); err != nil {
		return apierr.BadBody()
	}
	p, err := h.svc.CreateProcedure(c.Request().Context(), &in)
	if err != nil {
		return apierr.ToHTTP(err, writeMsgs)
	}
	middleware.SetAuditResourceID(c, p.ID)
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdateProcedure(c echo.Context) error {
	var in ProcedureInput
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
	p, err := h.svc.UpdateProcedure(c.Request().Context(), id, &in)
	if err != nil {
		return apierr.ToHTTP(err, writeMsgs)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProcedure(c echo.Context) error {
	id := apierr.IDParam(c)
	if id == "" {
		return apierr.MissingID()
	}
	if err := h.svc.DeleteProcedure(c.Request().Context(), id); err != nil {
		return apierr.ToHTTP(err, writeMsgs)
	}
	return apierr.Success(c)
}
