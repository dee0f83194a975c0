package audit

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/pagination"
	"github.com/clinic/clinic/pkg/timeparam"
)

// Searcher is implemented by *Store.
type Searcher interface {
	Search(ctx context.Context, f Filter) ([]Event, int64, error)
}

// Handler serves the tenant's audit trail to administrators.
type Handler struct {
	searcher Searcher
}

func NewHandler(s Searcher) *Handler {
	return &Handler{searcher: s}
}

// RegisterRoutes mounts GET /audit on the tenant group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/audit", h.List, auth.RequireRole(auth.RoleAdmin, auth.RoleOwner))
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	f := Filter{
		Tenant:     c.Param("tenant"),
		UserID:     c.QueryParam("userId"),
		Resource:   c.QueryParam("resource"),
		ResourceID: c.QueryParam("resourceId"),
		Action:     c.QueryParam("action"),
		Limit:      p.Limit,
		Offset:     p.Offset,
	}
	var err error
	if f.From, err = timeparam.Query(c, "from"); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Data inicial inválida")
	}
	if f.To, err = timeparam.Query(c, "to"); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Data final inválida")
	}
	if f.To != nil {
		*f.To = timeparam.EndOfDay(c.QueryParam("to"), *f.To)
	}

	events, total, err := h.searcher.Search(c.Request().Context(), f)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Falha ao carregar auditoria")
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, events)
}
