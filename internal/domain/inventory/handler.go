package inventory

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apierr"
	"github.com/clinic/clinic/internal/platform/middleware"
	"github.com/clinic/clinic/pkg/pagination"
	"github.com/clinic/clinic/pkg/timeparam"
)

var (
	stockMsgs         = apierr.Messages{Failure: "Falha ao carregar estoque", NotFound: "Item não encontrado"}
	stockWriteMsgs    = apierr.Messages{Failure: "Falha ao salvar item", NotFound: "Item não encontrado"}
	movementMsgs      = apierr.Messages{Failure: "Falha ao carregar movimentações", NotFound: "Movimentação não encontrada"}
	movementWriteMsgs = apierr.Messages{Failure: "Falha ao registrar movimentação", NotFound: "Item não encontrado"}
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/stock", h.ListItems)
	g.GET("/stock/:id", h.GetItem)
	g.POST("/stock", h.CreateItem)
	g.PUT("/stock", h.UpdateItem)
	g.PUT("/stock/:id", h.UpdateItem)
	g.PATCH("/stock/:id", h.UpdateItem)
	g.DELETE("/stock", h.DeleteItem)
	g.DELETE("/stock/:id", h.DeleteItem)

	g.GET("/stock/:id/movements", h.ListMovements)
	g.POST("/stock/:id/movements", h.RecordMovement)
	g.GET("/stock-movements", h.ListMovements)
	g.GET("/stock-movements/:id", h.GetMovement)
	g.POST("/stock-movements", h.RecordMovement)
}

// movementResponse returns the movement with the item as it stands after it.
type movementResponse struct {
	*StockMovement
	Item *StockItem `json:"item"`
}

// -- Stock Handlers --

func (h *Handler) ListItems(c echo.Context) error {
	f := StockFilter{Category: c.QueryParam("category")}
	if raw := c.QueryParam("low"); raw != "" {
		low, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Parâmetro low inválido")
		}
		f.Low = low
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListItems(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.ToHTTP(err, stockMsgs)
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetItem(c echo.Context) error {
	item, err := h.svc.GetItem(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.ToHTTP(err, stockMsgs)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) CreateItem(c echo.Context) error {
	var in StockItemInput
	if err := c.Bind(&in); err != nil {
		return apierr.BadBody()
	}
	item, err := h.svc.CreateItem(c.Request().Context(), &in)
	if err != nil {
		return apierr.ToHTTP(err, stockWriteMsgs)
	}
	middleware.SetAuditResourceID(c, item.ID)
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) UpdateItem(c echo.Context) error {
	var in StockItemInput
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
	item, err := h.svc.UpdateItem(c.Request().Context(), id, &in)
	if err != nil {
		return apierr.ToHTTP(err, stockWriteMsgs)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteItem(c echo.Context) error {
	id := apierr.IDParam(c)
	if id == "" {
		return apierr.MissingID()
	}
	if err := h.svc.DeleteItem(c.Request().Context(), id); err != nil {
		return apierr.ToHTTP(err, stockWriteMsgs)
	}
	return apierr.Success(c)
}

// -- Movement Handlers --

func (h *Handler) ListMovements(c echo.Context) error {
	f := MovementFilter{ItemID: c.QueryParam("itemId"), Type: c.QueryParam("type")}
	if id := c.Param("id"); id != "" {
		f.ItemID = id
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
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMovements(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.ToHTTP(err, movementMsgs)
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetMovement(c echo.Context) error {
	m, err := h.svc.GetMovement(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.ToHTTP(err, movementMsgs)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) RecordMovement(c echo.Context) error {
	var in MovementInput
	if err := c.Bind(&in); err != nil {
		return apierr.BadBody()
	}
	if id := c.Param("id"); id != "" {
		in.ItemID = &id
	}
	m, item, err := h.svc.RecordMovement(c.Request().Context(), &in)
	if err != nil {
		return apierr.ToHTTP(err, movementWriteMsgs)
	}
	middleware.SetAuditResourceID(c, m.ID)
	return c.JSON(http.StatusCreated, movementResponse{StockMovement: m, Item: item})
}
