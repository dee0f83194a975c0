package financial

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apierr"
	"github.com/clinic/clinic/internal/platform/middleware"
	"github.com/clinic/clinic/pkg/pagination"
	"github.com/clinic/clinic/pkg/timeparam"
)

var (
	incomeMsgs      = apierr.Messages{Failure: "Falha ao carregar receitas", NotFound: "Receita não encontrada"}
	incomeWriteMsgs = apierr.Messages{Failure: "Falha ao salvar receita", NotFound: "Receita não encontrada"}
	billMsgs        = apierr.Messages{Failure: "Falha ao carregar contas", NotFound: "Conta não encontrada"}
	billWriteMsgs   = apierr.Messages{Failure: "Falha ao salvar conta", NotFound: "Conta não encontrada"}
	summaryMsgs     = apierr.Messages{Failure: "Falha ao carregar resumo financeiro"}
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/income", h.ListIncomes)
	g.GET("/income/:id", h.GetIncome)
	g.POST("/income", h.CreateIncome)
	g.PUT("/income", h.UpdateIncome)
	g.PUT("/income/:id", h.UpdateIncome)
	g.PATCH("/income/:id", h.UpdateIncome)
	g.DELETE("/income", h.DeleteIncome)
	g.DELETE("/income/:id", h.DeleteIncome)

	g.GET("/bills", h.ListBills)
	g.GET("/bills/:id", h.GetBill)
	g.POST("/bills", h.CreateBill)
	g.POST("/bills/:id/pay", h.PayBill)
	g.PUT("/bills", h.UpdateBill)
	g.PUT("/bills/:id", h.UpdateBill)
	g.PATCH("/bills/:id", h.UpdateBill)
	g.DELETE("/bills", h.DeleteBill)
	g.DELETE("/bills/:id", h.DeleteBill)

	g.GET("/finance/summary", h.Summary)
}

// dateRange reads ?from= and ?to=. A date-only to covers the whole day.
func dateRange(c echo.Context) (DateRange, error) {
	var r DateRange
	var err error
	if r.From, err = timeparam.Query(c, "from"); err != nil {
		return r, echo.NewHTTPError(http.StatusBadRequest, "Data inicial inválida")
	}
	if r.To, err = timeparam.Query(c, "to"); err != nil {
		return r, echo.NewHTTPError(http.StatusBadRequest, "Data final inválida")
	}
	if r.To != nil {
		*r.To = timeparam.EndOfDay(c.QueryParam("to"), *r.To)
	}
	return r, nil
}

// -- Income Handlers --

func (h *Handler) ListIncomes(c echo.Context) error {
	r, err := dateRange(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListIncomes(c.Request().Context(), r, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.ToHTTP(err, incomeMsgs)
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetIncome(c echo.Context) error {
	i, err := h.svc.GetIncome(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.ToHTTP(err, incomeMsgs)
	}
	return c.JSON(http.StatusOK, i)
}

func (h *Handler) CreateIncome(c echo.Context) error {
	var in IncomeInput
	if err := c.Bind(&in); err != nil {
		return apierr.BadBody()
	}
	i, err := h.svc.CreateIncome(c.Request().Context(), &in)
	if err != nil {
		return apierr.ToHTTP(err, incomeWriteMsgs)
	}
	middleware.SetAuditResourceID(c, i.ID)
	return c.JSON(http.StatusCreated, i)
}

func (h *Handler) UpdateIncome(c echo.Context) error {
	var in IncomeInput
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
	i, err := h.svc.UpdateIncome(c.Request().Context(), id, &in)
	if err != nil {
		return apierr.ToHTTP(err, incomeWriteMsgs)
	}
	return c.JSON(http.StatusOK, i)
}

func (h *Handler) DeleteIncome(c echo.Context) error {
	id := apierr.IDParam(c)
	if id == "" {
		return apierr.MissingID()
	}
	if err := h.svc.DeleteIncome(c.Request().Context(), id); err != nil {
		return apierr.ToHTTP(err, incomeWriteMsgs)
	}
	return apierr.Success(c)
}

// -- Bill Handlers --

func (h *Handler) ListBills(c echo.Context) error {
	r, err := dateRange(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	f := BillFilter{DateRange: r, Status: c.QueryParam("status")}
	items, total, err := h.svc.ListBills(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.ToHTTP(err, billMsgs)
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetBill(c echo.Context) error {
	b, err := h.svc.GetBill(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.ToHTTP(err, billMsgs)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) CreateBill(c echo.Context) error {
	var in BillInput
	if err := c.Bind(&in); err != nil {
		return apierr.BadBody()
	}
	b, err := h.svc.CreateBill(c.Request().Context(), &in)
	if err != nil {
		return apierr.ToHTTP(err, billWriteMsgs)
	}
	middleware.SetAuditResourceID(c, b.ID)
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) UpdateBill(c echo.Context) error {
	var in BillInput
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
	b, err := h.svc.UpdateBill(c.Request().Context(), id, &in)
	if err != nil {
		return apierr.ToHTTP(err, billWriteMsgs)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) PayBill(c echo.Context) error {
	b, err := h.svc.PayBill(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.ToHTTP(err, billWriteMsgs)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBill(c echo.Context) error {
	id := apierr.IDParam(c)
	if id == "" {
		return apierr.MissingID()
	}
	if err := h.svc.DeleteBill(c.Request().Context(), id); err != nil {
		return apierr.ToHTTP(err, billWriteMsgs)
	}
	return apierr.Success(c)
}

// -- Summary --

func (h *Handler) Summary(c echo.Context) error {
	r, err := dateRange(c)
	if err != nil {
		return err
	}
	s, err := h.svc.Summary(c.Request().Context(), r)
	if err != nil {
		return apierr.ToHTTP(err, summaryMsgs)
	}
	return c.JSON(http.StatusOK, s)
}
