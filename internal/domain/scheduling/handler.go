package scheduling

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apierr"
	"github.com/clinic/clinic/internal/platform/middleware"
	"github.com/clinic/clinic/pkg/pagination"
	"github.com/clinic/clinic/pkg/timeparam"
)

var (
	loadMsgs   = apierr.Messages{Failure: "Falha ao carregar agendamentos", NotFound: "Agendamento não encontrado"}
	createMsgs = apierr.Messages{Failure: "Falha ao criar agendamento", NotFound: "Agendamento não encontrado"}
	updateMsgs = apierr.Messages{Failure: "Falha ao atualizar agendamento", NotFound: "Agendamento não encontrado"}
	deleteMsgs = apierr.Messages{Failure: "Falha ao excluir agendamento", NotFound: "Agendamento não encontrado"}
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the appointment endpoints on the tenant group. The
// collection-level PUT and DELETE take the id from the body and ?id=.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/appointments", h.ListAppointments)
	g.GET("/appointments/:id", h.GetAppointment)
	g.POST("/appointments", h.CreateAppointment)
	g.PUT("/appointments", h.UpdateAppointment)
	g.PUT("/appointments/:id", h.UpdateAppointment)
	g.PATCH("/appointments/:id", h.UpdateAppointment)
	g.DELETE("/appointments", h.DeleteAppointment)
	g.DELETE("/appointments/:id", h.DeleteAppointment)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := AppointmentFilter{
		Professional: c.QueryParam("professional"),
		Status:       c.QueryParam("status"),
		PatientID:    c.QueryParam("patientId"),
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

	items, total, err := h.svc.ListAppointments(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.ToHTTP(err, loadMsgs)
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	a, err := h.svc.GetAppointment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.ToHTTP(err, loadMsgs)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var in AppointmentInput
	if err := c.Bind(&in); err != nil {
		return apierr.BadBody()
	}
	a, err := h.svc.CreateAppointment(c.Request().Context(), &in)
	if err != nil {
		return apierr.ToHTTP(err, createMsgs)
	}
	middleware.SetAuditResourceID(c, a.ID)
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	var in AppointmentInput
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

	a, err := h.svc.UpdateAppointment(c.Request().Context(), id, &in)
	if err != nil {
		return apierr.ToHTTP(err, updateMsgs)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id := apierr.IDParam(c)
	if id == "" {
		return apierr.MissingID()
	}
	if err := h.svc.DeleteAppointment(c.Request().Context(), id); err != nil {
		return apierr.ToHTTP(err, deleteMsgs)
	}
	return apierr.Success(c)
}
