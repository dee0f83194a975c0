package patient

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apierr"
	"github.com/clinic/clinic/internal/platform/middleware"
	"github.com/clinic/clinic/pkg/pagination"
)

var (
	patientMsgs       = apierr.Messages{Failure: "Falha ao carregar pacientes", NotFound: "Paciente não encontrado"}
	patientWriteMsgs  = apierr.Messages{Failure: "Falha ao salvar paciente", NotFound: "Paciente não encontrado"}
	documentMsgs      = apierr.Messages{Failure: "Falha ao carregar documentos", NotFound: "Documento não encontrado"}
	documentWriteMsgs = apierr.Messages{Failure: "Falha ao salvar documento", NotFound: "Documento não encontrado"}
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/patients", h.ListPatients)
	g.GET("/patients/:id", h.GetPatient)
	g.POST("/patients", h.CreatePatient)
	g.PUT("/patients", h.UpdatePatient)
	g.PUT("/patients/:id", h.UpdatePatient)
	g.PATCH("/patients/:id", h.UpdatePatient)
	g.DELETE("/patients", h.DeletePatient)
	g.DELETE("/patients/:id", h.DeletePatient)

	g.GET("/patients/:id/documents", h.ListPatientDocuments)
	g.POST("/patients/:id/documents", h.AddDocument)
	g.GET("/documents", h.ListDocuments)
	g.GET("/documents/:id", h.GetDocument)
	g.POST("/documents", h.AddDocument)
	g.DELETE("/documents", h.DeleteDocument)
	g.DELETE("/documents/:id", h.DeleteDocument)
}

// -- Patient Handlers --

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return apierr.ToHTTP(err, patientMsgs)
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.GetPatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.ToHTTP(err, patientMsgs)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var in PatientInput
	if err := c.Bind(&in); err != nil {
		return apierr.BadBody()
	}
	p, err := h.svc.CreatePatient(c.Request().Context(), &in)
	if err != nil {
		return apierr.ToHTTP(err, patientWriteMsgs)
	}
	middleware.SetAuditResourceID(c, p.ID)
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	var in PatientInput
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
	p, err := h.svc.UpdatePatient(c.Request().Context(), id, &in)
	if err != nil {
		return apierr.ToHTTP(err, patientWriteMsgs)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id := apierr.IDParam(c)
	if id == "" {
		return apierr.MissingID()
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return apierr.ToHTTP(err, patientWriteMsgs)
	}
	return apierr.Success(c)
}

// -- Document Handlers --

func (h *Handler) ListPatientDocuments(c echo.Context) error {
	return h.listDocuments(c, c.Param("id"))
}

func (h *Handler) ListDocuments(c echo.Context) error {
	return h.listDocuments(c, c.QueryParam("patientId"))
}

func (h *Handler) listDocuments(c echo.Context, patientID string) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDocuments(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.ToHTTP(err, documentMsgs)
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetDocument(c echo.Context) error {
	d, err := h.svc.GetDocument(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.ToHTTP(err, documentMsgs)
	}
	return c.JSON(http.StatusOK, d)
}

// AddDocument serves both POST /patients/:id/documents and POST /documents
// with patientId in the body.
func (h *Handler) AddDocument(c echo.Context) error {
	var in DocumentInput
	if err := c.Bind(&in); err != nil {
		return apierr.BadBody()
	}
	patientID := c.Param("id")
	if patientID == "" {
		patientID = in.PatientID
	}
	if patientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Paciente é obrigatório")
	}
	d, err := h.svc.AddDocument(c.Request().Context(), patientID, &in)
	if err != nil {
		return apierr.ToHTTP(err, apierr.Messages{Failure: documentWriteMsgs.Failure, NotFound: patientMsgs.NotFound})
	}
	middleware.SetAuditResourceID(c, d.ID)
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) DeleteDocument(c echo.Context) error {
	id := apierr.IDParam(c)
	if id == "" {
		return apierr.MissingID()
	}
	if err := h.svc.DeleteDocument(c.Request().Context(), id); err != nil {
		return apierr.ToHTTP(err, documentWriteMsgs)
	}
	return apierr.Success(c)
}
