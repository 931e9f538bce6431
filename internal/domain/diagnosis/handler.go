package diagnosis

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/alcortex/emr/pkg/pagination"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/diagnoses", h.Diagnose)
	api.POST("/imaging/analyze", h.AnalyzeImage)
	api.GET("/records", h.ListRecords)
	api.GET("/records/all", h.ListAllRecords)
	api.GET("/records/:id", h.GetRecord)
	api.GET("/dashboard", h.Dashboard)
}

type diagnoseResponse struct {
	*Outcome
	Warning string `json:"warning,omitempty"`
}

type imageRequest struct {
	Modality Modality `json:"modality"`
	MimeType string   `json:"mimeType"`
	Image    []byte   `json:"image"`
	Language string   `json:"language"`
}

func session(c echo.Context) (Session, error) {
	sess, ok := SessionFromContext(c.Request().Context())
	if !ok || sess.UserID == "" {
		return Session{}, echo.NewHTTPError(http.StatusUnauthorized, "no practitioner session")
	}
	return sess, nil
}

// Diagnose accepts a PatientInput body. Fields left out keep the intake
// form defaults. The response language comes from ?lang= or the session.
func (h *Handler) Diagnose(c echo.Context) error {
	sess, err := session(c)
	if err != nil {
		return err
	}
	input := NewPatientInput()
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	outcome, err := h.svc.Diagnose(c.Request().Context(), sess, input, c.QueryParam("lang"))
	if err != nil {
		var swe *StoreWriteError
		if errors.As(err, &swe) && outcome != nil {
			return c.JSON(http.StatusOK, diagnoseResponse{Outcome: outcome, Warning: "result not saved: " + swe.Err.Error()})
		}
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, diagnoseResponse{Outcome: outcome})
}

func (h *Handler) AnalyzeImage(c echo.Context) error {
	sess, err := session(c)
	if err != nil {
		return err
	}
	var req imageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.AnalyzeImage(c.Request().Context(), sess, Modality(strings.ToUpper(string(req.Modality))), req.Image, req.MimeType, req.Language)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) ListRecords(c echo.Context) error {
	sess, err := session(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	records, err := h.svc.History(c.Request().Context(), sess)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pageOf(c, records, pg))
}

func (h *Handler) ListAllRecords(c echo.Context) error {
	if _, err := session(c); err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	records, err := h.svc.AllRecords(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pageOf(c, records, pg))
}

func (h *Handler) GetRecord(c echo.Context) error {
	sess, err := session(c)
	if err != nil {
		return err
	}
	record, err := h.svc.Record(c.Request().Context(), sess, c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, record)
}

func (h *Handler) Dashboard(c echo.Context) error {
	sess, err := session(c)
	if err != nil {
		return err
	}
	stats, err := h.svc.Dashboard(c.Request().Context(), sess)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func pageOf(c echo.Context, records []DiagnosisRecord, pg pagination.Params) *pagination.Response {
	resp := pagination.NewResponse(pagination.Slice(records, pg), len(records), pg.Limit, pg.Offset)
	resp.Links = pg.Links(c.Request().URL.Path, len(records))
	return resp
}

type errorBody struct {
	Message string        `json:"message"`
	Fields  []FieldError  `json:"fields,omitempty"`
	Issues  []SchemaIssue `json:"issues,omitempty"`
	Schema  string        `json:"schema,omitempty"`
}

func toHTTPError(err error) error {
	var (
		ve *ValidationError
		sv *SchemaViolation
		pv *PreconditionViolation
	)
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, errorBody{Message: "invalid patient input", Fields: ve.Fields})
	case errors.As(err, &sv):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, errorBody{Message: "engine response failed validation", Issues: sv.Issues, Schema: sv.SchemaVersion})
	case errors.Is(err, ErrEmptyResponse):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, errorBody{Message: err.Error()})
	case errors.Is(err, ErrEngineUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, errorBody{Message: err.Error()})
	case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, errorBody{Message: err.Error()})
	case errors.As(err, &pv):
		return echo.NewHTTPError(http.StatusInternalServerError, errorBody{Message: pv.Error()})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, errorBody{Message: err.Error()})
	}
}
