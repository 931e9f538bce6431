package report

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/alcortex/emr/internal/domain/diagnosis"
	"github.com/alcortex/emr/internal/platform/archive"
)

// RecordFetcher loads one of the session user's records.
type RecordFetcher interface {
	Record(ctx context.Context, sess diagnosis.Session, id string) (*diagnosis.DiagnosisRecord, error)
}

// Archiver keeps a copy of each export. Optional.
type Archiver interface {
	Put(ctx context.Context, meta archive.Object, content []byte) (*archive.Object, error)
}

// Handler serves the PDF export of a record.
type Handler struct {
	assembler *Assembler
	fetcher   RecordFetcher
	archiver  Archiver
	product   string
	logger    zerolog.Logger
}

// NewHandler creates a report handler. archiver may be nil.
func NewHandler(assembler *Assembler, fetcher RecordFetcher, archiver Archiver, product string, logger zerolog.Logger) *Handler {
	return &Handler{
		assembler: assembler,
		fetcher:   fetcher,
		archiver:  archiver,
		product:   product,
		logger:    logger.With().Str("component", "report").Logger(),
	}
}

// RegisterRoutes registers the export endpoint.
//
//	GET /api/v1/records/:id/report - PDF export of a record
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/records/:id/report", h.Export)
}

// Render assembles and renders the export for record and returns it with
// its download file name.
func Render(a *Assembler, product string, record diagnosis.DiagnosisRecord, examiner string) (string, []byte, error) {
	doc, err := a.Assemble(record, examiner)
	if err != nil {
		return "", nil, err
	}
	data, err := RenderPDF(doc)
	if err != nil {
		return "", nil, err
	}
	return ExportFileName(product, record.PatientData.MRN, record.Timestamp), data, nil
}

// Export handles GET /api/v1/records/:id/report.
func (h *Handler) Export(c echo.Context) error {
	ctx := c.Request().Context()
	sess, ok := diagnosis.SessionFromContext(ctx)
	if !ok || sess.UserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "no practitioner session")
	}

	record, err := h.fetcher.Record(ctx, sess, c.Param("id"))
	if errors.Is(err, diagnosis.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	name, data, err := Render(h.assembler, h.product, *record, sess.UserName)
	if err != nil {
		var pv *diagnosis.PreconditionViolation
		if errors.As(err, &pv) {
			return echo.NewHTTPError(http.StatusConflict, pv.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if h.archiver != nil {
		meta, err := h.archiver.Put(ctx, archive.Object{
			Key:         name,
			ContentType: "application/pdf",
			RecordID:    record.ID,
			UserID:      sess.UserID,
			CreatedAt:   record.Timestamp,
		}, data)
		switch {
		case errors.Is(err, archive.ErrAlreadyExists):
		case err != nil:
			h.logger.Warn().Err(err).Str("record_id", record.ID).Msg("export not archived")
		default:
			c.Response().Header().Set("X-Content-SHA256", meta.Hash)
		}
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, "application/pdf", data)
}
