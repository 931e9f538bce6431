package report

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/alcortex/emr/internal/domain/diagnosis"
	"github.com/alcortex/emr/internal/platform/archive"
)

type mockFetcher struct {
	records map[string]diagnosis.DiagnosisRecord
}

func (m *mockFetcher) Record(_ context.Context, sess diagnosis.Session, id string) (*diagnosis.DiagnosisRecord, error) {
	r, ok := m.records[id]
	if !ok || r.UserID != sess.UserID {
		return nil, diagnosis.ErrRecordNotFound
	}
	return &r, nil
}

type failingArchiver struct{}

func (failingArchiver) Put(context.Context, archive.Object, []byte) (*archive.Object, error) {
	return nil, errors.New("bucket unavailable")
}

func newExportContext(e *echo.Echo, id string, sess *diagnosis.Session) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if sess != nil {
		req = req.WithContext(diagnosis.WithSession(req.Context(), *sess))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

var exportSession = diagnosis.Session{UserID: "u-1", UserName: "dr. Rina"}

func TestHandler_Export(t *testing.T) {
	store := archive.NewMemoryStore()
	fetcher := &mockFetcher{records: map[string]diagnosis.DiagnosisRecord{"rec-1": testRecord()}}
	h := NewHandler(newTestAssembler(), fetcher, store, "ALCORTEX", zerolog.Nop())
	e := echo.New()

	c, rec := newExportContext(e, "rec-1", &exportSession)
	if err := h.Export(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "application/pdf" {
		t.Errorf("expected application/pdf, got %s", ct)
	}
	disp := rec.Header().Get(echo.HeaderContentDisposition)
	name := ExportFileName("ALCORTEX", "rm-2024-001", testRecord().Timestamp)
	if !strings.Contains(disp, name) {
		t.Errorf("expected %s in Content-Disposition, got %s", name, disp)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Error("expected PDF body")
	}

	archived, meta, err := store.Get(context.Background(), name)
	if err != nil {
		t.Fatalf("expected archived export: %v", err)
	}
	if !bytes.Equal(archived, rec.Body.Bytes()) || meta.RecordID != "rec-1" {
		t.Errorf("archived export does not match response")
	}
	if rec.Header().Get("X-Content-SHA256") != meta.Hash {
		t.Error("expected hash header to match archive metadata")
	}

	// A second export of the same record is served even though the archive
	// already holds it.
	c, rec = newExportContext(e, "rec-1", &exportSession)
	if err := h.Export(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("expected repeat export to succeed, got %v / %d", err, rec.Code)
	}
}

func TestHandler_Export_ArchiveFailureIsNotFatal(t *testing.T) {
	fetcher := &mockFetcher{records: map[string]diagnosis.DiagnosisRecord{"rec-1": testRecord()}}
	h := NewHandler(newTestAssembler(), fetcher, failingArchiver{}, "ALCORTEX", zerolog.Nop())

	c, rec := newExportContext(echo.New(), "rec-1", &exportSession)
	if err := h.Export(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_Export_Errors(t *testing.T) {
	noResult := testRecord()
	noResult.ID = "rec-2"
	noResult.Result = nil
	fetcher := &mockFetcher{records: map[string]diagnosis.DiagnosisRecord{"rec-2": noResult}}
	h := NewHandler(newTestAssembler(), fetcher, nil, "ALCORTEX", zerolog.Nop())
	e := echo.New()

	tests := []struct {
		name string
		id   string
		sess *diagnosis.Session
		want int
	}{
		{"no session", "rec-2", nil, http.StatusUnauthorized},
		{"unknown record", "missing", &exportSession, http.StatusNotFound},
		{"record without result", "rec-2", &exportSession, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newExportContext(e, tt.id, tt.sess)
			err := h.Export(c)
			var he *echo.HTTPError
			if !errors.As(err, &he) {
				t.Fatalf("expected HTTPError, got %v", err)
			}
			if he.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, he.Code)
			}
		})
	}
}
