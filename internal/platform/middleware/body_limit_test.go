package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"1M", 1 << 20},
		{"10MB", 10 << 20},
		{"512K", 512 << 10},
		{"512kb", 512 << 10},
		{"1G", 1 << 30},
		{"1024", 1024},
		{"", 1 << 20},
		{"invalid", 1 << 20},
		{"-5M", 1 << 20},
	}
	for _, tt := range tests {
		if got := parseLimit(tt.input); got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func readAll(c echo.Context) error {
	if _, err := io.ReadAll(c.Request().Body); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

func runBodyLimit(method, path string, body io.Reader, contentLength int64) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(method, path, body)
	if contentLength >= 0 {
		req.ContentLength = contentLength
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	err := BodyLimit("100", "1K")(readAll)(c)
	return rec, err
}

func expectTooLarge(t *testing.T, err error) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %v", err)
	}
}

func TestBodyLimit_AllowsSmallBody(t *testing.T) {
	rec, err := runBodyLimit(http.MethodPost, "/api/v1/diagnoses", strings.NewReader(`{"patientName":"Siti"}`), -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestBodyLimit_RejectsOversizedContentLength(t *testing.T) {
	body := strings.NewReader(strings.Repeat("a", 200))
	_, err := runBodyLimit(http.MethodPost, "/api/v1/diagnoses", body, 200)
	expectTooLarge(t, err)
}

func TestBodyLimit_ImagingGetsLargerLimit(t *testing.T) {
	body := strings.NewReader(strings.Repeat("a", 500))
	if _, err := runBodyLimit(http.MethodPost, ImagingPath, body, 500); err != nil {
		t.Fatalf("expected imaging body under 1K to pass, got %v", err)
	}

	body = strings.NewReader(strings.Repeat("a", 2000))
	_, err := runBodyLimit(http.MethodPost, ImagingPath, body, 2000)
	expectTooLarge(t, err)
}

func TestBodyLimit_SkipsEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	called := false
	err := BodyLimit("1", "1")(func(c echo.Context) error {
		called = true
		return nil
	})(c)
	if err != nil || !called {
		t.Errorf("expected pass-through, got err=%v called=%v", err, called)
	}
}

func TestBodyLimit_EnforcesLimitDuringRead(t *testing.T) {
	// Content-Length understates the body.
	body := strings.NewReader(strings.Repeat("a", 300))
	_, err := runBodyLimit(http.MethodPost, "/api/v1/diagnoses", body, 10)
	expectTooLarge(t, err)
}
