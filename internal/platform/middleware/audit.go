package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// AccessEntry records one access to patient data: who, which record, what
// action and the outcome.
type AccessEntry struct {
	RequestID string
	UserID    string
	Action    string // diagnose, analyze, list, read, export
	RecordID  string
	Method    string
	Path      string
	RemoteIP  string
	UserAgent string
	Status    int
	Timestamp time.Time
}

// AccessRecorder persists access entries.
type AccessRecorder interface {
	RecordAccess(entry AccessEntry) error
}

// AccessRecorderFunc adapts a function to AccessRecorder.
type AccessRecorderFunc func(entry AccessEntry) error

func (f AccessRecorderFunc) RecordAccess(entry AccessEntry) error {
	return f(entry)
}

// Audit logs every request under /api/v1/ as a patient data access after the
// handler has run. recorder may be nil, in which case only the log line is
// written. A recorder failure is logged and never fails the request.
func Audit(logger zerolog.Logger, recorder AccessRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isAuditablePath(req.URL.Path) {
				return next(c)
			}

			err := next(c)

			entry := AccessEntry{
				RequestID: requestIDOf(c),
				UserID:    userIDOf(c),
				Action:    accessAction(req.Method, req.URL.Path),
				RecordID:  c.Param("id"),
				Method:    req.Method,
				Path:      req.URL.Path,
				RemoteIP:  c.RealIP(),
				UserAgent: req.UserAgent(),
				Status:    c.Response().Status,
				Timestamp: time.Now().UTC(),
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.Status = he.Code
			}

			if recorder != nil {
				if recErr := recorder.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).Str("request_id", entry.RequestID).Msg("failed to record access")
				}
			}

			logger.Info().
				Str("type", "record_access").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("action", entry.Action).
				Str("record_id", entry.RecordID).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.RemoteIP).
				Int("status", entry.Status).
				Msg("patient_data_access")

			return err
		}
	}
}

func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/")
}

// accessAction names the access from the route shape.
func accessAction(method, path string) string {
	p := strings.TrimSuffix(strings.TrimPrefix(path, "/api/v1/"), "/")
	switch {
	case p == "diagnoses" && method == http.MethodPost:
		return "diagnose"
	case strings.HasPrefix(p, "imaging/"):
		return "analyze"
	case strings.HasPrefix(p, "records/") && strings.HasSuffix(p, "/report"):
		return "export"
	case p == "records" || p == "records/all" || p == "dashboard":
		return "list"
	case strings.HasPrefix(p, "records/"):
		return "read"
	}
	if method == http.MethodGet || method == http.MethodHead {
		return "read"
	}
	return "write"
}
