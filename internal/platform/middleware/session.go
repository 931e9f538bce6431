package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/alcortex/emr/internal/domain/diagnosis"
)

// PractitionerHeader names the practitioner a request acts for.
const PractitionerHeader = "X-Practitioner-ID"

// UserLookup resolves practitioner ids. Satisfied by diagnosis.UserStore.
type UserLookup interface {
	Get(ctx context.Context, id string) (*diagnosis.User, error)
}

// Session resolves the X-Practitioner-ID header against users and attaches
// the resulting diagnosis.Session to the request context. defaultID is used
// when the header is absent; leave it empty outside development. Requests
// without any practitioner pass through and are rejected by the handlers
// that need one.
func Session(users UserLookup, defaultID string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := strings.TrimSpace(c.Request().Header.Get(PractitionerHeader))
			if id == "" {
				id = defaultID
			}
			if id == "" {
				return next(c)
			}

			req := c.Request()
			user, err := users.Get(req.Context(), id)
			if errors.Is(err, diagnosis.ErrUserNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown practitioner")
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "practitioner lookup failed")
			}

			sess := diagnosis.SessionFor(user)
			c.SetRequest(req.WithContext(diagnosis.WithSession(req.Context(), sess)))
			c.Set(userIDKey, sess.UserID)
			return next(c)
		}
	}
}
