package diagnosis

import (
	"context"
	"time"
)

// UserRole of a practitioner account.
type UserRole string

const (
	RoleDoctor     UserRole = "Dokter"
	RoleNurse      UserRole = "Perawat"
	RoleLabAnalyst UserRole = "Tenaga Analis Laboratorium"
)

// User is a practitioner entry of the users collection. Credentials are
// handled outside this module and never stored here.
type User struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Role              UserRole  `json:"role"`
	LicenseID         string    `json:"licenseId"`
	PreferredLanguage Language  `json:"preferredLanguage"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Session identifies the practitioner on whose behalf an operation runs. It
// is passed explicitly; there is no process-wide current user.
type Session struct {
	UserID   string
	UserName string
	Role     UserRole
	Language Language
}

// SessionFor builds a session from a users entry. A user without a
// preferred language leaves Language empty so the service default applies.
func SessionFor(u *User) Session {
	sess := Session{UserID: u.ID, UserName: u.Name, Role: u.Role}
	if u.PreferredLanguage != "" {
		sess.Language = ResolveLanguage(string(u.PreferredLanguage))
	}
	return sess
}

type sessionKey struct{}

// WithSession stores sess on ctx. Used by the HTTP layer only.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the session stored by WithSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(Session)
	return sess, ok
}
