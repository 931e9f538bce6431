package diagnosis

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEngineUnavailable wraps transport failures talking to the engine.
	ErrEngineUnavailable = errors.New("diagnostic engine unavailable")
	// ErrEmptyResponse is returned when the engine replied with no text.
	ErrEmptyResponse = errors.New("diagnostic engine returned empty content")
	// ErrInvalidTriageLevel is returned for triage levels outside 1-4.
	ErrInvalidTriageLevel = errors.New("invalid triage level")
	// ErrRecordNotFound is returned when no record matches an id.
	ErrRecordNotFound = errors.New("diagnosis record not found")
	// ErrUserNotFound is returned when the users collection has no such id.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when registering an email twice.
	ErrDuplicateEmail = errors.New("email already registered")
)

// FieldError is one invalid intake field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports intake fields the practitioner must correct before
// a request can be built.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid patient input: " + strings.Join(parts, "; ")
}

// SchemaIssue is a single mismatch between engine output and the declared schema.
type SchemaIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i SchemaIssue) String() string { return i.Path + ": " + i.Message }

// SchemaViolation is returned when engine output does not satisfy the declared
// response schema. It is never repaired.
type SchemaViolation struct {
	SchemaVersion string        `json:"schemaVersion"`
	Issues        []SchemaIssue `json:"issues"`
}

func (e *SchemaViolation) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.String()
	}
	return fmt.Sprintf("schema violation (%s): %s", e.SchemaVersion, strings.Join(parts, "; "))
}

// StoreWriteError is returned when the record store could not be written. The
// diagnosis itself succeeded.
type StoreWriteError struct {
	RecordID string
	Err      error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store record %s: %v", e.RecordID, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// PreconditionViolation marks a programmer error, such as assembling a report
// for a record without a result.
type PreconditionViolation struct {
	Op     string
	Reason string
}

func (e *PreconditionViolation) Error() string {
	return fmt.Sprintf("%s: precondition violated: %s", e.Op, e.Reason)
}
