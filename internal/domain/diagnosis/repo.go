package diagnosis

import (
	"context"
)

// RecordRepository persists DiagnosisRecords. There is no update or delete.
type RecordRepository interface {
	// Append adds record on behalf of sess. The record must belong to the
	// session user.
	Append(ctx context.Context, sess Session, record DiagnosisRecord) error
	// ListByUser returns the user's records, most recent first.
	ListByUser(ctx context.Context, userID string) ([]DiagnosisRecord, error)
	// ListAll returns every record in storage order.
	ListAll(ctx context.Context) ([]DiagnosisRecord, error)
}

// UserRepository reads and writes the users collection.
type UserRepository interface {
	Get(ctx context.Context, id string) (*User, error)
	Add(ctx context.Context, user *User) error
	List(ctx context.Context) ([]User, error)
}
