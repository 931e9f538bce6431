package diagnosis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alcortex/emr/internal/platform/kv"
)

// Collection keys in the key-value store.
const (
	RecordsKey = "diagnostic_records"
	UsersKey   = "users"
)

// RecordStore implements RecordRepository over a kv.Store. The whole
// collection lives under RecordsKey; Append rewrites it under mu. mu only
// serializes writers in this process; a store shared by several processes
// must have a single writer.
type RecordStore struct {
	store kv.Store
	mu    sync.Mutex
}

func NewRecordStore(store kv.Store) *RecordStore {
	return &RecordStore{store: store}
}

func (r *RecordStore) load(ctx context.Context) ([]DiagnosisRecord, error) {
	raw, found, err := r.store.Get(ctx, RecordsKey)
	if err != nil {
		return nil, err
	}
	if !found || len(raw) == 0 {
		return []DiagnosisRecord{}, nil
	}
	var records []DiagnosisRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", RecordsKey, err)
	}
	return records, nil
}

func (r *RecordStore) Append(ctx context.Context, sess Session, record DiagnosisRecord) error {
	if sess.UserID == "" {
		return &PreconditionViolation{Op: "Append", Reason: "session has no user"}
	}
	if record.UserID != sess.UserID {
		return &PreconditionViolation{Op: "Append", Reason: "record belongs to another user"}
	}
	if record.ID == "" {
		return &PreconditionViolation{Op: "Append", Reason: "record has no id"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load(ctx)
	if err != nil {
		return &StoreWriteError{RecordID: record.ID, Err: err}
	}
	records = append(records, record)
	raw, err := json.Marshal(records)
	if err != nil {
		return &StoreWriteError{RecordID: record.ID, Err: err}
	}
	if err := r.store.Put(ctx, RecordsKey, raw); err != nil {
		return &StoreWriteError{RecordID: record.ID, Err: err}
	}
	return nil
}

func (r *RecordStore) ListByUser(ctx context.Context, userID string) ([]DiagnosisRecord, error) {
	records, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DiagnosisRecord, 0, len(records))
	for _, rec := range records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (r *RecordStore) ListAll(ctx context.Context) ([]DiagnosisRecord, error) {
	return r.load(ctx)
}

// UserStore implements UserRepository over a kv.Store under UsersKey.
type UserStore struct {
	store kv.Store
	mu    sync.Mutex
	now   func() time.Time
}

func NewUserStore(store kv.Store) *UserStore {
	return &UserStore{store: store, now: time.Now}
}

func (s *UserStore) load(ctx context.Context) ([]User, error) {
	raw, found, err := s.store.Get(ctx, UsersKey)
	if err != nil {
		return nil, err
	}
	if !found || len(raw) == 0 {
		return []User{}, nil
	}
	var users []User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("decode %s: %w", UsersKey, err)
	}
	return users, nil
}

func (s *UserStore) Get(ctx context.Context, id string) (*User, error) {
	users, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, ErrUserNotFound
}

// Add stores a new practitioner. A blank ID is assigned; emails are unique
// case-insensitively.
func (s *UserStore) Add(ctx context.Context, user *User) error {
	if err := validateUser(user); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load(ctx)
	if err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	for _, u := range users {
		if u.ID == user.ID {
			return fmt.Errorf("user %s already exists", user.ID)
		}
		if user.Email != "" && strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicateEmail
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now().UTC()
	}
	users = append(users, *user)
	raw, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, UsersKey, raw)
}

func (s *UserStore) List(ctx context.Context) ([]User, error) {
	return s.load(ctx)
}

func validateUser(u *User) error {
	var fields []FieldError
	if u == nil {
		return &ValidationError{Fields: []FieldError{{Field: "user", Message: "is required"}}}
	}
	if strings.TrimSpace(u.Name) == "" {
		fields = append(fields, FieldError{Field: "name", Message: "is required"})
	}
	switch u.Role {
	case "", RoleDoctor, RoleNurse, RoleLabAnalyst:
	default:
		fields = append(fields, FieldError{Field: "role", Message: "unknown role"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
