// Package archive keeps exported report documents. Each export is stored
// once under its file name together with a SHA-256 digest of the content.
package archive

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrNotFound      = errors.New("archived object not found")
	ErrMissingKey    = errors.New("object key is required")
	ErrTooLarge      = errors.New("object exceeds maximum allowed size")
	ErrAlreadyExists = errors.New("object already archived")
)

// MaxObjectSize is the largest export accepted (25 MB).
const MaxObjectSize = 25 * 1024 * 1024

// ---------------------------------------------------------------------------
// Domain types
// ---------------------------------------------------------------------------

// Object describes an archived export.
type Object struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	RecordID    string    `json:"record_id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is implemented by the archive backends.
type Store interface {
	Put(ctx context.Context, meta Object, content []byte) (*Object, error)
	Get(ctx context.Context, key string) ([]byte, *Object, error)
}

// prepare validates meta against content and fills size and hash.
func prepare(meta Object, content []byte, now time.Time) (Object, error) {
	if meta.Key == "" {
		return meta, ErrMissingKey
	}
	if len(content) > MaxObjectSize {
		return meta, ErrTooLarge
	}
	meta.Size = int64(len(content))
	meta.Hash = fmt.Sprintf("%x", sha256.Sum256(content))
	if meta.ContentType == "" {
		meta.ContentType = "application/pdf"
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now.UTC()
	}
	return meta, nil
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type storedObject struct {
	meta    Object
	content []byte
}

// MemoryStore is a thread-safe, in-memory Store for tests and development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*storedObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]*storedObject)}
}

func (s *MemoryStore) Put(_ context.Context, meta Object, content []byte) (*Object, error) {
	meta, err := prepare(meta, content, time.Now())
	if err != nil {
		return nil, err
	}
	data := make([]byte, len(content))
	copy(data, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[meta.Key]; ok {
		return nil, ErrAlreadyExists
	}
	s.objects[meta.Key] = &storedObject{meta: meta, content: data}

	out := meta
	return &out, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, *Object, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrNotFound
	}
	data := make([]byte, len(obj.content))
	copy(data, obj.content)
	meta := obj.meta
	return data, &meta, nil
}
