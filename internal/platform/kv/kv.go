// Package kv is the durable key-value layer behind the record and user
// collections. Each key holds one whole serialized collection.
package kv

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidKey is returned for keys outside [A-Za-z0-9_.-].
var ErrInvalidKey = errors.New("kv: invalid key")

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// Store reads and writes opaque values by key. Get reports found=false for a
// key that was never written.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte) error
}

func checkKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
