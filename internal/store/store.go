package store

import (
	"context"
	"errors"
)

// ErrNotFound indicates that no blob is stored under the requested key.
var ErrNotFound = errors.New("blob not found")

// BlobStore persists opaque documents under string keys. A Set replaces the
// whole value; there is no concurrency control beyond a single write.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
