// Package storage defines the blob store interface the pipelines write
// attachments through. Backends must distinguish a missing key from a
// transient failure so callers can tell an inconsistency apart from an
// upstream outage.
package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound indicates the requested key is absent from the store.
var ErrObjectNotFound = errors.New("storage: object not found")

// BlobStore puts and gets opaque byte blobs by key.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// IsNotFound reports whether err means the key is absent rather than a
// backend failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}
