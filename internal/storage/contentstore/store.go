// Package contentstore provides content-addressed blob storage: blobs are
// stored and retrieved by the checksum of their content, which gives
// deduplication for free and makes writes naturally idempotent.
package contentstore

import (
	"context"
	"errors"

	"github.com/legion-labs/databuild-go/internal/domain"
)

// ErrNotFound is returned when no blob exists under a checksum.
var ErrNotFound = errors.New("blob not found")

// Store abstracts a content-addressed blob store. Implementations must be
// safe for concurrent use.
type Store interface {
	// Put stores data and returns its content checksum. Storing the same
	// bytes twice is a no-op returning the same checksum.
	Put(ctx context.Context, data []byte) (domain.Checksum, error)

	// Get returns the blob stored under checksum, or ErrNotFound.
	Get(ctx context.Context, checksum domain.Checksum) ([]byte, error)

	// Exists reports whether a blob is stored under checksum.
	Exists(ctx context.Context, checksum domain.Checksum) (bool, error)
}
