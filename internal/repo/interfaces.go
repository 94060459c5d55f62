package repo

import (
	"context"
	"errors"

	"github.com/legion-labs/databuild-go/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrFingerprintConflict is returned when a fingerprint is stored twice with
// different results. Fingerprints are defined to be collision-free under
// deterministic compilers, so a conflict indicates a broken compiler or a
// corrupted index and is never resolved by picking one result.
var ErrFingerprintConflict = errors.New("fingerprint stored with conflicting results")

// ErrVersionMismatch is returned when an index was written by a different
// engine version. Old entries are unreachable after a version change.
var ErrVersionMismatch = errors.New("index version mismatch")

// CompiledEntry is one durable cache row: everything a single compile node
// produced, keyed by the node's fingerprint. Entries are inserted after a
// successful compilation and never mutated in place.
type CompiledEntry struct {
	Fingerprint string
	Resources   []domain.CompiledResource
	References  []domain.CompiledReference
}

// OutputIndex is the persisted checksum index: the durable cache mapping
// compile-node fingerprints to compiled outputs. Implementations must be
// safe for concurrent use and must serialize writes per fingerprint.
type OutputIndex interface {
	// InsertCompiled stores the outputs of one compiled node. Storing an
	// identical entry again is a no-op; storing a different entry under an
	// existing fingerprint fails with ErrFingerprintConflict.
	InsertCompiled(ctx context.Context, entry CompiledEntry) error

	// FindCompiled returns the entry for fingerprint, or ErrNotFound.
	FindCompiled(ctx context.Context, fingerprint string) (CompiledEntry, error)

	// RecordPathID remembers which path produced the runtime id derived
	// from it, so runtime ids can be traced back to their source.
	RecordPathID(ctx context.Context, path domain.ResourcePathID) error

	// LookupPathID returns the recorded path for a runtime id, or
	// ErrNotFound if the id was never produced by this index.
	LookupPathID(ctx context.Context, id domain.ResourceTypeAndID) (domain.ResourcePathID, error)
}
