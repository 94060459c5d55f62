package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/legion-labs/databuild-go/internal/domain"
	"github.com/legion-labs/databuild-go/internal/repo"
)

func testEntry() repo.CompiledEntry {
	source := domain.ResourceTypeAndID{Type: "text", ID: "0001"}
	path := domain.PathFromResource(source).Push("integer")
	return repo.CompiledEntry{
		Fingerprint: "fp-1",
		Resources: []domain.CompiledResource{
			{Path: path, Checksum: domain.ChecksumOf([]byte("blob")), Size: 4},
		},
		References: []domain.CompiledReference{
			{Path: path, Reference: domain.PathFromResource(source)},
		},
	}
}

func TestInsertFindRoundTrip(t *testing.T) {
	ctx := context.Background()
	index := NewOutputIndex()

	if _, err := index.FindCompiled(ctx, "fp-1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	entry := testEntry()
	if err := index.InsertCompiled(ctx, entry); err != nil {
		t.Fatalf("insert: %v", err)
	}
	found, err := index.FindCompiled(ctx, "fp-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found.Resources) != 1 || found.Resources[0].Checksum != entry.Resources[0].Checksum {
		t.Fatalf("unexpected entry: %+v", found)
	}
}

func TestInsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	index := NewOutputIndex()
	entry := testEntry()

	if err := index.InsertCompiled(ctx, entry); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := index.InsertCompiled(ctx, entry); err != nil {
		t.Fatalf("idempotent insert: %v", err)
	}
}

func TestInsertConflictingResultFails(t *testing.T) {
	ctx := context.Background()
	index := NewOutputIndex()
	entry := testEntry()

	if err := index.InsertCompiled(ctx, entry); err != nil {
		t.Fatalf("insert: %v", err)
	}
	conflicting := testEntry()
	conflicting.Resources[0].Checksum = domain.ChecksumOf([]byte("different"))
	if err := index.InsertCompiled(ctx, conflicting); !errors.Is(err, repo.ErrFingerprintConflict) {
		t.Fatalf("expected ErrFingerprintConflict, got %v", err)
	}
}

func TestPathIDMapping(t *testing.T) {
	ctx := context.Background()
	index := NewOutputIndex()
	source := domain.ResourceTypeAndID{Type: "text", ID: "0001"}
	path := domain.PathFromResource(source).Push("integer")

	if _, err := index.LookupPathID(ctx, path.ResourceID()); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := index.RecordPathID(ctx, path); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := index.LookupPathID(ctx, path.ResourceID())
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !got.Equal(path) {
		t.Fatalf("lookup returned %s, want %s", got, path)
	}
}
