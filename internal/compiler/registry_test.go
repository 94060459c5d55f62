package compiler

import (
	"context"
	"testing"

	"github.com/legion-labs/databuild-go/internal/domain"
	"github.com/legion-labs/databuild-go/internal/storage/contentstore"
)

func TestRegistryRegisterAndFind(t *testing.T) {
	registry := NewRegistry()
	transform := domain.Transform{From: "text", To: "integer"}

	if _, ok := registry.Find(transform); ok {
		t.Fatalf("empty registry returned a compiler")
	}
	if err := registry.Register(transform, Passthrough{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok := registry.Find(transform); !ok {
		t.Fatalf("registered compiler not found")
	}
	if err := registry.Register(transform, Passthrough{}); err == nil {
		t.Fatalf("expected error for duplicate registration")
	}
	if err := registry.Register(domain.Transform{From: "a", To: "b"}, nil); err == nil {
		t.Fatalf("expected error for nil compiler")
	}
}

func TestRegistryTransformsStableOrder(t *testing.T) {
	registry := NewRegistry()
	_ = registry.Register(domain.Transform{From: "b", To: "c"}, Passthrough{})
	_ = registry.Register(domain.Transform{From: "a", To: "b"}, Passthrough{})

	transforms := registry.Transforms()
	if len(transforms) != 2 {
		t.Fatalf("expected 2 transforms, got %d", len(transforms))
	}
	if transforms[0].String() != "a->b" || transforms[1].String() != "b->c" {
		t.Fatalf("unexpected order: %v", transforms)
	}
}

func TestPassthroughCopiesInput(t *testing.T) {
	ctx := context.Background()
	store := contentstore.NewMemoryStore()
	input, err := store.Put(ctx, []byte("as is"))
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}

	source := domain.ResourceTypeAndID{Type: "text", ID: "0001"}
	path := domain.PathFromResource(source).Push("text")
	out, err := Passthrough{}.Compile(ctx, Request{
		CompilePath:    path,
		SourceChecksum: input,
		Store:          store,
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(out.Resources) != 1 {
		t.Fatalf("expected one resource, got %d", len(out.Resources))
	}
	if out.Resources[0].Checksum != input {
		t.Fatalf("passthrough changed the content: %s", out.Resources[0].Checksum)
	}
	if !out.Resources[0].Path.Equal(path) {
		t.Fatalf("unexpected compiled path: %s", out.Resources[0].Path)
	}
}
