package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/legion-labs/databuild-go/internal/domain"
)

func writeProject(t *testing.T, dir, definition string, files map[string]string) string {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	path := filepath.Join(dir, "project.yaml")
	if err := os.WriteFile(path, []byte(definition), 0o644); err != nil {
		t.Fatalf("write project file: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	ctx := context.Background()
	path := writeProject(t, t.TempDir(), `
name: sample
resources:
  - id: text:aaaa
    content: a.txt
  - id: text:bbbb
    content: b.txt
    build_deps:
      - text:aaaa|text
`, map[string]string{
		"a.txt": "content a",
		"b.txt": "content b",
	})

	p, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Name() != "sample" {
		t.Fatalf("name = %q, want %q", p.Name(), "sample")
	}

	list, err := p.ResourceList(ctx)
	if err != nil {
		t.Fatalf("resource list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("resources = %d, want 2", len(list))
	}

	b := domain.ResourceTypeAndID{Type: "text", ID: "bbbb"}
	checksum, deps, err := p.ResourceInfo(ctx, b)
	if err != nil {
		t.Fatalf("resource info: %v", err)
	}
	if checksum != domain.ChecksumOf([]byte("content b")) {
		t.Fatalf("checksum mismatch: %s", checksum)
	}
	if len(deps) != 1 || deps[0].String() != "text:aaaa|text" {
		t.Fatalf("deps = %v", deps)
	}

	content, err := p.ResourceContent(ctx, b)
	if err != nil {
		t.Fatalf("resource content: %v", err)
	}
	if string(content) != "content b" {
		t.Fatalf("content = %q", content)
	}
}

func TestLoadFileObservesEdits(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeProject(t, dir, `
resources:
  - id: text:aaaa
    content: a.txt
`, map[string]string{"a.txt": "v1"})

	p, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	id := domain.ResourceTypeAndID{Type: "text", ID: "aaaa"}
	before, _, err := p.ResourceInfo(ctx, id)
	if err != nil {
		t.Fatalf("resource info: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("v2"), 0o644); err != nil {
		t.Fatalf("edit content: %v", err)
	}
	after, _, err := p.ResourceInfo(ctx, id)
	if err != nil {
		t.Fatalf("resource info: %v", err)
	}
	if before == after {
		t.Fatal("content edit must change the checksum")
	}
}

func TestLoadFileRejectsBadDefinitions(t *testing.T) {
	cases := []struct {
		name       string
		definition string
	}{
		{"bad id", "resources:\n  - id: nocolon\n    content: a.txt\n"},
		{"duplicate id", "resources:\n  - id: text:aaaa\n    content: a.txt\n  - id: text:aaaa\n    content: b.txt\n"},
		{"missing content", "resources:\n  - id: text:aaaa\n"},
		{"bad dep", "resources:\n  - id: text:aaaa\n    content: a.txt\n    build_deps: [\"???\"]\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeProject(t, t.TempDir(), tc.definition, nil)
			if _, err := LoadFile(path); err == nil {
				t.Fatal("expected load error")
			}
		})
	}
}

func TestLoadFileMissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing project file")
	}
}
