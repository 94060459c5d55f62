package domain

import "testing"

func TestManifestMergeReplacesByPath(t *testing.T) {
	path := PathFromResource(testSource()).Push("text")
	var m Manifest
	m.Merge(CompiledResource{Path: path, Checksum: ChecksumOf([]byte("one")), Size: 3})
	m.Merge(CompiledResource{Path: path.Push("integer"), Checksum: ChecksumOf([]byte("two")), Size: 3})
	m.Merge(CompiledResource{Path: path, Checksum: ChecksumOf([]byte("three")), Size: 5})

	if len(m.CompiledResources) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(m.CompiledResources))
	}
	for _, resource := range m.CompiledResources {
		if resource.Path.Equal(path) && resource.Checksum != ChecksumOf([]byte("three")) {
			t.Fatalf("merge did not replace the existing entry")
		}
	}
}

func TestManifestRoundTrip(t *testing.T) {
	path := PathFromResource(testSource()).Push("text")
	m := Manifest{CompiledResources: []CompiledResource{
		{Path: path.PushNamed("integer", "b"), Checksum: ChecksumOf([]byte("b")), Size: 1},
		{Path: path.PushNamed("integer", "a"), Checksum: ChecksumOf([]byte("a")), Size: 1},
	}}
	m.PreSerialize()
	if m.CompiledResources[0].Path.Name() != "a" {
		t.Fatalf("PreSerialize did not sort entries")
	}

	raw, err := MarshalManifest(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	loaded, err := UnmarshalManifest(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(loaded.CompiledResources) != len(m.CompiledResources) {
		t.Fatalf("entry count mismatch")
	}
	for i := range loaded.CompiledResources {
		want := m.CompiledResources[i]
		got := loaded.CompiledResources[i]
		if !got.Path.Equal(want.Path) || got.Checksum != want.Checksum || got.Size != want.Size {
			t.Fatalf("entry %d mismatch: %+v != %+v", i, got, want)
		}
	}
}

func TestCompilationEnvValidate(t *testing.T) {
	env := CompilationEnv{Target: TargetGame, Platform: PlatformLinux, Locale: "en"}
	if err := env.Validate(); err != nil {
		t.Fatalf("valid env rejected: %v", err)
	}
	if err := (CompilationEnv{Target: "???", Platform: PlatformLinux, Locale: "en"}).Validate(); err == nil {
		t.Fatalf("expected error for unknown target")
	}
	if err := (CompilationEnv{Target: TargetGame, Platform: PlatformLinux}).Validate(); err == nil {
		t.Fatalf("expected error for missing locale")
	}
}
