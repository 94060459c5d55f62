package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Manifest is the durable output of a top-level compile request: the list of
// compiled resources, post-linking, that a runtime asset loader consumes.
// Consumers treat a written manifest as immutable per build.
type Manifest struct {
	CompiledResources []CompiledResource
}

// Merge replaces the entry with the same path or appends a new one.
func (m *Manifest) Merge(resource CompiledResource) {
	for i := range m.CompiledResources {
		if m.CompiledResources[i].Path.Equal(resource.Path) {
			m.CompiledResources[i] = resource
			return
		}
	}
	m.CompiledResources = append(m.CompiledResources, resource)
}

// PreSerialize sorts entries by path so serialized manifests are stable.
func (m *Manifest) PreSerialize() {
	sort.Slice(m.CompiledResources, func(i, j int) bool {
		return m.CompiledResources[i].Path.String() < m.CompiledResources[j].Path.String()
	})
}

type manifestPayload struct {
	CompiledResources []manifestResourcePayload `json:"compiled_resources"`
}

type manifestResourcePayload struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

// MarshalManifest serializes a manifest with stable field names.
func MarshalManifest(m Manifest) ([]byte, error) {
	payload := manifestPayload{
		CompiledResources: make([]manifestResourcePayload, 0, len(m.CompiledResources)),
	}
	for _, resource := range m.CompiledResources {
		payload.CompiledResources = append(payload.CompiledResources, manifestResourcePayload{
			Path:     resource.Path.String(),
			Checksum: string(resource.Checksum),
			Size:     resource.Size,
		})
	}
	return json.MarshalIndent(payload, "", "  ")
}

// UnmarshalManifest parses a persisted manifest.
func UnmarshalManifest(raw []byte) (Manifest, error) {
	var payload manifestPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Manifest{}, err
	}
	manifest := Manifest{
		CompiledResources: make([]CompiledResource, 0, len(payload.CompiledResources)),
	}
	for _, resource := range payload.CompiledResources {
		path, err := ParseResourcePathID(resource.Path)
		if err != nil {
			return Manifest{}, fmt.Errorf("manifest entry: %w", err)
		}
		manifest.CompiledResources = append(manifest.CompiledResources, CompiledResource{
			Path:     path,
			Checksum: Checksum(resource.Checksum),
			Size:     resource.Size,
		})
	}
	return manifest, nil
}
