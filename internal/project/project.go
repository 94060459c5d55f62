// Package project loads offline resource databases from project definition
// files. A project file lists every source resource, where its content
// lives and which derived paths it depends on.
package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/legion-labs/databuild-go/internal/domain"
)

type resourceDefinition struct {
	ID        string   `yaml:"id"`
	Content   string   `yaml:"content"`
	BuildDeps []string `yaml:"build_deps"`
}

type projectDefinition struct {
	Name      string               `yaml:"name"`
	Resources []resourceDefinition `yaml:"resources"`
}

type resource struct {
	contentPath string
	deps        []domain.ResourcePathID
}

// FileProject is a project definition loaded from a YAML file. Resource
// content lives in files next to the definition; content is read from disk
// on every call so edits between pulls are observed.
type FileProject struct {
	name      string
	dir       string
	order     []domain.ResourceTypeAndID
	resources map[domain.ResourceTypeAndID]resource
}

// LoadFile reads and validates a project definition. Content paths resolve
// relative to the definition file's directory.
func LoadFile(path string) (*FileProject, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}
	var def projectDefinition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("parse project file %s: %w", path, err)
	}

	p := &FileProject{
		name:      def.Name,
		dir:       filepath.Dir(path),
		resources: make(map[domain.ResourceTypeAndID]resource, len(def.Resources)),
	}
	for _, rd := range def.Resources {
		id, err := domain.ParseResourceTypeAndID(rd.ID)
		if err != nil {
			return nil, fmt.Errorf("project resource %q: %w", rd.ID, err)
		}
		if _, dup := p.resources[id]; dup {
			return nil, fmt.Errorf("project resource %q declared twice", rd.ID)
		}
		if rd.Content == "" {
			return nil, fmt.Errorf("project resource %q has no content file", rd.ID)
		}
		deps := make([]domain.ResourcePathID, 0, len(rd.BuildDeps))
		for _, dep := range rd.BuildDeps {
			parsed, err := domain.ParseResourcePathID(dep)
			if err != nil {
				return nil, fmt.Errorf("project resource %q build dep %q: %w", rd.ID, dep, err)
			}
			deps = append(deps, parsed)
		}
		p.order = append(p.order, id)
		p.resources[id] = resource{contentPath: rd.Content, deps: deps}
	}
	return p, nil
}

func (p *FileProject) Name() string {
	return p.name
}

func (p *FileProject) ResourceList(ctx context.Context) ([]domain.ResourceTypeAndID, error) {
	return append([]domain.ResourceTypeAndID(nil), p.order...), nil
}

func (p *FileProject) ResourceInfo(ctx context.Context, id domain.ResourceTypeAndID) (domain.Checksum, []domain.ResourcePathID, error) {
	content, err := p.ResourceContent(ctx, id)
	if err != nil {
		return "", nil, err
	}
	res := p.resources[id]
	return domain.ChecksumOf(content), append([]domain.ResourcePathID(nil), res.deps...), nil
}

func (p *FileProject) ResourceContent(ctx context.Context, id domain.ResourceTypeAndID) ([]byte, error) {
	res, ok := p.resources[id]
	if !ok {
		return nil, fmt.Errorf("project has no resource %s", id)
	}
	content, err := os.ReadFile(filepath.Join(p.dir, res.contentPath))
	if err != nil {
		return nil, fmt.Errorf("resource %s content: %w", id, err)
	}
	return content, nil
}
