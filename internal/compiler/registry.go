package compiler

import (
	"fmt"
	"sort"

	"github.com/legion-labs/databuild-go/internal/domain"
)

// Registry maps transform types to compilers. It is an explicit value passed
// into the orchestrator, so independently configured registries can coexist
// in one process. Register everything up front; lookups are read-only and
// safe for concurrent use afterwards.
type Registry struct {
	byTransform map[domain.Transform]Compiler
}

func NewRegistry() *Registry {
	return &Registry{byTransform: make(map[domain.Transform]Compiler)}
}

// Register binds a compiler to a transform. Binding the same transform twice
// is an error.
func (r *Registry) Register(transform domain.Transform, c Compiler) error {
	if c == nil {
		return fmt.Errorf("transform %s: compiler is nil", transform)
	}
	if _, exists := r.byTransform[transform]; exists {
		return fmt.Errorf("transform %s: compiler already registered", transform)
	}
	r.byTransform[transform] = c
	return nil
}

// Find returns the compiler handling transform.
func (r *Registry) Find(transform domain.Transform) (Compiler, bool) {
	c, ok := r.byTransform[transform]
	return c, ok
}

// Transforms returns the registered transforms in stable order.
func (r *Registry) Transforms() []domain.Transform {
	transforms := make([]domain.Transform, 0, len(r.byTransform))
	for t := range r.byTransform {
		transforms = append(transforms, t)
	}
	sort.Slice(transforms, func(i, j int) bool {
		return transforms[i].String() < transforms[j].String()
	})
	return transforms
}
