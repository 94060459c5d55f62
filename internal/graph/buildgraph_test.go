package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/legion-labs/databuild-go/internal/domain"
)

func pulledIndex(t *testing.T, project *stubProject) *SourceIndex {
	t.Helper()
	index := NewSourceIndex()
	if _, err := index.Pull(context.Background(), project); err != nil {
		t.Fatalf("pull: %v", err)
	}
	return index
}

func TestBuildGraphExpandsTransformChain(t *testing.T) {
	project := newStubProject()
	a := rid("multitext", "aaaa")
	project.add(a, "a")
	index := pulledIndex(t, project)

	target := domain.PathFromResource(a).Push("text").Push("integer")
	g, err := index.BuildGraph(target)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	if g.Len() != 3 {
		t.Fatalf("expected 3 nodes, got %d", g.Len())
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if !order[0].Equal(domain.PathFromResource(a)) {
		t.Fatalf("source must come first, got %s", order[0])
	}
	if !order[2].Equal(target) {
		t.Fatalf("target must come last, got %s", order[2])
	}
}

func TestTopologicalOrderPutsDependenciesFirst(t *testing.T) {
	project := newStubProject()
	a := rid("text", "aaaa")
	b := rid("text", "bbbb")
	c := rid("text", "cccc")
	// a depends on derived outputs of b and c.
	project.add(b, "b")
	project.add(c, "c")
	project.add(a, "a",
		domain.PathFromResource(b).Push("integer"),
		domain.PathFromResource(c).Push("integer"),
	)
	index := pulledIndex(t, project)

	target := domain.PathFromResource(a).Push("integer")
	g, err := index.BuildGraph(target)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		t.Fatalf("order: %v", err)
	}

	position := make(map[string]int, len(order))
	for i, node := range order {
		position[node.String()] = i
	}
	for node, dependents := range map[string][]string{
		domain.PathFromResource(b).String():                 {domain.PathFromResource(b).Push("integer").String()},
		domain.PathFromResource(c).String():                 {domain.PathFromResource(c).Push("integer").String()},
		domain.PathFromResource(b).Push("integer").String(): {target.String()},
		domain.PathFromResource(c).Push("integer").String(): {target.String()},
	} {
		for _, dependent := range dependents {
			if position[node] >= position[dependent] {
				t.Fatalf("%s must precede %s in %v", node, dependent, order)
			}
		}
	}

	// Re-running resolution yields the same order.
	again, err := g.TopologicalOrder()
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	for i := range order {
		if !order[i].Equal(again[i]) {
			t.Fatalf("order is not deterministic at %d: %s vs %s", i, order[i], again[i])
		}
	}
}

func TestBuildGraphDetectsCycle(t *testing.T) {
	project := newStubProject()
	a := rid("text", "aaaa")
	b := rid("text", "bbbb")
	project.add(a, "a", domain.PathFromResource(b))
	project.add(b, "b", domain.PathFromResource(a))
	index := pulledIndex(t, project)

	g, err := index.BuildGraph(domain.PathFromResource(a).Push("integer"))
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	if _, err := g.TopologicalOrder(); !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("expected ErrCircularDependency, got %v", err)
	}
}

func TestBuildGraphReportsUnresolvedDependency(t *testing.T) {
	project := newStubProject()
	a := rid("text", "aaaa")
	deleted := rid("text", "gone")
	project.add(a, "a", domain.PathFromResource(deleted).Push("integer"))
	index := pulledIndex(t, project)

	_, err := index.BuildGraph(domain.PathFromResource(a).Push("integer"))
	var unresolved *UnresolvedDependencyError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected UnresolvedDependencyError, got %v", err)
	}
	if !unresolved.Path.Equal(domain.PathFromResource(deleted)) {
		t.Fatalf("unexpected unresolved path: %s", unresolved.Path)
	}
}

func TestBuildGraphDeduplicatesSharedDependencies(t *testing.T) {
	// Diamond: a depends on b and c, both depend on d.
	project := newStubProject()
	a := rid("text", "aaaa")
	b := rid("text", "bbbb")
	c := rid("text", "cccc")
	d := rid("text", "dddd")
	project.add(d, "d")
	project.add(b, "b", domain.PathFromResource(d))
	project.add(c, "c", domain.PathFromResource(d))
	project.add(a, "a", domain.PathFromResource(b), domain.PathFromResource(c))
	index := pulledIndex(t, project)

	g, err := index.BuildGraph(domain.PathFromResource(a).Push("integer"))
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	// a, b, c, d plus the derived target: d appears once.
	if g.Len() != 5 {
		t.Fatalf("expected 5 nodes, got %d", g.Len())
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if len(order) != 5 {
		t.Fatalf("expected 5 ordered nodes, got %d", len(order))
	}
}

func TestDOTListsEveryNode(t *testing.T) {
	project := newStubProject()
	a := rid("text", "aaaa")
	project.add(a, "a")
	index := pulledIndex(t, project)

	g, err := index.BuildGraph(domain.PathFromResource(a).Push("integer"))
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	dot := g.DOT(nil)
	if !strings.Contains(dot, "digraph build") {
		t.Fatalf("not a digraph: %s", dot)
	}
	if !strings.Contains(dot, domain.PathFromResource(a).String()) {
		t.Fatalf("missing node label: %s", dot)
	}
	if !strings.Contains(dot, "->") {
		t.Fatalf("missing edges: %s", dot)
	}
}
