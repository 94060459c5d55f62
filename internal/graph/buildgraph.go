package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/legion-labs/databuild-go/internal/domain"
)

// ErrCircularDependency is returned when the dependency graph has a cycle.
var ErrCircularDependency = errors.New("dependency graph contains a cycle")

// UnresolvedDependencyError reports a declared build dependency whose source
// resource is not present in the index, e.g. a referenced resource that was
// deleted from the project.
type UnresolvedDependencyError struct {
	Path domain.ResourcePathID
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("unresolved dependency: %s", e.Path)
}

// BuildGraph is the expanded dependency graph for one compile target:
// every path reachable from the target, with edges from dependencies to
// dependents. It is a pure snapshot of the index; expansion has no side
// effects.
type BuildGraph struct {
	nodes []domain.ResourcePathID
	index map[string]int
	edges map[int][]int // dependents of each node
}

// BuildGraph expands a compile target into its dependency graph, walking the
// target's transform chain and the declared dependencies recorded in the
// index. It fails if any source path in the graph is unknown to the index.
func (s *SourceIndex) BuildGraph(target domain.ResourcePathID) (*BuildGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g := &BuildGraph{
		index: make(map[string]int),
		edges: make(map[int][]int),
	}

	// Seed the work queue with the whole transform chain: derived paths of
	// the target are never referred to as dependencies, so they may be
	// absent from the index.
	var queue []domain.ResourcePathID
	for path, ok := target, true; ok; {
		queue = append(queue, path)
		path, ok = path.DirectDependency()
	}

	processed := make(map[string]bool)
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if processed[node.String()] {
			continue
		}
		processed[node.String()] = true
		own := g.nodeIndex(node)

		if info, ok := s.resources[node.String()]; ok {
			for _, dep := range info.dependencies {
				g.addEdge(g.nodeIndex(dep), own)
				if !processed[dep.String()] {
					queue = append(queue, dep)
				}
			}
		} else if direct, ok := node.DirectDependency(); ok {
			g.addEdge(g.nodeIndex(direct), own)
			if !processed[direct.String()] {
				queue = append(queue, direct)
			}
		}
	}

	for _, node := range g.nodes {
		if !node.IsSource() {
			continue
		}
		if _, ok := s.resources[node.String()]; !ok {
			return nil, &UnresolvedDependencyError{Path: node}
		}
	}
	return g, nil
}

func (g *BuildGraph) nodeIndex(path domain.ResourcePathID) int {
	if i, ok := g.index[path.String()]; ok {
		return i
	}
	i := len(g.nodes)
	g.nodes = append(g.nodes, path)
	g.index[path.String()] = i
	return i
}

func (g *BuildGraph) addEdge(from, to int) {
	for _, existing := range g.edges[from] {
		if existing == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

// Len returns the number of nodes in the graph.
func (g *BuildGraph) Len() int {
	return len(g.nodes)
}

// TopologicalOrder returns every node exactly once, dependencies before
// dependents. Ties break on the textual path, so the order is deterministic
// for a given snapshot. Returns ErrCircularDependency when no such order
// exists.
func (g *BuildGraph) TopologicalOrder() ([]domain.ResourcePathID, error) {
	inDegree := make([]int, len(g.nodes))
	for _, dependents := range g.edges {
		for _, to := range dependents {
			inDegree[to]++
		}
	}

	ready := make([]int, 0, len(g.nodes))
	for i, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, i)
		}
	}
	g.sortByPath(ready)

	ordered := make([]domain.ResourcePathID, 0, len(g.nodes))
	for len(ready) > 0 {
		node := ready[0]
		ready = ready[1:]
		ordered = append(ordered, g.nodes[node])
		for _, dependent := range g.edges[node] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
				g.sortByPath(ready)
			}
		}
	}

	if len(ordered) != len(g.nodes) {
		return nil, ErrCircularDependency
	}
	return ordered, nil
}

func (g *BuildGraph) sortByPath(indices []int) {
	sort.Slice(indices, func(i, j int) bool {
		return g.nodes[indices[i]].String() < g.nodes[indices[j]].String()
	})
}

// DOT renders the graph in Graphviz DOT format for diagnostics.
func (g *BuildGraph) DOT(label func(domain.ResourcePathID) string) string {
	if label == nil {
		label = domain.ResourcePathID.String
	}
	var b strings.Builder
	b.WriteString("digraph build {\n")
	for i, node := range g.nodes {
		fmt.Fprintf(&b, "  n%d [label=%q];\n", i, label(node))
	}
	for from := range g.nodes {
		for _, to := range g.edges[from] {
			fmt.Fprintf(&b, "  n%d -> n%d;\n", from, to)
		}
	}
	b.WriteString("}\n")
	return b.String()
}
