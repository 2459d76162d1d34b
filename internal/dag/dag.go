// Package dag is a small directed acyclic graph used to order keyword
// evaluators by their annotation dependencies.
package dag

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Vertex is a node with a stable tie-breaking order.
type Vertex[T cmp.Ordered] struct {
	ID T
	// Order breaks ties between vertices whose dependencies are satisfied at
	// the same time; lower values come first.
	Order int
	// DependsOn holds the vertices that must precede this one.
	DependsOn map[T]struct{}
}

// DirectedAcyclicGraph keeps vertices keyed by ID.
type DirectedAcyclicGraph[T cmp.Ordered] struct {
	Vertices map[T]*Vertex[T]
}

// NewDirectedAcyclicGraph returns an empty graph.
func NewDirectedAcyclicGraph[T cmp.Ordered]() *DirectedAcyclicGraph[T] {
	return &DirectedAcyclicGraph[T]{Vertices: make(map[T]*Vertex[T])}
}

// AddVertex inserts a vertex. Duplicate IDs are rejected.
func (d *DirectedAcyclicGraph[T]) AddVertex(id T, order int) error {
	if _, ok := d.Vertices[id]; ok {
		return fmt.Errorf("node %v already exists", id)
	}
	d.Vertices[id] = &Vertex[T]{ID: id, Order: order, DependsOn: map[T]struct{}{}}
	return nil
}

// AddDependencies records that from must come after every vertex in deps.
func (d *DirectedAcyclicGraph[T]) AddDependencies(from T, deps []T) error {
	v, ok := d.Vertices[from]
	if !ok {
		return fmt.Errorf("node %v does not exist", from)
	}
	for _, dep := range deps {
		if dep == from {
			return fmt.Errorf("self references are not allowed: %v", from)
		}
		if _, ok := d.Vertices[dep]; !ok {
			return fmt.Errorf("node %v does not exist", dep)
		}
		v.DependsOn[dep] = struct{}{}
	}
	return nil
}

// CycleError reports a dependency cycle found while sorting.
type CycleError[T cmp.Ordered] struct {
	Cycle []T
}

func (e *CycleError[T]) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, id := range e.Cycle {
		parts[i] = fmt.Sprint(id)
	}
	return "graph contains a cycle: " + strings.Join(parts, " -> ")
}

// AsCycleError unwraps err into a *CycleError, or returns nil.
func AsCycleError[T cmp.Ordered](err error) *CycleError[T] {
	var ce *CycleError[T]
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}

// TopologicalSort returns the vertex IDs so that every vertex follows its
// dependencies. Among ready vertices the lowest Order wins, then the lowest ID.
func (d *DirectedAcyclicGraph[T]) TopologicalSort() ([]T, error) {
	indegree := make(map[T]int, len(d.Vertices))
	dependents := make(map[T][]T, len(d.Vertices))
	for id, v := range d.Vertices {
		indegree[id] = len(v.DependsOn)
		for dep := range v.DependsOn {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []T
	for id, n := range indegree {
		if n == 0 {
			ready = append(ready, id)
		}
	}

	less := func(a, b T) int {
		va, vb := d.Vertices[a], d.Vertices[b]
		if c := cmp.Compare(va.Order, vb.Order); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	}

	order := make([]T, 0, len(d.Vertices))
	for len(ready) > 0 {
		slices.SortFunc(ready, less)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(d.Vertices) {
		return nil, &CycleError[T]{Cycle: d.findCycle(indegree)}
	}
	return order, nil
}

// findCycle walks the vertices that were never released and returns one
// closed path through them.
func (d *DirectedAcyclicGraph[T]) findCycle(indegree map[T]int) []T {
	var start T
	var remaining []T
	for id, n := range indegree {
		if n > 0 {
			remaining = append(remaining, id)
		}
	}
	if len(remaining) == 0 {
		return nil
	}
	slices.Sort(remaining)
	start = remaining[0]

	seen := map[T]int{}
	path := []T{}
	cur := start
	for {
		if i, ok := seen[cur]; ok {
			return append(path[i:], cur)
		}
		seen[cur] = len(path)
		path = append(path, cur)
		var deps []T
		for dep := range d.Vertices[cur].DependsOn {
			if indegree[dep] > 0 {
				deps = append(deps, dep)
			}
		}
		if len(deps) == 0 {
			return path
		}
		slices.Sort(deps)
		cur = deps[0]
	}
}
