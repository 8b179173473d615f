// Package toposort orders named nodes so that every node comes after the
// nodes it depends on.
package toposort

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrCircularDependency is returned when the input contains a dependency cycle.
	ErrCircularDependency = errors.New("circular dependency detected")

	// ErrMissingDependency is returned when a required dependency is not found.
	ErrMissingDependency = errors.New("dependency not found")

	// ErrDuplicateNode is returned when two nodes share an ID.
	ErrDuplicateNode = errors.New("duplicate node")
)

// Node is anything with an ID and a list of IDs it depends on.
type Node interface {
	ID() string
	DependsOn() []string
}

// Sort performs a topological sort of nodes using Kahn's algorithm.
//
// Among nodes that are ready at the same time, the one that appears first in
// the input wins, so callers control tie-breaking through input order.
//
// A cycle yields an error wrapping ErrCircularDependency naming the nodes that
// could not be placed. Dependencies on unknown IDs yield ErrMissingDependency
// unless ignoreMissing is set, in which case those edges are dropped.
func Sort[T Node](nodes []T, ignoreMissing bool) ([]T, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.ID()]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNode, n.ID())
		}
		index[n.ID()] = i
	}

	dependents := make([][]int, len(nodes))
	pending := make([]int, len(nodes))
	for i, n := range nodes {
		for _, dep := range n.DependsOn() {
			if dep == n.ID() {
				return nil, fmt.Errorf("%w: self dependency at %q", ErrCircularDependency, dep)
			}
			j, ok := index[dep]
			if !ok {
				if ignoreMissing {
					continue
				}
				return nil, fmt.Errorf("dependency %q of %q: %w", dep, n.ID(), ErrMissingDependency)
			}
			dependents[j] = append(dependents[j], i)
			pending[i]++
		}
	}

	// ready is kept sorted by input position.
	ready := make([]int, 0, len(nodes))
	for i := range nodes {
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}

	result := make([]T, 0, len(nodes))
	for len(ready) > 0 {
		cur := ready[0]
		ready = ready[1:]
		result = append(result, nodes[cur])
		for _, d := range dependents[cur] {
			pending[d]--
			if pending[d] == 0 {
				pos, _ := slices.BinarySearch(ready, d)
				ready = slices.Insert(ready, pos, d)
			}
		}
	}

	if len(result) != len(nodes) {
		var stuck []string
		for i, n := range nodes {
			if pending[i] > 0 {
				stuck = append(stuck, n.ID())
			}
		}
		return nil, fmt.Errorf("%w: cycle among nodes: %v", ErrCircularDependency, stuck)
	}

	return result, nil
}
