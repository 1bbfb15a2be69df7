// Package graph plans stage execution: the transitive predecessor closure
// of a target, ordered so every stage follows all of its predecessors.
//
// A Graph is immutable and validated on construction. Ties between
// independent stages are broken by declaration order, so plans are
// deterministic.
package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pithecene-io/genoa/types"
)

// Node is one declared stage and its predecessors.
type Node struct {
	Name  string
	Needs []string
}

// Graph is a validated, acyclic dependency graph.
type Graph struct {
	names []string       // declaration order
	index map[string]int // name → declaration index
	needs [][]int        // by index, ascending
}

// New builds a graph from nodes. When keep is non-nil only nodes for which
// it returns true are included, and needs on excluded nodes are dropped.
//
// New rejects empty or duplicate names, needs on undeclared nodes,
// self-loops and cycles, all as *types.DependencyError.
func New(nodes []Node, keep func(name string) bool) (*Graph, error) {
	declared := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.Name == "" {
			return nil, &types.DependencyError{Msg: "stage name is required"}
		}
		if declared[n.Name] {
			return nil, &types.DependencyError{Stage: n.Name, Msg: "declared more than once"}
		}
		declared[n.Name] = true
	}

	g := &Graph{index: make(map[string]int, len(nodes))}
	var kept []Node
	for _, n := range nodes {
		for _, need := range n.Needs {
			if !declared[need] {
				return nil, &types.DependencyError{Stage: n.Name, Predecessor: need, Msg: "predecessor is not declared"}
			}
			if need == n.Name {
				return nil, &types.DependencyError{Stage: n.Name, Predecessor: need, Msg: "stage depends on itself"}
			}
		}
		if keep != nil && !keep(n.Name) {
			continue
		}
		g.index[n.Name] = len(g.names)
		g.names = append(g.names, n.Name)
		kept = append(kept, n)
	}

	g.needs = make([][]int, len(kept))
	for i, n := range kept {
		for _, need := range n.Needs {
			j, ok := g.index[need]
			if !ok {
				continue
			}
			if !slices.Contains(g.needs[i], j) {
				g.needs[i] = append(g.needs[i], j)
			}
		}
		slices.Sort(g.needs[i])
	}

	if err := g.validateAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

// Names returns the included node names in declaration order.
func (g *Graph) Names() []string { return slices.Clone(g.names) }

// Has reports whether name is included in the graph.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Needs returns the effective predecessors of name in declaration order.
func (g *Graph) Needs(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	out := make([]string, len(g.needs[i]))
	for k, j := range g.needs[i] {
		out[k] = g.names[j]
	}
	return out
}

// Plan returns target and its transitive predecessors, each exactly once,
// in a topological order. Among stages whose predecessors are all placed,
// the earliest declared goes first. An unknown target is a
// *types.ConfigurationError.
func (g *Graph) Plan(target string) ([]string, error) {
	t, ok := g.index[target]
	if !ok {
		return nil, types.Configf("target", "stage %q is not part of this pipeline", target)
	}

	inClosure := make([]bool, len(g.names))
	stack := []int{t}
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if inClosure[u] {
			continue
		}
		inClosure[u] = true
		stack = append(stack, g.needs[u]...)
	}

	order := g.topoOrder(inClosure)
	out := make([]string, len(order))
	for i, u := range order {
		out[i] = g.names[u]
	}
	return out, nil
}

// topoOrder is Kahn's algorithm restricted to the included indices, always
// picking the lowest ready index. It returns fewer indices than included
// when a cycle exists.
func (g *Graph) topoOrder(include []bool) []int {
	remaining := make([]int, len(g.names))
	dependents := make([][]int, len(g.names))
	total := 0
	for u := range g.names {
		if !include[u] {
			continue
		}
		total++
		for _, p := range g.needs[u] {
			if include[p] {
				remaining[u]++
				dependents[p] = append(dependents[p], u)
			}
		}
	}

	placed := make([]bool, len(g.names))
	order := make([]int, 0, total)
	for len(order) < total {
		next := -1
		for u := range g.names {
			if include[u] && !placed[u] && remaining[u] == 0 {
				next = u
				break
			}
		}
		if next < 0 {
			break
		}
		placed[next] = true
		order = append(order, next)
		for _, d := range dependents[next] {
			remaining[d]--
		}
	}
	return order
}

func (g *Graph) validateAcyclic() error {
	all := make([]bool, len(g.names))
	for i := range all {
		all[i] = true
	}
	order := g.topoOrder(all)
	if len(order) == len(g.names) {
		return nil
	}

	placed := make(map[int]bool, len(order))
	for _, u := range order {
		placed[u] = true
	}
	var stuck []string
	for u, name := range g.names {
		if !placed[u] {
			stuck = append(stuck, name)
		}
	}
	return &types.DependencyError{
		Stage: stuck[0],
		Msg:   fmt.Sprintf("dependency cycle among stages: %s", strings.Join(stuck, ", ")),
	}
}
