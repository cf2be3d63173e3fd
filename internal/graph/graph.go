// Package graph models operations and their prerequisites as a directed
// acyclic graph, computes execution orders and parallel layers, and detects
// cycles or missing references. It adds explicit node/edge storage, a cycle
// witness, deterministic tie-breaking, layering, and backward-reachability
// subsetting on top of the usual fixed-point dependency resolution.
package graph

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Graph stores operation identifiers as nodes and dependency→dependent
// edges. It is safe for concurrent use, though in practice a Graph is built
// once at plan time and treated as immutable afterward (per the shared-
// resource policy).
type Graph struct {
	mu       sync.RWMutex
	nodes    map[string]bool
	// deps[x] is the set of nodes x directly depends on.
	deps map[string]map[string]bool
	// dependents[x] is the set of nodes that directly depend on x.
	dependents map[string]map[string]bool
	// order preserves node insertion order for deterministic iteration
	// when no other tie-break applies.
	order []string
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		nodes:      make(map[string]bool),
		deps:       make(map[string]map[string]bool),
		dependents: make(map[string]map[string]bool),
	}
}

// AddNode registers op if not already present. Idempotent.
func (g *Graph) AddNode(op string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addNodeLocked(op)
}

func (g *Graph) addNodeLocked(op string) {
	if g.nodes[op] {
		return
	}
	g.nodes[op] = true
	g.deps[op] = make(map[string]bool)
	g.dependents[op] = make(map[string]bool)
	g.order = append(g.order, op)
}

// AddEdge records that `to` depends on `from` — from must complete before
// to. Both nodes are added if absent.
func (g *Graph) AddEdge(from, to string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addNodeLocked(from)
	g.addNodeLocked(to)
	g.deps[to][from] = true
	g.dependents[from][to] = true
}

// Nodes returns every registered node identifier, in insertion order.
func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// DependenciesOf returns the direct dependencies of op.
func (g *Graph) DependenciesOf(op string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.deps[op])
}

// DependentsOf returns the direct dependents of op.
func (g *Graph) DependentsOf(op string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependents[op])
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CycleError carries the witness path returned by HasCycle.
type CycleError struct {
	Witness []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %s", strings.Join(e.Witness, " -> "))
}

// HasCycle reports whether the graph contains a cycle. When it does, err is
// a *CycleError whose Witness is a concrete cycle, e.g. [A, B, C, A].
func (g *Graph) HasCycle() (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(node string) *CycleError
	visit = func(node string) *CycleError {
		state[node] = visiting
		stack = append(stack, node)
		for _, dep := range sortedKeys(g.dependents[node]) {
			switch state[dep] {
			case unvisited:
				if cyc := visit(dep); cyc != nil {
					return cyc
				}
			case visiting:
				// Found the back-edge; extract the cycle from the stack.
				idx := indexOf(stack, dep)
				witness := append([]string{}, stack[idx:]...)
				witness = append(witness, dep)
				return &CycleError{Witness: witness}
			}
		}
		stack = stack[:len(stack)-1]
		state[node] = done
		return nil
	}

	for _, n := range g.order {
		if state[n] == unvisited {
			if cyc := visit(n); cyc != nil {
				return true, cyc
			}
		}
	}
	return false, nil
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// TopologicalOrder returns a linearization where every dependency precedes
// its dependents. Ties are broken first by fewer dependents (mutating
// operations surface before widely-depended-on reads when equally free),
// then lexicographically by identifier, guaranteeing determinism across
// runs. Returns a *CycleError if the graph is cyclic.
func (g *Graph) TopologicalOrder() ([]string, error) {
	if cyc, err := g.HasCycle(); cyc {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	remaining := make(map[string]int, len(g.nodes)) // count of unresolved deps
	for n := range g.nodes {
		remaining[n] = len(g.deps[n])
	}

	var result []string
	resolved := make(map[string]bool, len(g.nodes))

	for len(result) < len(g.order) {
		ready := make([]string, 0)
		for _, n := range g.order {
			if resolved[n] {
				continue
			}
			if remaining[n] == 0 {
				ready = append(ready, n)
			}
		}
		if len(ready) == 0 {
			// Should not happen given HasCycle() already passed, but guard
			// against a validation bug rather than looping forever.
			return nil, fmt.Errorf("graph: no ready nodes but %d unresolved remain", len(g.order)-len(result))
		}
		sort.Slice(ready, func(i, j int) bool {
			di, dj := len(g.dependents[ready[i]]), len(g.dependents[ready[j]])
			if di != dj {
				return di < dj
			}
			return ready[i] < ready[j]
		})
		for _, n := range ready {
			result = append(result, n)
			resolved[n] = true
			for _, dep := range sortedKeys(g.dependents[n]) {
				remaining[dep]--
			}
		}
	}
	return result, nil
}

// ParallelLayers returns a sequence of groups: group 0 is every node with no
// dependencies; group k+1 is every node all of whose dependencies are in
// groups 0..k. Nodes within a group have no pairwise dependency and are
// eligible for concurrent dispatch.
func (g *Graph) ParallelLayers() ([][]string, error) {
	if cyc, err := g.HasCycle(); cyc {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	remaining := make(map[string]int, len(g.nodes))
	for n := range g.nodes {
		remaining[n] = len(g.deps[n])
	}

	var layers [][]string
	resolved := make(map[string]bool, len(g.nodes))

	for len(resolved) < len(g.nodes) {
		var layer []string
		for _, n := range g.order {
			if !resolved[n] && remaining[n] == 0 {
				layer = append(layer, n)
			}
		}
		if len(layer) == 0 {
			return nil, fmt.Errorf("graph: unable to form next layer; %d nodes unresolved", len(g.nodes)-len(resolved))
		}
		sort.Strings(layer)
		layers = append(layers, layer)
		for _, n := range layer {
			resolved[n] = true
		}
		for _, n := range layer {
			for _, dep := range sortedKeys(g.dependents[n]) {
				remaining[dep]--
			}
		}
	}
	return layers, nil
}

// MinimalSubset returns every operation reachable by walking dependencies
// backward from goal, in topological order. If goal is not a node, returns
// an empty slice.
func (g *Graph) MinimalSubset(goal string) []string {
	g.mu.RLock()
	if !g.nodes[goal] {
		g.mu.RUnlock()
		return nil
	}

	reachable := make(map[string]bool)
	var walk func(n string)
	walk = func(n string) {
		if reachable[n] {
			return
		}
		reachable[n] = true
		for _, dep := range sortedKeys(g.deps[n]) {
			walk(dep)
		}
	}
	walk(goal)
	g.mu.RUnlock()

	full, err := g.TopologicalOrder()
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(reachable))
	for _, n := range full {
		if reachable[n] {
			out = append(out, n)
		}
	}
	return out
}

// MissingReference names an operation that declares a dependency on an
// operation absent from the registered contract set.
type MissingReference struct {
	Operation string
	Missing   string
}

// Validate checks that for every node, every prerequisite edge target it
// was built from (tracked by the caller via contracts) is present in the
// graph. contractDeps maps each operation to the dependency identifiers its
// contract declares; Validate reports any that were never added as nodes,
// i.e. edges the contract set referenced but the graph never materialized.
func (g *Graph) Validate(contractDeps map[string][]string) []MissingReference {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var missing []MissingReference
	ops := make([]string, 0, len(contractDeps))
	for op := range contractDeps {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	for _, op := range ops {
		for _, dep := range contractDeps[op] {
			if !g.nodes[dep] {
				missing = append(missing, MissingReference{Operation: op, Missing: dep})
			}
		}
	}
	return missing
}

// DebugRepr returns a deterministic, human-readable textual dump of the
// graph's nodes and edges, grouped by parallel layer where possible. It is
// the implementation behind the control API's dependency-visualization
// operation: not meant to be parsed, only read.
func (g *Graph) DebugRepr() string {
	var buf strings.Builder

	layers, err := g.ParallelLayers()
	if err != nil {
		fmt.Fprintf(&buf, "graph is not orderable: %v\n", err)
		g.mu.RLock()
		for _, n := range g.order {
			fmt.Fprintf(&buf, "node %s deps=%s\n", n, strings.Join(sortedKeys(g.deps[n]), ","))
		}
		g.mu.RUnlock()
		return buf.String()
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	for i, layer := range layers {
		fmt.Fprintf(&buf, "layer[%d] = {%s}\n", i, strings.Join(layer, ", "))
	}
	buf.WriteByte('\n')
	for _, n := range g.order {
		deps := sortedKeys(g.deps[n])
		fmt.Fprintf(&buf, "%s <- [%s]\n", n, strings.Join(deps, ", "))
	}
	return buf.String()
}
