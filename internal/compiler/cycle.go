package compiler

import (
	"fmt"
	"strings"
)

// CycleWarning reports a loop in the route graph.
//
// Loops are not errors: the closure of a loop within the ceiling contains
// round-trip facts such as (A, A, "L1 + L2", 40), which is often surprising
// but always well defined.
type CycleWarning struct {
	Path    []string `json:"path"`    // station loop: ["A", "B", "A"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles finds station loops in a network definition.
//
// The algorithm:
//  1. Build the station graph from the routes
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop
//
// Stations are visited in declaration order, so the output is stable.
func AnalyzeCycles(spec *NetworkSpec) []CycleWarning {
	g := buildStationGraph(spec)
	if len(g.order) == 0 {
		return []CycleWarning{}
	}

	warnings := []CycleWarning{}
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || (len(scc) == 1 && g.hasSelfLoop(scc[0])) {
			warnings = append(warnings, cycleSCCToWarning(scc, g))
		}
	}
	return warnings
}

// stationGraph maps station → stations reachable by one route.
type stationGraph struct {
	order []string
	next  map[string][]string
}

func buildStationGraph(spec *NetworkSpec) stationGraph {
	g := stationGraph{next: make(map[string][]string)}
	add := func(name string) {
		if _, ok := g.next[name]; !ok {
			g.next[name] = []string{}
			g.order = append(g.order, name)
		}
	}

	for _, name := range spec.Stations {
		add(name)
	}
	for _, r := range spec.Routes {
		add(r.From)
		add(r.To)
		g.next[r.From] = append(g.next[r.From], r.To)
	}
	return g
}

func (g stationGraph) hasSelfLoop(node string) bool {
	for _, neighbor := range g.next[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(g stationGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.next[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func cycleSCCToWarning(scc []string, g stationGraph) CycleWarning {
	if len(scc) == 1 {
		station := scc[0]
		return CycleWarning{
			Path:    []string{station, station},
			Message: fmt.Sprintf("Route loops back to its own station: %s → %s", station, station),
			Level:   "info",
		}
	}

	path := reconstructCyclePath(scc, g)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Stations form a loop: %s", strings.Join(path, " → ")),
		Level:   "info",
	}
}

// reconstructCyclePath finds a loop through the SCC's earliest-declared
// member. It searches depth first in route order and backs out of dead
// ends, so the returned path always ends at the station it starts from.
func reconstructCyclePath(scc []string, g stationGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	for _, name := range g.order {
		if sccSet[name] {
			start = name
			break
		}
	}

	path := []string{start}
	visited := map[string]bool{start: true}

	var walk func(current string) bool
	walk = func(current string) bool {
		for _, neighbor := range g.next[current] {
			if !sccSet[neighbor] {
				continue
			}
			if neighbor == start {
				path = append(path, start)
				return true
			}
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			path = append(path, neighbor)
			if walk(neighbor) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}

	if walk(start) {
		return path
	}
	// Unreachable for a real SCC; report its members as a closed list.
	members := append([]string{}, scc...)
	return append(members, members[0])
}
