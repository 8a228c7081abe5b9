// Package network models a transit network: named stations joined by
// directed, labeled, weighted routes.
//
// A Network is built once, before inference starts, and is read-only from
// then on. No validation is performed: negative travel times and repeated
// labels across different origins are accepted as given.
package network

import "github.com/roach88/reach/internal/ir"

// Route is the destination and travel time registered under one line label.
type Route struct {
	Line        string
	Destination string
	Time        int64
}

// Station is a named node with at most one route per line label.
type Station struct {
	Name string

	lines  []string         // line labels in first-insertion order
	routes map[string]Route // line label → route
}

func newStation(name string) *Station {
	return &Station{Name: name, routes: make(map[string]Route)}
}

// AddRoute registers a route under line. A second route under the same line
// replaces the first but keeps its position.
func (s *Station) AddRoute(line, destination string, time int64) {
	if _, exists := s.routes[line]; !exists {
		s.lines = append(s.lines, line)
	}
	s.routes[line] = Route{Line: line, Destination: destination, Time: time}
}

// Routes returns the station's routes in line insertion order.
func (s *Station) Routes() []Route {
	out := make([]Route, 0, len(s.lines))
	for _, line := range s.lines {
		out = append(out, s.routes[line])
	}
	return out
}

// Network is an ordered set of stations.
type Network struct {
	Name string

	order    []string
	stations map[string]*Station
}

// New creates an empty network.
func New(name string) *Network {
	return &Network{
		Name:     name,
		stations: make(map[string]*Station),
	}
}

// AddStation registers a station and returns it. Registering an existing
// name returns the existing station unchanged.
func (n *Network) AddStation(name string) *Station {
	if s, ok := n.stations[name]; ok {
		return s
	}
	s := newStation(name)
	n.stations[name] = s
	n.order = append(n.order, name)
	return s
}

// AddRoute creates or overwrites the route under line on origin. Stations
// not seen before are registered, origin first.
func (n *Network) AddRoute(origin, line, destination string, time int64) {
	o := n.AddStation(origin)
	n.AddStation(destination)
	o.AddRoute(line, destination, time)
}

// Station looks up a station by name.
func (n *Network) Station(name string) (*Station, bool) {
	s, ok := n.stations[name]
	return s, ok
}

// Stations returns the stations in registration order.
func (n *Network) Stations() []*Station {
	out := make([]*Station, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.stations[name])
	}
	return out
}

// Edges enumerates every route as a direct fact, in station registration
// order and, within a station, in route insertion order.
func (n *Network) Edges() []ir.Fact {
	var edges []ir.Fact
	for _, name := range n.order {
		for _, r := range n.stations[name].Routes() {
			edges = append(edges, ir.Fact{
				Origin:      name,
				Destination: r.Destination,
				Label:       r.Line,
				Cost:        r.Time,
			})
		}
	}
	return edges
}

// Len returns the number of stations.
func (n *Network) Len() int {
	return len(n.order)
}
