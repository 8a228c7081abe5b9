package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/reach/internal/network"
)

// RouteSpec is one route as written in a network definition.
type RouteSpec struct {
	From string `json:"from"`
	Line string `json:"line"`
	To   string `json:"to"`
	Time int64  `json:"time"`

	Pos token.Pos `json:"-"`
}

// NetworkSpec is a compiled network definition.
//
// Stations lists the explicitly declared stations, in order. Stations that
// only appear in routes are registered implicitly when the network is built.
type NetworkSpec struct {
	Name     string      `json:"name"`
	Ceiling  *int64      `json:"ceiling,omitempty"`
	Stations []string    `json:"stations,omitempty"`
	Routes   []RouteSpec `json:"routes"`

	Pos token.Pos `json:"-"`
}

// Build constructs the runtime network: declared stations first, then each
// route in order.
func (s *NetworkSpec) Build() *network.Network {
	net := network.New(s.Name)
	for _, name := range s.Stations {
		net.AddStation(name)
	}
	for _, r := range s.Routes {
		net.AddRoute(r.From, r.Line, r.To, r.Time)
	}
	return net
}

// CeilingOr returns the declared ceiling, or def when none was declared.
func (s *NetworkSpec) CeilingOr(def int64) int64 {
	if s.Ceiling == nil {
		return def
	}
	return *s.Ceiling
}

// CompileNetwork parses a CUE value into a NetworkSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the network struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`network: Galactic: { routes: [...] }`)
//	spec, err := CompileNetwork(v.LookupPath(cue.ParsePath("network.Galactic")))
func CompileNetwork(v cue.Value) (*NetworkSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &NetworkSpec{Pos: v.Pos()}

	// Name comes from the struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].Unquoted()
	}

	ceilingVal := v.LookupPath(cue.ParsePath("ceiling"))
	if ceilingVal.Exists() {
		c, err := extractInt(ceilingVal, "ceiling")
		if err != nil {
			return nil, err
		}
		spec.Ceiling = &c
	}

	stations, err := parseStations(v)
	if err != nil {
		return nil, err
	}
	spec.Stations = stations

	routes, err := parseRoutes(v)
	if err != nil {
		return nil, err
	}
	spec.Routes = routes

	return spec, nil
}

// parseStations reads the optional list of declared stations.
func parseStations(v cue.Value) ([]string, error) {
	stationsVal := v.LookupPath(cue.ParsePath("stations"))
	if !stationsVal.Exists() {
		return nil, nil
	}

	iter, err := stationsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var stations []string
	for i := 0; iter.Next(); i++ {
		name, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("stations[%d]", i),
				Message: "station must be a string",
				Pos:     iter.Value().Pos(),
			}
		}
		stations = append(stations, name)
	}
	return stations, nil
}

// parseRoutes reads the route list. Routes are optional; a network with
// none is valid and has an empty closure.
func parseRoutes(v cue.Value) ([]RouteSpec, error) {
	routesVal := v.LookupPath(cue.ParsePath("routes"))
	if !routesVal.Exists() {
		return nil, nil
	}

	iter, err := routesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var routes []RouteSpec
	for i := 0; iter.Next(); i++ {
		r, err := parseRoute(iter.Value(), i)
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, nil
}

func parseRoute(v cue.Value, i int) (RouteSpec, error) {
	r := RouteSpec{Pos: v.Pos()}

	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"from", &r.From},
		{"line", &r.Line},
		{"to", &r.To},
	} {
		fv := v.LookupPath(cue.ParsePath(f.name))
		if !fv.Exists() {
			return r, &CompileError{
				Field:   fmt.Sprintf("routes[%d].%s", i, f.name),
				Message: f.name + " is required",
				Pos:     v.Pos(),
			}
		}
		s, err := fv.String()
		if err != nil {
			return r, formatCUEError(err)
		}
		*f.dst = s
	}

	timeVal := v.LookupPath(cue.ParsePath("time"))
	if !timeVal.Exists() {
		return r, &CompileError{
			Field:   fmt.Sprintf("routes[%d].time", i),
			Message: "time is required",
			Pos:     v.Pos(),
		}
	}
	t, err := extractInt(timeVal, fmt.Sprintf("routes[%d].time", i))
	if err != nil {
		return r, err
	}
	r.Time = t

	return r, nil
}

// extractInt reads a whole number. Floats are rejected: costs are whole
// minutes and fact identity depends on exact integer equality.
func extractInt(v cue.Value, field string) (int64, error) {
	switch v.IncompleteKind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return 0, formatCUEError(err)
		}
		return n, nil
	case cue.FloatKind, cue.NumberKind:
		return 0, &CompileError{
			Field:   field,
			Message: "float values are forbidden - use whole minutes",
			Pos:     v.Pos(),
		}
	default:
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("expected int, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
