package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reach/internal/ir"
	"github.com/roach88/reach/internal/network"
	"github.com/roach88/reach/internal/queryir"
)

// Scenario defines a closure test scenario: a network, how to run it, and
// what the converged fact store must look like.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Ceiling is the composition ceiling. Nil means the default.
	Ceiling *int64 `yaml:"ceiling,omitempty"`

	// MaxPasses bounds the engine run. Zero means the CLI default.
	MaxPasses int `yaml:"max_passes,omitempty"`

	// Stations are registered in order before any route.
	Stations []string `yaml:"stations,omitempty"`

	// Routes are added in order after the stations.
	Routes []RouteStep `yaml:"routes"`

	// Assertions validate the converged fact store.
	// Supported types: fact_present, fact_absent, fact_count, pair_count, max_cost
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run ID for deterministic tests.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// RouteStep is one route of the scenario network.
type RouteStep struct {
	From string `yaml:"from"`
	Line string `yaml:"line"`
	To   string `yaml:"to"`
	Time int64  `yaml:"time"`
}

// Assertion validates the final fact store.
type Assertion struct {
	// Type specifies the assertion type:
	// - "fact_present": some fact matches from/to and, if given, label/cost
	// - "fact_absent": no fact matches from/to and, if given, label/cost
	// - "fact_count": the store (optionally one kind) holds exactly Count facts
	// - "pair_count": exactly Count facts join from and to
	// - "max_cost": no fact costs more than Cost
	Type string `yaml:"type"`

	From  string `yaml:"from,omitempty"`
	To    string `yaml:"to,omitempty"`
	Label string `yaml:"label,omitempty"`

	// Cost is an exact cost for fact_present/fact_absent and the bound for
	// max_cost.
	Cost *int64 `yaml:"cost,omitempty"`

	// Count is the expected number of facts (fact_count, pair_count).
	Count *int `yaml:"count,omitempty"`

	// Kind restricts fact_count to "direct" or "composed" facts.
	Kind string `yaml:"kind,omitempty"`
}

// Assertion type constants.
const (
	AssertFactPresent = "fact_present"
	AssertFactAbsent  = "fact_absent"
	AssertFactCount   = "fact_count"
	AssertPairCount   = "pair_count"
	AssertMaxCost     = "max_cost"
)

// Network builds the scenario's network: stations first, then routes.
func (s *Scenario) Network() *network.Network {
	net := network.New(s.Name)
	for _, name := range s.Stations {
		net.AddStation(name)
	}
	for _, r := range s.Routes {
		net.AddRoute(r.From, r.Line, r.To, r.Time)
	}
	return net
}

// CeilingOr returns the scenario ceiling, or def when none is set.
func (s *Scenario) CeilingOr(def int64) int64 {
	if s.Ceiling == nil {
		return def
	}
	return *s.Ceiling
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Ceiling != nil && *s.Ceiling < 0 {
		return fmt.Errorf("ceiling must be non-negative, got %d", *s.Ceiling)
	}

	if s.MaxPasses < 0 {
		return fmt.Errorf("max_passes must be non-negative, got %d", s.MaxPasses)
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, name := range s.Stations {
		if name == "" {
			return fmt.Errorf("stations[%d]: name is required", i)
		}
	}

	for i, r := range s.Routes {
		if r.From == "" {
			return fmt.Errorf("routes[%d]: from is required", i)
		}
		if r.To == "" {
			return fmt.Errorf("routes[%d]: to is required", i)
		}
		if r.Line == "" {
			return fmt.Errorf("routes[%d]: line is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFactPresent, AssertFactAbsent:
		if a.From == "" || a.To == "" {
			return fmt.Errorf("assertions[%d]: from and to are required for %s", index, a.Type)
		}
	case AssertFactCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for fact_count", index)
		}
		if _, err := queryir.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertPairCount:
		if a.From == "" || a.To == "" {
			return fmt.Errorf("assertions[%d]: from and to are required for pair_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for pair_count", index)
		}
	case AssertMaxCost:
		if a.Cost == nil {
			return fmt.Errorf("assertions[%d]: cost is required for max_cost", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Kind != "" && a.Type != AssertFactCount {
		return fmt.Errorf("assertions[%d]: kind is only valid for fact_count", index)
	}

	return nil
}

// matches reports whether f satisfies the assertion's fact pattern.
func (a Assertion) matches(f ir.Fact) bool {
	if f.Origin != a.From || f.Destination != a.To {
		return false
	}
	if a.Label != "" && f.Label != a.Label {
		return false
	}
	if a.Cost != nil && f.Cost != *a.Cost {
		return false
	}
	return true
}
