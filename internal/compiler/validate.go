package compiler

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/reach/internal/ir"
)

// Validation codes. Errors (E1xx) make a network unusable; warnings (W2xx)
// flag definitions that compile but probably do not mean what was written.
const (
	// General validation errors (E100)
	ErrUnsupportedSpecType = "E100" // unsupported value passed to Validate

	// NetworkSpec errors (E101-E109)
	ErrNetworkNameEmpty = "E101" // network name is required
	ErrStationNameEmpty = "E102" // station names must be non-empty
	ErrLineEmpty        = "E103" // route line label is required
	ErrNegativeCeiling  = "E104" // ceiling must be >= 0
	ErrDuplicateStation = "E105" // station declared twice
	ErrSeparatorInLabel = "E106" // line label contains the composed-route separator

	// NetworkSpec warnings (W201-W209)
	WarnDuplicateLine = "W201" // second route under the same line replaces the first
	WarnNegativeTime  = "W202" // negative travel time
	WarnIsolated      = "W203" // declared station with no routes
	WarnNormalization = "W204" // names equal only after Unicode normalization
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a schema validation finding.
type ValidationError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Line     int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsError reports whether the finding makes the network unusable.
func (e ValidationError) IsError() bool {
	return e.Severity != SeverityWarning
}

// Validate validates a compiled network against schema rules.
// Returns all findings (does not fail-fast), errors and warnings alike.
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *NetworkSpec:
		return validateNetworkSpec(spec)
	case NetworkSpec:
		return validateNetworkSpec(&spec)
	default:
		return []ValidationError{{
			Field:    "type",
			Message:  fmt.Sprintf("unsupported spec type: %T", v),
			Code:     ErrUnsupportedSpecType,
			Severity: SeverityError,
		}}
	}
}

// HasErrors reports whether any finding is an error.
func HasErrors(findings []ValidationError) bool {
	for _, f := range findings {
		if f.IsError() {
			return true
		}
	}
	return false
}

func validateNetworkSpec(spec *NetworkSpec) []ValidationError {
	var errs []ValidationError

	// E101: name is required
	if strings.TrimSpace(spec.Name) == "" {
		errs = append(errs, ValidationError{
			Field:    "name",
			Message:  "network name is required and must be non-empty",
			Code:     ErrNetworkNameEmpty,
			Severity: SeverityError,
			Line:     spec.Pos.Line(),
		})
	}

	// E104: ceiling must be non-negative
	if spec.Ceiling != nil && *spec.Ceiling < 0 {
		errs = append(errs, ValidationError{
			Field:    "ceiling",
			Message:  fmt.Sprintf("ceiling must be >= 0, got %d", *spec.Ceiling),
			Code:     ErrNegativeCeiling,
			Severity: SeverityError,
			Line:     spec.Pos.Line(),
		})
	}

	declared := make(map[string]bool)
	for i, name := range spec.Stations {
		// E102: empty station name
		if strings.TrimSpace(name) == "" {
			errs = append(errs, ValidationError{
				Field:    fmt.Sprintf("stations[%d]", i),
				Message:  "station name must be non-empty",
				Code:     ErrStationNameEmpty,
				Severity: SeverityError,
			})
			continue
		}
		// E105: duplicate station
		if declared[name] {
			errs = append(errs, ValidationError{
				Field:    fmt.Sprintf("stations[%d]", i),
				Message:  fmt.Sprintf("duplicate station: %q", name),
				Code:     ErrDuplicateStation,
				Severity: SeverityError,
			})
		}
		declared[name] = true
	}

	used := make(map[string]bool)
	lines := make(map[[2]string]int) // (from, line) → first route index
	for i, r := range spec.Routes {
		field := fmt.Sprintf("routes[%d]", i)
		line := r.Pos.Line()

		// E102: empty endpoints
		if strings.TrimSpace(r.From) == "" || strings.TrimSpace(r.To) == "" {
			errs = append(errs, ValidationError{
				Field:    field,
				Message:  "route endpoints must be non-empty station names",
				Code:     ErrStationNameEmpty,
				Severity: SeverityError,
				Line:     line,
			})
		}
		used[r.From] = true
		used[r.To] = true

		// E103: line label required
		if strings.TrimSpace(r.Line) == "" {
			errs = append(errs, ValidationError{
				Field:    field + ".line",
				Message:  "line label is required",
				Code:     ErrLineEmpty,
				Severity: SeverityError,
				Line:     line,
			})
		}

		// E106: separator reserved for composed routes
		if strings.Contains(r.Line, ir.LabelSeparator) {
			errs = append(errs, ValidationError{
				Field:    field + ".line",
				Message:  fmt.Sprintf("line %q contains reserved separator %q", r.Line, ir.LabelSeparator),
				Code:     ErrSeparatorInLabel,
				Severity: SeverityError,
				Line:     line,
			})
		}

		// W201: same line twice from one station
		key := [2]string{r.From, r.Line}
		if first, ok := lines[key]; ok {
			errs = append(errs, ValidationError{
				Field:    field + ".line",
				Message:  fmt.Sprintf("line %q from %q already defined by routes[%d]; this route replaces it", r.Line, r.From, first),
				Code:     WarnDuplicateLine,
				Severity: SeverityWarning,
				Line:     line,
			})
		} else {
			lines[key] = i
		}

		// W202: negative time
		if r.Time < 0 {
			errs = append(errs, ValidationError{
				Field:    field + ".time",
				Message:  fmt.Sprintf("negative travel time %d", r.Time),
				Code:     WarnNegativeTime,
				Severity: SeverityWarning,
				Line:     line,
			})
		}
	}

	// W203: isolated declared stations
	for i, name := range spec.Stations {
		if name != "" && !used[name] {
			errs = append(errs, ValidationError{
				Field:    fmt.Sprintf("stations[%d]", i),
				Message:  fmt.Sprintf("station %q has no routes", name),
				Code:     WarnIsolated,
				Severity: SeverityWarning,
			})
		}
	}

	errs = append(errs, normalizationFindings(spec)...)
	return errs
}

// normalizationFindings reports station names and per-origin line labels
// that differ in bytes but not in NFC form. They are distinct to the
// engine, which compares exact strings.
func normalizationFindings(spec *NetworkSpec) []ValidationError {
	var findings []ValidationError

	stations := make(map[string]string) // NFC form → first spelling
	checkStation := func(name, field string, line int) {
		key := norm.NFC.String(name)
		first, ok := stations[key]
		if !ok {
			stations[key] = name
			return
		}
		if first != name {
			findings = append(findings, ValidationError{
				Field:    field,
				Message:  fmt.Sprintf("station %+q differs from %+q only in Unicode normalization; they are different stations", name, first),
				Code:     WarnNormalization,
				Severity: SeverityWarning,
				Line:     line,
			})
		}
	}

	for i, name := range spec.Stations {
		checkStation(name, fmt.Sprintf("stations[%d]", i), 0)
	}

	lines := make(map[[2]string]string) // (origin, NFC line) → first spelling
	for i, r := range spec.Routes {
		field := fmt.Sprintf("routes[%d]", i)
		checkStation(r.From, field+".from", r.Pos.Line())
		checkStation(r.To, field+".to", r.Pos.Line())

		key := [2]string{r.From, norm.NFC.String(r.Line)}
		first, ok := lines[key]
		if !ok {
			lines[key] = r.Line
			continue
		}
		if first != r.Line {
			findings = append(findings, ValidationError{
				Field:    field + ".line",
				Message:  fmt.Sprintf("line %+q from %q differs from %+q only in Unicode normalization; both routes are kept", r.Line, r.From, first),
				Code:     WarnNormalization,
				Severity: SeverityWarning,
				Line:     r.Pos.Line(),
			})
		}
	}

	return findings
}
