package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(findings []ValidationError) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Code
	}
	return out
}

func ceiling(n int64) *int64 { return &n }

func TestValidateValidNetwork(t *testing.T) {
	spec := &NetworkSpec{
		Name:     "ok",
		Ceiling:  ceiling(120),
		Stations: []string{"A", "B"},
		Routes: []RouteSpec{
			{From: "A", Line: "L1", To: "B", Time: 10},
			{From: "B", Line: "L1", To: "C", Time: 10},
		},
	}

	assert.Empty(t, Validate(spec))
	assert.Empty(t, Validate(*spec))
}

func TestValidateCollectsAllErrors(t *testing.T) {
	spec := &NetworkSpec{
		Name:     " ",
		Ceiling:  ceiling(-1),
		Stations: []string{"A", "", "A"},
		Routes: []RouteSpec{
			{From: "", Line: "", To: "B", Time: 10},
			{From: "A", Line: "x + y", To: "B", Time: 10},
		},
	}

	findings := Validate(spec)

	assert.Equal(t, []string{
		ErrNetworkNameEmpty,
		ErrNegativeCeiling,
		ErrStationNameEmpty,
		ErrDuplicateStation,
		ErrStationNameEmpty,
		ErrLineEmpty,
		ErrSeparatorInLabel,
	}, codes(findings))
	assert.True(t, HasErrors(findings))
}

func TestValidateWarnings(t *testing.T) {
	spec := &NetworkSpec{
		Name:     "warn",
		Stations: []string{"A", "B", "Lonely"},
		Routes: []RouteSpec{
			{From: "A", Line: "L1", To: "B", Time: 10},
			{From: "A", Line: "L1", To: "C", Time: -5},
		},
	}

	findings := Validate(spec)

	assert.Equal(t, []string{WarnDuplicateLine, WarnNegativeTime, WarnIsolated}, codes(findings))
	assert.False(t, HasErrors(findings))
	for _, f := range findings {
		assert.Equal(t, SeverityWarning, f.Severity)
		assert.False(t, f.IsError())
	}
	assert.Contains(t, findings[0].Message, "routes[0]")
	assert.Contains(t, findings[2].Message, "Lonely")
}

func TestValidateUnsupportedType(t *testing.T) {
	findings := Validate("not a spec")

	require.Len(t, findings, 1)
	assert.Equal(t, ErrUnsupportedSpecType, findings[0].Code)
	assert.True(t, findings[0].IsError())
}

func TestValidationErrorFormat(t *testing.T) {
	withLine := ValidationError{Field: "routes[0].line", Message: "line label is required", Code: ErrLineEmpty, Line: 4}
	withoutLine := ValidationError{Field: "name", Message: "missing", Code: ErrNetworkNameEmpty}

	assert.Equal(t, "[E103] line 4: routes[0].line: line label is required", withLine.Error())
	assert.Equal(t, "[E101] name: missing", withoutLine.Error())
}

func TestValidateNormalizationVariants(t *testing.T) {
	spec := &NetworkSpec{
		Name:     "cafes",
		Stations: []string{"Caf\u00e9"},
		Routes: []RouteSpec{
			{From: "Caf\u00e9", Line: "Caf\u00e9 Line", To: "B", Time: 10},
			{From: "Caf\u00e9", Line: "Cafe\u0301 Line", To: "B", Time: 10},
			{From: "Cafe\u0301", Line: "L", To: "B", Time: 10},
		},
	}

	findings := Validate(spec)

	require.Equal(t, []string{WarnNormalization, WarnNormalization}, codes(findings))
	assert.False(t, HasErrors(findings))
	assert.Equal(t, "routes[1].line", findings[0].Field)
	assert.Equal(t, "routes[2].from", findings[1].Field)
}
