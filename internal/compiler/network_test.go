package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reach/internal/ir"
)

func compileString(t *testing.T, src, path string) (*NetworkSpec, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileNetwork(v.LookupPath(cue.ParsePath(path)))
}

func TestCompileNetworkBasic(t *testing.T) {
	spec, err := compileString(t, `
		network: Demo: {
			ceiling: 90
			stations: ["A", "B", "C"]
			routes: [
				{from: "A", line: "L1", to: "B", time: 50},
				{from: "B", line: "L2", to: "C", time: 40},
			]
		}
	`, "network.Demo")
	require.NoError(t, err)

	assert.Equal(t, "Demo", spec.Name)
	require.NotNil(t, spec.Ceiling)
	assert.Equal(t, int64(90), *spec.Ceiling)
	assert.Equal(t, []string{"A", "B", "C"}, spec.Stations)
	require.Len(t, spec.Routes, 2)
	assert.Equal(t, "A", spec.Routes[0].From)
	assert.Equal(t, "L1", spec.Routes[0].Line)
	assert.Equal(t, "B", spec.Routes[0].To)
	assert.Equal(t, int64(50), spec.Routes[0].Time)
}

func TestCompileNetworkQuotedName(t *testing.T) {
	spec, err := compileString(t, `
		network: "Far Far Away": {
			routes: [{from: "A", line: "L1", to: "B", time: 5}]
		}
	`, `network."Far Far Away"`)
	require.NoError(t, err)

	assert.Equal(t, "Far Far Away", spec.Name)
	assert.Nil(t, spec.Ceiling)
	assert.Equal(t, int64(120), spec.CeilingOr(120))
}

func TestCompileNetworkNoRoutes(t *testing.T) {
	spec, err := compileString(t, `
		network: Empty: {
			stations: ["Lonely"]
		}
	`, "network.Empty")
	require.NoError(t, err)

	assert.Empty(t, spec.Routes)
	net := spec.Build()
	assert.Equal(t, 1, net.Len())
	assert.Empty(t, net.Edges())
}

func TestCompileNetworkMissingRouteField(t *testing.T) {
	for _, field := range []string{"from", "line", "to", "time"} {
		t.Run(field, func(t *testing.T) {
			route := map[string]string{
				"from": `from: "A"`,
				"line": `line: "L1"`,
				"to":   `to: "B"`,
				"time": `time: 5`,
			}
			delete(route, field)
			body := ""
			for _, k := range []string{"from", "line", "to", "time"} {
				if v, ok := route[k]; ok {
					body += v + "\n"
				}
			}

			_, err := compileString(t, "network: Bad: routes: [{\n"+body+"}]", "network.Bad")

			require.Error(t, err)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "routes[0]."+field, ce.Field)
			assert.Contains(t, err.Error(), "required")
		})
	}
}

func TestCompileNetworkFloatTimeForbidden(t *testing.T) {
	_, err := compileString(t, `
		network: Bad: {
			routes: [{from: "A", line: "L1", to: "B", time: 2.5}]
		}
	`, "network.Bad")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "routes[0].time")
	assert.Contains(t, err.Error(), "float")
}

func TestCompileNetworkFloatCeilingForbidden(t *testing.T) {
	_, err := compileString(t, `
		network: Bad: {
			ceiling: 120.0
		}
	`, "network.Bad")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ceiling")
	assert.Contains(t, err.Error(), "float")
}

func TestCompileNetworkWrongTypes(t *testing.T) {
	_, err := compileString(t, `
		network: Bad: {
			routes: [{from: "A", line: "L1", to: "B", time: "ten"}]
		}
	`, "network.Bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected int")

	_, err = compileString(t, `
		network: Bad: {
			stations: ["A", 2]
		}
	`, "network.Bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stations[1]")
}

func TestCompileNetworkErrorHasPosition(t *testing.T) {
	_, err := compileString(t, `network: Bad: {
	routes: [{from: "A", line: "L1", to: "B", time: 1.5}]
}`, "network.Bad")

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Pos.IsValid())
	assert.Equal(t, 2, ce.Pos.Line())
}

func TestNetworkSpecBuild(t *testing.T) {
	spec := &NetworkSpec{
		Name:     "built",
		Stations: []string{"C", "A"},
		Routes: []RouteSpec{
			{From: "A", Line: "L1", To: "B", Time: 10},
			{From: "C", Line: "L2", To: "A", Time: 20},
			{From: "A", Line: "L1", To: "C", Time: 30},
		},
	}

	net := spec.Build()

	assert.Equal(t, "built", net.Name)
	assert.Equal(t, 3, net.Len())
	// Declared order wins; the repeated A/L1 route keeps its slot.
	assert.Equal(t, []ir.Fact{
		{Origin: "C", Destination: "A", Label: "L2", Cost: 20},
		{Origin: "A", Destination: "C", Label: "L1", Cost: 30},
	}, net.Edges())
}

func TestCompileErrorWithoutPosition(t *testing.T) {
	err := &CompileError{Field: "routes[0]", Message: "boom"}
	assert.Equal(t, "routes[0]: boom", err.Error())
}
