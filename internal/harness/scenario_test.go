package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cadence/internal/period"
)

const minimalSteps = `
steps:
  - action: load
    period: weekly/2025-W11
assertions:
  - type: trace_count
    action: load
    count: 1
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte("name: m\ndescription: d\nowner: alice\n" + minimalSteps))
	require.NoError(t, err)
	assert.Equal(t, "m", s.Name)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, ActionLoad, s.Steps[0].Action)
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "description: d\nowner: a\n" + minimalSteps, "name is required"},
		{"missing owner", "name: n\ndescription: d\n" + minimalSteps, "owner is required"},
		{"unknown field", "name: n\ndescription: d\nowner: a\nflow: []\n" + minimalSteps, "failed to parse YAML"},
		{"bad now", "name: n\ndescription: d\nowner: a\nnow: yesterday\n" + minimalSteps, "now:"},
		{"no steps", "name: n\ndescription: d\nowner: a\nsteps: []\nassertions: [{type: trace_count, action: load}]\n", "steps list is required"},
		{"unknown action", `name: n
description: d
owner: a
steps: [{action: delete, period: weekly/2025-W11}]
assertions: [{type: trace_count, action: load}]
`, `unknown action "delete"`},
		{"bad period", `name: n
description: d
owner: a
steps: [{action: load, period: weekly/2025-W60}]
assertions: [{type: trace_count, action: load}]
`, "steps[0]"},
		{"set without field", `name: n
description: d
owner: a
steps: [{action: set, period: weekly/2025-W11}]
assertions: [{type: trace_count, action: load}]
`, "field is required"},
		{"unknown assertion", `name: n
description: d
owner: a
steps: [{action: init_profile}]
assertions: [{type: final_state}]
`, `unknown assertion type "final_state"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParsePeriod(t *testing.T) {
	key, err := ParsePeriod("quarterly/2025-Q2")
	require.NoError(t, err)
	assert.Equal(t, period.Key{Cadence: period.Quarterly, Year: 2025, Index: 2}, key)

	key, err = ParsePeriod("annual/2024")
	require.NoError(t, err)
	assert.Equal(t, period.Key{Cadence: period.Annual, Year: 2024}, key)

	_, err = ParsePeriod("2025-W11")
	assert.Error(t, err)
}
