package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/cadence/internal/canonical"
)

// TraceSnapshot is the golden-file form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts the snapshot for canonical.Marshal, which only
// handles maps, slices and primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"step":     ev.Step,
			"action":   ev.Action,
			"owner":    ev.Owner,
			"outcome":  ev.Outcome,
			"progress": ev.Progress,
		}
		if ev.Period != "" {
			m["period"] = ev.Period
		}
		if ev.State != "" {
			m["state"] = ev.State
		}
		if ev.RecordID != "" {
			m["record_id"] = ev.RecordID
		}
		trace[i] = m
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
	}
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{ScenarioName: name, Trace: result.Trace}
	data, err := canonical.Marshal(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
