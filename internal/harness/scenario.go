package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cadence/internal/period"
)

// Scenario defines a review workflow scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Owner is the default authenticated owner for steps.
	Owner string `yaml:"owner"`

	// Now is the starting time of the scenario clock (RFC 3339).
	// If empty, testutil.DefaultTime is used.
	Now string `yaml:"now,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and store.
	Assertions []Assertion `yaml:"assertions"`
}

// Step actions.
const (
	ActionLoad        = "load"         // load the form for period
	ActionSet         = "set"          // set field to value
	ActionFill        = "fill"         // set every entry of values
	ActionSubmit      = "submit"       // submit the form
	ActionEdit        = "edit"         // make a submitted form editable
	ActionAPISubmit   = "api_submit"   // submit values directly to the service
	ActionInitProfile = "init_profile" // create the owner's profile
	ActionAdvance     = "advance"      // move the clock forward by duration
)

var knownActions = map[string]bool{
	ActionLoad: true, ActionSet: true, ActionFill: true, ActionSubmit: true,
	ActionEdit: true, ActionAPISubmit: true, ActionInitProfile: true, ActionAdvance: true,
}

// Step is one action in a scenario.
type Step struct {
	Action string `yaml:"action"`

	// Owner overrides the scenario owner. Use "-" for an unauthenticated step.
	Owner string `yaml:"owner,omitempty"`

	// Period is "<cadence>/<label>", e.g. "weekly/2025-W11" or "annual/2024".
	Period string `yaml:"period,omitempty"`

	Field    string            `yaml:"field,omitempty"`
	Value    string            `yaml:"value,omitempty"`
	Values   map[string]string `yaml:"values,omitempty"`
	Duration string            `yaml:"duration,omitempty"`

	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause checks a step's outcome. Unset fields are not checked.
type ExpectClause struct {
	// Outcome is "ok" or an error code such as VALIDATION_FAILED.
	Outcome  string `yaml:"outcome,omitempty"`
	State    string `yaml:"state,omitempty"`
	Created  *bool  `yaml:"created,omitempty"`
	Progress *int   `yaml:"progress,omitempty"`
	ReadOnly *bool  `yaml:"read_only,omitempty"`
}

// Assertion validates the trace or the final store.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Action  string   `yaml:"action,omitempty"`
	Outcome string   `yaml:"outcome,omitempty"`
	Actions []string `yaml:"actions,omitempty"`
	Count   int      `yaml:"count,omitempty"`

	Owner   string `yaml:"owner,omitempty"`
	Cadence string `yaml:"cadence,omitempty"`
	Period  string `yaml:"period,omitempty"`
	Field   string `yaml:"field,omitempty"`
	Area    string `yaml:"area,omitempty"`
	Equals  string `yaml:"equals,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertRecordCount   = "record_count"
	AssertRecordField   = "record_field"
	AssertNorthStar     = "north_star"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
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

// ParsePeriod parses "<cadence>/<label>".
func ParsePeriod(s string) (period.Key, error) {
	name, label, ok := strings.Cut(s, "/")
	if !ok {
		return period.Key{}, fmt.Errorf("period %q: want <cadence>/<label>", s)
	}
	c, err := period.ParseCadence(name)
	if err != nil {
		return period.Key{}, err
	}
	return period.ParseKey(c, label)
}

func (s *Scenario) startTime() (time.Time, error) {
	if s.Now == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s.Now)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Owner == "" {
		return fmt.Errorf("owner is required")
	}
	if _, err := s.startTime(); err != nil {
		return fmt.Errorf("now: %w", err)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	if !knownActions[st.Action] {
		return fmt.Errorf("steps[%d]: unknown action %q", index, st.Action)
	}

	switch st.Action {
	case ActionInitProfile:
		return nil
	case ActionAdvance:
		if _, err := time.ParseDuration(st.Duration); err != nil {
			return fmt.Errorf("steps[%d]: duration: %w", index, err)
		}
		return nil
	}

	if _, err := ParsePeriod(st.Period); err != nil {
		return fmt.Errorf("steps[%d]: %w", index, err)
	}
	switch st.Action {
	case ActionSet:
		if st.Field == "" {
			return fmt.Errorf("steps[%d]: field is required for set", index)
		}
	case ActionFill, ActionAPISubmit:
		if st.Values == nil {
			return fmt.Errorf("steps[%d]: values is required for %s", index, st.Action)
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertRecordCount:
		if _, err := period.ParseCadence(a.Cadence); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertRecordField:
		if _, err := ParsePeriod(a.Period); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for record_field", index)
		}
	case AssertNorthStar:
		if a.Area == "" {
			return fmt.Errorf("assertions[%d]: area is required for north_star", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
