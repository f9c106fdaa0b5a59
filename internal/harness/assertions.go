package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/cadence/internal/identity"
	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/service"
)

// AssertionContext provides the service for store assertions.
type AssertionContext struct {
	Service *service.Service
	Owner   string
	Ctx     context.Context
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s -> %s\n", ev.Step, ev.Owner, ev.Action, ev.Period, ev.Outcome)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertRecordCount:
		return assertRecordCount(a, actx)
	case AssertRecordField:
		return assertRecordField(a, actx)
	case AssertNorthStar:
		return assertNorthStar(a, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func matches(ev TraceEvent, a Assertion) bool {
	if ev.Action != a.Action {
		return false
	}
	if a.Outcome != "" && ev.Outcome != a.Outcome {
		return false
	}
	if a.Period != "" && ev.Period != a.Period {
		return false
	}
	return true
}

// assertTraceContains checks that some step matches action (and outcome
// and period when given).
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if matches(ev, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s outcome %q", a.Action, a.Outcome),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that actions appear in order. Intervening steps
// are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Actions) && ev.Action == a.Actions[next] {
			next++
		}
	}
	if next == len(a.Actions) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("actions in order %v", a.Actions),
		Actual:   fmt.Sprintf("only the first %d found in order", next),
		Trace:    trace,
	}
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if matches(ev, a) {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s occurs %d time(s)", a.Action, a.Count),
		Actual:   fmt.Sprintf("%d time(s)", count),
		Trace:    trace,
	}
}

func (actx *AssertionContext) ctxFor(owner string) context.Context {
	if owner == "" {
		owner = actx.Owner
	}
	return identity.WithOwner(actx.Ctx, owner)
}

func assertRecordCount(a Assertion, actx *AssertionContext) error {
	c, err := period.ParseCadence(a.Cadence)
	if err != nil {
		return err
	}
	records, err := actx.Service.History(actx.ctxFor(a.Owner), c)
	if err != nil {
		return fmt.Errorf("record_count: %w", err)
	}
	if len(records) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertRecordCount,
		Expected: fmt.Sprintf("%d %s record(s)", a.Count, c),
		Actual:   fmt.Sprintf("%d", len(records)),
	}
}

func assertRecordField(a Assertion, actx *AssertionContext) error {
	key, err := ParsePeriod(a.Period)
	if err != nil {
		return err
	}
	rec, err := actx.Service.Find(actx.ctxFor(a.Owner), key)
	if err != nil {
		return fmt.Errorf("record_field: %w", err)
	}
	actual := "no record"
	if rec != nil {
		actual = fmt.Sprintf("%q", rec.Responses[a.Field])
		if rec.Responses[a.Field] == a.Equals {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertRecordField,
		Expected: fmt.Sprintf("%s %s = %q", a.Period, a.Field, a.Equals),
		Actual:   actual,
	}
}

func assertNorthStar(a Assertion, actx *AssertionContext) error {
	p, err := actx.Service.Profile(actx.ctxFor(a.Owner))
	if err != nil {
		return fmt.Errorf("north_star: %w", err)
	}
	if got := p.NorthStars[a.Area]; got != a.Equals {
		return &AssertionError{
			Type:     AssertNorthStar,
			Expected: fmt.Sprintf("%s = %q", a.Area, a.Equals),
			Actual:   fmt.Sprintf("%q", got),
		}
	}
	return nil
}
