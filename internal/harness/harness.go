package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/cadence/internal/form"
	"github.com/roach88/cadence/internal/identity"
	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/review"
	"github.com/roach88/cadence/internal/service"
	"github.com/roach88/cadence/internal/store"
	"github.com/roach88/cadence/internal/testutil"
)

// unauthenticated is the step owner that runs without identity.
const unauthenticated = "-"

// Harness is the scenario execution engine.
type Harness struct {
	store   *store.Store
	service *service.Service
	clock   *testutil.FixedClock
	owner   string
	forms   map[formKey]*form.Controller
	logger  *slog.Logger
}

type formKey struct {
	owner string
	key   period.Key
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. The clock advances one
// second per reading and record ids are sequential, so traces are
// reproducible.
func Run(scenario *Scenario) (*Result, error) {
	start, err := scenario.startTime()
	if err != nil {
		return nil, fmt.Errorf("invalid start time: %w", err)
	}

	ids := testutil.NewSequentialIDs("rec")
	st, err := store.Open(":memory:", store.WithIDGenerator(ids.Next))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewFixedClock(start, time.Second)
	svc := service.New(st, nil,
		service.WithClock(clock.Now),
		service.WithLocation(time.UTC),
		service.WithLogger(logger),
	)

	h := &Harness{
		store:   st,
		service: svc,
		clock:   clock,
		owner:   scenario.Owner,
		forms:   make(map[formKey]*form.Controller),
		logger:  logger,
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
	}

	actx := &AssertionContext{Service: svc, Owner: scenario.Owner, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step and checks its expect clause. The returned
// error is reserved for malformed steps; workflow errors become outcomes.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	owner := h.owner
	if step.Owner != "" {
		owner = step.Owner
	}
	stepCtx := ctx
	if owner != unauthenticated {
		stepCtx = identity.WithOwner(ctx, owner)
	}

	ev := TraceEvent{Action: step.Action, Owner: owner, Outcome: OutcomeOK}
	var (
		stepErr error
		created *bool
		fc      *form.Controller
	)

	switch step.Action {
	case ActionAdvance:
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return err
		}
		h.clock.Advance(d)

	case ActionInitProfile:
		_, stepErr = h.service.InitProfile(stepCtx)

	case ActionAPISubmit:
		key, err := ParsePeriod(step.Period)
		if err != nil {
			return err
		}
		ev.Period = step.Period
		var res service.SubmitResult
		res, stepErr = h.service.Submit(stepCtx, key, review.Responses(step.Values))
		if stepErr == nil {
			ev.RecordID = res.ID
			created = &res.Created
		}

	default:
		key, err := ParsePeriod(step.Period)
		if err != nil {
			return err
		}
		ev.Period = step.Period
		fc, err = h.form(owner, key)
		if err != nil {
			return err
		}
		switch step.Action {
		case ActionLoad:
			stepErr = fc.Load(stepCtx)
		case ActionSet:
			stepErr = fc.Set(step.Field, step.Value)
		case ActionFill:
			for _, f := range fc.Template().Fields {
				if v, ok := step.Values[f.Name]; ok {
					if stepErr = fc.Set(f.Name, v); stepErr != nil {
						break
					}
				}
			}
		case ActionSubmit:
			var res service.SubmitResult
			res, stepErr = fc.Submit(stepCtx)
			if stepErr == nil {
				created = &res.Created
			}
		case ActionEdit:
			stepErr = fc.Edit()
		}
		ev.State = fc.State().String()
		ev.Progress = fc.Progress()
		ev.RecordID = fc.RecordID()
	}

	if stepErr != nil {
		ev.Outcome = outcomeOf(stepErr)
		h.logger.Debug("step failed", "step", index, "action", step.Action, "error", stepErr)
	}
	result.AddTrace(ev)

	if step.Expect != nil {
		for _, msg := range checkExpect(index, step, ev, created, fc) {
			result.AddError(msg)
		}
	}
	return nil
}

// form returns the controller for (owner, key), creating it on first use.
func (h *Harness) form(owner string, key period.Key) (*form.Controller, error) {
	fk := formKey{owner: owner, key: key}
	if fc, ok := h.forms[fk]; ok {
		return fc, nil
	}
	fc, err := form.NewController(h.service, key)
	if err != nil {
		return nil, err
	}
	h.forms[fk] = fc
	return fc, nil
}

func outcomeOf(err error) string {
	if code := review.CodeOf(err); code != "" {
		return string(code)
	}
	switch err {
	case form.ErrReadOnly:
		return "READ_ONLY"
	case form.ErrBusy:
		return "BUSY"
	}
	if _, ok := err.(*form.TransitionError); ok {
		return "INVALID_TRANSITION"
	}
	return "ERROR"
}

func checkExpect(index int, step Step, ev TraceEvent, created *bool, fc *form.Controller) []string {
	exp := step.Expect
	var errs []string
	fail := func(what string, want, got any) {
		errs = append(errs, fmt.Sprintf("step %d (%s): %s = %v, want %v", index, step.Action, what, got, want))
	}

	want := exp.Outcome
	if want == "" {
		want = OutcomeOK
	}
	if ev.Outcome != want {
		fail("outcome", want, ev.Outcome)
	}
	if exp.State != "" && ev.State != exp.State {
		fail("state", exp.State, ev.State)
	}
	if exp.Progress != nil && ev.Progress != *exp.Progress {
		fail("progress", *exp.Progress, ev.Progress)
	}
	if exp.Created != nil {
		switch {
		case created == nil:
			fail("created", *exp.Created, "unset")
		case *created != *exp.Created:
			fail("created", *exp.Created, *created)
		}
	}
	if exp.ReadOnly != nil {
		if fc == nil {
			fail("read_only", *exp.ReadOnly, "no form")
		} else if fc.ReadOnly() != *exp.ReadOnly {
			fail("read_only", *exp.ReadOnly, fc.ReadOnly())
		}
	}
	return errs
}
