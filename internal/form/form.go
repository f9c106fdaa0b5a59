// Package form drives a single review form through its lifecycle.
//
// A Controller loads the record of one period, lets the user fill in
// answers while tracking completion, and submits through a Backend:
//
//	Idle -> Loading -> New -> Submitted -> Editing -> Submitted
//	                \-> Submitted
//
// New and Editing are editable; Submitted is read-only until Edit.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/review"
	"github.com/roach88/cadence/internal/service"
)

// State is a form lifecycle state.
type State int

const (
	Idle State = iota
	Loading
	New
	Submitted
	Editing
)

var stateNames = map[State]string{
	Idle:      "idle",
	Loading:   "loading",
	New:       "new",
	Submitted: "submitted",
	Editing:   "editing",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// transitions lists the allowed target states per source state.
var transitions = map[State][]State{
	Idle:      {Loading},
	Loading:   {New, Submitted, Idle},
	New:       {Submitted, Loading},
	Submitted: {Editing, Loading},
	Editing:   {Submitted, Loading},
}

var (
	// ErrReadOnly is returned when changing or submitting a form that is
	// not editable.
	ErrReadOnly = errors.New("form is read-only")

	// ErrBusy is returned while a load or submit is in flight.
	ErrBusy = errors.New("form operation in progress")
)

// TransitionError reports a lifecycle step that is not allowed.
type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid form transition %s -> %s", e.From, e.To)
}

// Backend is the remote side of a form. *service.Service implements it.
type Backend interface {
	Find(ctx context.Context, key period.Key) (*review.Record, error)
	Submit(ctx context.Context, key period.Key, responses review.Responses) (service.SubmitResult, error)
}

// Controller is the state of one review form. Safe for concurrent use.
type Controller struct {
	backend  Backend
	key      period.Key
	template review.Template

	mu       sync.Mutex
	state    State
	busy     bool
	values   review.Responses
	recordID string
	observe  func(from, to State)
}

// Option configures a Controller.
type Option func(*Controller)

// WithObserver registers fn to be called after every state change.
// fn runs with the controller unlocked.
func WithObserver(fn func(from, to State)) Option {
	return func(c *Controller) {
		c.observe = fn
	}
}

// NewController creates an idle form for key.
func NewController(backend Backend, key period.Key, opts ...Option) (*Controller, error) {
	tmpl, ok := review.TemplateFor(key.Cadence)
	if !ok || !key.Valid() {
		return nil, fmt.Errorf("new form: invalid period %s", key)
	}
	c := &Controller{
		backend:  backend,
		key:      key,
		template: tmpl,
		state:    Idle,
		values:   tmpl.Empty(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Key returns the period the form is for.
func (c *Controller) Key() period.Key { return c.key }

// Template returns the questions of the form.
func (c *Controller) Template() review.Template { return c.template }

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ReadOnly reports whether answers can currently not be changed.
func (c *Controller) ReadOnly() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.editableLocked()
}

// RecordID returns the id of the stored record, or "" if none is known.
func (c *Controller) RecordID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recordID
}

// Values returns a copy of the current answers.
func (c *Controller) Values() review.Responses {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values.Clone()
}

// Progress returns the percentage of mandatory questions answered.
func (c *Controller) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return review.Progress(c.template, c.values)
}

// Load fetches the period's record. An existing record populates the form
// read-only; absence gives an empty editable form. On error the form
// returns to the state it was in.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	prev := c.state
	if err := c.transitionLocked(Loading); err != nil {
		c.mu.Unlock()
		return err
	}
	c.busy = true
	c.mu.Unlock()
	c.notify(prev, Loading)

	rec, err := c.backend.Find(ctx, c.key)

	c.mu.Lock()
	c.busy = false
	var next State
	switch {
	case err != nil:
		// Restored directly: Loading -> Editing is not a user step.
		next = prev
		c.state = prev
	case rec == nil:
		next = New
		c.values = c.template.Empty()
		c.recordID = ""
		c.state = New
	default:
		next = Submitted
		c.values = c.template.Empty()
		for k, v := range rec.Responses {
			c.values[k] = v
		}
		c.recordID = rec.ID
		c.state = Submitted
	}
	c.mu.Unlock()
	c.notify(Loading, next)

	if err != nil {
		return fmt.Errorf("load %s form: %w", c.key, err)
	}
	return nil
}

// Set changes one answer.
func (c *Controller) Set(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	if !c.editableLocked() {
		return ErrReadOnly
	}
	if _, ok := c.template.Field(name); !ok {
		return fmt.Errorf("set %q: unknown question for %s review", name, c.key.Cadence)
	}
	c.values[name] = value
	return nil
}

// Edit makes a submitted form editable again. It does not call the backend.
func (c *Controller) Edit() error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	prev := c.state
	if err := c.transitionLocked(Editing); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	c.notify(prev, Editing)
	return nil
}

// Submit validates the answers and sends them to the backend.
//
// A validation failure is returned without calling the backend. Both
// validation and backend failures leave the form editable with its
// answers intact.
func (c *Controller) Submit(ctx context.Context) (service.SubmitResult, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return service.SubmitResult{}, ErrBusy
	}
	if !c.editableLocked() {
		c.mu.Unlock()
		return service.SubmitResult{}, ErrReadOnly
	}
	values := c.values.Clone()
	if err := review.Validate(c.template, values); err != nil {
		c.mu.Unlock()
		return service.SubmitResult{}, err
	}
	c.busy = true
	c.mu.Unlock()

	res, err := c.backend.Submit(ctx, c.key, values)

	c.mu.Lock()
	c.busy = false
	if err != nil {
		c.mu.Unlock()
		return service.SubmitResult{}, err
	}
	prev := c.state
	if terr := c.transitionLocked(Submitted); terr != nil {
		c.mu.Unlock()
		return service.SubmitResult{}, terr
	}
	c.recordID = res.ID
	c.mu.Unlock()
	c.notify(prev, Submitted)
	return res, nil
}

func (c *Controller) editableLocked() bool {
	return c.state == New || c.state == Editing
}

func (c *Controller) transitionLocked(to State) error {
	for _, allowed := range transitions[c.state] {
		if allowed == to {
			c.state = to
			return nil
		}
	}
	return &TransitionError{From: c.state, To: to}
}

func (c *Controller) notify(from, to State) {
	if c.observe != nil && from != to {
		c.observe(from, to)
	}
}
