package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Step     int    `json:"step"`
	Action   string `json:"action"`
	Owner    string `json:"owner"`
	Period   string `json:"period,omitempty"`
	State    string `json:"state,omitempty"`
	Outcome  string `json:"outcome"` // "ok" or an error code
	RecordID string `json:"record_id,omitempty"`
	Progress int    `json:"progress"`
}

// OutcomeOK is the outcome of a step that returned no error.
const OutcomeOK = "ok"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	ev.Step = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}
