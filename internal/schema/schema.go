// Package schema validates review responses against the embedded CUE
// definitions in review.cue.
//
// Each cadence has one closed definition (#Weekly, #Monthly, #Quarterly,
// #Annual). Nested annual answers are addressed with dotted field names,
// e.g. "northStars.health.achievement". Lengths are counted in Unicode code
// points; callers normalize to NFC beforehand.
package schema

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/cadence/internal/period"
)

//go:embed review.cue
var reviewCUE string

var definitions = map[period.Cadence]string{
	period.Weekly:    "#Weekly",
	period.Monthly:   "#Monthly",
	period.Quarterly: "#Quarterly",
	period.Annual:    "#Annual",
}

// Reason classifies a field violation.
type Reason string

const (
	ReasonRequired Reason = "required"
	ReasonTooLong  Reason = "too_long"
	ReasonUnknown  Reason = "unknown"
	ReasonInvalid  Reason = "invalid"
)

// Violation describes one failing field.
type Violation struct {
	Field  string `json:"field"`
	Reason Reason `json:"reason"`
}

// ValidationError lists every violation found for one submission.
type ValidationError struct {
	Cadence    period.Cadence
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Reason)
	}
	return fmt.Sprintf("invalid %s review: %s", e.Cadence, strings.Join(parts, ", "))
}

type leaf struct {
	name     string
	value    cue.Value
	optional bool
}

// Validator checks responses against the CUE definitions.
// CUE values are not safe for concurrent use, so Validate serializes calls.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	leaves map[period.Cadence][]leaf
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(reviewCUE, cue.Filename("review.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile review schema: %w", err)
	}

	v := &Validator{ctx: ctx, leaves: make(map[period.Cadence][]leaf)}
	for c, name := range definitions {
		def := root.LookupPath(cue.ParsePath(name))
		if !def.Exists() {
			return nil, fmt.Errorf("review schema: definition %s not found", name)
		}
		leaves, err := collectLeaves(def, "")
		if err != nil {
			return nil, fmt.Errorf("review schema %s: %w", name, err)
		}
		v.leaves[c] = leaves
	}
	return v, nil
}

// MustNewValidator is NewValidator for package initialization and tests.
func MustNewValidator() *Validator {
	v, err := NewValidator()
	if err != nil {
		panic(err)
	}
	return v
}

// collectLeaves flattens a definition into its string-valued fields.
func collectLeaves(v cue.Value, prefix string) ([]leaf, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, err
	}
	var leaves []leaf
	for iter.Next() {
		name := iter.Label()
		if prefix != "" {
			name = prefix + "." + name
		}
		val := iter.Value()
		if val.IncompleteKind() == cue.StructKind {
			nested, err := collectLeaves(val, name)
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, nested...)
			continue
		}
		_, hasDefault := val.Default()
		leaves = append(leaves, leaf{name: name, value: val, optional: hasDefault})
	}
	return leaves, nil
}

// Fields maps every dotted field name of the cadence's schema to whether
// the field is required.
func (v *Validator) Fields(c period.Cadence) map[string]bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make(map[string]bool, len(v.leaves[c]))
	for _, l := range v.leaves[c] {
		out[l.name] = !l.optional
	}
	return out
}

// Validate returns a *ValidationError if responses do not satisfy the
// cadence's definition, nil otherwise.
func (v *Validator) Validate(c period.Cadence, responses map[string]string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	leaves, ok := v.leaves[c]
	if !ok {
		return &ValidationError{Cadence: c, Violations: []Violation{{Field: "cadence", Reason: ReasonInvalid}}}
	}

	var violations []Violation
	known := make(map[string]bool, len(leaves))
	for _, l := range leaves {
		known[l.name] = true
		answer, present := responses[l.name]
		if !present {
			if !l.optional {
				violations = append(violations, Violation{Field: l.name, Reason: ReasonRequired})
			}
			continue
		}
		if !utf8.ValidString(answer) {
			violations = append(violations, Violation{Field: l.name, Reason: ReasonInvalid})
			continue
		}
		if err := l.value.Unify(v.ctx.Encode(answer)).Validate(cue.Concrete(true)); err != nil {
			reason := ReasonTooLong
			if answer == "" {
				reason = ReasonRequired
			}
			violations = append(violations, Violation{Field: l.name, Reason: reason})
		}
	}

	var unknown []string
	for name := range responses {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		violations = append(violations, Violation{Field: name, Reason: ReasonUnknown})
	}

	if len(violations) > 0 {
		return &ValidationError{Cadence: c, Violations: violations}
	}
	return nil
}
