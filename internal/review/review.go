// Package review defines periodic review records, their question templates
// and the client-side validation and progress rules of review forms.
//
// A record is keyed by (owner, period.Key) and holds exactly one response
// set per key. Resubmitting replaces the responses in place and refreshes
// CompletedAt; no history is kept.
package review

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/cadence/internal/canonical"
	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/schema"
)

// Responses maps question names to free-text answers.
type Responses map[string]string

// Clone returns an independent copy.
func (r Responses) Clone() Responses {
	out := make(Responses, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Normalize returns a copy with every answer in Unicode NFC form, the form
// lengths are counted and stored in.
func (r Responses) Normalize() Responses {
	out := make(Responses, len(r))
	for k, v := range r {
		out[k] = norm.NFC.String(v)
	}
	return out
}

// Digest is the content hash of the canonical encoding of r.
func (r Responses) Digest() (string, error) {
	return canonical.Digest(canonical.DomainResponses, map[string]string(r))
}

// Equal reports whether both sets hold the same answers.
func (r Responses) Equal(other Responses) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// NextNorthStars extracts the next cycle's goals from annual responses,
// keyed by area. Areas without an answer are omitted.
func (r Responses) NextNorthStars() map[string]string {
	out := make(map[string]string)
	for _, area := range NorthStarAreas {
		if goal := strings.TrimSpace(r[NextNorthStarField(area)]); goal != "" {
			out[area] = goal
		}
	}
	return out
}

// Record is one stored review.
type Record struct {
	ID          string
	Owner       string
	Key         period.Key
	Responses   Responses
	Digest      string
	CreatedAt   time.Time
	CompletedAt time.Time
}

// Profile is the owner's long-lived state touched by annual reviews.
type Profile struct {
	Owner      string
	NorthStars map[string]string
	UpdatedAt  time.Time
}

// Validate applies the template's bounds to responses. It is the check a
// form runs before calling the backend; the backend validates again
// against the CUE schema.
func Validate(t Template, responses Responses) error {
	var violations []schema.Violation
	for _, f := range t.Fields {
		answer, ok := responses[f.Name]
		if !ok || answer == "" {
			if f.Required {
				violations = append(violations, schema.Violation{Field: f.Name, Reason: schema.ReasonRequired})
			}
			continue
		}
		if !utf8.ValidString(answer) {
			violations = append(violations, schema.Violation{Field: f.Name, Reason: schema.ReasonInvalid})
			continue
		}
		if utf8.RuneCountInString(norm.NFC.String(answer)) > f.MaxLen {
			violations = append(violations, schema.Violation{Field: f.Name, Reason: schema.ReasonTooLong})
		}
	}
	var unknown []string
	for name := range responses {
		if _, ok := t.Field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		violations = append(violations, schema.Violation{Field: name, Reason: schema.ReasonUnknown})
	}
	if len(violations) > 0 {
		return NewValidationError(t.Cadence, violations)
	}
	return nil
}

// Progress returns the percentage (0-100, rounded down) of the template's
// mandatory questions that have a non-empty answer.
func Progress(t Template, responses Responses) int {
	req := t.RequiredFields()
	if len(req) == 0 {
		return 100
	}
	filled := 0
	for _, f := range req {
		if responses[f.Name] != "" {
			filled++
		}
	}
	return filled * 100 / len(req)
}

// Summary is a one-line description used in logs and CLI output.
func (rec Record) Summary() string {
	return fmt.Sprintf("%s review %s (%s)", rec.Key.Cadence, rec.Key, rec.ID)
}
