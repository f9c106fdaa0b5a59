package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/review"
)

// recordView is the output form of a stored review.
type recordView struct {
	ID          string            `json:"id"`
	CreatedAt   string            `json:"createdAt"`
	CompletedAt string            `json:"completedAt"`
	Progress    int               `json:"progress"`
	Responses   map[string]string `json:"responses"`
}

func newRecordView(rec review.Record) *recordView {
	t, _ := review.TemplateFor(rec.Key.Cadence)
	return &recordView{
		ID:          rec.ID,
		CreatedAt:   formatTime(rec.CreatedAt),
		CompletedAt: formatTime(rec.CompletedAt),
		Progress:    review.Progress(t, rec.Responses),
		Responses:   rec.Responses,
	}
}

// showView is the result of show: the period and its review, if any.
type showView struct {
	Cadence string      `json:"cadence"`
	Period  string      `json:"period"`
	Found   bool        `json:"found"`
	Review  *recordView `json:"review,omitempty"`

	key period.Key
}

func (v showView) renderText(w io.Writer) {
	if !v.Found {
		fmt.Fprintf(w, "No %s review for %s.\n", v.Cadence, v.Period)
		return
	}
	fmt.Fprintf(w, "%s review %s (%s)\n", v.Cadence, v.Period, v.Review.ID)
	fmt.Fprintf(w, "Completed: %s\n", v.Review.CompletedAt)
	t, _ := review.TemplateFor(v.key.Cadence)
	for _, field := range t.Fields {
		answer := v.Review.Responses[field.Name]
		if answer == "" {
			if field.Required {
				answer = "(no answer)"
			} else {
				continue
			}
		}
		fmt.Fprintf(w, "\n%s\n  %s\n", field.Label, strings.ReplaceAll(answer, "\n", "\n  "))
	}
}

// submitView is the result of submit and edit.
type submitView struct {
	ID          string `json:"id"`
	Cadence     string `json:"cadence"`
	Period      string `json:"period"`
	Created     bool   `json:"created"`
	CompletedAt string `json:"completedAt"`
}

func (v submitView) renderText(w io.Writer) {
	verb := "Updated"
	if v.Created {
		verb = "Created"
	}
	fmt.Fprintf(w, "%s %s review %s (%s)\n", verb, v.Cadence, v.Period, v.ID)
}

// progressView reports how much of a period's review is answered.
type progressView struct {
	Cadence   string   `json:"cadence"`
	Period    string   `json:"period"`
	Submitted bool     `json:"submitted"`
	Progress  int      `json:"progress"`
	Missing   []string `json:"missing"`
}

func (v progressView) renderText(w io.Writer) {
	state := "draft"
	if v.Submitted {
		state = "submitted"
	}
	fmt.Fprintf(w, "%s %s (%s): %d%%", v.Cadence, v.Period, state, v.Progress)
	if len(v.Missing) > 0 {
		fmt.Fprintf(w, ", missing %s", strings.Join(v.Missing, ", "))
	}
	fmt.Fprintln(w)
}

// formatTime renders a timestamp as RFC 3339 in UTC with milliseconds.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
