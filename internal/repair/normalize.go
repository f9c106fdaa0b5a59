package repair

import (
	"sort"
	"strings"

	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/review"
)

// renames maps drifted question names of older clients to current ones.
var renames = map[period.Cadence]map[string]string{
	period.Weekly: {
		"wins":        "biggestSuccess",
		"frustration": "mostFrustrating",
		"improve":     "differentlyNextTime",
		"lessons":     "learned",
		"focus":       "nextWeekFocus",
	},
	period.Monthly: {
		"wins":       "biggestSuccess",
		"challenges": "biggestChallenge",
		"habits":     "habitsReview",
		"goals":      "goalsProgress",
		"lessons":    "learned",
		"focus":      "nextMonthFocus",
	},
	period.Quarterly: {
		"wins":        "biggestWins",
		"okrs":        "okrReview",
		"lessons":     "lessonsLearned",
		"corrections": "courseCorrections",
		"priorities":  "nextQuarterPriorities",
	},
	period.Annual: {
		"highlights": "yearHighlights",
		"lessons":    "biggestLessons",
		"proudest":   "proudestMoment",
		"theme":      "nextYearTheme",
	},
}

// normalize flattens customFields over responses, renames drifted names
// and drops names the template does not know. It returns the cleaned
// responses and the sorted dropped names.
func normalize(t review.Template, e Entry) (review.Responses, []string) {
	merged := make(map[string]string, len(e.Responses)+len(e.CustomFields))
	for k, v := range e.Responses {
		merged[k] = v
	}
	for k, v := range e.CustomFields {
		merged[k] = v
	}

	out := review.Responses{}
	var dropped []string
	for name, answer := range merged {
		current := canonicalName(t.Cadence, name)
		if _, ok := t.Field(current); !ok {
			dropped = append(dropped, name)
			continue
		}
		// A current name wins over a drifted alias of it.
		if _, exists := out[current]; exists && current != name {
			continue
		}
		out[current] = answer
	}
	sort.Strings(dropped)
	return out.Normalize(), dropped
}

func canonicalName(c period.Cadence, name string) string {
	if to, ok := renames[c][name]; ok {
		return to
	}
	// northStar_<area> and nextNorthStar_<area> from the first annual form.
	if c == period.Annual {
		if area, ok := strings.CutPrefix(name, "northStar_"); ok {
			return review.NorthStarField(area)
		}
		if area, ok := strings.CutPrefix(name, "nextNorthStar_"); ok {
			return review.NextNorthStarField(area)
		}
	}
	return name
}
