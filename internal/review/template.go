package review

import (
	"github.com/roach88/cadence/internal/period"
)

// NorthStarAreas are the life areas an annual review tracks, in display order.
var NorthStarAreas = []string{"wealth", "health", "love", "happiness"}

// Field is one question of a review form.
type Field struct {
	Name     string
	Label    string
	MaxLen   int
	Required bool
}

// Template is the fixed question set of one cadence.
type Template struct {
	Cadence period.Cadence
	Fields  []Field
}

func required(name, label string, max int) Field {
	return Field{Name: name, Label: label, MaxLen: max, Required: true}
}

var templates = map[period.Cadence]Template{
	period.Weekly: {Cadence: period.Weekly, Fields: []Field{
		required("biggestSuccess", "What was your biggest success this week?", 2000),
		required("mostFrustrating", "What frustrated you the most?", 2000),
		required("differentlyNextTime", "What would you do differently next time?", 2000),
		required("learned", "What did you learn?", 2000),
		required("nextWeekFocus", "What is your focus for next week?", 2000),
	}},
	period.Monthly: {Cadence: period.Monthly, Fields: []Field{
		required("biggestSuccess", "What was your biggest success this month?", 3000),
		required("biggestChallenge", "What was your biggest challenge?", 3000),
		required("habitsReview", "How did your habits hold up?", 3000),
		required("goalsProgress", "How much progress did you make on your goals?", 3000),
		required("learned", "What did you learn?", 3000),
		required("nextMonthFocus", "What is your focus for next month?", 3000),
	}},
	period.Quarterly: {Cadence: period.Quarterly, Fields: []Field{
		required("biggestWins", "What were the biggest wins of the quarter?", 5000),
		required("okrReview", "How did your objectives and key results land?", 5000),
		required("lessonsLearned", "What lessons did you learn?", 5000),
		required("courseCorrections", "What course corrections are needed?", 5000),
		required("nextQuarterPriorities", "What are your priorities for next quarter?", 5000),
	}},
	period.Annual: {Cadence: period.Annual, Fields: annualFields()},
}

func annualFields() []Field {
	fields := []Field{
		required("yearHighlights", "What were the highlights of the year?", 10000),
		required("biggestLessons", "What were your biggest lessons?", 10000),
		required("proudestMoment", "What are you proudest of?", 10000),
		required("leaveBehind", "What will you leave behind?", 10000),
		required("nextYearTheme", "What is the theme of next year?", 10000),
	}
	for _, area := range NorthStarAreas {
		fields = append(fields,
			required(NorthStarField(area), "What did you achieve for your "+area+" North Star?", 10000),
			Field{Name: NorthStarNotesField(area), Label: "Notes on " + area, MaxLen: 10000},
		)
	}
	for _, area := range NorthStarAreas {
		fields = append(fields, required(NextNorthStarField(area), "What is next year's "+area+" North Star?", 10000))
	}
	return fields
}

// NorthStarField names the achievement answer for an area.
func NorthStarField(area string) string { return "northStars." + area + ".achievement" }

// NorthStarNotesField names the optional notes answer for an area.
func NorthStarNotesField(area string) string { return "northStars." + area + ".notes" }

// NextNorthStarField names the next cycle's goal for an area.
func NextNorthStarField(area string) string { return "nextNorthStars." + area }

// TemplateFor returns the question set for c. The second result is false
// for an unknown cadence.
func TemplateFor(c period.Cadence) (Template, bool) {
	t, ok := templates[c]
	return t, ok
}

// Field looks up a question by name.
func (t Template) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// RequiredFields returns the mandatory questions in display order.
func (t Template) RequiredFields() []Field {
	var out []Field
	for _, f := range t.Fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// Empty returns a response set with every question present and blank.
func (t Template) Empty() Responses {
	r := make(Responses, len(t.Fields))
	for _, f := range t.Fields {
		r[f.Name] = ""
	}
	return r
}
