// Package period derives the canonical period key of a review from a
// calendar date.
//
// Keys are pure values: the same date and cadence always produce the same
// key. Weekly keys follow ISO-8601 week numbering (Monday-based weeks, week 1
// contains the year's first Thursday), so the last days of December can
// belong to week 1 of the following year and the first days of January to
// week 52 or 53 of the previous one.
package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cadence identifies how often a review recurs.
type Cadence int

const (
	Weekly Cadence = iota + 1
	Monthly
	Quarterly
	Annual
)

var cadenceNames = map[Cadence]string{
	Weekly:    "weekly",
	Monthly:   "monthly",
	Quarterly: "quarterly",
	Annual:    "annual",
}

// Cadences returns every cadence from shortest to longest.
func Cadences() []Cadence {
	return []Cadence{Weekly, Monthly, Quarterly, Annual}
}

func (c Cadence) String() string {
	if name, ok := cadenceNames[c]; ok {
		return name
	}
	return fmt.Sprintf("cadence(%d)", int(c))
}

// Valid reports whether c is one of the four known cadences.
func (c Cadence) Valid() bool {
	_, ok := cadenceNames[c]
	return ok
}

// ParseCadence parses a cadence name. Matching is case-insensitive and
// "yearly" is accepted as an alias for annual.
func ParseCadence(s string) (Cadence, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "yearly" {
		return Annual, nil
	}
	for c, n := range cadenceNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown cadence %q: must be one of weekly, monthly, quarterly, annual", s)
}

// Key identifies one review cycle.
//
// Index is the ISO week for weekly keys, the month (1-12) for monthly keys,
// the quarter (1-4) for quarterly keys and always 0 for annual keys.
type Key struct {
	Cadence Cadence
	Year    int
	Index   int
}

// Resolve returns the key of the period containing t.
// The calendar day is taken from t's own location. An unknown cadence
// yields the zero Key.
func Resolve(t time.Time, c Cadence) Key {
	switch c {
	case Weekly:
		year, week := t.ISOWeek()
		return Key{Cadence: Weekly, Year: year, Index: week}
	case Monthly:
		return Key{Cadence: Monthly, Year: t.Year(), Index: int(t.Month())}
	case Quarterly:
		return Key{Cadence: Quarterly, Year: t.Year(), Index: (int(t.Month())-1)/3 + 1}
	case Annual:
		return Key{Cadence: Annual, Year: t.Year()}
	default:
		return Key{}
	}
}

// WeeksInYear returns 52 or 53, the number of ISO weeks in year.
// December 28th always falls in the last ISO week of its year.
func WeeksInYear(year int) int {
	_, week := time.Date(year, time.December, 28, 12, 0, 0, 0, time.UTC).ISOWeek()
	return week
}

// Valid reports whether k names a period that exists.
func (k Key) Valid() bool {
	if k.Year < 1 || k.Year > 9999 {
		return false
	}
	switch k.Cadence {
	case Weekly:
		return k.Index >= 1 && k.Index <= WeeksInYear(k.Year)
	case Monthly:
		return k.Index >= 1 && k.Index <= 12
	case Quarterly:
		return k.Index >= 1 && k.Index <= 4
	case Annual:
		return k.Index == 0
	default:
		return false
	}
}

// String returns the canonical label: 2026-W01, 2025-03, 2025-Q2 or 2025.
func (k Key) String() string {
	switch k.Cadence {
	case Weekly:
		return fmt.Sprintf("%04d-W%02d", k.Year, k.Index)
	case Monthly:
		return fmt.Sprintf("%04d-%02d", k.Year, k.Index)
	case Quarterly:
		return fmt.Sprintf("%04d-Q%d", k.Year, k.Index)
	case Annual:
		return fmt.Sprintf("%04d", k.Year)
	default:
		return fmt.Sprintf("invalid(%d-%d)", k.Year, k.Index)
	}
}

// ParseKey parses a label produced by Key.String for the given cadence.
// Only the exact form Key.String writes is accepted: no signs, and the
// index zero-padded where String pads it.
func ParseKey(c Cadence, label string) (Key, error) {
	label = strings.TrimSpace(label)
	var (
		yearPart, indexPart string
		ok                  bool
	)
	switch c {
	case Weekly:
		yearPart, indexPart, ok = strings.Cut(label, "-W")
	case Monthly:
		yearPart, indexPart, ok = strings.Cut(label, "-")
	case Quarterly:
		yearPart, indexPart, ok = strings.Cut(label, "-Q")
	case Annual:
		yearPart, ok = label, true
	default:
		return Key{}, fmt.Errorf("parse period %q: unknown cadence %v", label, c)
	}
	if !ok {
		return Key{}, fmt.Errorf("parse %s period %q: malformed label", c, label)
	}

	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return Key{}, fmt.Errorf("parse %s period %q: year: %w", c, label, err)
	}
	key := Key{Cadence: c, Year: year}
	if c != Annual {
		index, err := strconv.Atoi(indexPart)
		if err != nil {
			return Key{}, fmt.Errorf("parse %s period %q: index: %w", c, label, err)
		}
		key.Index = index
	}
	if !key.Valid() {
		return Key{}, fmt.Errorf("parse %s period %q: out of range", c, label)
	}
	if key.String() != label {
		return Key{}, fmt.Errorf("parse %s period %q: want %q", c, label, key.String())
	}
	return key, nil
}

// Start returns midnight UTC of the first day of the period.
func (k Key) Start() time.Time {
	switch k.Cadence {
	case Weekly:
		// January 4th is always in ISO week 1.
		jan4 := time.Date(k.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
		offset := (int(jan4.Weekday()) + 6) % 7
		monday := jan4.AddDate(0, 0, -offset)
		return monday.AddDate(0, 0, (k.Index-1)*7)
	case Monthly:
		return time.Date(k.Year, time.Month(k.Index), 1, 0, 0, 0, 0, time.UTC)
	case Quarterly:
		return time.Date(k.Year, time.Month((k.Index-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(k.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
}

// Next returns the period immediately after k.
func (k Key) Next() Key {
	return Resolve(k.shift(1), k.Cadence)
}

// Prev returns the period immediately before k.
func (k Key) Prev() Key {
	return Resolve(k.shift(-1), k.Cadence)
}

func (k Key) shift(n int) time.Time {
	start := k.Start()
	switch k.Cadence {
	case Weekly:
		return start.AddDate(0, 0, 7*n)
	case Monthly:
		return start.AddDate(0, n, 0)
	case Quarterly:
		return start.AddDate(0, 3*n, 0)
	default:
		return start.AddDate(n, 0, 0)
	}
}

// Before reports whether k precedes other. Keys of different cadences
// compare by year and index only.
func (k Key) Before(other Key) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Index < other.Index
}
