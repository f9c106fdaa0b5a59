// Package streak computes review streaks and experience points.
package streak

import (
	"sort"
	"time"

	"github.com/roach88/cadence/internal/period"
)

// XP awarded per completed review.
var xpPerReview = map[period.Cadence]int{
	period.Weekly:    10,
	period.Monthly:   40,
	period.Quarterly: 120,
	period.Annual:    500,
}

// XPFor returns the experience points a single review of c is worth.
func XPFor(c period.Cadence) int {
	return xpPerReview[c]
}

// Summary describes the reviewing history of one cadence.
type Summary struct {
	Cadence period.Cadence `json:"-"`
	Current int            `json:"current"`
	Longest int            `json:"longest"`
	Total   int            `json:"total"`
	XP      int            `json:"xp"`
	Last    *period.Key    `json:"-"`
}

// Compute summarises keys, the periods of c that have a review.
//
// The current streak counts consecutive reviewed periods ending at the
// period containing now. If that period has no review yet, counting starts
// at the previous one, so an open period does not break the streak. Keys
// of other cadences and duplicates are ignored.
func Compute(c period.Cadence, keys []period.Key, now time.Time) Summary {
	sum := Summary{Cadence: c}

	seen := make(map[period.Key]bool, len(keys))
	var sorted []period.Key
	for _, k := range keys {
		if k.Cadence != c || !k.Valid() || seen[k] {
			continue
		}
		seen[k] = true
		sorted = append(sorted, k)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	sum.Total = len(sorted)
	sum.XP = sum.Total * XPFor(c)
	if len(sorted) == 0 {
		return sum
	}
	last := sorted[len(sorted)-1]
	sum.Last = &last

	run := 0
	for i, k := range sorted {
		if i > 0 && sorted[i-1].Next() == k {
			run++
		} else {
			run = 1
		}
		if run > sum.Longest {
			sum.Longest = run
		}
	}

	cur := period.Resolve(now, c)
	if !seen[cur] {
		cur = cur.Prev()
	}
	for seen[cur] {
		sum.Current++
		cur = cur.Prev()
	}
	return sum
}
