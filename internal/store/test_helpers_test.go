package store

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/review"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// sequentialIDs returns a generator producing id-1, id-2, ...
func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("id-%d", n.Add(1))
	}
}

var testTime = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func weekKey(year, week int) period.Key {
	return period.Key{Cadence: period.Weekly, Year: year, Index: week}
}

func weeklyParams(owner string, key period.Key, focus string, at time.Time) UpsertParams {
	return UpsertParams{
		Owner: owner,
		Key:   key,
		Responses: review.Responses{
			"biggestSuccess":      "shipped",
			"mostFrustrating":     "meetings",
			"differentlyNextTime": "plan",
			"learned":             "patience",
			"nextWeekFocus":       focus,
		},
		CompletedAt: at,
	}
}
