package repair

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/store"
)

const legacyExport = `
reviews:
  # Two drafts of the same week: the later one wins.
  - id: legacy-1
    userId: alice
    type: weekly
    period: 2025-W03
    completedAt: 1736935200000
    responses:
      wins: first draft
      frustration: rain
      improve: sleep
      lessons: patience
      focus: taxes
  - id: legacy-2
    userId: alice
    type: weekly
    period: 2025-W03
    completedAt: "2025-01-16T10:00:00Z"
    responses:
      biggestSuccess: final draft
      mostFrustrating: rain
      differentlyNextTime: sleep
      learned: patience
    customFields:
      nextWeekFocus: taxes
      mood: fine
  - owner: bob
    cadence: monthly
    period: 2025-01
    completedAt: "2025-02-01T08:00:00Z"
    responses:
      biggestSuccess: promotion
  - owner: carol
    cadence: daily
    period: 2025-01-01
    completedAt: 1
`

func newImporter(t *testing.T) (*Importer, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "cadence.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewImporter(st, nil, slog.New(slog.NewTextHandler(io.Discard, nil))), st
}

func loadString(t *testing.T, s string) Document {
	t.Helper()
	doc, err := LoadDocument(strings.NewReader(s))
	require.NoError(t, err)
	return doc
}

func TestImport_NormalisesGroupsAndReports(t *testing.T) {
	im, st := newImporter(t)
	ctx := context.Background()

	report, err := im.Import(ctx, loadString(t, legacyExport))
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 3)

	alice := report.Outcomes[0]
	assert.Equal(t, "alice", alice.Owner)
	assert.Equal(t, Applied, alice.Status)
	assert.Equal(t, "2025-W03", alice.Period)
	assert.Equal(t, 1, alice.Superseded)
	assert.Equal(t, []string{"mood"}, alice.Dropped)

	bob := report.Outcomes[1]
	assert.Equal(t, Rejected, bob.Status)
	assert.Contains(t, bob.Reason, "required")

	carol := report.Outcomes[2]
	assert.Equal(t, Rejected, carol.Status)
	assert.Equal(t, "daily", carol.Cadence)

	rec, found, err := st.FindReview(ctx, "alice", period.Key{Cadence: period.Weekly, Year: 2025, Index: 3})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "final draft", rec.Responses["biggestSuccess"])
	assert.Equal(t, "taxes", rec.Responses["nextWeekFocus"])
	assert.Equal(t, time.Date(2025, 1, 16, 10, 0, 0, 0, time.UTC), rec.CompletedAt)
}

func TestImport_SecondRunIsUnchanged(t *testing.T) {
	im, _ := newImporter(t)
	ctx := context.Background()
	doc := loadString(t, legacyExport)

	first, err := im.Import(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Count(Applied))

	second, err := im.Import(ctx, doc)
	require.NoError(t, err)
	assert.Zero(t, second.Count(Applied))
	assert.Equal(t, 1, second.Count(Unchanged))
	assert.Equal(t, first.Count(Rejected), second.Count(Rejected))
}

func TestImport_NewerStoredRecordWins(t *testing.T) {
	im, st := newImporter(t)
	ctx := context.Background()
	key := period.Key{Cadence: period.Weekly, Year: 2025, Index: 3}

	_, err := st.UpsertReview(ctx, store.UpsertParams{
		Owner: "alice",
		Key:   key,
		Responses: map[string]string{
			"biggestSuccess": "live", "mostFrustrating": "x", "differentlyNextTime": "x",
			"learned": "x", "nextWeekFocus": "x",
		},
		CompletedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	report, err := im.Import(ctx, loadString(t, legacyExport))
	require.NoError(t, err)
	assert.Equal(t, Unchanged, report.Outcomes[0].Status)
	assert.Equal(t, "stored record is newer", report.Outcomes[0].Reason)

	rec, _, err := st.FindReview(ctx, "alice", key)
	require.NoError(t, err)
	assert.Equal(t, "live", rec.Responses["biggestSuccess"])
}

func TestImport_AnnualLegacyNames(t *testing.T) {
	im, st := newImporter(t)
	ctx := context.Background()

	report, err := im.Import(ctx, loadString(t, `
reviews:
  - owner: alice
    cadence: annual
    period: "2024"
    completedAt: "2025-01-02"
    responses:
      highlights: moved abroad
      lessons: patience
      proudest: the move
      leaveBehind: clutter
      theme: roots
      northStar_wealth: saved
      northStar_health: ran
      northStar_love: wedding
      northStar_happiness: garden
      nextNorthStar_wealth: invest
      nextNorthStar_health: swim
      nextNorthStar_love: travel
      nextNorthStar_happiness: paint
`))
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	require.Equal(t, Applied, report.Outcomes[0].Status, report.Outcomes[0].Reason)

	rec, found, err := st.FindReview(ctx, "alice", period.Key{Cadence: period.Annual, Year: 2024})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ran", rec.Responses["northStars.health.achievement"])
	assert.Equal(t, "paint", rec.Responses["nextNorthStars.happiness"])
}

func TestLoadDocument(t *testing.T) {
	doc, err := LoadDocument(strings.NewReader(`{"reviews":[{"owner":"a","cadence":"weekly","period":"2025-W01","completedAt":1000}]}`))
	require.NoError(t, err)
	require.Len(t, doc.Reviews, 1)
	assert.Equal(t, time.UnixMilli(1000).UTC(), doc.Reviews[0].CompletedAt.Time)

	doc, err = LoadDocument(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, doc.Reviews)

	_, err = LoadDocument(strings.NewReader("reviews: [{completedAt: soon}]"))
	assert.Error(t, err)
}
