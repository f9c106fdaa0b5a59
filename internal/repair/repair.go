// Package repair imports legacy review exports into the store.
//
// It is the one consolidated, idempotent repair procedure. Entries are
// normalised (legacy aliases flattened, drifted names renamed, unknown
// questions dropped), grouped by (owner, period), reduced to the latest
// completion and upserted. Running the same import twice applies nothing
// the second time.
package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/review"
	"github.com/roach88/cadence/internal/schema"
	"github.com/roach88/cadence/internal/store"
)

// Status tags the outcome of one imported period.
type Status string

const (
	// Applied means the record was created or replaced.
	Applied Status = "applied"

	// Unchanged means the store already held these answers, or newer ones.
	Unchanged Status = "unchanged"

	// Rejected means the entry could not be imported; Reason says why.
	Rejected Status = "rejected"
)

// Outcome is the result for one (owner, period) group.
type Outcome struct {
	Owner    string     `json:"owner"`
	Key      period.Key `json:"-"`
	Period   string     `json:"period"`
	Cadence  string     `json:"cadence"`
	Status   Status     `json:"status"`
	Reason   string     `json:"reason,omitempty"`
	RecordID string     `json:"recordId,omitempty"`

	// Dropped lists question names removed during normalisation.
	Dropped []string `json:"dropped,omitempty"`

	// Superseded counts older entries of the group that were discarded.
	Superseded int `json:"superseded,omitempty"`
}

// Report collects the outcomes of one import.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Count returns the number of outcomes with status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Store is the persistence an import needs. *store.Store implements it.
type Store interface {
	FindReview(ctx context.Context, owner string, key period.Key) (review.Record, bool, error)
	UpsertReview(ctx context.Context, p store.UpsertParams) (store.UpsertResult, error)
}

// Importer applies legacy exports to a store.
type Importer struct {
	store     Store
	validator *schema.Validator
	logger    *slog.Logger
}

// NewImporter creates an Importer. A nil validator uses the embedded
// schemas; a nil logger uses slog.Default.
func NewImporter(st Store, validator *schema.Validator, logger *slog.Logger) *Importer {
	if validator == nil {
		validator = schema.MustNewValidator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: st, validator: validator, logger: logger}
}

type groupKey struct {
	owner string
	key   period.Key
}

type candidate struct {
	entry Entry
	order int
}

// Import applies doc. Only a store failure aborts the import; every other
// problem becomes a Rejected outcome. Outcomes are sorted by owner,
// cadence and period.
//
// The owner of each record comes from the document, so Import is an
// administrative operation and not reachable with a user identity.
func (im *Importer) Import(ctx context.Context, doc Document) (Report, error) {
	var report Report
	groups := make(map[groupKey][]candidate)

	for i, e := range doc.Reviews {
		key, err := entryKey(e)
		if err != nil {
			report.Outcomes = append(report.Outcomes, Outcome{
				Owner:   e.EffectiveOwner(),
				Period:  e.Period,
				Cadence: e.EffectiveCadence(),
				Status:  Rejected,
				Reason:  err.Error(),
			})
			continue
		}
		gk := groupKey{owner: e.EffectiveOwner(), key: key}
		groups[gk] = append(groups[gk], candidate{entry: e, order: i})
	}

	for gk, cands := range groups {
		out, err := im.applyGroup(ctx, gk, cands)
		if err != nil {
			return report, err
		}
		report.Outcomes = append(report.Outcomes, out)
	}

	sort.SliceStable(report.Outcomes, func(i, j int) bool {
		a, b := report.Outcomes[i], report.Outcomes[j]
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		if a.Cadence != b.Cadence {
			return a.Cadence < b.Cadence
		}
		return a.Period < b.Period
	})

	im.logger.Info("import finished",
		"applied", report.Count(Applied),
		"unchanged", report.Count(Unchanged),
		"rejected", report.Count(Rejected),
	)
	return report, nil
}

func entryKey(e Entry) (period.Key, error) {
	if e.EffectiveOwner() == "" {
		return period.Key{}, errors.New("missing owner")
	}
	c, err := period.ParseCadence(e.EffectiveCadence())
	if err != nil {
		return period.Key{}, err
	}
	key, err := period.ParseKey(c, e.Period)
	if err != nil {
		return period.Key{}, err
	}
	if e.CompletedAt.IsZero() {
		return period.Key{}, errors.New("missing completedAt")
	}
	return key, nil
}

// latest picks the candidate with the greatest completedAt; ties go to
// the entry that appears later in the document.
func latest(cands []candidate) candidate {
	best := cands[0]
	for _, c := range cands[1:] {
		if !c.entry.CompletedAt.Before(best.entry.CompletedAt.Time) {
			best = c
		}
	}
	return best
}

func (im *Importer) applyGroup(ctx context.Context, gk groupKey, cands []candidate) (Outcome, error) {
	winner := latest(cands)
	out := Outcome{
		Owner:      gk.owner,
		Key:        gk.key,
		Period:     gk.key.String(),
		Cadence:    gk.key.Cadence.String(),
		Superseded: len(cands) - 1,
	}

	tmpl, _ := review.TemplateFor(gk.key.Cadence)
	responses, dropped := normalize(tmpl, winner.entry)
	out.Dropped = dropped

	if err := im.validator.Validate(gk.key.Cadence, responses); err != nil {
		out.Status = Rejected
		out.Reason = err.Error()
		return out, nil
	}
	completedAt := winner.entry.CompletedAt.Time

	existing, found, err := im.store.FindReview(ctx, gk.owner, gk.key)
	if errors.Is(err, store.ErrDuplicateRecord) {
		out.Status = Rejected
		out.Reason = "stored period has duplicate records"
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("import %s %s: %w", gk.owner, gk.key, err)
	}
	if found {
		out.RecordID = existing.ID
		if existing.CompletedAt.After(completedAt) {
			out.Status = Unchanged
			out.Reason = "stored record is newer"
			return out, nil
		}
		if existing.Responses.Equal(responses) && existing.CompletedAt.Equal(completedAt) {
			out.Status = Unchanged
			return out, nil
		}
	}

	res, err := im.store.UpsertReview(ctx, store.UpsertParams{
		Owner:       gk.owner,
		Key:         gk.key,
		Responses:   responses,
		CompletedAt: completedAt,
	})
	if err != nil {
		return out, fmt.Errorf("import %s %s: %w", gk.owner, gk.key, err)
	}
	out.Status = Applied
	out.RecordID = res.ID
	im.logger.Debug("imported review", "owner", gk.owner, "period", gk.key.String(), "created", res.Created)
	return out, nil
}
