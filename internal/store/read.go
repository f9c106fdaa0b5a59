package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/review"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const reviewColumns = `id, owner, cadence, year, period_index, responses, digest, created_at, completed_at`

// FindReview returns the owner's record for key.
//
// found is false when no record exists. If more than one row matches, the
// error wraps ErrDuplicateRecord and no record is returned.
func (s *Store) FindReview(ctx context.Context, owner string, key period.Key) (rec review.Record, found bool, err error) {
	return findReview(ctx, s.db, owner, key)
}

func findReview(ctx context.Context, q queryer, owner string, key period.Key) (review.Record, bool, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE owner = ? AND cadence = ? AND year = ? AND period_index = ?
		ORDER BY completed_at DESC, id COLLATE BINARY ASC
		LIMIT 2
	`, owner, key.Cadence.String(), key.Year, key.Index)
	if err != nil {
		return review.Record{}, false, fmt.Errorf("find review: %w", err)
	}
	defer rows.Close()

	var matches []review.Record
	for rows.Next() {
		rec, err := scanReview(rows)
		if err != nil {
			return review.Record{}, false, err
		}
		matches = append(matches, rec)
	}
	if err := rows.Err(); err != nil {
		return review.Record{}, false, fmt.Errorf("find review: iterate: %w", err)
	}

	switch len(matches) {
	case 0:
		return review.Record{}, false, nil
	case 1:
		return matches[0], true, nil
	default:
		return review.Record{}, false, fmt.Errorf("find review %s for %s: %w", key, owner, ErrDuplicateRecord)
	}
}

// ReadReview retrieves a single record by id, scoped to owner.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadReview(ctx context.Context, owner, id string) (review.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE owner = ? AND id = ?
	`, owner, id)
	if err != nil {
		return review.Record{}, fmt.Errorf("read review: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return review.Record{}, fmt.Errorf("read review: %w", err)
		}
		return review.Record{}, sql.ErrNoRows
	}
	return scanReview(rows)
}

// ListReviews returns the owner's records of one cadence, oldest period first.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListReviews(ctx context.Context, owner string, c period.Cadence) ([]review.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE owner = ? AND cadence = ?
		ORDER BY year ASC, period_index ASC, id COLLATE BINARY ASC
	`, owner, c.String())
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	records := []review.Record{}
	for rows.Next() {
		rec, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reviews: iterate: %w", err)
	}
	return records, nil
}

// CountReviews returns the number of stored records per cadence across all
// owners. Cadences without records are omitted.
func (s *Store) CountReviews(ctx context.Context) (map[period.Cadence]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cadence, COUNT(*) FROM reviews GROUP BY cadence`)
	if err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}
	defer rows.Close()

	counts := make(map[period.Cadence]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("count reviews: scan: %w", err)
		}
		c, err := period.ParseCadence(name)
		if err != nil {
			return nil, fmt.Errorf("count reviews: %w", err)
		}
		counts[c] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count reviews: iterate: %w", err)
	}
	return counts, nil
}

// ReadProfile returns the owner's profile.
// The error wraps ErrProfileNotFound if there is none.
func (s *Store) ReadProfile(ctx context.Context, owner string) (review.Profile, error) {
	var starsJSON string
	var updated int64
	err := s.db.QueryRowContext(ctx, `
		SELECT north_stars, updated_at FROM profiles WHERE owner = ?
	`, owner).Scan(&starsJSON, &updated)
	if isNoRows(err) {
		return review.Profile{}, fmt.Errorf("read profile %s: %w", owner, ErrProfileNotFound)
	}
	if err != nil {
		return review.Profile{}, fmt.Errorf("read profile: %w", err)
	}

	stars, err := unmarshalNorthStars(starsJSON)
	if err != nil {
		return review.Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return review.Profile{Owner: owner, NorthStars: stars, UpdatedAt: fromMillis(updated)}, nil
}

// scanReview scans the current row into a Record.
func scanReview(rows *sql.Rows) (review.Record, error) {
	var (
		rec                review.Record
		cadence, respJSON  string
		created, completed int64
	)
	if err := rows.Scan(
		&rec.ID, &rec.Owner, &cadence, &rec.Key.Year, &rec.Key.Index,
		&respJSON, &rec.Digest, &created, &completed,
	); err != nil {
		return review.Record{}, fmt.Errorf("scan review: %w", err)
	}

	c, err := period.ParseCadence(cadence)
	if err != nil {
		return review.Record{}, fmt.Errorf("scan review %s: %w", rec.ID, err)
	}
	rec.Key.Cadence = c

	rec.Responses, err = unmarshalResponses(respJSON)
	if err != nil {
		return review.Record{}, fmt.Errorf("scan review %s: %w", rec.ID, err)
	}
	rec.CreatedAt = fromMillis(created)
	rec.CompletedAt = fromMillis(completed)
	return rec, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
