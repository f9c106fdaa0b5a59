package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/review"
)

// UpsertParams describes one submission for a period.
type UpsertParams struct {
	Owner       string
	Key         period.Key
	Responses   review.Responses
	CompletedAt time.Time

	// NorthStars, when non-nil, is merged into the owner's profile in the
	// same transaction. The profile must already exist.
	NorthStars map[string]string
}

// UpsertResult reports what UpsertReview wrote.
type UpsertResult struct {
	ID          string
	Created     bool
	CompletedAt time.Time
}

// UpsertReview creates the record for p.Key or replaces the responses of
// the existing one. Lookup and write run in one transaction, so two
// submissions for the same period never produce two rows.
//
// An existing record keeps its id and created_at. If the profile patch
// fails nothing is written.
func (s *Store) UpsertReview(ctx context.Context, p UpsertParams) (UpsertResult, error) {
	if p.Owner == "" {
		return UpsertResult{}, errors.New("upsert review: owner is required")
	}
	if !p.Key.Valid() {
		return UpsertResult{}, fmt.Errorf("upsert review: invalid period %+v", p.Key)
	}

	respJSON, err := marshalResponses(p.Responses)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert review: %w", err)
	}
	digest, err := p.Responses.Digest()
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert review: %w", err)
	}
	completed := toMillis(p.CompletedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert review: begin: %w", err)
	}
	defer tx.Rollback()

	existing, found, err := findReview(ctx, tx, p.Owner, p.Key)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert review: %w", err)
	}

	result := UpsertResult{CompletedAt: fromMillis(completed)}
	if found {
		result.ID = existing.ID
		if _, err := tx.ExecContext(ctx, `
			UPDATE reviews
			SET responses = ?, digest = ?, completed_at = ?
			WHERE id = ? AND owner = ?
		`, respJSON, digest, completed, existing.ID, p.Owner); err != nil {
			return UpsertResult{}, fmt.Errorf("upsert review: update: %w", err)
		}
	} else {
		result.ID = s.newID()
		result.Created = true
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reviews
			(id, owner, cadence, year, period_index, responses, digest, created_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			result.ID,
			p.Owner,
			p.Key.Cadence.String(),
			p.Key.Year,
			p.Key.Index,
			respJSON,
			digest,
			completed,
			completed,
		); err != nil {
			return UpsertResult{}, fmt.Errorf("upsert review: insert: %w", err)
		}
	}

	if p.NorthStars != nil {
		if err := patchNorthStars(ctx, tx, p.Owner, p.NorthStars, completed); err != nil {
			return UpsertResult{}, fmt.Errorf("upsert review: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("upsert review: commit: %w", err)
	}
	return result, nil
}

// CreateProfile inserts an empty profile for owner. created is false if the
// owner already had one; the existing profile is left untouched.
func (s *Store) CreateProfile(ctx context.Context, owner string, at time.Time) (created bool, err error) {
	if owner == "" {
		return false, errors.New("create profile: owner is required")
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (owner, north_stars, updated_at)
		VALUES (?, '{}', ?)
		ON CONFLICT(owner) DO NOTHING
	`, owner, toMillis(at))
	if err != nil {
		return false, fmt.Errorf("create profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create profile: rows affected: %w", err)
	}
	return n == 1, nil
}

// PatchNorthStars merges stars into the owner's profile. Areas not named in
// stars keep their goal.
// The error wraps ErrProfileNotFound if the owner has no profile.
func (s *Store) PatchNorthStars(ctx context.Context, owner string, stars map[string]string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("patch north stars: begin: %w", err)
	}
	defer tx.Rollback()

	if err := patchNorthStars(ctx, tx, owner, stars, toMillis(at)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("patch north stars: commit: %w", err)
	}
	return nil
}

func patchNorthStars(ctx context.Context, q queryer, owner string, stars map[string]string, at int64) error {
	var current string
	err := q.QueryRowContext(ctx, `SELECT north_stars FROM profiles WHERE owner = ?`, owner).Scan(&current)
	if err != nil {
		if isNoRows(err) {
			return fmt.Errorf("patch north stars %s: %w", owner, ErrProfileNotFound)
		}
		return fmt.Errorf("patch north stars: %w", err)
	}

	merged, err := unmarshalNorthStars(current)
	if err != nil {
		return fmt.Errorf("patch north stars: %w", err)
	}
	for area, goal := range stars {
		merged[area] = goal
	}
	data, err := marshalNorthStars(merged)
	if err != nil {
		return fmt.Errorf("patch north stars: %w", err)
	}

	if _, err := q.ExecContext(ctx, `
		UPDATE profiles SET north_stars = ?, updated_at = ? WHERE owner = ?
	`, data, at, owner); err != nil {
		return fmt.Errorf("patch north stars: update: %w", err)
	}
	return nil
}
