// Package service is the backend mutation surface for periodic reviews.
//
// Every operation resolves the owner from the context (see
// internal/identity) and fails with UNAUTHENTICATED before the store is
// touched when there is none. Owners are never taken from input.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/roach88/cadence/internal/eventbus"
	"github.com/roach88/cadence/internal/identity"
	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/review"
	"github.com/roach88/cadence/internal/schema"
	"github.com/roach88/cadence/internal/store"
	"github.com/roach88/cadence/internal/streak"
)

// Store is the persistence the service needs. *store.Store implements it.
type Store interface {
	FindReview(ctx context.Context, owner string, key period.Key) (review.Record, bool, error)
	UpsertReview(ctx context.Context, p store.UpsertParams) (store.UpsertResult, error)
	ListReviews(ctx context.Context, owner string, c period.Cadence) ([]review.Record, error)
	CreateProfile(ctx context.Context, owner string, at time.Time) (bool, error)
	ReadProfile(ctx context.Context, owner string) (review.Profile, error)
}

// Publisher receives submission events. *eventbus.Bus implements it.
type Publisher interface {
	Publish(topic string, payload any) error
}

// Service validates submissions and upserts them by period.
type Service struct {
	store     Store
	validator *schema.Validator
	bus       Publisher
	now       func() time.Time
	loc       *time.Location
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source for completion timestamps and "current"
// periods.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLocation sets the zone in which "today" is resolved to a period.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithBus publishes a review.submitted event after every commit.
func WithBus(bus Publisher) Option {
	return func(s *Service) {
		s.bus = bus
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a Service over st. A nil validator uses the embedded schemas.
func New(st Store, validator *schema.Validator, opts ...Option) *Service {
	if validator == nil {
		validator = schema.MustNewValidator()
	}
	s := &Service{
		store:     st,
		validator: validator,
		now:       time.Now,
		loc:       time.Local,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitResult reports the outcome of Submit.
type SubmitResult struct {
	ID          string     `json:"id"`
	Key         period.Key `json:"-"`
	Created     bool       `json:"created"`
	CompletedAt time.Time  `json:"completedAt"`
}

// SubmittedEvent is the payload of eventbus.TopicReviewSubmitted.
type SubmittedEvent struct {
	Owner       string
	ID          string
	Key         period.Key
	Created     bool
	CompletedAt time.Time
}

// Current returns the period of c containing the service clock's now.
func (s *Service) Current(c period.Cadence) period.Key {
	return period.Resolve(s.now().In(s.loc), c)
}

// Find returns the owner's record for key, or nil if none exists.
func (s *Service) Find(ctx context.Context, key period.Key) (*review.Record, error) {
	owner, err := identity.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !key.Valid() {
		return nil, invalidPeriod(key)
	}

	rec, found, err := s.store.FindReview(ctx, owner, key)
	if err != nil {
		return nil, mapStoreError("find review", err)
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

// FindCurrent is Find for the current period of c.
func (s *Service) FindCurrent(ctx context.Context, c period.Cadence) (*review.Record, error) {
	return s.Find(ctx, s.Current(c))
}

// Submit creates or replaces the owner's record for key.
//
// Responses are NFC-normalised and validated against the schema of the
// key's cadence before any write. An annual submission also stores its
// next-cycle north stars on the owner's profile, atomically with the record.
func (s *Service) Submit(ctx context.Context, key period.Key, responses review.Responses) (SubmitResult, error) {
	owner, err := identity.OwnerFromContext(ctx)
	if err != nil {
		return SubmitResult{}, err
	}
	if !key.Valid() {
		return SubmitResult{}, invalidPeriod(key)
	}

	if err := invalidText(key.Cadence, responses); err != nil {
		return SubmitResult{}, err
	}
	normalized := responses.Normalize()
	if err := s.validator.Validate(key.Cadence, normalized); err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			return SubmitResult{}, review.NewValidationError(key.Cadence, verr.Violations)
		}
		return SubmitResult{}, review.WrapError(review.CodeValidationFailed, "validate responses", err)
	}

	params := store.UpsertParams{
		Owner:       owner,
		Key:         key,
		Responses:   normalized,
		CompletedAt: s.now(),
	}
	if key.Cadence == period.Annual {
		params.NorthStars = normalized.NextNorthStars()
	}

	res, err := s.store.UpsertReview(ctx, params)
	if err != nil {
		return SubmitResult{}, mapStoreError("submit review", err)
	}

	s.logger.Info("review submitted",
		"owner", owner,
		"cadence", key.Cadence.String(),
		"period", key.String(),
		"id", res.ID,
		"created", res.Created,
	)

	if s.bus != nil {
		ev := SubmittedEvent{Owner: owner, ID: res.ID, Key: key, Created: res.Created, CompletedAt: res.CompletedAt}
		if err := s.bus.Publish(eventbus.TopicReviewSubmitted, ev); err != nil {
			// The record is committed; a missing notification is not a
			// submission failure.
			s.logger.Warn("publish submission event", "error", err)
		}
	}

	return SubmitResult{ID: res.ID, Key: key, Created: res.Created, CompletedAt: res.CompletedAt}, nil
}

// History returns the owner's records of c in period order.
func (s *Service) History(ctx context.Context, c period.Cadence) ([]review.Record, error) {
	owner, err := identity.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListReviews(ctx, owner, c)
	if err != nil {
		return nil, mapStoreError("list reviews", err)
	}
	return records, nil
}

// Streak summarises the owner's streak for c as of the service clock.
func (s *Service) Streak(ctx context.Context, c period.Cadence) (streak.Summary, error) {
	records, err := s.History(ctx, c)
	if err != nil {
		return streak.Summary{}, err
	}
	keys := make([]period.Key, len(records))
	for i, rec := range records {
		keys[i] = rec.Key
	}
	return streak.Compute(c, keys, s.now().In(s.loc)), nil
}

// InitProfile creates the owner's profile if it does not exist.
func (s *Service) InitProfile(ctx context.Context) (created bool, err error) {
	owner, err := identity.OwnerFromContext(ctx)
	if err != nil {
		return false, err
	}
	created, err = s.store.CreateProfile(ctx, owner, s.now())
	if err != nil {
		return false, mapStoreError("create profile", err)
	}
	if created {
		s.logger.Info("profile created", "owner", owner)
	}
	return created, nil
}

// Profile returns the owner's profile.
func (s *Service) Profile(ctx context.Context) (review.Profile, error) {
	owner, err := identity.OwnerFromContext(ctx)
	if err != nil {
		return review.Profile{}, err
	}
	p, err := s.store.ReadProfile(ctx, owner)
	if err != nil {
		return review.Profile{}, mapStoreError("read profile", err)
	}
	return p, nil
}

func invalidPeriod(key period.Key) error {
	return review.NewError(review.CodeValidationFailed, fmt.Sprintf("invalid %s period %s", key.Cadence, key))
}

// invalidText rejects answers that are not valid UTF-8. It runs before
// normalization so the bytes checked are the bytes the caller sent.
func invalidText(c period.Cadence, responses review.Responses) error {
	var fields []string
	for name, answer := range responses {
		if !utf8.ValidString(answer) {
			fields = append(fields, name)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	sort.Strings(fields)
	violations := make([]schema.Violation, len(fields))
	for i, name := range fields {
		violations[i] = schema.Violation{Field: name, Reason: schema.ReasonInvalid}
	}
	return review.NewValidationError(c, violations)
}

// mapStoreError classifies store failures into review error codes.
func mapStoreError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicateRecord):
		return review.WrapError(review.CodeConsistency, op, err)
	case errors.Is(err, store.ErrProfileNotFound):
		return review.WrapError(review.CodeNotFound, op+": profile not found", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return review.WrapError(review.CodeStoreUnavailable, op, err)
	}
}
