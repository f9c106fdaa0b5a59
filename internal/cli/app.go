package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/cadence/internal/eventbus"
	"github.com/roach88/cadence/internal/identity"
	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/review"
	"github.com/roach88/cadence/internal/schema"
	"github.com/roach88/cadence/internal/service"
	"github.com/roach88/cadence/internal/store"
)

// app is the per-invocation wiring of store, event bus and service.
type app struct {
	ctx       context.Context
	store     *store.Store
	bus       *eventbus.Bus
	service   *service.Service
	validator *schema.Validator
}

// openApp opens the configured database and builds the service. The
// returned context carries the configured owner; it may be empty, in which
// case owner-scoped operations fail with UNAUTHENTICATED.
func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg := opts.config
	logger := opts.logger

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." && cfg.DBPath != ":memory:" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("database directory %s: %w", dir, err)
		}
	}

	logger.Debug("opening database", "path", cfg.DBPath)
	storeOpts := []store.Option{store.WithLogger(logger)}
	if opts.NewID != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(opts.NewID))
	}
	st, err := store.Open(cfg.DBPath, storeOpts...)
	if err != nil {
		return nil, err
	}

	bus := eventbus.New()
	if err := bus.Start(); err != nil {
		st.Close()
		return nil, err
	}

	validator, err := schema.NewValidator()
	if err != nil {
		bus.Close()
		st.Close()
		return nil, err
	}

	svcOpts := []service.Option{
		service.WithLocation(loc),
		service.WithBus(bus),
		service.WithLogger(logger),
	}
	if opts.Now != nil {
		svcOpts = append(svcOpts, service.WithClock(opts.Now))
	}

	return &app{
		ctx:       identity.WithOwner(cmd.Context(), cfg.Owner),
		store:     st,
		bus:       bus,
		service:   service.New(st, validator, svcOpts...),
		validator: validator,
	}, nil
}

// Close tears down the bus and the database.
func (a *app) Close() error {
	return errors.Join(a.bus.Close(), a.store.Close())
}

// withApp opens the app, runs fn and closes the app. Open failures are
// reported as store errors.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(a *app) error) error {
	a, err := openApp(cmd, opts)
	if err != nil {
		return fail(opts.formatter(cmd), "open database",
			review.WrapError(review.CodeStoreUnavailable, "open "+opts.config.DBPath, err))
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			opts.logger.Error("error closing database", "error", cerr)
		}
	}()
	return fn(a)
}

// resolveKey returns the period named by label, or the current period of c
// when label is empty.
func (a *app) resolveKey(c period.Cadence, label string) (period.Key, error) {
	if label == "" {
		return a.service.Current(c), nil
	}
	key, err := period.ParseKey(c, label)
	if err != nil {
		return period.Key{}, review.WrapError(review.CodeValidationFailed, "invalid period", err)
	}
	return key, nil
}

// parseCadenceArg parses a cadence argument as a validation failure.
func parseCadenceArg(arg string) (period.Cadence, error) {
	c, err := period.ParseCadence(arg)
	if err != nil {
		return 0, review.WrapError(review.CodeValidationFailed, "invalid cadence", err)
	}
	return c, nil
}
