// Package identity carries the authenticated owner through a context.
//
// The owner id is supplied by the identity provider at the edge of the
// process. Review operations read it from here and never from request
// input, so a caller can only reach its own records.
package identity

import (
	"context"
	"strings"

	"github.com/roach88/cadence/internal/review"
)

type ownerContextKey struct{}

// WithOwner stores the authenticated owner id in ctx.
func WithOwner(ctx context.Context, owner string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ownerContextKey{}, owner)
}

// OwnerFromContext returns the owner id stored in ctx, or
// review.ErrUnauthenticated if there is none.
func OwnerFromContext(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", review.ErrUnauthenticated
	}
	owner, _ := ctx.Value(ownerContextKey{}).(string)
	if strings.TrimSpace(owner) == "" {
		return "", review.ErrUnauthenticated
	}
	return owner, nil
}
