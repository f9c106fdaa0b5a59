package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cadence/internal/review"
)

func TestOwnerRoundTrip(t *testing.T) {
	ctx := WithOwner(context.Background(), "user-1")

	owner, err := OwnerFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", owner)
}

func TestOwnerMissing(t *testing.T) {
	_, err := OwnerFromContext(context.Background())
	assert.True(t, review.IsUnauthenticated(err))

	_, err = OwnerFromContext(WithOwner(context.Background(), "   "))
	assert.True(t, review.IsUnauthenticated(err))

	//nolint:staticcheck // nil context is handled explicitly.
	_, err = OwnerFromContext(nil)
	assert.True(t, review.IsUnauthenticated(err))
}

func TestWithOwner_NilParent(t *testing.T) {
	//nolint:staticcheck // nil context is handled explicitly.
	ctx := WithOwner(nil, "user-2")

	owner, err := OwnerFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-2", owner)
}
