package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathima-sithara/messaging-service/internal/apperr"
	"github.com/fathima-sithara/messaging-service/internal/store"
)

func TestGuardAuthorize(t *testing.T) {
	mem := store.NewMemory()
	guard := NewGuard(mem.Conversations())
	ctx := context.Background()

	conv, err := mem.Conversations().CreateOrGet(ctx, "alice", "bob")
	require.NoError(t, err)

	got, err := guard.Authorize(ctx, "alice", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	_, err = guard.Authorize(ctx, "", conv.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = guard.Authorize(ctx, "alice", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = guard.Authorize(ctx, "alice", "no-such-conversation")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// A valid user who is not a participant is forbidden, not unauthorized.
	_, err = guard.Authorize(ctx, "mallory", conv.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
