package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathima-sithara/messaging-service/internal/apperr"
	"github.com/fathima-sithara/messaging-service/internal/domain"
)

func TestMarkDelivered(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	conv := rig.conversation(t, "alice", "bob")
	msg := rig.send(t, conv.ID, "alice", "hi")

	require.NoError(t, rig.engine.MarkStatus(ctx, msg.ID, "bob", StatusKindDelivered))
	got, err := rig.mem.Messages().Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, got.Status)
	assert.Equal(t, []string{"bob"}, got.DeliveredTo)
	assert.Empty(t, got.ReadBy)

	// Repeats do not duplicate the set entry.
	require.NoError(t, rig.engine.MarkStatus(ctx, msg.ID, "bob", StatusKindDelivered))
	got, err = rig.mem.Messages().Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, got.DeliveredTo)
}

func TestMarkSeenImpliesDelivered(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	conv := rig.conversation(t, "alice", "bob")
	msg := rig.send(t, conv.ID, "alice", "hi")

	// Seen directly from sent, skipping the explicit delivered ack.
	require.NoError(t, rig.engine.MarkStatus(ctx, msg.ID, "bob", StatusKindSeen))
	got, err := rig.mem.Messages().Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSeen, got.Status)
	assert.Equal(t, []string{"bob"}, got.DeliveredTo)
	require.Len(t, got.ReadBy, 1)
	assert.Equal(t, "bob", got.ReadBy[0].UserID)

	events := rig.emitter.byEvent(domain.EventMessagesSeen)
	require.Len(t, events, 1)
	seen := events[0].Payload.(*domain.MessagesSeenEvent)
	assert.Equal(t, []string{msg.ID}, seen.MessageIDs)
	assert.Equal(t, "bob", seen.SeenBy)
}

func TestStatusNeverRegresses(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	conv := rig.conversation(t, "alice", "bob")
	msg := rig.send(t, conv.ID, "alice", "hi")

	require.NoError(t, rig.engine.MarkStatus(ctx, msg.ID, "bob", StatusKindSeen))
	// A late delivered ack after seen must not move the status back.
	require.NoError(t, rig.engine.MarkStatus(ctx, msg.ID, "bob", StatusKindDelivered))

	got, err := rig.mem.Messages().Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSeen, got.Status)
}

func TestMarkStatusRejectsSender(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	conv := rig.conversation(t, "alice", "bob")
	msg := rig.send(t, conv.ID, "alice", "hi")

	err := rig.engine.MarkStatus(ctx, msg.ID, "alice", StatusKindSeen)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	err = rig.engine.MarkStatus(ctx, msg.ID, "mallory", StatusKindSeen)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	err = rig.engine.MarkStatus(ctx, msg.ID, "bob", StatusKind("archived"))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	got, err := rig.mem.Messages().Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, got.Status)
}

func TestMarkStatusRepeatEmitsOnce(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	conv := rig.conversation(t, "alice", "bob")
	msg := rig.send(t, conv.ID, "alice", "hi")

	require.NoError(t, rig.engine.MarkStatus(ctx, msg.ID, "bob", StatusKindSeen))
	require.NoError(t, rig.engine.MarkStatus(ctx, msg.ID, "bob", StatusKindSeen))
	assert.Len(t, rig.emitter.byEvent(domain.EventMessagesSeen), 1)
}

func TestMarkStatusBatch(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	conv := rig.conversation(t, "alice", "bob")
	m1 := rig.send(t, conv.ID, "alice", "one")
	m2 := rig.send(t, conv.ID, "alice", "two")
	mine := rig.send(t, conv.ID, "bob", "from bob")

	// One missing id and one own message; the valid ids still land.
	res, err := rig.engine.MarkStatusBatch(ctx, []string{m1.ID, "missing", mine.ID, m2.ID}, "bob", StatusKindSeen)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{m1.ID, m2.ID}, res.Updated)
	assert.Equal(t, "not_found", res.Failed["missing"])
	assert.Equal(t, "invalid_input", res.Failed[mine.ID])

	for _, id := range []string{m1.ID, m2.ID} {
		got, err := rig.mem.Messages().Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSeen, got.Status)
	}

	// Everything that changed travels in one grouped event.
	events := rig.emitter.byEvent(domain.EventMessagesSeen)
	require.Len(t, events, 1)
	seen := events[0].Payload.(*domain.MessagesSeenEvent)
	assert.ElementsMatch(t, []string{m1.ID, m2.ID}, seen.MessageIDs)

	_, err = rig.engine.MarkStatusBatch(ctx, nil, "bob", StatusKindSeen)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
