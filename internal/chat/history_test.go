package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathima-sithara/messaging-service/internal/domain"
)

// Walking a conversation page by page yields every visible message exactly
// once, oldest-first within each page, even when timestamps collide.
func TestHistoryWalk(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	conv := rig.conversation(t, "alice", "bob")

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	sent := map[string]bool{}
	for i := 0; i < 23; i++ {
		// Two messages share each timestamp so the id tie-break is exercised
		// at page boundaries.
		rig.setNow(base.Add(time.Duration(i/2) * time.Second))
		m := rig.send(t, conv.ID, "alice", "msg")
		sent[m.ID] = true
	}

	var walked []*domain.MessageView
	page, err := rig.engine.FetchHistory(ctx, conv.ID, "alice", nil, 5)
	require.NoError(t, err)
	pages := 1
	for {
		walked = append(page.Items, walked...)
		if !page.HasMore {
			break
		}
		require.NotNil(t, page.NextCursor)
		page, err = rig.engine.FetchHistory(ctx, conv.ID, "alice", page.NextCursor, 5)
		require.NoError(t, err)
		pages++
	}

	assert.Equal(t, 5, pages)
	require.Len(t, walked, 23)
	seen := map[string]bool{}
	for i, m := range walked {
		assert.False(t, seen[m.ID], "message %s returned twice", m.ID)
		seen[m.ID] = true
		assert.True(t, sent[m.ID])
		if i > 0 {
			prev := walked[i-1]
			notBefore := m.CreatedAt.After(prev.CreatedAt) ||
				(m.CreatedAt.Equal(prev.CreatedAt) && m.ID > prev.ID)
			assert.True(t, notBefore, "order violated at index %d", i)
		}
	}
}

func TestHistoryDefaultLimit(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	conv := rig.conversation(t, "alice", "bob")
	for i := 0; i < 3; i++ {
		rig.send(t, conv.ID, "alice", "msg")
	}

	page, err := rig.engine.FetchHistory(ctx, conv.ID, "alice", nil, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.False(t, page.HasMore)
}

func TestHistoryExcludesHiddenForViewer(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	conv := rig.conversation(t, "alice", "bob")
	kept := rig.send(t, conv.ID, "alice", "kept")
	hidden := rig.send(t, conv.ID, "alice", "hidden")

	_, err := rig.engine.Delete(ctx, hidden.ID, "bob", domain.DeleteForMe)
	require.NoError(t, err)

	page, err := rig.engine.FetchHistory(ctx, conv.ID, "bob", nil, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, kept.ID, page.Items[0].ID)

	// The other participant's view is unchanged.
	page, err = rig.engine.FetchHistory(ctx, conv.ID, "alice", nil, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

// Fetching history doubles as the read receipt: the other party's messages on
// the page come back seen and one grouped event reaches the room.
func TestHistoryMarksPageSeen(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	conv := rig.conversation(t, "alice", "bob")
	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, rig.send(t, conv.ID, "alice", "msg").ID)
	}
	own := rig.send(t, conv.ID, "bob", "from bob")
	rig.emitter.reset()

	page, err := rig.engine.FetchHistory(ctx, conv.ID, "bob", nil, 10)
	require.NoError(t, err)
	for _, item := range page.Items {
		if item.ID == own.ID {
			assert.Equal(t, domain.StatusSent, item.Status)
			continue
		}
		assert.Equal(t, domain.StatusSeen, item.Status, "message %s", item.ID)
		assert.True(t, item.SeenBy("bob"))
	}

	events := rig.emitter.byEvent(domain.EventMessagesSeen)
	require.Len(t, events, 1)
	seen := events[0].Payload.(*domain.MessagesSeenEvent)
	assert.ElementsMatch(t, ids, seen.MessageIDs)
	assert.Equal(t, "bob", seen.SeenBy)

	// A second read of the same page produces no further receipts.
	rig.emitter.reset()
	_, err = rig.engine.FetchHistory(ctx, conv.ID, "bob", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, rig.emitter.byEvent(domain.EventMessagesSeen))

	// The sender reading their own messages never produces receipts.
	_, err = rig.engine.FetchHistory(ctx, conv.ID, "alice", nil, 10)
	require.NoError(t, err)
	got, err := rig.mem.Messages().Get(ctx, own.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSeen, got.Status) // alice's fetch saw bob's message
	assert.False(t, got.SeenBy("bob"))
}

// Messages sent after a cursor was taken never leak into older pages.
func TestHistoryCursorIsStable(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	conv := rig.conversation(t, "alice", "bob")

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		rig.setNow(base.Add(time.Duration(i) * time.Second))
		rig.send(t, conv.ID, "alice", "old")
	}

	page, err := rig.engine.FetchHistory(ctx, conv.ID, "alice", nil, 3)
	require.NoError(t, err)
	require.True(t, page.HasMore)

	rig.setNow(base.Add(time.Hour))
	late := rig.send(t, conv.ID, "alice", "late arrival")

	rest, err := rig.engine.FetchHistory(ctx, conv.ID, "alice", page.NextCursor, 10)
	require.NoError(t, err)
	require.Len(t, rest.Items, 3)
	for _, item := range rest.Items {
		assert.NotEqual(t, late.ID, item.ID)
	}
	assert.False(t, rest.HasMore)
}
