package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub() *Hub {
	return NewHub(zap.NewNop().Sugar())
}

func testClient(userID string) *Client {
	return NewClient(nil, userID, 10)
}

// frames drains and decodes everything currently queued on the session.
func frames(t *testing.T, c *Client) []Frame {
	t.Helper()
	var out []Frame
	for {
		select {
		case b, ok := <-c.send:
			if !ok {
				return out
			}
			var f Frame
			require.NoError(t, json.Unmarshal(b, &f))
			out = append(out, f)
		default:
			return out
		}
	}
}

func TestToRoomReachesJoinedSessions(t *testing.T) {
	h := newTestHub()
	alice := testClient("alice")
	bob := testClient("bob")
	outsider := testClient("carol")
	for _, c := range []*Client{alice, bob, outsider} {
		h.Register(c)
	}
	h.JoinRoom("conv-1", alice)
	h.JoinRoom("conv-1", bob)

	h.ToRoom("conv-1", "message-created", map[string]string{"id": "m1"})

	require.Len(t, frames(t, alice), 1)
	require.Len(t, frames(t, bob), 1)
	assert.Empty(t, frames(t, outsider))
}

func TestToRoomExceptSkipsAllUserSessions(t *testing.T) {
	h := newTestHub()
	aliceA := testClient("alice")
	aliceB := testClient("alice")
	bob := testClient("bob")
	for _, c := range []*Client{aliceA, aliceB, bob} {
		h.Register(c)
		h.JoinRoom("conv-1", c)
	}

	h.ToRoomExcept("conv-1", "alice", "user-typing", map[string]string{"user_id": "alice"})

	assert.Empty(t, frames(t, aliceA))
	assert.Empty(t, frames(t, aliceB))
	got := frames(t, bob)
	require.Len(t, got, 1)
	assert.Equal(t, "user-typing", got[0].Type)
}

func TestToUserHitsEverySessionRegardlessOfRooms(t *testing.T) {
	h := newTestHub()
	phone := testClient("alice")
	laptop := testClient("alice")
	bob := testClient("bob")
	for _, c := range []*Client{phone, laptop, bob} {
		h.Register(c)
		h.JoinUser(c.UserID, c)
	}
	h.JoinRoom("conv-1", phone) // only one session is in any room

	h.ToUser("alice", "conversation-summary-changed", map[string]int{"unread_delta": 1})

	require.Len(t, frames(t, phone), 1)
	require.Len(t, frames(t, laptop), 1)
	assert.Empty(t, frames(t, bob))
}

func TestEnqueueOrderIsPreserved(t *testing.T) {
	h := newTestHub()
	c := testClient("alice")
	h.Register(c)
	h.JoinRoom("conv-1", c)

	h.ToRoom("conv-1", "first", nil)
	h.ToRoom("conv-1", "second", nil)
	h.ToRoom("conv-1", "third", nil)

	got := frames(t, c)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Type)
	assert.Equal(t, "second", got[1].Type)
	assert.Equal(t, "third", got[2].Type)
}

func TestUnregisterRemovesFromEverything(t *testing.T) {
	h := newTestHub()
	c := testClient("alice")
	other := testClient("bob")
	for _, cl := range []*Client{c, other} {
		h.Register(cl)
		h.JoinRoom("conv-1", cl)
		h.JoinUser(cl.UserID, cl)
	}

	h.Unregister(c)

	h.ToRoom("conv-1", "message-created", nil)
	h.ToUser("alice", "conversation-summary-changed", nil)
	require.Len(t, frames(t, other), 1)

	// The departed session's channel is closed and got nothing new.
	_, ok := <-c.send
	assert.False(t, ok)

	// A second unregister is a no-op.
	h.Unregister(c)
}

func TestEnqueueAfterCloseIsSafe(t *testing.T) {
	c := testClient("alice")
	c.close()
	c.enqueue([]byte(`{"type":"late"}`)) // must not panic on the closed channel
	c.close()
}

func TestFullBufferDropsInsteadOfBlocking(t *testing.T) {
	c := testClient("alice")
	for i := 0; i < sendBuffer; i++ {
		c.enqueue([]byte(`{"type":"fill"}`))
	}
	done := make(chan struct{})
	go func() {
		c.enqueue([]byte(`{"type":"overflow"}`))
		close(done)
	}()
	<-done
	assert.Len(t, c.send, sendBuffer)
}
