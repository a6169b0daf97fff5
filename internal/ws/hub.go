package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/fathima-sithara/messaging-service/internal/metrics"
)

// Hub owns the registry of live sessions: which sessions are in which
// conversation room and which belong to which user's notification channel.
// Nothing outside this type touches the maps; everything goes through
// join/leave/broadcast.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{} // conversation id -> sessions
	users   map[string]map[*Client]struct{} // user id -> sessions
	log     *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		users:   make(map[string]map[*Client]struct{}),
		log:     log,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	metrics.ActiveConnections.Inc()
}

// Unregister removes the session from every room and channel it joined.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for id, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, id)
		}
	}
	for id, members := range h.users {
		delete(members, c)
		if len(members) == 0 {
			delete(h.users, id)
		}
	}
	metrics.ActiveConnections.Dec()
	c.close()
}

func (h *Hub) JoinRoom(conversationID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[conversationID]; !ok {
		h.rooms[conversationID] = make(map[*Client]struct{})
	}
	h.rooms[conversationID][c] = struct{}{}
}

func (h *Hub) LeaveRoom(conversationID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[conversationID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// JoinUser subscribes the session to its user's notification channel.
// Idempotent; called on join-notifications and safe to repeat.
func (h *Hub) JoinUser(userID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[*Client]struct{})
	}
	h.users[userID][c] = struct{}{}
}

// ToRoom delivers an event to every session joined to the conversation,
// including the sender's own other sessions.
func (h *Hub) ToRoom(conversationID, event string, payload any) {
	h.emit(h.roomMembers(conversationID, ""), event, payload)
}

// ToRoomExcept skips sessions belonging to exceptUserID; used for typing,
// where the typist's own sessions do not need the echo.
func (h *Hub) ToRoomExcept(conversationID, exceptUserID, event string, payload any) {
	h.emit(h.roomMembers(conversationID, exceptUserID), event, payload)
}

// ToUser delivers to all of one user's sessions regardless of room
// membership; this is the conversation-list update path.
func (h *Hub) ToUser(userID, event string, payload any) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.users[userID]))
	for c := range h.users[userID] {
		members = append(members, c)
	}
	h.mu.RUnlock()
	h.emit(members, event, payload)
}

func (h *Hub) roomMembers(conversationID, exceptUserID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := make([]*Client, 0, len(h.rooms[conversationID]))
	for c := range h.rooms[conversationID] {
		if exceptUserID != "" && c.UserID == exceptUserID {
			continue
		}
		members = append(members, c)
	}
	return members
}

func (h *Hub) emit(targets []*Client, event string, payload any) {
	if len(targets) == 0 {
		return
	}
	b, err := json.Marshal(Frame{Type: event, Payload: payload})
	if err != nil {
		h.log.Errorw("frame marshal failed", "event", event, "err", err)
		return
	}
	metrics.EventsEmitted.WithLabelValues(event).Add(float64(len(targets)))
	for _, c := range targets {
		c.enqueue(b)
	}
}
