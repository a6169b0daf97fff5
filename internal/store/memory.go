// Package store provides an in-memory implementation of the repository
// interfaces, used by the test suites and for running the service without a
// database.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fathima-sithara/messaging-service/internal/apperr"
	"github.com/fathima-sithara/messaging-service/internal/domain"
	"github.com/fathima-sithara/messaging-service/internal/repository"
)

// Memory holds the shared state; Conversations, Messages and Users expose it
// through the repository interfaces.
type Memory struct {
	mu            sync.RWMutex
	conversations map[string]*domain.Conversation
	byPair        map[string]string // "a|b" (sorted) -> conversation id
	messages      map[string]*domain.Message
	byConv        map[string][]string // conversation id -> message ids, insert order
	users         map[string]*domain.UserSummary
}

func NewMemory() *Memory {
	return &Memory{
		conversations: make(map[string]*domain.Conversation),
		byPair:        make(map[string]string),
		messages:      make(map[string]*domain.Message),
		byConv:        make(map[string][]string),
		users:         make(map[string]*domain.UserSummary),
	}
}

func (s *Memory) Conversations() repository.ConversationStore { return (*conversations)(s) }
func (s *Memory) Messages() repository.MessageStore           { return (*messages)(s) }
func (s *Memory) Users() repository.UserDirectory             { return (*users)(s) }

func (s *Memory) PutUser(u *domain.UserSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

type users Memory

func (s *users) Summary(_ context.Context, userID string) (*domain.UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		cp := *u
		return &cp, nil
	}
	return &domain.UserSummary{ID: userID}, nil
}

type conversations Memory

func (s *conversations) CreateOrGet(_ context.Context, a, b string) (*domain.Conversation, error) {
	first, second := domain.NormalizePair(a, b)
	key := first + "|" + second

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byPair[key]; ok {
		return copyConv(s.conversations[id]), nil
	}
	now := time.Now().UTC()
	conv := &domain.Conversation{
		ID:           uuid.NewString(),
		Participants: []string{first, second},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.conversations[conv.ID] = conv
	s.byPair[key] = conv.ID
	return copyConv(conv), nil
}

func (s *conversations) Get(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return copyConv(conv), nil
}

func (s *conversations) SetLastMessage(_ context.Context, conversationID, messageID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return apperr.ErrNotFound
	}
	conv.LastMessageID = messageID
	conv.UpdatedAt = at
	return nil
}

func (s *conversations) ListForUser(_ context.Context, userID string) ([]*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Conversation{}
	for _, c := range s.conversations {
		if c.HasParticipant(userID) {
			out = append(out, copyConv(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

type messages Memory

func (s *messages) Insert(_ context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[m.ID]; ok {
		return nil
	}
	cp := copyMsg(m)
	s.messages[cp.ID] = cp
	s.byConv[cp.ConversationID] = append(s.byConv[cp.ConversationID], cp.ID)
	return nil
}

func (s *messages) Get(_ context.Context, id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return copyMsg(m), nil
}

func (s *messages) Replace(_ context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[m.ID]; !ok {
		return apperr.ErrNotFound
	}
	s.messages[m.ID] = copyMsg(m)
	return nil
}

func (s *messages) ListPage(_ context.Context, conversationID, viewerID string, before *repository.Cursor, limit int64) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := []*domain.Message{}
	for _, id := range s.byConv[conversationID] {
		m := s.messages[id]
		if m.HiddenFor(viewerID) {
			continue
		}
		if before != nil && !beforeCursor(m, before) {
			continue
		}
		all = append(all, copyMsg(m))
	}
	// Newest first; ties resolved on id to mirror the mongo sort.
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if int64(len(all)) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *messages) CountUnread(_ context.Context, conversationID, viewerID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, id := range s.byConv[conversationID] {
		m := s.messages[id]
		if m.SenderID == viewerID || m.SeenBy(viewerID) || m.HiddenFor(viewerID) || m.IsDeletedForEveryone {
			continue
		}
		n++
	}
	return n, nil
}

func beforeCursor(m *domain.Message, c *repository.Cursor) bool {
	if m.CreatedAt.Before(c.Before) {
		return true
	}
	return m.CreatedAt.Equal(c.Before) && m.ID < c.ID
}

func copyConv(c *domain.Conversation) *domain.Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	return &cp
}

func copyMsg(m *domain.Message) *domain.Message {
	cp := *m
	cp.DeliveredTo = append([]string{}, m.DeliveredTo...)
	cp.ReadBy = append([]domain.ReadReceipt{}, m.ReadBy...)
	cp.DeletedFor = append([]string{}, m.DeletedFor...)
	cp.Reactions = append([]domain.Reaction{}, m.Reactions...)
	return &cp
}
