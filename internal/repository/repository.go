package repository

import (
	"context"
	"time"

	"github.com/fathima-sithara/messaging-service/internal/domain"
)

// Cursor addresses a position in a conversation's history. ID breaks ties
// when two messages share a creation timestamp, so a page boundary can never
// drop or duplicate a message.
type Cursor struct {
	Before time.Time `json:"before"`
	ID     string    `json:"id"`
}

type ConversationStore interface {
	// CreateOrGet returns the conversation for the unordered pair (a, b),
	// creating it if absent. Concurrent calls for the same pair resolve to
	// the same document.
	CreateOrGet(ctx context.Context, a, b string) (*domain.Conversation, error)
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	SetLastMessage(ctx context.Context, conversationID, messageID string, at time.Time) error
	ListForUser(ctx context.Context, userID string) ([]*domain.Conversation, error)
}

type MessageStore interface {
	Insert(ctx context.Context, m *domain.Message) error
	Get(ctx context.Context, id string) (*domain.Message, error)
	// Replace persists the full document. All mutation goes through the
	// lifecycle engine, which serializes writers per conversation.
	Replace(ctx context.Context, m *domain.Message) error
	// ListPage returns up to limit messages of the conversation visible to
	// viewerID, newest first, strictly before the cursor when one is given.
	ListPage(ctx context.Context, conversationID, viewerID string, before *Cursor, limit int64) ([]*domain.Message, error)
	// CountUnread counts messages not sent by viewerID and not yet read by
	// them, excluding tombstones and messages hidden for the viewer.
	CountUnread(ctx context.Context, conversationID, viewerID string) (int64, error)
}

// UserDirectory is the read-only boundary to the external user service's
// profile data; only display fields cross it.
type UserDirectory interface {
	Summary(ctx context.Context, userID string) (*domain.UserSummary, error)
}
