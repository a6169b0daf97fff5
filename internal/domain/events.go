package domain

import "time"

// Event types pushed to live sessions. Room events are scoped to one
// conversation; EventConversationChanged goes to per-user notification
// channels instead.
const (
	EventMessageCreated      = "message-created"
	EventMessageUpdated      = "message-updated"
	EventMessageDeleted      = "message-deleted"
	EventReactionAdded       = "reaction-added"
	EventReactionRemoved     = "reaction-removed"
	EventMessagesSeen        = "messages-seen"
	EventUserTyping          = "user-typing"
	EventUserStoppedTyping   = "user-stopped-typing"
	EventConversationChanged = "conversation-summary-changed"
	EventJoinedRoom          = "joined-room"
	EventError               = "error"
)

type DeleteScope string

const (
	DeleteForMe       DeleteScope = "for_me"
	DeleteForEveryone DeleteScope = "for_everyone"
)

type MessageDeletedEvent struct {
	ConversationID string       `json:"conversation_id"`
	MessageID      string       `json:"message_id"`
	Scope          DeleteScope  `json:"scope"`
	DeletedBy      string       `json:"deleted_by"`
	Message        *MessageView `json:"message,omitempty"`
}

type ReactionEvent struct {
	ConversationID string   `json:"conversation_id"`
	MessageID      string   `json:"message_id"`
	Reaction       Reaction `json:"reaction"`
}

type MessagesSeenEvent struct {
	ConversationID string    `json:"conversation_id"`
	MessageIDs     []string  `json:"message_ids"`
	SeenBy         string    `json:"seen_by"`
	SeenAt         time.Time `json:"seen_at"`
}

type TypingEvent struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

type ConversationChangedEvent struct {
	ConversationID string       `json:"conversation_id"`
	LastMessage    *MessageView `json:"last_message,omitempty"`
	UnreadDelta    int          `json:"unread_delta"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
