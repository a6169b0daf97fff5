package domain

import "time"

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusSeen      MessageStatus = "seen"
)

// DeletedPlaceholder replaces the text of a message deleted for everyone.
const DeletedPlaceholder = "This message was deleted"

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

type ReadReceipt struct {
	UserID string    `bson:"user_id" json:"user_id"`
	ReadAt time.Time `bson:"read_at" json:"read_at"`
}

type Reaction struct {
	UserID    string    `bson:"user_id" json:"user_id"`
	Emoji     string    `bson:"emoji" json:"emoji"`
	ReactedAt time.Time `bson:"reacted_at" json:"reacted_at"`
}

// Message is never physically removed; "delete for everyone" tombstones the
// content in place so ordering and reply references stay intact.
type Message struct {
	ID             string        `bson:"_id" json:"id"`
	ConversationID string        `bson:"conversation_id" json:"conversation_id"`
	SenderID       string        `bson:"sender_id" json:"sender_id"`
	Text           string        `bson:"text,omitempty" json:"text,omitempty"`
	MediaURL       string        `bson:"media_url,omitempty" json:"media_url,omitempty"`
	MediaType      MediaType     `bson:"media_type,omitempty" json:"media_type,omitempty"`
	MediaPublicID  string        `bson:"media_public_id,omitempty" json:"media_public_id,omitempty"`
	Status         MessageStatus `bson:"status" json:"status"`
	DeliveredTo    []string      `bson:"delivered_to" json:"delivered_to"`
	ReadBy         []ReadReceipt `bson:"read_by" json:"read_by"`

	IsEdited     bool       `bson:"is_edited" json:"is_edited"`
	EditedAt     *time.Time `bson:"edited_at,omitempty" json:"edited_at,omitempty"`
	OriginalText string     `bson:"original_text,omitempty" json:"original_text,omitempty"`

	IsDeletedForEveryone bool       `bson:"is_deleted_for_everyone" json:"is_deleted_for_everyone"`
	DeletedForEveryoneAt *time.Time `bson:"deleted_for_everyone_at,omitempty" json:"deleted_for_everyone_at,omitempty"`
	DeletedFor           []string   `bson:"deleted_for" json:"-"`

	ReplyToID string     `bson:"reply_to_id,omitempty" json:"reply_to_id,omitempty"`
	Reactions []Reaction `bson:"reactions" json:"reactions"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (m *Message) HiddenFor(userID string) bool {
	for _, u := range m.DeletedFor {
		if u == userID {
			return true
		}
	}
	return false
}

func (m *Message) DeliveredToUser(userID string) bool {
	for _, u := range m.DeliveredTo {
		if u == userID {
			return true
		}
	}
	return false
}

func (m *Message) SeenBy(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

func (m *Message) HasReaction(userID, emoji string) bool {
	for _, r := range m.Reactions {
		if r.UserID == userID && r.Emoji == emoji {
			return true
		}
	}
	return false
}

// MessageView is a message joined with the sender's display fields and, when
// the message is a reply, the replied-to message one level deep.
type MessageView struct {
	*Message
	Sender  *UserSummary `json:"sender,omitempty"`
	ReplyTo *Message     `json:"reply_to,omitempty"`
}

// ConversationSummary is the lightweight conversation-list entry pushed on a
// user's notification channel and returned by the list endpoint.
type ConversationSummary struct {
	ConversationID string       `json:"conversation_id"`
	Participants   []string     `json:"participants"`
	LastMessage    *MessageView `json:"last_message,omitempty"`
	UnreadCount    int64        `json:"unread_count"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
