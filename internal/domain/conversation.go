package domain

import (
	"sort"
	"time"
)

// Conversation is the durable two-party container for messages. Participants
// are stored sorted so the unordered pair (a, b) always maps to the same
// document, which is what makes conversation creation idempotent.
type Conversation struct {
	ID            string    `bson:"_id" json:"id"`
	Participants  []string  `bson:"participants" json:"participants"`
	LastMessageID string    `bson:"last_message_id,omitempty" json:"last_message_id,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// NormalizePair returns the two ids in canonical (sorted) order.
func NormalizePair(a, b string) (string, string) {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0], pair[1]
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID. Empty when
// userID is not a participant.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// UserSummary carries the display fields joined onto outgoing messages. The
// profile itself lives with the external user service; this is the read-only
// boundary view.
type UserSummary struct {
	ID        string `bson:"_id" json:"id"`
	Username  string `bson:"username" json:"username"`
	AvatarURL string `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
}
