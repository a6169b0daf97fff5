package ws

// Envelope is the wire format for client->server events. Fields are a
// superset; each event type reads the ones it needs.
type Envelope struct {
	Type           string   `json:"type"`
	ConversationID string   `json:"conversation_id,omitempty"`
	MessageID      string   `json:"message_id,omitempty"`
	MessageIDs     []string `json:"message_ids,omitempty"`
	Text           string   `json:"text,omitempty"`
	MediaURL       string   `json:"media_url,omitempty"`
	MediaType      string   `json:"media_type,omitempty"`
	MediaPublicID  string   `json:"media_public_id,omitempty"`
	ReplyTo        string   `json:"reply_to,omitempty"`
	Emoji          string   `json:"emoji,omitempty"`
	Scope          string   `json:"scope,omitempty"`
}

// Frame is the server->session wire format.
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}
