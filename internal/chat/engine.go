package chat

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fathima-sithara/messaging-service/internal/apperr"
	"github.com/fathima-sithara/messaging-service/internal/domain"
	"github.com/fathima-sithara/messaging-service/internal/repository"
)

// Emitter is the engine's view of the fan-out router. Emission is
// fire-and-forget: enqueueing never waits for session acknowledgment.
type Emitter interface {
	ToRoom(conversationID, event string, payload any)
	ToRoomExcept(conversationID, exceptUserID, event string, payload any)
	ToUser(userID, event string, payload any)
}

// Publisher streams committed lifecycle events to external consumers.
type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
}

// MediaCleaner removes a media object from the external blob store.
type MediaCleaner interface {
	Cleanup(ctx context.Context, publicID string, mediaType domain.MediaType) error
}

type Policy struct {
	EditWindow   time.Duration
	DeleteWindow time.Duration
	PageSize     int64
	PageSizeMax  int64
}

// Engine owns the message lifecycle state machine. Operations on the same
// conversation are serialized through a striped lock so status transitions
// and the last-message pointer never race; different conversations proceed
// in parallel.
type Engine struct {
	convs repository.ConversationStore
	msgs  repository.MessageStore
	users repository.UserDirectory
	guard *Guard

	emitter   Emitter
	publisher Publisher
	media     MediaCleaner
	policy    Policy
	log       *zap.SugaredLogger

	now   func() time.Time
	locks [64]sync.Mutex
}

func NewEngine(
	convs repository.ConversationStore,
	msgs repository.MessageStore,
	users repository.UserDirectory,
	guard *Guard,
	emitter Emitter,
	publisher Publisher,
	media MediaCleaner,
	policy Policy,
	log *zap.SugaredLogger,
) *Engine {
	if policy.PageSize == 0 {
		policy.PageSize = 50
	}
	if policy.PageSizeMax == 0 {
		policy.PageSizeMax = 100
	}
	return &Engine{
		convs:     convs,
		msgs:      msgs,
		users:     users,
		guard:     guard,
		emitter:   emitter,
		publisher: publisher,
		media:     media,
		policy:    policy,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) Guard() *Guard { return e.guard }

func (e *Engine) lockFor(conversationID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(conversationID))
	return &e.locks[h.Sum32()%uint32(len(e.locks))]
}

// CreateOrGetConversation returns the conversation for the caller and the
// other user, creating it on first contact. Re-requesting the same pair, in
// any order and concurrently, yields the same conversation.
func (e *Engine) CreateOrGetConversation(ctx context.Context, callerID, otherID string) (*domain.Conversation, error) {
	if callerID == "" {
		return nil, apperr.ErrUnauthorized
	}
	if otherID == "" || otherID == callerID {
		return nil, fmt.Errorf("%w: recipient required", apperr.ErrInvalidInput)
	}
	return e.convs.CreateOrGet(ctx, callerID, otherID)
}

// ListConversations returns the caller's conversations, most recent activity
// first, each with its last message preview and unread count.
func (e *Engine) ListConversations(ctx context.Context, userID string) ([]*domain.ConversationSummary, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthorized
	}
	convs, err := e.convs.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		summary := &domain.ConversationSummary{
			ConversationID: c.ID,
			Participants:   c.Participants,
			UpdatedAt:      c.UpdatedAt,
		}
		if c.LastMessageID != "" {
			if last, err := e.msgs.Get(ctx, c.LastMessageID); err == nil {
				summary.LastMessage = e.buildView(ctx, last)
			}
		}
		if n, err := e.msgs.CountUnread(ctx, c.ID, userID); err == nil {
			summary.UnreadCount = n
		}
		out = append(out, summary)
	}
	return out, nil
}

type SendInput struct {
	ConversationID string
	SenderID       string
	Text           string
	MediaURL       string
	MediaType      domain.MediaType
	MediaPublicID  string
	ReplyToID      string
}

// Send creates a message and moves the conversation's last-message pointer.
// The message insert happens first; if the pointer update then fails the
// pointer is stale until the next send, which readers must tolerate.
func (e *Engine) Send(ctx context.Context, in SendInput) (*domain.MessageView, error) {
	conv, err := e.guard.Authorize(ctx, in.SenderID, in.ConversationID)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(in.Text)
	if text == "" && in.MediaURL == "" {
		return nil, fmt.Errorf("%w: message needs text or media", apperr.ErrInvalidInput)
	}
	var replyTo *domain.Message
	if in.ReplyToID != "" {
		replyTo, err = e.msgs.Get(ctx, in.ReplyToID)
		if err != nil {
			return nil, fmt.Errorf("%w: reply target", apperr.ErrInvalidInput)
		}
		if replyTo.ConversationID != in.ConversationID {
			return nil, fmt.Errorf("%w: reply target in another conversation", apperr.ErrInvalidInput)
		}
	}

	mu := e.lockFor(in.ConversationID)
	mu.Lock()
	defer mu.Unlock()

	now := e.now()
	m := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Text:           text,
		MediaURL:       in.MediaURL,
		MediaType:      in.MediaType,
		MediaPublicID:  in.MediaPublicID,
		Status:         domain.StatusSent,
		DeliveredTo:    []string{},
		ReadBy:         []domain.ReadReceipt{},
		DeletedFor:     []string{},
		Reactions:      []domain.Reaction{},
		ReplyToID:      in.ReplyToID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.msgs.Insert(ctx, m); err != nil {
		return nil, err
	}
	if err := e.convs.SetLastMessage(ctx, in.ConversationID, m.ID, now); err != nil {
		// Accepted consistency window: the message exists, the pointer is
		// stale. Never the reverse.
		e.log.Warnw("last-message pointer update failed", "conversation_id", in.ConversationID, "err", err)
	}

	view := &domain.MessageView{Message: m, Sender: e.senderSummary(ctx, m.SenderID), ReplyTo: replyTo}

	e.emitter.ToRoom(conv.ID, domain.EventMessageCreated, view)
	for _, p := range conv.Participants {
		delta := 0
		if p != in.SenderID {
			delta = 1
		}
		e.emitter.ToUser(p, domain.EventConversationChanged, &domain.ConversationChangedEvent{
			ConversationID: conv.ID,
			LastMessage:    view,
			UnreadDelta:    delta,
			UpdatedAt:      now,
		})
	}
	e.publish(ctx, "message.created", view)
	return view, nil
}

// Edit rewrites the sender's own message within the edit window. The
// original text is captured once, on the first edit only.
func (e *Engine) Edit(ctx context.Context, messageID, editorID, newText string) (*domain.MessageView, error) {
	newText = strings.TrimSpace(newText)
	if newText == "" {
		return nil, fmt.Errorf("%w: text required", apperr.ErrInvalidInput)
	}
	m, err := e.msgs.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := e.guard.Authorize(ctx, editorID, m.ConversationID); err != nil {
		return nil, err
	}

	mu := e.lockFor(m.ConversationID)
	mu.Lock()
	defer mu.Unlock()

	// Reload under the lock; a concurrent delete may have landed.
	if m, err = e.msgs.Get(ctx, messageID); err != nil {
		return nil, err
	}
	if m.SenderID != editorID {
		return nil, fmt.Errorf("%w: only the sender can edit", apperr.ErrForbidden)
	}
	if m.IsDeletedForEveryone {
		return nil, fmt.Errorf("%w: message was deleted", apperr.ErrInvalidState)
	}
	now := e.now()
	if now.Sub(m.CreatedAt) > e.policy.EditWindow {
		return nil, fmt.Errorf("%w: edit window closed", apperr.ErrExpired)
	}
	if !m.IsEdited {
		m.OriginalText = m.Text
	}
	m.Text = newText
	m.IsEdited = true
	m.EditedAt = &now
	m.UpdatedAt = now
	if err := e.msgs.Replace(ctx, m); err != nil {
		return nil, err
	}

	view := e.buildView(ctx, m)
	e.emitter.ToRoom(m.ConversationID, domain.EventMessageUpdated, view)
	e.publish(ctx, "message.updated", view)
	return view, nil
}

// Delete hides a message for the requester or tombstones it for everyone.
// "For everyone" is sender-only and window-bound; "for me" is open to any
// participant and only changes that viewer's history.
func (e *Engine) Delete(ctx context.Context, messageID, requesterID string, scope domain.DeleteScope) (*domain.MessageView, error) {
	m, err := e.msgs.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := e.guard.Authorize(ctx, requesterID, m.ConversationID); err != nil {
		return nil, err
	}

	mu := e.lockFor(m.ConversationID)
	mu.Lock()
	defer mu.Unlock()

	if m, err = e.msgs.Get(ctx, messageID); err != nil {
		return nil, err
	}
	now := e.now()

	switch scope {
	case domain.DeleteForMe:
		if !m.HiddenFor(requesterID) {
			m.DeletedFor = append(m.DeletedFor, requesterID)
			m.UpdatedAt = now
			if err := e.msgs.Replace(ctx, m); err != nil {
				return nil, err
			}
		}
		view := e.buildView(ctx, m)
		// Only the requester's sessions need to drop the message; other
		// participants keep seeing it.
		e.emitter.ToUser(requesterID, domain.EventMessageDeleted, &domain.MessageDeletedEvent{
			ConversationID: m.ConversationID,
			MessageID:      m.ID,
			Scope:          scope,
			DeletedBy:      requesterID,
		})
		return view, nil

	case domain.DeleteForEveryone:
		if m.SenderID != requesterID {
			return nil, fmt.Errorf("%w: only the sender can delete for everyone", apperr.ErrForbidden)
		}
		if m.IsDeletedForEveryone {
			return e.buildView(ctx, m), nil
		}
		if now.Sub(m.CreatedAt) > e.policy.DeleteWindow {
			return nil, fmt.Errorf("%w: delete window closed", apperr.ErrExpired)
		}
		publicID, mediaType := m.MediaPublicID, m.MediaType
		m.IsDeletedForEveryone = true
		m.DeletedForEveryoneAt = &now
		m.Text = domain.DeletedPlaceholder
		m.OriginalText = ""
		m.MediaURL = ""
		m.MediaType = ""
		m.MediaPublicID = ""
		m.UpdatedAt = now
		if err := e.msgs.Replace(ctx, m); err != nil {
			return nil, err
		}
		if publicID != "" && e.media != nil {
			// Best effort; the tombstone is already committed and a cleanup
			// failure must not surface to the caller.
			go func() {
				cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := e.media.Cleanup(cctx, publicID, mediaType); err != nil {
					e.log.Warnw("media cleanup failed", "message_id", messageID, "err", err)
				}
			}()
		}
		view := e.buildView(ctx, m)
		e.emitter.ToRoom(m.ConversationID, domain.EventMessageDeleted, &domain.MessageDeletedEvent{
			ConversationID: m.ConversationID,
			MessageID:      m.ID,
			Scope:          scope,
			DeletedBy:      requesterID,
			Message:        view,
		})
		e.publish(ctx, "message.deleted", view)
		return view, nil

	default:
		return nil, fmt.Errorf("%w: unknown delete scope %q", apperr.ErrInvalidInput, scope)
	}
}

// React adds a reaction. A (user, emoji) pair reacts at most once; repeats
// are a no-op rather than an error.
func (e *Engine) React(ctx context.Context, messageID, userID, emoji string) error {
	if emoji == "" {
		return fmt.Errorf("%w: emoji required", apperr.ErrInvalidInput)
	}
	m, err := e.msgs.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if _, err := e.guard.Authorize(ctx, userID, m.ConversationID); err != nil {
		return err
	}

	mu := e.lockFor(m.ConversationID)
	mu.Lock()
	defer mu.Unlock()

	if m, err = e.msgs.Get(ctx, messageID); err != nil {
		return err
	}
	if m.IsDeletedForEveryone {
		return fmt.Errorf("%w: message was deleted", apperr.ErrInvalidState)
	}
	if m.HasReaction(userID, emoji) {
		return nil
	}
	reaction := domain.Reaction{UserID: userID, Emoji: emoji, ReactedAt: e.now()}
	m.Reactions = append(m.Reactions, reaction)
	m.UpdatedAt = reaction.ReactedAt
	if err := e.msgs.Replace(ctx, m); err != nil {
		return err
	}
	e.emitter.ToRoom(m.ConversationID, domain.EventReactionAdded, &domain.ReactionEvent{
		ConversationID: m.ConversationID,
		MessageID:      m.ID,
		Reaction:       reaction,
	})
	return nil
}

// Unreact removes a reaction; removing one that is not there is a no-op.
func (e *Engine) Unreact(ctx context.Context, messageID, userID, emoji string) error {
	m, err := e.msgs.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if _, err := e.guard.Authorize(ctx, userID, m.ConversationID); err != nil {
		return err
	}

	mu := e.lockFor(m.ConversationID)
	mu.Lock()
	defer mu.Unlock()

	if m, err = e.msgs.Get(ctx, messageID); err != nil {
		return err
	}
	kept := m.Reactions[:0]
	removed := false
	for _, r := range m.Reactions {
		if r.UserID == userID && r.Emoji == emoji {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	if !removed {
		return nil
	}
	m.Reactions = kept
	m.UpdatedAt = e.now()
	if err := e.msgs.Replace(ctx, m); err != nil {
		return err
	}
	e.emitter.ToRoom(m.ConversationID, domain.EventReactionRemoved, &domain.ReactionEvent{
		ConversationID: m.ConversationID,
		MessageID:      m.ID,
		Reaction:       domain.Reaction{UserID: userID, Emoji: emoji},
	})
	return nil
}

func (e *Engine) publish(ctx context.Context, key string, v any) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, key, v); err != nil {
		e.log.Warnw("event publish failed", "key", key, "err", err)
	}
}
