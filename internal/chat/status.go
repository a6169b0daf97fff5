package chat

import (
	"context"
	"fmt"

	"github.com/fathima-sithara/messaging-service/internal/apperr"
	"github.com/fathima-sithara/messaging-service/internal/domain"
)

type StatusKind string

const (
	StatusKindDelivered StatusKind = "delivered"
	StatusKindSeen      StatusKind = "seen"
)

// MarkStatus records a delivery or read acknowledgment from viewerID.
// Acknowledgments are sets, so repeats are idempotent, and the overall
// status only ever moves forward along sent -> delivered -> seen.
func (e *Engine) MarkStatus(ctx context.Context, messageID, viewerID string, kind StatusKind) error {
	conversationID, changed, err := e.markOne(ctx, messageID, viewerID, kind)
	if err != nil {
		return err
	}
	if changed && kind == StatusKindSeen {
		e.emitter.ToRoom(conversationID, domain.EventMessagesSeen, &domain.MessagesSeenEvent{
			ConversationID: conversationID,
			MessageIDs:     []string{messageID},
			SeenBy:         viewerID,
			SeenAt:         e.now(),
		})
	}
	return nil
}

type BatchResult struct {
	Updated []string          `json:"updated"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// MarkStatusBatch applies MarkStatus to each id independently; one bad id
// does not abort the rest. A single messages-seen event per conversation
// covers everything that changed.
func (e *Engine) MarkStatusBatch(ctx context.Context, messageIDs []string, viewerID string, kind StatusKind) (*BatchResult, error) {
	if len(messageIDs) == 0 {
		return nil, fmt.Errorf("%w: message ids required", apperr.ErrInvalidInput)
	}
	res := &BatchResult{Updated: []string{}, Failed: map[string]string{}}
	seenByConv := map[string][]string{}
	for _, id := range messageIDs {
		conversationID, changed, err := e.markOne(ctx, id, viewerID, kind)
		if err != nil {
			res.Failed[id] = apperr.Kind(err)
			continue
		}
		res.Updated = append(res.Updated, id)
		if changed && kind == StatusKindSeen {
			seenByConv[conversationID] = append(seenByConv[conversationID], id)
		}
	}
	now := e.now()
	for conversationID, ids := range seenByConv {
		e.emitter.ToRoom(conversationID, domain.EventMessagesSeen, &domain.MessagesSeenEvent{
			ConversationID: conversationID,
			MessageIDs:     ids,
			SeenBy:         viewerID,
			SeenAt:         now,
		})
	}
	return res, nil
}

// markOne performs the state transition without emitting; callers decide how
// to group events.
func (e *Engine) markOne(ctx context.Context, messageID, viewerID string, kind StatusKind) (string, bool, error) {
	if kind != StatusKindDelivered && kind != StatusKindSeen {
		return "", false, fmt.Errorf("%w: unsupported status %q", apperr.ErrInvalidInput, kind)
	}
	m, err := e.msgs.Get(ctx, messageID)
	if err != nil {
		return "", false, err
	}
	if _, err := e.guard.Authorize(ctx, viewerID, m.ConversationID); err != nil {
		return "", false, err
	}
	if m.SenderID == viewerID {
		return "", false, fmt.Errorf("%w: cannot acknowledge own message", apperr.ErrInvalidInput)
	}

	mu := e.lockFor(m.ConversationID)
	mu.Lock()
	defer mu.Unlock()

	if m, err = e.msgs.Get(ctx, messageID); err != nil {
		return "", false, err
	}
	changed := e.applyStatus(m, viewerID, kind)
	if !changed {
		return m.ConversationID, false, nil
	}
	if err := e.msgs.Replace(ctx, m); err != nil {
		return "", false, err
	}
	return m.ConversationID, true, nil
}

func (e *Engine) applyStatus(m *domain.Message, viewerID string, kind StatusKind) bool {
	changed := false
	switch kind {
	case StatusKindDelivered:
		if !m.DeliveredToUser(viewerID) {
			m.DeliveredTo = append(m.DeliveredTo, viewerID)
			changed = true
		}
		if m.Status == domain.StatusSent {
			m.Status = domain.StatusDelivered
			changed = true
		}
	case StatusKindSeen:
		if !m.SeenBy(viewerID) {
			m.ReadBy = append(m.ReadBy, domain.ReadReceipt{UserID: viewerID, ReadAt: e.now()})
			changed = true
		}
		if !m.DeliveredToUser(viewerID) {
			m.DeliveredTo = append(m.DeliveredTo, viewerID)
			changed = true
		}
		// In a two-party conversation the single other participant's read is
		// definitive for the message-level status.
		if m.Status != domain.StatusSeen {
			m.Status = domain.StatusSeen
			changed = true
		}
	}
	if changed {
		m.UpdatedAt = e.now()
	}
	return changed
}
