package chat

import (
	"context"

	"github.com/fathima-sithara/messaging-service/internal/domain"
	"github.com/fathima-sithara/messaging-service/internal/repository"
)

type HistoryPage struct {
	Items      []*domain.MessageView `json:"items"`
	HasMore    bool                  `json:"has_more"`
	NextCursor *repository.Cursor    `json:"next_cursor,omitempty"`
}

// FetchHistory returns one page of the conversation, oldest first, walking
// backwards from the cursor. Reading a page also marks the other party's
// unseen messages in it as seen and fans the receipt out to the room; read
// receipts propagate through this path, not through an extra client call.
func (e *Engine) FetchHistory(ctx context.Context, conversationID, viewerID string, before *repository.Cursor, limit int64) (*HistoryPage, error) {
	conv, err := e.guard.Authorize(ctx, viewerID, conversationID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = e.policy.PageSize
	}
	if limit > e.policy.PageSizeMax {
		limit = e.policy.PageSizeMax
	}

	// One extra row tells us whether an older page exists.
	rows, err := e.msgs.ListPage(ctx, conversationID, viewerID, before, limit+1)
	if err != nil {
		return nil, err
	}
	page := &HistoryPage{Items: []*domain.MessageView{}}
	if int64(len(rows)) > limit {
		page.HasMore = true
		rows = rows[:limit]
	}
	if len(rows) > 0 {
		oldest := rows[len(rows)-1]
		page.NextCursor = &repository.Cursor{Before: oldest.CreatedAt, ID: oldest.ID}
	}

	// Implicit read receipts for the fetched page.
	seen := e.markPageSeen(ctx, conv, rows, viewerID)
	if len(seen) > 0 {
		e.emitter.ToRoom(conversationID, domain.EventMessagesSeen, &domain.MessagesSeenEvent{
			ConversationID: conversationID,
			MessageIDs:     seen,
			SeenBy:         viewerID,
			SeenAt:         e.now(),
		})
	}

	// Oldest first for the client.
	for i := len(rows) - 1; i >= 0; i-- {
		page.Items = append(page.Items, e.buildView(ctx, rows[i]))
	}
	return page, nil
}

func (e *Engine) markPageSeen(ctx context.Context, conv *domain.Conversation, rows []*domain.Message, viewerID string) []string {
	mu := e.lockFor(conv.ID)
	mu.Lock()
	defer mu.Unlock()

	now := e.now()
	seen := []string{}
	for _, m := range rows {
		if m.SenderID == viewerID || m.SeenBy(viewerID) {
			continue
		}
		fresh, err := e.msgs.Get(ctx, m.ID)
		if err != nil {
			continue
		}
		if !e.applyStatus(fresh, viewerID, StatusKindSeen) {
			continue
		}
		if err := e.msgs.Replace(ctx, fresh); err != nil {
			e.log.Warnw("mark seen on read failed", "message_id", m.ID, "err", err)
			continue
		}
		// Patch the row we are about to return so the page reflects the
		// receipts it just produced.
		m.Status = fresh.Status
		m.ReadBy = fresh.ReadBy
		m.DeliveredTo = fresh.DeliveredTo
		m.UpdatedAt = now
		seen = append(seen, m.ID)
	}
	return seen
}
