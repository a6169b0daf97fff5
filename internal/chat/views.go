package chat

import (
	"context"

	"github.com/fathima-sithara/messaging-service/internal/domain"
)

// buildView joins sender display fields and the replied-to message, one
// level deep. Join failures degrade to a thinner view; the message itself
// always goes out.
func (e *Engine) buildView(ctx context.Context, m *domain.Message) *domain.MessageView {
	view := &domain.MessageView{
		Message: m,
		Sender:  e.senderSummary(ctx, m.SenderID),
	}
	if m.ReplyToID != "" {
		if parent, err := e.msgs.Get(ctx, m.ReplyToID); err == nil {
			view.ReplyTo = parent
		}
	}
	return view
}

func (e *Engine) senderSummary(ctx context.Context, userID string) *domain.UserSummary {
	summary, err := e.users.Summary(ctx, userID)
	if err != nil {
		e.log.Debugw("sender summary lookup failed", "user_id", userID, "err", err)
		return &domain.UserSummary{ID: userID}
	}
	return summary
}
