package chat

import (
	"context"
	"fmt"

	"github.com/fathima-sithara/messaging-service/internal/apperr"
	"github.com/fathima-sithara/messaging-service/internal/domain"
	"github.com/fathima-sithara/messaging-service/internal/repository"
)

// Guard decides conversation membership. Every mutating entry point goes
// through Authorize before any side effect; a denial means nothing was
// touched.
type Guard struct {
	convs repository.ConversationStore
}

func NewGuard(convs repository.ConversationStore) *Guard {
	return &Guard{convs: convs}
}

// Authorize returns the conversation when callerID is one of its two
// participants. Membership is checked by id value; ids that crossed a
// representation boundary (object id vs string) compare equal here as long
// as they normalize to the same string.
func (g *Guard) Authorize(ctx context.Context, callerID, conversationID string) (*domain.Conversation, error) {
	if callerID == "" {
		return nil, apperr.ErrUnauthorized
	}
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversation id required", apperr.ErrInvalidInput)
	}
	conv, err := g.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(callerID) {
		return nil, apperr.ErrForbidden
	}
	return conv, nil
}
