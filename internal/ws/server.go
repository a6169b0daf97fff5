package ws

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/messaging-service/internal/apperr"
	"github.com/fathima-sithara/messaging-service/internal/auth"
	"github.com/fathima-sithara/messaging-service/internal/chat"
	"github.com/fathima-sithara/messaging-service/internal/domain"
	"github.com/fathima-sithara/messaging-service/internal/presence"
)

const dispatchTimeout = 10 * time.Second

// Server accepts websocket sessions and routes their events into the
// lifecycle engine. Typing events skip persistence entirely: guard, presence
// TTL, broadcast.
type Server struct {
	engine    *chat.Engine
	typing    presence.TypingStore
	hub       *Hub
	validator *auth.Validator
	log       *zap.SugaredLogger

	eventsPerSecond int
}

func NewServer(engine *chat.Engine, typing presence.TypingStore, hub *Hub, validator *auth.Validator, eventsPerSecond int, log *zap.SugaredLogger) *Server {
	return &Server{
		engine:          engine,
		typing:          typing,
		hub:             hub,
		validator:       validator,
		log:             log,
		eventsPerSecond: eventsPerSecond,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// HandleWS authenticates the connection, registers the session and runs the
// pumps. The token arrives once, at connect time.
func (s *Server) HandleWS() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		token := conn.Query("token")
		if token == "" {
			_ = conn.Close()
			return
		}
		uid, err := s.validator.Validate(token)
		if err != nil {
			_ = conn.Close()
			return
		}

		c := NewClient(conn, uid, s.eventsPerSecond)
		s.hub.Register(c)
		// Every session listens on its own notification channel from the
		// start; join-notifications remains as an idempotent re-join.
		s.hub.JoinUser(uid, c)
		s.log.Infow("session connected", "user_id", uid)

		go c.writePump()
		c.readPump(s.dispatch)

		s.hub.Unregister(c)
		s.log.Infow("session disconnected", "user_id", uid)
	}
}

func (s *Server) dispatch(c *Client, env *Envelope) {
	if !c.limiter.Allow() {
		c.sendFrame(domain.EventError, &ErrorPayload{Code: "rate_limited", Message: "too many events", Ref: env.Type})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	var err error
	switch env.Type {
	case "join-room":
		err = s.joinRoom(ctx, c, env)
	case "join-notifications":
		s.hub.JoinUser(c.UserID, c)
	case "send-message":
		_, err = s.engine.Send(ctx, chat.SendInput{
			ConversationID: env.ConversationID,
			SenderID:       c.UserID,
			Text:           env.Text,
			MediaURL:       env.MediaURL,
			MediaType:      domain.MediaType(env.MediaType),
			MediaPublicID:  env.MediaPublicID,
			ReplyToID:      env.ReplyTo,
		})
	case "edit-message":
		_, err = s.engine.Edit(ctx, env.MessageID, c.UserID, env.Text)
	case "delete-message":
		_, err = s.engine.Delete(ctx, env.MessageID, c.UserID, domain.DeleteScope(env.Scope))
	case "add-reaction":
		err = s.engine.React(ctx, env.MessageID, c.UserID, env.Emoji)
	case "remove-reaction":
		err = s.engine.Unreact(ctx, env.MessageID, c.UserID, env.Emoji)
	case "typing-start":
		err = s.typingEvent(ctx, c, env.ConversationID, true)
	case "typing-stop":
		err = s.typingEvent(ctx, c, env.ConversationID, false)
	case "mark-seen":
		err = s.markStatus(ctx, c, env, chat.StatusKindSeen)
	case "mark-delivered":
		err = s.markStatus(ctx, c, env, chat.StatusKindDelivered)
	default:
		err = errors.New("unknown event type")
	}

	if err != nil {
		s.log.Debugw("event rejected", "type", env.Type, "user_id", c.UserID, "err", err)
		c.sendFrame(domain.EventError, &ErrorPayload{
			Code:    apperr.Kind(err),
			Message: err.Error(),
			Ref:     env.Type,
		})
	}
}

func (s *Server) joinRoom(ctx context.Context, c *Client, env *Envelope) error {
	if _, err := s.engine.Guard().Authorize(ctx, c.UserID, env.ConversationID); err != nil {
		return err
	}
	s.hub.JoinRoom(env.ConversationID, c)
	c.sendFrame(domain.EventJoinedRoom, &domain.TypingEvent{ConversationID: env.ConversationID, UserID: c.UserID})
	return nil
}

func (s *Server) typingEvent(ctx context.Context, c *Client, conversationID string, start bool) error {
	if _, err := s.engine.Guard().Authorize(ctx, c.UserID, conversationID); err != nil {
		return err
	}
	event := domain.EventUserTyping
	if start {
		if err := s.typing.Start(ctx, conversationID, c.UserID); err != nil {
			s.log.Debugw("typing store", "err", err)
		}
	} else {
		event = domain.EventUserStoppedTyping
		if err := s.typing.Stop(ctx, conversationID, c.UserID); err != nil {
			s.log.Debugw("typing store", "err", err)
		}
	}
	s.hub.ToRoomExcept(conversationID, c.UserID, event, &domain.TypingEvent{
		ConversationID: conversationID,
		UserID:         c.UserID,
	})
	return nil
}

func (s *Server) markStatus(ctx context.Context, c *Client, env *Envelope, kind chat.StatusKind) error {
	if len(env.MessageIDs) > 0 {
		_, err := s.engine.MarkStatusBatch(ctx, env.MessageIDs, c.UserID, kind)
		return err
	}
	return s.engine.MarkStatus(ctx, env.MessageID, c.UserID, kind)
}
