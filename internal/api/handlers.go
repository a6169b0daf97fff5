package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/messaging-service/internal/apperr"
	"github.com/fathima-sithara/messaging-service/internal/chat"
	"github.com/fathima-sithara/messaging-service/internal/repository"
)

type Handlers struct {
	engine *chat.Engine
	log    *zap.SugaredLogger
}

func NewHandlers(engine *chat.Engine, log *zap.SugaredLogger) *Handlers {
	return &Handlers{engine: engine, log: log}
}

func (h *Handlers) fail(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(err)
	if status == fiber.StatusInternalServerError {
		h.log.Errorw("request failed", "path", c.Path(), "err", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": apperr.Kind(err)})
}

func callerID(c *fiber.Ctx) string {
	uid, _ := c.Locals("user_id").(string)
	return uid
}

// createConversation is create-or-get: posting the same recipient twice
// returns the same conversation.
func (h *Handlers) createConversation(c *fiber.Ctx) error {
	var req struct {
		RecipientID string `json:"recipient_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()
	conv, err := h.engine.CreateOrGetConversation(ctx, callerID(c), req.RecipientID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": conv})
}

func (h *Handlers) listConversations(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()
	summaries, err := h.engine.ListConversations(ctx, callerID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"data": summaries})
}

// history pages a conversation backwards from `before`/`before_id` and, as a
// documented side effect, marks the fetched other-party messages as seen.
func (h *Handlers) history(c *fiber.Ctx) error {
	conversationID := c.Params("id")
	limit := int64(c.QueryInt("limit", 0))

	var cursor *repository.Cursor
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid before cursor"})
		}
		cursor = &repository.Cursor{Before: t, ID: c.Query("before_id")}
	}

	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()
	page, err := h.engine.FetchHistory(ctx, conversationID, callerID(c), cursor, limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(page)
}
