package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"fx-client-portal/assistant"
	"fx-client-portal/metrics"
	"fx-client-portal/middleware"
	"fx-client-portal/services"

	"github.com/gofiber/fiber/v2"
)

const chatTimeout = 2 * time.Minute

// Assistant streams a reply to a conversation.
type Assistant interface {
	Stream(ctx context.Context, history []assistant.Message, onChunk func(string) error) error
}

// SetupChatRoutes mounts the assistant proxy. The reply is relayed as SSE:
// one data line per chunk, then [DONE]. Any upstream failure becomes a
// single fallback message so the widget never breaks.
func SetupChatRoutes(app *fiber.App, identity *services.IdentityService, bot Assistant, limiter *middleware.RateLimiter, logger *slog.Logger) {
	app.Post("/chat", middleware.OptionalSession(identity), limiter.Handler(), func(c *fiber.Ctx) error {
		var body struct {
			Messages []assistant.Message `json:"messages"`
		}
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := assistant.Validate(body.Messages); err != nil {
			return writeError(c, logger, err)
		}
		history := body.Messages

		sseHeaders(c)
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
			defer cancel()

			sent := 0
			err := bot.Stream(ctx, history, func(chunk string) error {
				sent++
				return writeChunk(w, chunk)
			})
			if err != nil {
				logger.Warn("🤖 assistant stream failed", "chunks_sent", sent, "err", err)
				metrics.ChatFinished("fallback")
				if writeChunk(w, assistant.FallbackReply) != nil {
					return
				}
			} else {
				metrics.ChatFinished("ok")
			}
			w.WriteString("data: [DONE]\n\n")
			w.Flush()
		})
		return nil
	})
}

func writeChunk(w *bufio.Writer, content string) error {
	payload, _ := json.Marshal(fiber.Map{"content": content})
	fmt.Fprintf(w, "data: %s\n\n", payload)
	return w.Flush()
}
