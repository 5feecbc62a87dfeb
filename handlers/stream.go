package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"fx-client-portal/changefeed"
	"fx-client-portal/metrics"
	"fx-client-portal/middleware"
	"fx-client-portal/services"

	"github.com/gofiber/fiber/v2"
)

const streamKeepalive = 25 * time.Second

func sseHeaders(c *fiber.Ctx) {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")
}

// SetupStreamRoutes mounts the change stream. Each event names a collection
// and carries only {type, id}; subscribers re-fetch what they show.
func SetupStreamRoutes(app *fiber.App, identity *services.IdentityService, dashboard *services.DashboardService, bus changefeed.Bus, logger *slog.Logger) {
	app.Get("/stream", middleware.SSEAuth(identity, logger), func(c *fiber.Ctx) error {
		sess := middleware.CurrentSession(c)
		operator := sess.IsOperator()

		clientID := ""
		if !operator {
			if client, err := dashboard.ResolveClient(c.UserContext(), sess); err == nil {
				clientID = client.ID
			}
		}
		visible := func(ev changefeed.Event) bool {
			return ev.VisibleTo(sess.UserID, clientID, operator)
		}

		events, cancel := bus.Subscribe()
		metrics.StreamOpened()
		logger.Info("📡 change stream opened", "user_id", sess.UserID, "operator", operator)

		sseHeaders(c)
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer func() {
				cancel()
				metrics.StreamClosed()
				logger.Info("📴 change stream closed", "user_id", sess.UserID)
			}()
			if err := pumpEvents(w, events, visible, streamKeepalive); err != nil {
				logger.Debug("change stream write stopped", "user_id", sess.UserID, "err", err)
			}
		})
		return nil
	})
}

// pumpEvents writes visible events until the feed closes or the client goes
// away. A comment line goes out periodically so dead connections surface.
func pumpEvents(w *bufio.Writer, events <-chan changefeed.Event, visible func(changefeed.Event) bool, keepalive time.Duration) error {
	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	w.WriteString(":\n\n")
	if err := w.Flush(); err != nil {
		return err
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !visible(ev) {
				continue
			}
			payload, _ := json.Marshal(ev.Payload())
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Collection, payload)
			if err := w.Flush(); err != nil {
				return err
			}
		case <-ticker.C:
			w.WriteString(": keepalive\n\n")
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}
