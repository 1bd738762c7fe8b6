package server

import (
	"bufio"
	"time"

	"mumble/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// sseKeepAliveInterval is how often an SSE comment is written to keep
// intermediaries from closing an idle stream.
const sseKeepAliveInterval = 30 * time.Second

// PostEvents handles GET /posts/_sse. Every connected client receives every
// post event; the stream ends when the client disconnects or the hub shuts
// down.
func (s *Server) PostEvents(c *fiber.Ctx) error {
	sub, err := s.hub.Subscribe()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewValidationError("Too many event stream subscribers"))
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer s.hub.Unsubscribe(sub)

		keepAlive := time.NewTicker(sseKeepAliveInterval)
		defer keepAlive.Stop()

		for {
			select {
			case event := <-sub.Events():
				if _, err := w.WriteString(event.SSE()); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-keepAlive.C:
				if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-sub.Done():
				return
			}
		}
	}))

	return nil
}
