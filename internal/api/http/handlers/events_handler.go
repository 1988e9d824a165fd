package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/suporte-central/pendentes/internal/events"
	apperrors "github.com/suporte-central/pendentes/pkg/util/errorutil"
)

const defaultHeartbeat = 15 * time.Second

// EventSource yields ticket events for one consumer.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan events.Event, func() error, error)
}

// EventsHandler streams ticket events to browsers as Server-Sent Events.
type EventsHandler struct {
	base      context.Context
	source    EventSource
	logger    *zap.Logger
	heartbeat time.Duration
}

// NewEventsHandler builds the handler. Streams end when base is cancelled.
func NewEventsHandler(base context.Context, source EventSource, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{base: base, source: source, logger: logger, heartbeat: defaultHeartbeat}
}

// Stream GET /tickets/events.
func (h *EventsHandler) Stream(c *fiber.Ctx) error {
	ctx, cancel := context.WithCancel(h.base)
	stream, closeSub, err := h.source.Subscribe(ctx)
	if err != nil {
		cancel()
		if errors.Is(err, events.ErrBroadcastDisabled) {
			return apperrors.NewDomainError("REALTIME_DISABLED", "realtime updates are not configured", http.StatusServiceUnavailable, nil)
		}
		h.logger.Warn("event subscription failed", zap.Error(err))
		return apperrors.NewDomainError("REALTIME_UNAVAILABLE", "realtime updates are temporarily unavailable", http.StatusServiceUnavailable, nil)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer func() { _ = closeSub() }()

		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()

		if _, err := w.WriteString(": connected\n\n"); err != nil || w.Flush() != nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-stream:
				if !ok {
					return
				}
				if err := writeEvent(w, event); err != nil {
					h.logger.Debug("sse client gone", zap.Error(err))
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil || w.Flush() != nil {
					return
				}
			}
		}
	})
	return nil
}

func writeEvent(w *bufio.Writer, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, body); err != nil {
		return err
	}
	return w.Flush()
}
