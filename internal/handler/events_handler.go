package handler

import (
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wedding/guesthub/internal/events"
)

const (
	eventStreamBuffer    = 64
	eventStreamKeepAlive = 25 * time.Second
)

// EventsHandler relays bus events to browsers over server-sent events.
type EventsHandler struct {
	bus    *events.Bus
	logger *zap.Logger
}

func NewEventsHandler(bus *events.Bus, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{bus: bus, logger: logger}
}

// Stream keeps the connection open and writes one SSE message per event.
// ?types=rsvp,guest_archived narrows the stream. Slow clients drop events.
func (h *EventsHandler) Stream(c *gin.Context) {
	wanted := make(map[events.EventType]struct{})
	for _, t := range strings.Split(c.Query("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			wanted[events.EventType(t)] = struct{}{}
		}
	}

	ch := make(chan events.Event, eventStreamBuffer)
	unsubscribe := h.bus.SubscribeAll(func(e events.Event) {
		if len(wanted) > 0 {
			if _, ok := wanted[e.Type]; !ok {
				return
			}
		}
		select {
		case ch <- e:
		default:
			h.logger.Debug("event stream buffer full, dropping event", zap.String("event_type", string(e.Type)))
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(eventStreamKeepAlive)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case e := <-ch:
			c.SSEvent(string(e.Type), e)
			return true
		case <-keepAlive.C:
			_, err := io.WriteString(w, ": ping\n\n")
			return err == nil
		}
	})
}
