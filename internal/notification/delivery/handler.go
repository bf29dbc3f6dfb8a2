package delivery

import (
	"io"
	"net/http"

	"triagedesk-backend/pkg/sse"

	"github.com/gin-gonic/gin"
)

// StreamHandler serves the SSE event stream dashboards subscribe to.
type StreamHandler struct {
	manager *sse.Manager
}

func NewStreamHandler(manager *sse.Manager) *StreamHandler {
	return &StreamHandler{manager: manager}
}

// Stream holds the connection open and forwards broadcast events.
func (h *StreamHandler) Stream(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	ch := h.manager.Subscribe()
	defer h.manager.Unsubscribe(ch)

	c.SSEvent("connected", gin.H{"status": "connected"})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(event.Type, event.Data)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Status reports how many dashboards are connected.
func (h *StreamHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"clients": h.manager.ClientCount()})
}
