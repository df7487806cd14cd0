package handlers

import (
  "encoding/json"
  "io"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yungbote/launchcopy-backend/internal/platform/logger"
  "github.com/yungbote/launchcopy-backend/internal/requestdata"
  "github.com/yungbote/launchcopy-backend/internal/sse"
)

type SSEHandler struct {
  log *logger.Logger
  hub *sse.SSEHub
}

func NewSSEHandler(baseLog *logger.Logger, hub *sse.SSEHub) *SSEHandler {
  return &SSEHandler{
    log: baseLog.With("handler", "SSEHandler"),
    hub: hub,
  }
}

// Stream opens the event stream. The client is auto-subscribed to its own
// user channel; project channels are added via the `project` query params.
func (h *SSEHandler) Stream(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }

  client := h.hub.NewSSEClient(rd.UserID)
  h.hub.AddChannel(client, rd.UserID.String())
  for _, projectID := range c.QueryArray("project") {
    h.hub.AddChannel(client, projectID)
  }
  defer h.hub.RemoveClient(client)

  c.Writer.Header().Set("Content-Type", "text/event-stream")
  c.Writer.Header().Set("Cache-Control", "no-cache")
  c.Writer.Header().Set("Connection", "keep-alive")

  ctx := c.Request.Context()
  c.Stream(func(w io.Writer) bool {
    select {
    case <-ctx.Done():
      return false
    case msg, ok := <-client.Outbound:
      if !ok {
        return false
      }
      payload, err := json.Marshal(msg)
      if err != nil {
        h.log.Warn("Could not marshal SSE message", "error", err)
        return true
      }
      c.SSEvent(string(msg.Event), string(payload))
      return true
    }
  })
}
