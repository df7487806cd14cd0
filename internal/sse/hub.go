package sse

import (
  "strings"
  "sync"

  "github.com/google/uuid"

  "github.com/yungbote/launchcopy-backend/internal/platform/logger"
)

type SSEEvent string

const (
  SSEEventSectionUpdated       SSEEvent = "SectionUpdated"
  SSEEventSectionApproved      SSEEvent = "SectionApproved"
  SSEEventFieldsUpdated        SSEEvent = "FieldsUpdated"
  SSEEventPropagationCompleted SSEEvent = "PropagationCompleted"
  SSEEventProjectCreated       SSEEvent = "ProjectCreated"
)

type SSEMessage struct {
  Channel string   `json:"channel"`
  Event   SSEEvent `json:"event"`
  Data    any      `json:"data,omitempty"`
}

type SSEClient struct {
  ID       uuid.UUID
  UserID   uuid.UUID
  Channels map[string]bool
  Outbound chan SSEMessage
  done     chan struct{}
}

func (c *SSEClient) Done() <-chan struct{} { return c.done }

type SSEHub struct {
  mu            sync.RWMutex
  log           *logger.Logger
  subscriptions map[string]map[*SSEClient]bool
}

func NewSSEHub(log *logger.Logger) *SSEHub {
  return &SSEHub{
    log:           log.With("component", "SSEHub"),
    subscriptions: make(map[string]map[*SSEClient]bool),
  }
}

func (hub *SSEHub) NewSSEClient(userID uuid.UUID) *SSEClient {
  return &SSEClient{
    ID:       uuid.New(),
    UserID:   userID,
    Channels: make(map[string]bool),
    Outbound: make(chan SSEMessage, 16),
    done:     make(chan struct{}),
  }
}

func (hub *SSEHub) AddChannel(client *SSEClient, channel string) {
  channel = strings.TrimSpace(channel)
  if channel == "" {
    return
  }

  hub.mu.Lock()
  defer hub.mu.Unlock()

  client.Channels[channel] = true
  clients, exists := hub.subscriptions[channel]
  if !exists {
    clients = make(map[*SSEClient]bool)
    hub.subscriptions[channel] = clients
  }
  clients[client] = true

  hub.log.Debug("SSE client subscribed", "client_id", client.ID, "channel", channel)
}

func (hub *SSEHub) RemoveChannel(client *SSEClient, channel string) {
  channel = strings.TrimSpace(channel)
  if channel == "" {
    return
  }

  hub.mu.Lock()
  defer hub.mu.Unlock()

  delete(client.Channels, channel)
  if clients, exists := hub.subscriptions[channel]; exists {
    delete(clients, client)
    if len(clients) == 0 {
      delete(hub.subscriptions, channel)
    }
  }
}

func (hub *SSEHub) RemoveClient(client *SSEClient) {
  hub.mu.Lock()
  defer hub.mu.Unlock()

  for channel := range client.Channels {
    if clients, exists := hub.subscriptions[channel]; exists {
      delete(clients, client)
      if len(clients) == 0 {
        delete(hub.subscriptions, channel)
      }
    }
  }
  select {
  case <-client.done:
  default:
    close(client.done)
  }
}

// Broadcast delivers to every subscriber of the message's channel. Slow
// clients drop messages rather than block the hub.
func (hub *SSEHub) Broadcast(msg SSEMessage) {
  hub.mu.RLock()
  defer hub.mu.RUnlock()

  for client := range hub.subscriptions[msg.Channel] {
    select {
    case client.Outbound <- msg:
    default:
      hub.log.Debug("SSE client buffer full, dropping message", "client_id", client.ID, "channel", msg.Channel)
    }
  }
}
