package services

import (
  "context"

  "github.com/google/uuid"

  "github.com/yungbote/launchcopy-backend/internal/clients/redis"
  "github.com/yungbote/launchcopy-backend/internal/platform/logger"
  "github.com/yungbote/launchcopy-backend/internal/sse"
)

// Notifier pushes content events to SSE subscribers. When a redis bus is
// configured the event is published there instead and every instance's
// forwarder fans it into its local hub.
type Notifier interface {
  SectionUpdated(projectID uuid.UUID, sectionType string, version int)
  SectionApproved(projectID uuid.UUID, sectionType string, approvedFields int)
  FieldsUpdated(projectID uuid.UUID, sectionType string, fieldIDs []string)
  PropagationCompleted(projectID uuid.UUID, sectionType string, updatedSections []string, skippedStale bool)
  ProjectCreated(userID, projectID uuid.UUID, name string)
}

type notifier struct {
  log *logger.Logger
  hub *sse.SSEHub
  bus redis.SSEBus
}

func NewNotifier(baseLog *logger.Logger, hub *sse.SSEHub, bus redis.SSEBus) Notifier {
  return &notifier{
    log: baseLog.With("service", "Notifier"),
    hub: hub,
    bus: bus,
  }
}

func (n *notifier) SectionUpdated(projectID uuid.UUID, sectionType string, version int) {
  n.emit(sse.SSEMessage{
    Channel: projectID.String(),
    Event:   sse.SSEEventSectionUpdated,
    Data: map[string]any{
      "project_id":   projectID,
      "section_type": sectionType,
      "version":      version,
    },
  })
}

func (n *notifier) SectionApproved(projectID uuid.UUID, sectionType string, approvedFields int) {
  n.emit(sse.SSEMessage{
    Channel: projectID.String(),
    Event:   sse.SSEEventSectionApproved,
    Data: map[string]any{
      "project_id":      projectID,
      "section_type":    sectionType,
      "approved_fields": approvedFields,
    },
  })
}

func (n *notifier) FieldsUpdated(projectID uuid.UUID, sectionType string, fieldIDs []string) {
  n.emit(sse.SSEMessage{
    Channel: projectID.String(),
    Event:   sse.SSEEventFieldsUpdated,
    Data: map[string]any{
      "project_id":   projectID,
      "section_type": sectionType,
      "field_ids":    fieldIDs,
    },
  })
}

func (n *notifier) PropagationCompleted(projectID uuid.UUID, sectionType string, updatedSections []string, skippedStale bool) {
  n.emit(sse.SSEMessage{
    Channel: projectID.String(),
    Event:   sse.SSEEventPropagationCompleted,
    Data: map[string]any{
      "project_id":       projectID,
      "source_section":   sectionType,
      "updated_sections": updatedSections,
      "skipped_stale":    skippedStale,
    },
  })
}

func (n *notifier) ProjectCreated(userID, projectID uuid.UUID, name string) {
  n.emit(sse.SSEMessage{
    Channel: userID.String(),
    Event:   sse.SSEEventProjectCreated,
    Data: map[string]any{
      "project_id": projectID,
      "name":       name,
    },
  })
}

func (n *notifier) emit(msg sse.SSEMessage) {
  if n == nil {
    return
  }
  if n.bus != nil {
    if err := n.bus.Publish(context.Background(), msg); err == nil {
      return
    } else if n.log != nil {
      n.log.Warn("redis publish failed, falling back to local hub", "event", msg.Event, "error", err)
    }
  }
  if n.hub != nil {
    n.hub.Broadcast(msg)
  }
}
