// Package events defines the notifications published when workflow documents change.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every workflow document event.
const Topic = "flowcanvas.workflows"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowSavedEvent   EventType = "workflow.saved"
	WorkflowDeletedEvent EventType = "workflow.deleted"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent creates a new base event with common fields.
func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

// WorkflowSaved is published after a document was written wholesale.
type WorkflowSaved struct {
	BaseEvent

	Name            string `json:"name"`
	AgentID         string `json:"agent_id,omitempty"`
	NodeCount       int    `json:"node_count"`
	ConnectionCount int    `json:"connection_count"`
	Created         bool   `json:"created"`
	// DroppedEntries counts nodes and connections removed while repairing the document.
	DroppedEntries int `json:"dropped_entries,omitempty"`
}

func (w WorkflowSaved) GetType() EventType {
	return WorkflowSavedEvent
}

type WorkflowDeleted struct {
	BaseEvent
}

func (w WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}
