// Package web provides HTTP request and response types for the workflow API.
package web

import (
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/serializer"
)

// CreateWorkflowRequest represents the request body for creating a new, empty workflow.
type CreateWorkflowRequest struct {
	Name    string `json:"name"               validate:"required,min=1,max=200"`
	AgentID string `json:"agent_id,omitempty" validate:"omitempty,max=200"`
}

// SaveWorkflowRequest is the full document sent by the editor. The graph replaces the
// stored one wholesale.
type SaveWorkflowRequest struct {
	Name        string               `json:"name"               validate:"required,min=1,max=200"`
	AgentID     string               `json:"agent_id,omitempty" validate:"omitempty,max=200"`
	Nodes       []*models.Node       `json:"nodes"`
	Connections []*models.Connection `json:"connections"`
}

func (r SaveWorkflowRequest) document() *models.Workflow {
	return &models.Workflow{
		Name:        r.Name,
		AgentID:     r.AgentID,
		Nodes:       r.Nodes,
		Connections: r.Connections,
	}
}

// WorkflowResponse is a workflow document plus the entries dropped while repairing it.
// Issues is omitted when the stored document was already valid.
type WorkflowResponse struct {
	*models.Workflow

	AgentName string             `json:"agent_name"`
	Issues    []serializer.Issue `json:"issues,omitempty"`
}
