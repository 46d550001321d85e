// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/google/uuid"
)

// CreateTestNode creates a test Node with default values that can be overridden.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:          "node-" + uuid.New().String(),
		Kind:        models.NodeKindAction,
		TemplateRef: "send-sms",
		Position:    models.Point{X: 100, Y: 200},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithTriggerNode configures the node as an incoming call trigger.
func WithTriggerNode() func(*models.Node) {
	return func(n *models.Node) {
		n.Kind = models.NodeKindTrigger
		n.TemplateRef = "incoming-call"
	}
}

// WithConditionNode configures the node as a business hours condition.
func WithConditionNode() func(*models.Node) {
	return func(n *models.Node) {
		n.Kind = models.NodeKindCondition
		n.TemplateRef = "business-hours"
	}
}

// WithNodeID sets the node id.
func WithNodeID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// WithPosition sets the node position.
func WithPosition(x, y float64) func(*models.Node) {
	return func(n *models.Node) {
		n.Position = models.Point{X: x, Y: y}
	}
}

// WithTemplate sets the node template reference.
func WithTemplate(templateRef string) func(*models.Node) {
	return func(n *models.Node) {
		n.TemplateRef = templateRef
	}
}

// CreateTestConnection creates a connection between two nodes.
func CreateTestConnection(id, from, to string) *models.Connection {
	return &models.Connection{ID: id, From: from, To: to}
}

// CreateTestWorkflow creates a workflow with a trigger wired to an action and a
// condition, with default values that can be overridden.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	trigger := CreateTestNode(WithNodeID("node-1"), WithTriggerNode(), WithPosition(100, 100))
	action := CreateTestNode(WithNodeID("node-2"), WithPosition(300, 100))
	condition := CreateTestNode(WithNodeID("node-3"), WithConditionNode(), WithPosition(500, 100))

	workflow := &models.Workflow{
		ID:      uuid.New().String(),
		Name:    "Test Workflow",
		AgentID: "agent-1",
		Nodes:   []*models.Node{trigger, action, condition},
		Connections: []*models.Connection{
			CreateTestConnection("conn-1", trigger.ID, action.ID),
			CreateTestConnection("conn-2", action.ID, condition.ID),
		},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// CreateTestAgents returns a small agent directory fixture.
func CreateTestAgents() []models.Agent {
	return []models.Agent{
		{ID: "agent-1", Name: "Front Desk", Status: models.AgentStatusActive},
		{ID: "agent-2", Name: "After Hours", Status: models.AgentStatusInactive},
	}
}
