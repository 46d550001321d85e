package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const requiredTag = "required"

func TestNodeKind_IsValid(t *testing.T) {
	t.Parallel()

	assert.True(t, NodeKindTrigger.IsValid())
	assert.True(t, NodeKindAction.IsValid())
	assert.True(t, NodeKindCondition.IsValid())
	assert.False(t, NodeKind("loop").IsValid())
	assert.False(t, NodeKind("").IsValid())
}

func TestNode_Validation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		node      *Node
		fieldName string
		tag       string
	}{
		{
			name:      "missing id",
			node:      &Node{Kind: NodeKindAction, TemplateRef: "send-sms"},
			fieldName: "ID",
			tag:       requiredTag,
		},
		{
			name:      "missing template ref",
			node:      &Node{ID: "n1", Kind: NodeKindAction},
			fieldName: "TemplateRef",
			tag:       requiredTag,
		},
		{
			name:      "unknown kind",
			node:      &Node{ID: "n1", Kind: "loop", TemplateRef: "send-sms"},
			fieldName: "Kind",
			tag:       "oneof",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := validator.New().Struct(tc.node)
			require.Error(t, err)

			var validationErrors validator.ValidationErrors
			require.True(t, errors.As(err, &validationErrors))

			found := false

			for _, fieldErr := range validationErrors {
				if fieldErr.Field() == tc.fieldName && fieldErr.Tag() == tc.tag {
					found = true

					break
				}
			}

			assert.True(t, found, "Should have %s validation error for %s", tc.tag, tc.fieldName)
		})
	}
}

func TestConnection_Validation_SelfLoop(t *testing.T) {
	t.Parallel()

	err := validator.New().Struct(&Connection{ID: "c1", From: "n1", To: "n1"})
	assert.Error(t, err)

	err = validator.New().Struct(&Connection{ID: "c1", From: "n1", To: "n2"})
	assert.NoError(t, err)
}

func TestConnection_Touches(t *testing.T) {
	t.Parallel()

	conn := &Connection{ID: "c1", From: "a", To: "b"}

	assert.True(t, conn.Touches("a"))
	assert.True(t, conn.Touches("b"))
	assert.False(t, conn.Touches("c"))
}

func TestWorkflow_JSONShape(t *testing.T) {
	t.Parallel()

	workflow := &Workflow{
		ID:      "wf-1",
		Name:    "After hours",
		AgentID: "agent-1",
		Nodes: []*Node{
			{ID: "n1", Kind: NodeKindTrigger, TemplateRef: "incoming-call", Position: Point{X: 100, Y: -20}},
		},
		Connections: []*Connection{},
	}

	data, err := json.Marshal(workflow)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "agent-1", raw["agent_id"])
	assert.NotContains(t, raw, "zoom")

	nodes, ok := raw["nodes"].([]any)
	require.True(t, ok)
	require.Len(t, nodes, 1)

	node, ok := nodes[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "incoming-call", node["template_ref"])
	assert.Equal(t, map[string]any{"x": float64(100), "y": float64(-20)}, node["position"])
	assert.Equal(t, "n1", workflow.NodeByID("n1").ID)
	assert.Nil(t, workflow.NodeByID("missing"))
}

func TestPoint_Arithmetic(t *testing.T) {
	t.Parallel()

	p := Point{X: 3, Y: 4}

	assert.Equal(t, Point{X: 4, Y: 6}, p.Add(Point{X: 1, Y: 2}))
	assert.Equal(t, Point{X: 2, Y: 2}, p.Sub(Point{X: 1, Y: 2}))
	assert.Equal(t, Point{X: 6, Y: 8}, p.Scale(2))
	assert.InDelta(t, 5.0, p.Distance(Point{}), 1e-9)
	assert.Equal(t, Point{X: 1.5, Y: 2}, p.Midpoint(Point{}))
}
