// Package models defines the workflow document and the records the canvas editor works with.
package models

// NodeKind represents the category of a node placed on the canvas.
type NodeKind string

const (
	NodeKindTrigger   NodeKind = "trigger"   // Starts a workflow (incoming call, webhook, schedule, etc.)
	NodeKindAction    NodeKind = "action"    // Does something (send SMS, transfer call, etc.)
	NodeKindCondition NodeKind = "condition" // Branches on a predicate
)

// IsValid reports whether k is one of the known node kinds.
func (k NodeKind) IsValid() bool {
	switch k {
	case NodeKindTrigger, NodeKindAction, NodeKindCondition:
		return true
	default:
		return false
	}
}

// Node represents a placed instance of a catalog template.
// Display metadata (icon, color, name) is resolved from the catalog through TemplateRef.
type Node struct {
	ID          string   `json:"id"           validate:"required"`
	Kind        NodeKind `json:"kind"         validate:"required,oneof=trigger action condition"`
	TemplateRef string   `json:"template_ref" validate:"required"`
	Position    Point    `json:"position"` // Logical canvas coordinates
}

// Connection is a directed edge between two nodes.
type Connection struct {
	ID   string `json:"id"   validate:"required"`
	From string `json:"from" validate:"required"`
	To   string `json:"to"   validate:"required,nefield=From"`
}

// Helper methods for kind checking.
func (n *Node) IsTrigger() bool {
	return n.Kind == NodeKindTrigger
}

func (n *Node) IsAction() bool {
	return n.Kind == NodeKindAction
}

func (n *Node) IsCondition() bool {
	return n.Kind == NodeKindCondition
}

// Touches reports whether the connection references the given node on either end.
func (c *Connection) Touches(nodeID string) bool {
	return c.From == nodeID || c.To == nodeID
}
