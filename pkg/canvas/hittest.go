package canvas

import (
	"github.com/dukex/flowcanvas/pkg/gesture"
	"github.com/dukex/flowcanvas/pkg/models"
)

const (
	DefaultNodeRadius   = 40.0
	ConnectHandleRadius = 12.0
)

// HitTest finds what lies under a screen point. Nodes are tested from the topmost (last
// in render order) down, so a covering node hides whatever is beneath it; within one
// node the connect handle wins over the body.
func (s *Session) HitTest(screen models.Point) gesture.Hit {
	logical := s.viewport.ScreenToLogical(screen)
	nodes := s.graph.Nodes()

	for i := len(nodes) - 1; i >= 0; i-- {
		node := nodes[i]

		if logical.Distance(s.handleCenter(node)) <= ConnectHandleRadius {
			return gesture.Hit{Target: gesture.TargetConnectHandle, NodeID: node.ID}
		}

		if logical.Distance(node.Position) <= s.nodeRadius {
			return gesture.Hit{Target: gesture.TargetNode, NodeID: node.ID}
		}
	}

	return gesture.Hit{Target: gesture.TargetNone}
}

// handleCenter is the connect affordance, on the right edge of the node.
func (s *Session) handleCenter(node *models.Node) models.Point {
	return node.Position.Add(models.Point{X: s.nodeRadius})
}
