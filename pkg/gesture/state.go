package gesture

// StateKind enumerates the interpreter states.
type StateKind int

const (
	StateIdle StateKind = iota
	StatePanningCanvas
	StateDraggingNode
	StatePinchZooming
	StateConnectingFrom
)

func (k StateKind) String() string {
	switch k {
	case StateIdle:
		return "idle"
	case StatePanningCanvas:
		return "panning_canvas"
	case StateDraggingNode:
		return "dragging_node"
	case StatePinchZooming:
		return "pinch_zooming"
	case StateConnectingFrom:
		return "connecting_from"
	default:
		return "unknown"
	}
}

// State is the current interpreter state. NodeID is set for DraggingNode and ConnectingFrom.
type State struct {
	Kind   StateKind
	NodeID string
}

func (s State) String() string {
	if s.NodeID == "" {
		return s.Kind.String()
	}

	return s.Kind.String() + "(" + s.NodeID + ")"
}

func idle() State {
	return State{Kind: StateIdle}
}
