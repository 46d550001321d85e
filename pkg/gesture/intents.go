package gesture

import "github.com/dukex/flowcanvas/pkg/models"

// Intent is a semantic editing action produced by the interpreter.
type Intent interface {
	Name() string
}

// Pan translates the canvas by a screen-space delta.
type Pan struct {
	Delta models.Point
}

// DragStart begins dragging a node grabbed at a screen point.
type DragStart struct {
	NodeID string
	Point  models.Point
}

// DragMove moves the dragged node so the grab point follows the pointer.
type DragMove struct {
	NodeID string
	Point  models.Point
}

type DragEnd struct {
	NodeID string
}

// PinchStart begins a two-finger zoom; the zoom level at this moment is the base.
type PinchStart struct {
	Anchor models.Point
}

// Pinch carries the scale relative to the distance when the pinch started.
type Pinch struct {
	Scale  float64
	Anchor models.Point
}

type PinchEnd struct{}

// ZoomBy is an incremental zoom anchored at a screen point (wheel).
type ZoomBy struct {
	Factor float64
	Anchor models.Point
}

// ConnectStart enters connect mode from a node.
type ConnectStart struct {
	NodeID string
}

// Connect asks for a connection from → to and leaves connect mode.
type Connect struct {
	From string
	To   string
}

// ConnectCancel leaves connect mode without mutation.
type ConnectCancel struct {
	NodeID string
}

// AddNodeAt places a template at the screen point it was dropped on.
type AddNodeAt struct {
	TemplateRef string
	Point       models.Point
}

// TapAdd places a template using the grid-fill strategy.
type TapAdd struct {
	TemplateRef string
}

type (
	ZoomIn    struct{}
	ZoomOut   struct{}
	ResetView struct{}
)

func (Pan) Name() string           { return "pan" }
func (DragStart) Name() string     { return "drag_start" }
func (DragMove) Name() string      { return "drag_move" }
func (DragEnd) Name() string       { return "drag_end" }
func (PinchStart) Name() string    { return "pinch_start" }
func (Pinch) Name() string         { return "pinch" }
func (PinchEnd) Name() string      { return "pinch_end" }
func (ZoomBy) Name() string        { return "zoom_by" }
func (ConnectStart) Name() string  { return "connect_start" }
func (Connect) Name() string       { return "connect" }
func (ConnectCancel) Name() string { return "connect_cancel" }
func (AddNodeAt) Name() string     { return "add_node_at" }
func (TapAdd) Name() string        { return "tap_add" }
func (ZoomIn) Name() string        { return "zoom_in" }
func (ZoomOut) Name() string       { return "zoom_out" }
func (ResetView) Name() string     { return "reset_view" }
