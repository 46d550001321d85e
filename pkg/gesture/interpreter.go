package gesture

import (
	"math"

	"github.com/dukex/flowcanvas/pkg/models"
)

const (
	// TapSlop is how far (screen px) a single touch may travel and still count as a tap.
	TapSlop = 10.0

	// WheelBase is the zoom factor for one wheel notch (delta 100).
	WheelBase = 1.1

	// ZoomStep is the keyboard zoom factor.
	ZoomStep = 1.2
)

// Interpreter is the gesture state machine. It never errors: input that cannot be
// classified in the current state yields no intents.
//
// Interpreter is not safe for concurrent use.
type Interpreter struct {
	hits  HitTester
	state State

	// last pointer position driving a pan
	last     models.Point
	touchPan bool
	panTouch int

	// single-touch tap detection
	tapCandidate bool
	tapStart     models.Point

	pinchIDs        [2]int
	initialDistance float64
}

func NewInterpreter(hits HitTester) *Interpreter {
	return &Interpreter{hits: hits, state: idle()}
}

func (in *Interpreter) State() State {
	return in.state
}

// ConnectingFrom returns the source node while in connect mode.
func (in *Interpreter) ConnectingFrom() (string, bool) {
	if in.state.Kind != StateConnectingFrom {
		return "", false
	}

	return in.state.NodeID, true
}

// Reset returns to Idle, emitting the intents that close the current gesture.
func (in *Interpreter) Reset() []Intent {
	intents := in.finishContinuous()

	if in.state.Kind == StateConnectingFrom {
		intents = append(intents, ConnectCancel{NodeID: in.state.NodeID})
	}

	in.toIdle()

	return intents
}

// Handle consumes one event and returns the resulting intents, in order.
func (in *Interpreter) Handle(ev Event) []Intent {
	switch ev.Type {
	case MouseDown:
		return in.mouseDown(ev)
	case MouseMove:
		return in.mouseMove(ev)
	case MouseUp:
		return in.mouseUp()
	case Click:
		return in.click(ev.Point)
	case Wheel:
		return in.wheel(ev)
	case TouchStart:
		return in.touchStart(ev)
	case TouchMove:
		return in.touchMove(ev)
	case TouchEnd:
		return in.touchEnd(ev, true)
	case TouchCancel:
		return in.touchEnd(ev, false)
	case Drop:
		if ev.TemplateRef == "" {
			return nil
		}

		return []Intent{AddNodeAt{TemplateRef: ev.TemplateRef, Point: ev.Point}}
	case PaletteTap:
		if ev.TemplateRef == "" {
			return nil
		}

		return []Intent{TapAdd{TemplateRef: ev.TemplateRef}}
	case Key:
		return in.key(ev)
	default:
		return nil
	}
}

func (in *Interpreter) mouseDown(ev Event) []Intent {
	if in.state.Kind != StateIdle {
		return nil
	}

	switch ev.Button {
	case ButtonMiddle:
		in.startPan(ev.Point, false, 0)

		return nil
	case ButtonPrimary:
	default:
		return nil
	}

	hit := in.hits.HitTest(ev.Point)

	switch hit.Target {
	case TargetNode:
		in.state = State{Kind: StateDraggingNode, NodeID: hit.NodeID}

		return []Intent{DragStart{NodeID: hit.NodeID, Point: ev.Point}}
	case TargetConnectHandle:
		// the click that follows enters connect mode
		return nil
	default:
		in.startPan(ev.Point, false, 0)

		return nil
	}
}

func (in *Interpreter) mouseMove(ev Event) []Intent {
	switch in.state.Kind {
	case StatePanningCanvas:
		if in.touchPan {
			return nil
		}

		return in.panTo(ev.Point)
	case StateDraggingNode:
		return []Intent{DragMove{NodeID: in.state.NodeID, Point: ev.Point}}
	default:
		return nil
	}
}

func (in *Interpreter) mouseUp() []Intent {
	switch in.state.Kind {
	case StatePanningCanvas:
		if in.touchPan {
			return nil
		}

		in.toIdle()

		return nil
	case StateDraggingNode:
		nodeID := in.state.NodeID
		in.toIdle()

		return []Intent{DragEnd{NodeID: nodeID}}
	default:
		return nil
	}
}

func (in *Interpreter) click(point models.Point) []Intent {
	switch in.state.Kind {
	case StateIdle:
		hit := in.hits.HitTest(point)
		if hit.Target != TargetConnectHandle || hit.NodeID == "" {
			return nil
		}

		in.state = State{Kind: StateConnectingFrom, NodeID: hit.NodeID}

		return []Intent{ConnectStart{NodeID: hit.NodeID}}
	case StateConnectingFrom:
		from := in.state.NodeID
		hit := in.hits.HitTest(point)
		in.toIdle()

		if hit.Target == TargetNone || hit.NodeID == "" || hit.NodeID == from {
			return []Intent{ConnectCancel{NodeID: from}}
		}

		return []Intent{Connect{From: from, To: hit.NodeID}}
	default:
		return nil
	}
}

func (in *Interpreter) wheel(ev Event) []Intent {
	if in.state.Kind == StatePinchZooming || ev.WheelDelta == 0 || math.IsNaN(ev.WheelDelta) {
		return nil
	}

	factor := math.Pow(WheelBase, -ev.WheelDelta/100)

	return []Intent{ZoomBy{Factor: factor, Anchor: ev.Point}}
}

func (in *Interpreter) key(ev Event) []Intent {
	if ev.Key == "Escape" {
		if in.state.Kind != StateConnectingFrom {
			return nil
		}

		nodeID := in.state.NodeID
		in.toIdle()

		return []Intent{ConnectCancel{NodeID: nodeID}}
	}

	if !ev.modified() {
		return nil
	}

	switch ev.Key {
	case "+", "=":
		return []Intent{ZoomIn{}}
	case "-", "_":
		return []Intent{ZoomOut{}}
	case "0":
		return []Intent{ResetView{}}
	default:
		return nil
	}
}

func (in *Interpreter) touchStart(ev Event) []Intent {
	if in.state.Kind == StatePinchZooming {
		// a third finger is ignored, the tracked pair keeps driving the pinch
		return nil
	}

	if len(ev.Touches) >= 2 {
		intents := in.finishContinuous()
		if in.state.Kind == StateConnectingFrom {
			intents = append(intents, ConnectCancel{NodeID: in.state.NodeID})
		}

		return append(intents, in.startPinch(ev.Touches[0], ev.Touches[1]))
	}

	if len(ev.Touches) != 1 {
		return nil
	}

	touch := ev.Touches[0]

	switch in.state.Kind {
	case StateIdle:
		in.startPan(touch.Point, true, touch.ID)
		in.tapCandidate = true
		in.tapStart = touch.Point
	case StateConnectingFrom:
		// taps still complete connect mode, but the canvas does not pan
		in.panTouch = touch.ID
		in.last = touch.Point
		in.tapCandidate = true
		in.tapStart = touch.Point
	}

	return nil
}

func (in *Interpreter) touchMove(ev Event) []Intent {
	switch in.state.Kind {
	case StatePinchZooming:
		return in.pinch(ev)
	case StatePanningCanvas:
		if !in.touchPan {
			return nil
		}

		touch, ok := ev.touch(in.panTouch)
		if !ok {
			return nil
		}

		in.trackTap(touch.Point)

		return in.panTo(touch.Point)
	case StateConnectingFrom:
		if touch, ok := ev.touch(in.panTouch); ok {
			in.last = touch.Point
			in.trackTap(touch.Point)
		}

		return nil
	default:
		return nil
	}
}

func (in *Interpreter) touchEnd(ev Event, completed bool) []Intent {
	switch in.state.Kind {
	case StatePinchZooming:
		_, first := ev.touch(in.pinchIDs[0])
		_, second := ev.touch(in.pinchIDs[1])

		if first && second {
			return nil
		}

		intents := []Intent{PinchEnd{}}
		in.toIdle()

		switch {
		case len(ev.Touches) >= 2:
			intents = append(intents, in.startPinch(ev.Touches[0], ev.Touches[1]))
		case len(ev.Touches) == 1:
			in.startPan(ev.Touches[0].Point, true, ev.Touches[0].ID)
		}

		return intents
	case StatePanningCanvas, StateConnectingFrom:
		if in.state.Kind == StatePanningCanvas && !in.touchPan {
			return nil
		}

		if in.state.Kind == StateConnectingFrom && !in.tapCandidate {
			return nil
		}

		if _, still := ev.touch(in.panTouch); still {
			return nil
		}

		tap := completed && in.tapCandidate
		point := in.last

		if in.state.Kind == StatePanningCanvas {
			in.toIdle()
		} else {
			in.tapCandidate = false
		}

		if !tap {
			return nil
		}

		return in.click(point)
	default:
		return nil
	}
}

func (in *Interpreter) startPan(point models.Point, touch bool, touchID int) {
	in.state = State{Kind: StatePanningCanvas}
	in.last = point
	in.touchPan = touch
	in.panTouch = touchID
}

func (in *Interpreter) panTo(point models.Point) []Intent {
	delta := point.Sub(in.last)
	in.last = point

	if delta == (models.Point{}) {
		return nil
	}

	return []Intent{Pan{Delta: delta}}
}

func (in *Interpreter) trackTap(point models.Point) {
	if in.tapCandidate && point.Distance(in.tapStart) > TapSlop {
		in.tapCandidate = false
	}
}

func (in *Interpreter) startPinch(a, b Touch) Intent {
	in.state = State{Kind: StatePinchZooming}
	in.pinchIDs = [2]int{a.ID, b.ID}
	in.initialDistance = a.Point.Distance(b.Point)
	in.tapCandidate = false
	in.touchPan = false

	return PinchStart{Anchor: a.Point.Midpoint(b.Point)}
}

func (in *Interpreter) pinch(ev Event) []Intent {
	a, first := ev.touch(in.pinchIDs[0])
	b, second := ev.touch(in.pinchIDs[1])

	if !first || !second {
		return nil
	}

	distance := a.Point.Distance(b.Point)
	if in.initialDistance <= 0 {
		// fingers started on the same spot; measure from the first separation
		in.initialDistance = distance

		return nil
	}

	return []Intent{Pinch{Scale: distance / in.initialDistance, Anchor: a.Point.Midpoint(b.Point)}}
}

// finishContinuous ends a pan, drag or pinch in progress.
func (in *Interpreter) finishContinuous() []Intent {
	switch in.state.Kind {
	case StateDraggingNode:
		return []Intent{DragEnd{NodeID: in.state.NodeID}}
	case StatePinchZooming:
		return []Intent{PinchEnd{}}
	default:
		return nil
	}
}

func (in *Interpreter) toIdle() {
	in.state = idle()
	in.touchPan = false
	in.tapCandidate = false
	in.initialDistance = 0
}
