// Package gesture turns raw pointer, touch and keyboard input into semantic editing intents.
//
// Mouse and touch are two input adapters feeding the same state machine, so at most one
// continuous gesture (pan, node drag or pinch) is active at any time.
package gesture

import "github.com/dukex/flowcanvas/pkg/models"

// EventType names a raw input event. Values follow DOM event names.
type EventType string

const (
	MouseDown   EventType = "mousedown"
	MouseMove   EventType = "mousemove"
	MouseUp     EventType = "mouseup"
	Click       EventType = "click"
	Wheel       EventType = "wheel"
	TouchStart  EventType = "touchstart"
	TouchMove   EventType = "touchmove"
	TouchEnd    EventType = "touchend"
	TouchCancel EventType = "touchcancel"
	Drop        EventType = "drop"
	PaletteTap  EventType = "palettetap"
	Key         EventType = "keydown"
)

// Button identifies a mouse button, numbered like MouseEvent.button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// Touch is one active touch point.
type Touch struct {
	ID    int          `json:"id"`
	Point models.Point `json:"point"`
}

// Event is a single raw input event. All points are in screen coordinates.
//
// Touches lists every touch still active after the event, like TouchEvent.touches.
type Event struct {
	Type        EventType    `json:"type"`
	Point       models.Point `json:"point"`
	Button      Button       `json:"button,omitempty"`
	Touches     []Touch      `json:"touches,omitempty"`
	WheelDelta  float64      `json:"wheel_delta,omitempty"`
	TemplateRef string       `json:"template_ref,omitempty"`
	Key         string       `json:"key,omitempty"`
	Ctrl        bool         `json:"ctrl,omitempty"`
	Meta        bool         `json:"meta,omitempty"`
}

// Target is what a screen point lands on.
type Target int

const (
	TargetNone Target = iota
	TargetNode
	TargetConnectHandle
)

// Hit is the result of hit-testing a screen point.
type Hit struct {
	Target Target
	NodeID string
}

// HitTester resolves what lies under a screen point.
type HitTester interface {
	HitTest(screen models.Point) Hit
}

// HitTesterFunc adapts a function to HitTester.
type HitTesterFunc func(screen models.Point) Hit

func (f HitTesterFunc) HitTest(screen models.Point) Hit {
	return f(screen)
}

func (e Event) touch(id int) (Touch, bool) {
	for _, touch := range e.Touches {
		if touch.ID == id {
			return touch, true
		}
	}

	return Touch{}, false
}

func (e Event) modified() bool {
	return e.Ctrl || e.Meta
}
