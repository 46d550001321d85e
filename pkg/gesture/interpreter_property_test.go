package gesture

import (
	"testing"

	"github.com/dukex/flowcanvas/pkg/models"
	"pgregory.net/rapid"
)

func drawEvent(t *rapid.T) Event {
	point := models.Point{
		X: rapid.Float64Range(0, 600).Draw(t, "x"),
		Y: rapid.Float64Range(0, 400).Draw(t, "y"),
	}

	typ := rapid.SampledFrom([]EventType{
		MouseDown, MouseMove, MouseUp, Click, Wheel,
		TouchStart, TouchMove, TouchEnd, TouchCancel, Key,
	}).Draw(t, "type")

	ev := Event{
		Type:       typ,
		Point:      point,
		Button:     Button(rapid.IntRange(0, 2).Draw(t, "button")),
		WheelDelta: rapid.Float64Range(-300, 300).Draw(t, "wheel"),
		Key:        rapid.SampledFrom([]string{"+", "-", "0", "Escape", "a"}).Draw(t, "key"),
		Ctrl:       rapid.Bool().Draw(t, "ctrl"),
	}

	count := rapid.IntRange(0, 3).Draw(t, "touches")
	for i := range count {
		ev.Touches = append(ev.Touches, Touch{
			ID: i + 1,
			Point: models.Point{
				X: rapid.Float64Range(0, 600).Draw(t, "tx"),
				Y: rapid.Float64Range(0, 400).Draw(t, "ty"),
			},
		})
	}

	return ev
}

// TestInterpreter_GesturesAreMutuallyExclusive feeds arbitrary input and checks that a
// node drag, a pan and a pinch are never active at the same time.
func TestInterpreter_GesturesAreMutuallyExclusive(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		in := NewInterpreter(fixtureHits())

		var dragging, pinching, connecting bool

		events := rapid.SliceOfN(rapid.Custom(drawEvent), 1, 80).Draw(t, "events")
		for _, ev := range events {
			for _, intent := range in.Handle(ev) {
				switch intent.(type) {
				case DragStart:
					if dragging || pinching {
						t.Fatalf("drag started while another gesture is active")
					}

					dragging = true
				case DragEnd:
					dragging = false
				case PinchStart:
					if dragging || pinching {
						t.Fatalf("pinch started while another gesture is active")
					}

					pinching = true
				case PinchEnd:
					pinching = false
				case Pan:
					if dragging || pinching || connecting {
						t.Fatalf("pan emitted while dragging=%v pinching=%v connecting=%v", dragging, pinching, connecting)
					}
				case DragMove:
					if !dragging {
						t.Fatalf("drag move without drag start")
					}
				case Pinch:
					if !pinching {
						t.Fatalf("pinch without pinch start")
					}
				case ConnectStart:
					connecting = true
				case Connect, ConnectCancel:
					connecting = false
				}
			}

			if (in.State().Kind == StateConnectingFrom) != connecting {
				t.Fatalf("state %s disagrees with connect intents", in.State())
			}
		}
	})
}
