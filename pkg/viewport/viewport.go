// Package viewport maps between screen coordinates and logical canvas coordinates.
package viewport

import (
	"math"

	"github.com/dukex/flowcanvas/pkg/models"
)

const (
	MinZoom     = 0.3
	MaxZoom     = 3.0
	DefaultZoom = 1.0
)

// State is a value snapshot of a viewport.
type State struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"pan_x"`
	PanY float64 `json:"pan_y"`
}

// Viewport owns the zoom level and pan offset of the canvas.
//
//	logical = (screen - pan) / zoom
//	screen  = logical * zoom + pan
//
// Zoom always stays within [MinZoom, MaxZoom]. The zero value is not usable, use New.
type Viewport struct {
	zoom float64
	pan  models.Point
}

func New() *Viewport {
	return &Viewport{zoom: DefaultZoom}
}

// FromState rebuilds a viewport from a snapshot, clamping the zoom.
func FromState(state State) *Viewport {
	v := New()
	if valid(state.Zoom) {
		v.zoom = clamp(state.Zoom)
	}

	if finite(state.PanX) && finite(state.PanY) {
		v.pan = models.Point{X: state.PanX, Y: state.PanY}
	}

	return v
}

func (v *Viewport) Zoom() float64 {
	return v.zoom
}

func (v *Viewport) Pan() models.Point {
	return v.pan
}

func (v *Viewport) State() State {
	return State{Zoom: v.zoom, PanX: v.pan.X, PanY: v.pan.Y}
}

// ScreenToLogical converts a screen point into logical canvas coordinates.
func (v *Viewport) ScreenToLogical(screen models.Point) models.Point {
	return screen.Sub(v.pan).Scale(1 / v.zoom)
}

// LogicalToScreen converts a logical canvas point into screen coordinates.
func (v *Viewport) LogicalToScreen(logical models.Point) models.Point {
	return logical.Scale(v.zoom).Add(v.pan)
}

// ZoomBy multiplies the zoom by factor, clamps it and keeps the logical point under
// anchor fixed on screen. Non-finite or non-positive factors are ignored.
func (v *Viewport) ZoomBy(factor float64, anchor models.Point) {
	if !valid(factor) {
		return
	}

	v.ZoomTo(v.zoom*factor, anchor)
}

// ZoomTo sets an absolute zoom level anchored at a screen point.
func (v *Viewport) ZoomTo(zoom float64, anchor models.Point) {
	if !valid(zoom) || !finite(anchor.X) || !finite(anchor.Y) {
		return
	}

	under := v.ScreenToLogical(anchor)
	v.zoom = clamp(zoom)
	// pan' = anchor - under * zoom'
	v.pan = anchor.Sub(under.Scale(v.zoom))
}

// PanBy translates the canvas by a screen-space delta, independent of zoom.
func (v *Viewport) PanBy(delta models.Point) {
	if !finite(delta.X) || !finite(delta.Y) {
		return
	}

	v.pan = v.pan.Add(delta)
}

// Reset restores zoom 1 and no pan.
func (v *Viewport) Reset() {
	v.zoom = DefaultZoom
	v.pan = models.Point{}
}

func clamp(zoom float64) float64 {
	return math.Min(MaxZoom, math.Max(MinZoom, zoom))
}

func valid(value float64) bool {
	return finite(value) && value > 0
}

func finite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
