// Package preview renders workflow documents to raster images for thumbnails and
// sharing.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/dukex/flowcanvas/pkg/catalog"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

// ErrNothingToRender is returned for documents without nodes.
var ErrNothingToRender = errors.New("workflow has no nodes to render")

const (
	defaultNodeRadius = 40.0
	defaultPadding    = 24.0
	defaultMaxSize    = 2048
	labelHeight       = 28.0
	fontSize          = 12.0
	arrowSize         = 10.0
)

var (
	background  = color.White
	edgeColor   = color.RGBA{R: 0x64, G: 0x74, B: 0x8b, A: 0xff}
	labelColor  = color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	kindColours = map[models.NodeKind]string{
		models.NodeKindTrigger:   "#3b82f6",
		models.NodeKindAction:    "#22c55e",
		models.NodeKindCondition: "#ec4899",
	}
)

// Renderer draws nodes as filled circles in their template colour, labelled with the
// template name, and connections as arrows between circle edges.
type Renderer struct {
	templates catalog.Resolver
	face      font.Face
	radius    float64
	padding   float64
	maxSize   int
}

type Option func(*Renderer)

// WithNodeRadius sets the logical radius of a node circle.
func WithNodeRadius(radius float64) Option {
	return func(r *Renderer) {
		if radius > 0 {
			r.radius = radius
		}
	}
}

// WithMaxSize caps the longest side of the image in pixels; larger graphs are scaled down.
func WithMaxSize(pixels int) Option {
	return func(r *Renderer) {
		if pixels > 0 {
			r.maxSize = pixels
		}
	}
}

// NewRenderer prepares a renderer. templates may be nil, in which case nodes use a
// colour per kind and their template reference as label.
func NewRenderer(templates catalog.Resolver, opts ...Option) (*Renderer, error) {
	ttf, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	r := &Renderer{
		templates: templates,
		face: truetype.NewFace(ttf, &truetype.Options{
			Size:    fontSize,
			DPI:     72,
			Hinting: font.HintingFull,
		}),
		radius:  defaultNodeRadius,
		padding: defaultPadding,
		maxSize: defaultMaxSize,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Render draws the document. Connections whose endpoints are missing are skipped, so
// unrepaired documents render what they can.
func (r *Renderer) Render(doc *models.Workflow) (image.Image, error) {
	dc, err := r.draw(doc)
	if err != nil {
		return nil, err
	}

	return dc.Image(), nil
}

// EncodePNG renders the document and writes it as PNG.
func (r *Renderer) EncodePNG(w io.Writer, doc *models.Workflow) error {
	dc, err := r.draw(doc)
	if err != nil {
		return err
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}

	return nil
}

func (r *Renderer) draw(doc *models.Workflow) (*gg.Context, error) {
	nodes := make(map[string]*models.Node)

	var ordered []*models.Node

	if doc != nil {
		for _, node := range doc.Nodes {
			if node == nil {
				continue
			}

			nodes[node.ID] = node
			ordered = append(ordered, node)
		}
	}

	if len(ordered) == 0 {
		return nil, ErrNothingToRender
	}

	minX, minY, maxX, maxY := r.bounds(ordered)
	width, height := maxX-minX, maxY-minY
	scale := math.Min(1, float64(r.maxSize)/math.Max(width, height))

	dc := gg.NewContext(max(1, int(math.Round(width*scale))), max(1, int(math.Round(height*scale))))
	dc.SetColor(background)
	dc.Clear()
	dc.Scale(scale, scale)
	dc.Translate(-minX, -minY)
	dc.SetFontFace(r.face)

	// connections go underneath the nodes
	for _, conn := range doc.Connections {
		if conn == nil {
			continue
		}

		from, okFrom := nodes[conn.From]
		to, okTo := nodes[conn.To]

		if !okFrom || !okTo || conn.From == conn.To {
			continue
		}

		r.drawArrow(dc, from.Position, to.Position)
	}

	for _, node := range ordered {
		r.drawNode(dc, node)
	}

	return dc, nil
}

func (r *Renderer) bounds(nodes []*models.Node) (float64, float64, float64, float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)

	for _, node := range nodes {
		minX = math.Min(minX, node.Position.X)
		minY = math.Min(minY, node.Position.Y)
		maxX = math.Max(maxX, node.Position.X)
		maxY = math.Max(maxY, node.Position.Y)
	}

	margin := r.radius + r.padding

	return minX - margin, minY - margin, maxX + margin, maxY + margin + labelHeight
}

func (r *Renderer) drawNode(dc *gg.Context, node *models.Node) {
	label := node.TemplateRef
	fill := kindColours[node.Kind]

	if r.templates != nil {
		if template, ok := r.templates.Lookup(node.TemplateRef); ok {
			label = template.Name
			fill = template.Color
		}
	}

	if fill == "" {
		fill = kindColours[models.NodeKindAction]
	}

	dc.DrawCircle(node.Position.X, node.Position.Y, r.radius)
	dc.SetHexColor(fill)
	dc.FillPreserve()
	dc.SetColor(edgeColor)
	dc.SetLineWidth(2)
	dc.Stroke()

	dc.SetColor(labelColor)
	dc.DrawStringAnchored(label, node.Position.X, node.Position.Y+r.radius+labelHeight/2, 0.5, 0.5)
}

// drawArrow links the edges of two node circles and puts the head on the target edge.
func (r *Renderer) drawArrow(dc *gg.Context, from, to models.Point) {
	distance := from.Distance(to)
	if distance <= 2*r.radius {
		return
	}

	dir := to.Sub(from).Scale(1 / distance)
	start := from.Add(dir.Scale(r.radius))
	tip := to.Sub(dir.Scale(r.radius))
	base := tip.Sub(dir.Scale(arrowSize))
	normal := models.Point{X: -dir.Y, Y: dir.X}.Scale(arrowSize / 2)

	dc.SetColor(edgeColor)
	dc.SetLineWidth(2)
	dc.DrawLine(start.X, start.Y, base.X, base.Y)
	dc.Stroke()

	dc.MoveTo(tip.X, tip.Y)
	dc.LineTo(base.X+normal.X, base.Y+normal.Y)
	dc.LineTo(base.X-normal.X, base.Y-normal.Y)
	dc.ClosePath()
	dc.Fill()
}
