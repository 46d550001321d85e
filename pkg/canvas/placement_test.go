package canvas

import (
	"testing"

	"github.com/dukex/flowcanvas/pkg/graph"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestGridPosition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		index int
		want  models.Point
	}{
		{index: 0, want: models.Point{X: 100, Y: 100}},
		{index: 1, want: models.Point{X: 300, Y: 100}},
		{index: 3, want: models.Point{X: 700, Y: 100}},
		{index: 4, want: models.Point{X: 100, Y: 250}},
		{index: 9, want: models.Point{X: 300, Y: 400}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GridPosition(tt.index), "index %d", tt.index)
	}
}

func TestNextGridSlot(t *testing.T) {
	t.Parallel()

	g := graph.New()
	assert.Equal(t, GridPosition(0), nextGridSlot(g))

	g.AddNode(models.NodeKindAction, "send-sms", GridPosition(1))
	assert.Equal(t, GridPosition(2), nextGridSlot(g))

	g.AddNode(models.NodeKindAction, "send-sms", models.Point{X: 301, Y: 100})
	assert.Equal(t, GridPosition(2), nextGridSlot(g), "only exact positions occupy a slot")
}
