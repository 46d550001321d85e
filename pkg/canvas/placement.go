package canvas

import (
	"github.com/dukex/flowcanvas/pkg/graph"
	"github.com/dukex/flowcanvas/pkg/models"
)

const (
	gridColumns = 4
	gridOriginX = 100.0
	gridOriginY = 100.0
	gridStepX   = 200.0
	gridStepY   = 150.0
)

// GridPosition is the logical position of the index-th grid slot, wrapping every four
// columns.
func GridPosition(index int) models.Point {
	column := index % gridColumns
	row := index / gridColumns

	return models.Point{
		X: gridOriginX + float64(column)*gridStepX,
		Y: gridOriginY + float64(row)*gridStepY,
	}
}

// nextGridSlot starts at the slot matching the node count and skips slots a node
// already sits on exactly.
func nextGridSlot(g *graph.Graph) models.Point {
	index := g.NodeCount()

	for {
		position := GridPosition(index)
		if !g.OccupiedAt(position) {
			return position
		}

		index++
	}
}
