package serializer

import (
	"fmt"
	"testing"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// buildDocument creates nodeCount nodes n0..n{k-1} and one connection per (from, to)
// pair; endpoints at or above nodeCount reference nodes that do not exist.
func buildDocument(nodeCount int, pairs []int) *models.Workflow {
	doc := &models.Workflow{Name: "generated"}

	for i := range nodeCount {
		doc.Nodes = append(doc.Nodes, &models.Node{
			ID:          fmt.Sprintf("n%d", i),
			Kind:        models.NodeKindAction,
			TemplateRef: "send-sms",
		})
	}

	for i := 0; i+1 < len(pairs); i += 2 {
		doc.Connections = append(doc.Connections, &models.Connection{
			ID:   fmt.Sprintf("c%d", i/2),
			From: fmt.Sprintf("n%d", pairs[i]),
			To:   fmt.Sprintf("n%d", pairs[i+1]),
		})
	}

	return doc
}

func TestProperty_DeserializeNeverKeepsDanglingConnections(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("surviving connections reference surviving nodes", prop.ForAll(
		func(nodeCount int, pairs []int) bool {
			doc := buildDocument(nodeCount, pairs)
			_, g, report := Deserialize(doc)

			nodes := map[string]bool{}
			for _, node := range g.Nodes() {
				nodes[node.ID] = true
			}

			for _, conn := range g.Connections() {
				if !nodes[conn.From] || !nodes[conn.To] || conn.From == conn.To {
					return false
				}
			}

			// every node is valid, so nothing but connections may be dropped
			return g.NodeCount() == nodeCount &&
				report.Count(EntityNode) == 0 &&
				g.ConnectionCount()+report.Count(EntityConnection) == len(doc.Connections)
		},
		gen.IntRange(0, 12),
		gen.SliceOf(gen.IntRange(0, 15)),
	))

	properties.Property("valid connections all survive", prop.ForAll(
		func(nodeCount int, pairs []int) bool {
			doc := buildDocument(nodeCount, pairs)
			_, g, _ := Deserialize(doc)

			seen := map[[2]string]bool{}
			expected := 0

			for _, conn := range doc.Connections {
				pair := [2]string{conn.From, conn.To}
				if conn.From == conn.To || seen[pair] || doc.NodeByID(conn.From) == nil || doc.NodeByID(conn.To) == nil {
					continue
				}

				seen[pair] = true
				expected++
			}

			return g.ConnectionCount() == expected
		},
		gen.IntRange(2, 12),
		gen.SliceOf(gen.IntRange(0, 14)),
	))

	properties.TestingRun(t)
}
