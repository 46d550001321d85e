// Package graph owns the authoritative set of nodes and connections of a workflow
// being authored and enforces its structural invariants.
package graph

import (
	"github.com/dukex/flowcanvas/pkg/models"
)

const (
	nodeIDPrefix       = "node"
	connectionIDPrefix = "conn"

	maxIDAttempts = 8
)

// Graph holds nodes and connections in insertion order, which is also render order
// (later entries are drawn on top).
//
// Invariants:
//   - node and connection ids are unique and never reused, even after deletion
//   - every connection references two existing, distinct nodes
//   - at most one connection exists per ordered (from, to) pair
//
// Graph is not safe for concurrent use; it is owned by a single editing session.
type Graph struct {
	ids         IDGenerator
	nodes       []*models.Node
	connections []*models.Connection
	issued      map[string]struct{}
}

// Option configures a Graph.
type Option func(*Graph)

// WithIDGenerator replaces the default UUID based id generator.
func WithIDGenerator(generator IDGenerator) Option {
	return func(g *Graph) {
		g.ids = generator
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		ids:    uuidGenerator{},
		issued: make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// AddNode places a new node and returns a copy of it. It always succeeds.
func (g *Graph) AddNode(kind models.NodeKind, templateRef string, position models.Point) *models.Node {
	node := &models.Node{
		ID:          g.nextID(nodeIDPrefix),
		Kind:        kind,
		TemplateRef: templateRef,
		Position:    position,
	}

	g.nodes = append(g.nodes, node)

	return cloneNode(node)
}

// MoveNode replaces the position of a node. It reports false when the id is unknown.
func (g *Graph) MoveNode(id string, position models.Point) bool {
	idx := g.nodeIndex(id)
	if idx < 0 {
		return false
	}

	g.nodes[idx].Position = position

	return true
}

// DeleteNode removes the node and every connection that references it.
// Deleting an unknown node is harmless and reports false.
func (g *Graph) DeleteNode(id string) bool {
	idx := g.nodeIndex(id)
	if idx < 0 {
		return false
	}

	g.nodes = append(g.nodes[:idx], g.nodes[idx+1:]...)

	kept := g.connections[:0]

	for _, conn := range g.connections {
		if !conn.Touches(id) {
			kept = append(kept, conn)
		}
	}

	clear(g.connections[len(kept):])
	g.connections = kept

	return true
}

// AddConnection links from → to. It returns nil when the connection is rejected:
// a self-loop, an unknown endpoint, or an ordered pair that is already connected.
// Rejections are expected during normal editing (double clicks) and are not errors.
func (g *Graph) AddConnection(from, to string) *models.Connection {
	if !g.canConnect(from, to) {
		return nil
	}

	conn := &models.Connection{
		ID:   g.nextID(connectionIDPrefix),
		From: from,
		To:   to,
	}

	g.connections = append(g.connections, conn)

	return cloneConnection(conn)
}

// DeleteConnection removes a connection if present.
func (g *Graph) DeleteConnection(id string) bool {
	for i, conn := range g.connections {
		if conn.ID == id {
			g.connections = append(g.connections[:i], g.connections[i+1:]...)

			return true
		}
	}

	return false
}

// Clear removes all nodes and connections. Issued ids stay retired.
func (g *Graph) Clear() {
	g.nodes = nil
	g.connections = nil
}

// Restore appends already identified nodes and connections, typically read back from a
// stored document. Entries violating the graph invariants are skipped; the number of
// skipped nodes and connections is returned.
func (g *Graph) Restore(nodes []*models.Node, connections []*models.Connection) (int, int) {
	var skippedNodes, skippedConnections int

	for _, node := range nodes {
		if node == nil || node.ID == "" || g.nodeIndex(node.ID) >= 0 {
			skippedNodes++

			continue
		}

		g.retire(node.ID)
		g.nodes = append(g.nodes, cloneNode(node))
	}

	for _, conn := range connections {
		if conn == nil || conn.ID == "" || g.hasConnectionID(conn.ID) || !g.canConnect(conn.From, conn.To) {
			skippedConnections++

			continue
		}

		g.retire(conn.ID)
		g.connections = append(g.connections, cloneConnection(conn))
	}

	return skippedNodes, skippedConnections
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (*models.Node, bool) {
	idx := g.nodeIndex(id)
	if idx < 0 {
		return nil, false
	}

	return cloneNode(g.nodes[idx]), true
}

// Nodes returns copies of all nodes in render order.
func (g *Graph) Nodes() []*models.Node {
	nodes := make([]*models.Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, cloneNode(node))
	}

	return nodes
}

// Connections returns copies of all connections in creation order.
func (g *Graph) Connections() []*models.Connection {
	connections := make([]*models.Connection, 0, len(g.connections))
	for _, conn := range g.connections {
		connections = append(connections, cloneConnection(conn))
	}

	return connections
}

// ConnectionsOf returns copies of the connections touching a node.
func (g *Graph) ConnectionsOf(nodeID string) []*models.Connection {
	var connections []*models.Connection

	for _, conn := range g.connections {
		if conn.Touches(nodeID) {
			connections = append(connections, cloneConnection(conn))
		}
	}

	return connections
}

// HasConnection reports whether the ordered pair from → to is connected.
func (g *Graph) HasConnection(from, to string) bool {
	for _, conn := range g.connections {
		if conn.From == from && conn.To == to {
			return true
		}
	}

	return false
}

func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

func (g *Graph) ConnectionCount() int {
	return len(g.connections)
}

// OccupiedAt reports whether a node sits exactly at the given logical position.
func (g *Graph) OccupiedAt(position models.Point) bool {
	for _, node := range g.nodes {
		if node.Position == position {
			return true
		}
	}

	return false
}

func (g *Graph) canConnect(from, to string) bool {
	if from == to {
		return false
	}

	if g.nodeIndex(from) < 0 || g.nodeIndex(to) < 0 {
		return false
	}

	return !g.HasConnection(from, to)
}

func (g *Graph) nodeIndex(id string) int {
	for i, node := range g.nodes {
		if node.ID == id {
			return i
		}
	}

	return -1
}

func (g *Graph) hasConnectionID(id string) bool {
	for _, conn := range g.connections {
		if conn.ID == id {
			return true
		}
	}

	return false
}

// nextID asks the configured generator a bounded number of times, then falls back to
// uuids so a generator that keeps repeating itself cannot stall the editor.
func (g *Graph) nextID(prefix string) string {
	for range maxIDAttempts {
		if id := g.ids.NewID(prefix); g.available(id) {
			g.retire(id)

			return id
		}
	}

	for {
		if id := (uuidGenerator{}).NewID(prefix); g.available(id) {
			g.retire(id)

			return id
		}
	}
}

func (g *Graph) available(id string) bool {
	if id == "" {
		return false
	}

	_, taken := g.issued[id]

	return !taken
}

func (g *Graph) retire(id string) {
	g.issued[id] = struct{}{}
}

func cloneNode(node *models.Node) *models.Node {
	clone := *node

	return &clone
}

func cloneConnection(conn *models.Connection) *models.Connection {
	clone := *conn

	return &clone
}
