// Package serializer converts between the in-memory graph and the persisted workflow
// document. Loading never fails on bad entries: they are dropped and reported.
package serializer

import (
	"time"

	"github.com/dukex/flowcanvas/pkg/catalog"
	"github.com/dukex/flowcanvas/pkg/graph"
	"github.com/dukex/flowcanvas/pkg/models"
)

// Metadata is the form-level part of a workflow: everything except the graph.
type Metadata struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AgentID   string    `json:"agent_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MetadataOf extracts the metadata of a document.
func MetadataOf(doc *models.Workflow) Metadata {
	if doc == nil {
		return Metadata{}
	}

	return Metadata{
		ID:        doc.ID,
		Name:      doc.Name,
		AgentID:   doc.AgentID,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

type options struct {
	templates    catalog.Resolver
	graphOptions []graph.Option
}

type Option func(*options)

// WithCatalog drops nodes whose template is unknown and normalises node kinds to the
// catalog's.
func WithCatalog(templates catalog.Resolver) Option {
	return func(o *options) {
		o.templates = templates
	}
}

// WithGraphOptions passes options to the graph built by Deserialize.
func WithGraphOptions(opts ...graph.Option) Option {
	return func(o *options) {
		o.graphOptions = append(o.graphOptions, opts...)
	}
}

// Serialize produces the flat document for a graph. Viewport state is never included.
func Serialize(meta Metadata, g *graph.Graph) *models.Workflow {
	doc := &models.Workflow{
		ID:          meta.ID,
		Name:        meta.Name,
		AgentID:     meta.AgentID,
		Nodes:       []*models.Node{},
		Connections: []*models.Connection{},
		CreatedAt:   meta.CreatedAt,
		UpdatedAt:   meta.UpdatedAt,
	}

	if g != nil {
		doc.Nodes = g.Nodes()
		doc.Connections = g.Connections()
	}

	return doc
}

// Deserialize validates a document and builds a graph from the entries that pass.
// Offending nodes and connections are dropped and listed in the report; the rest of
// the graph loads normally.
func Deserialize(doc *models.Workflow, opts ...Option) (Metadata, *graph.Graph, *Report) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	report := &Report{}
	g := graph.New(o.graphOptions...)

	if doc == nil {
		return Metadata{}, g, report
	}

	l := &loader{
		templates: o.templates,
		report:    report,
		ids:       make(map[string]struct{}, len(doc.Nodes)+len(doc.Connections)),
		nodeIDs:   make(map[string]struct{}, len(doc.Nodes)),
		pairs:     make(map[[2]string]struct{}, len(doc.Connections)),
	}

	nodes := make([]*models.Node, 0, len(doc.Nodes))

	for _, node := range doc.Nodes {
		if kept, ok := l.node(node); ok {
			nodes = append(nodes, kept)
		}
	}

	connections := make([]*models.Connection, 0, len(doc.Connections))

	for _, conn := range doc.Connections {
		if l.connection(conn) {
			connections = append(connections, conn)
		}
	}

	g.Restore(nodes, connections)

	return MetadataOf(doc), g, report
}

// loader tracks what survived so far. Node and connection ids share one namespace.
type loader struct {
	templates catalog.Resolver
	report    *Report
	ids       map[string]struct{}
	nodeIDs   map[string]struct{}
	pairs     map[[2]string]struct{}
}

func (l *loader) node(node *models.Node) (*models.Node, bool) {
	switch {
	case node == nil:
		l.report.add(EntityNode, "", ReasonMalformed)

		return nil, false
	case node.ID == "":
		l.report.add(EntityNode, "", ReasonMissingID)

		return nil, false
	}

	if _, dup := l.ids[node.ID]; dup {
		l.report.add(EntityNode, node.ID, ReasonDuplicateID)

		return nil, false
	}

	kept := *node

	if l.templates != nil {
		template, ok := l.templates.Lookup(node.TemplateRef)
		if !ok {
			l.report.add(EntityNode, node.ID, ReasonUnknownTemplate)

			return nil, false
		}

		kept.Kind = template.Kind
	}

	if !kept.Kind.IsValid() {
		l.report.add(EntityNode, node.ID, ReasonInvalidKind)

		return nil, false
	}

	l.ids[node.ID] = struct{}{}
	l.nodeIDs[node.ID] = struct{}{}

	return &kept, true
}

func (l *loader) connection(conn *models.Connection) bool {
	switch {
	case conn == nil:
		l.report.add(EntityConnection, "", ReasonMalformed)

		return false
	case conn.ID == "":
		l.report.add(EntityConnection, "", ReasonMissingID)

		return false
	}

	if _, dup := l.ids[conn.ID]; dup {
		l.report.add(EntityConnection, conn.ID, ReasonDuplicateID)

		return false
	}

	if conn.From == conn.To {
		l.report.add(EntityConnection, conn.ID, ReasonSelfLoop)

		return false
	}

	_, fromOK := l.nodeIDs[conn.From]
	_, toOK := l.nodeIDs[conn.To]

	if !fromOK || !toOK {
		l.report.add(EntityConnection, conn.ID, ReasonDanglingEnd)

		return false
	}

	pair := [2]string{conn.From, conn.To}
	if _, dup := l.pairs[pair]; dup {
		l.report.add(EntityConnection, conn.ID, ReasonDuplicatePair)

		return false
	}

	l.pairs[pair] = struct{}{}
	l.ids[conn.ID] = struct{}{}

	return true
}
