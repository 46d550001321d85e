// Package canvas is the editing session of the workflow canvas: it owns the graph, the
// viewport and the gesture state, applies interpreted input to them and tells observers
// what changed.
package canvas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/flowcanvas/pkg/catalog"
	"github.com/dukex/flowcanvas/pkg/gesture"
	"github.com/dukex/flowcanvas/pkg/graph"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/serializer"
	"github.com/dukex/flowcanvas/pkg/viewport"
)

// ErrNoStore is returned by Save and Load when the session has no store.
var ErrNoStore = errors.New("no workflow store configured")

// Store is the persistence contract the session needs.
type Store interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	Load(ctx context.Context, id string) (*models.Workflow, error)
}

// GraphView is the read-only side of the graph handed to renderers.
type GraphView interface {
	Node(id string) (*models.Node, bool)
	Nodes() []*models.Node
	Connections() []*models.Connection
	ConnectionsOf(nodeID string) []*models.Connection
	HasConnection(from, to string) bool
	NodeCount() int
	ConnectionCount() int
}

// Session is the single owner of an editing session.
//
// Graph, viewport and gesture state are touched only by the goroutine driving the
// session (the UI loop). Metadata, save status and observers are guarded because
// SaveAsync completes on another goroutine.
type Session struct {
	graph        *graph.Graph
	graphOptions []graph.Option
	viewport     *viewport.Viewport
	gestures     *gesture.Interpreter
	templates    catalog.Resolver
	store        Store
	logger       *slog.Logger
	nodeRadius   float64
	size         models.Point

	dragNodeID string
	dragOffset models.Point
	pinchBase  float64

	mu           sync.Mutex
	meta         serializer.Metadata
	saveStatus   SaveStatus
	saveErr      error
	observers    map[int]func(Change)
	nextObserver int
}

func NewSession(opts ...Option) *Session {
	s := &Session{
		viewport:   viewport.New(),
		nodeRadius: DefaultNodeRadius,
		observers:  make(map[int]func(Change)),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.graph = graph.New(s.graphOptions...)

	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.gestures = gesture.NewInterpreter(s)

	return s
}

// Subscribe registers an observer and returns a function that removes it. Observers run
// synchronously; SaveStatusChanged may be delivered from the goroutine of SaveAsync.
func (s *Session) Subscribe(observer func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = observer

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.observers, id)
	}
}

func (s *Session) notify(changes ...Change) {
	if len(changes) == 0 {
		return
	}

	s.mu.Lock()
	observers := make([]func(Change), 0, len(s.observers))

	for id := 0; id < s.nextObserver; id++ {
		if observer, ok := s.observers[id]; ok {
			observers = append(observers, observer)
		}
	}
	s.mu.Unlock()

	for _, change := range changes {
		for _, observer := range observers {
			observer(change)
		}
	}
}

func (s *Session) notifyKinds(kinds changeSet) {
	changes := make([]Change, 0, len(kinds))
	for _, kind := range kinds {
		changes = append(changes, Change{Kind: kind})
	}

	s.notify(changes...)
}

// Handle feeds one raw input event through the gesture interpreter, applies the
// resulting intents and returns them.
func (s *Session) Handle(ev gesture.Event) []gesture.Intent {
	wasConnecting := s.gestures.State().Kind == gesture.StateConnectingFrom
	intents := s.gestures.Handle(ev)

	var changes changeSet
	for _, intent := range intents {
		s.apply(intent, &changes)
	}

	if isConnecting := s.gestures.State().Kind == gesture.StateConnectingFrom; isConnecting != wasConnecting {
		changes.add(ConnectModeChanged)
	}

	s.notifyKinds(changes)

	return intents
}

func (s *Session) apply(intent gesture.Intent, changes *changeSet) {
	switch in := intent.(type) {
	case gesture.Pan:
		s.viewport.PanBy(in.Delta)
		changes.add(ViewportChanged)
	case gesture.DragStart:
		node, ok := s.graph.Node(in.NodeID)
		if !ok {
			return
		}

		s.dragNodeID = in.NodeID
		s.dragOffset = s.viewport.ScreenToLogical(in.Point).Sub(node.Position)
	case gesture.DragMove:
		if in.NodeID != s.dragNodeID {
			return
		}

		if s.graph.MoveNode(in.NodeID, s.viewport.ScreenToLogical(in.Point).Sub(s.dragOffset)) {
			changes.add(GraphChanged)
		}
	case gesture.DragEnd:
		s.dragNodeID = ""
	case gesture.PinchStart:
		s.pinchBase = s.viewport.Zoom()
	case gesture.Pinch:
		if s.pinchBase == 0 {
			s.pinchBase = s.viewport.Zoom()
		}

		s.viewport.ZoomTo(s.pinchBase*in.Scale, in.Anchor)
		changes.add(ViewportChanged)
	case gesture.PinchEnd:
		s.pinchBase = 0
	case gesture.ZoomBy:
		s.viewport.ZoomBy(in.Factor, in.Anchor)
		changes.add(ViewportChanged)
	case gesture.Connect:
		if s.graph.AddConnection(in.From, in.To) != nil {
			changes.add(GraphChanged)
		}
	case gesture.AddNodeAt:
		if s.addNode(in.TemplateRef, s.viewport.ScreenToLogical(in.Point)) != nil {
			changes.add(GraphChanged)
		}
	case gesture.TapAdd:
		if s.addNode(in.TemplateRef, nextGridSlot(s.graph)) != nil {
			changes.add(GraphChanged)
		}
	case gesture.ZoomIn:
		s.viewport.ZoomBy(gesture.ZoomStep, s.center())
		changes.add(ViewportChanged)
	case gesture.ZoomOut:
		s.viewport.ZoomBy(1/gesture.ZoomStep, s.center())
		changes.add(ViewportChanged)
	case gesture.ResetView:
		s.viewport.Reset()
		changes.add(ViewportChanged)
	}
}

// AddNode places a template at a logical position. It returns nil when a catalog is
// configured and does not know the template.
func (s *Session) AddNode(templateRef string, logical models.Point) *models.Node {
	node := s.addNode(templateRef, logical)
	if node != nil {
		s.notify(Change{Kind: GraphChanged})
	}

	return node
}

// TapAdd places a template on the next free grid slot.
func (s *Session) TapAdd(templateRef string) *models.Node {
	return s.AddNode(templateRef, nextGridSlot(s.graph))
}

func (s *Session) addNode(templateRef string, logical models.Point) *models.Node {
	kind, ok := s.kindOf(templateRef)
	if !ok {
		s.logger.Debug("rejected unknown template", "template_ref", templateRef)

		return nil
	}

	return s.graph.AddNode(kind, templateRef, logical)
}

func (s *Session) kindOf(templateRef string) (models.NodeKind, bool) {
	if templateRef == "" {
		return "", false
	}

	if s.templates == nil {
		return models.NodeKindAction, true
	}

	template, ok := s.templates.Lookup(templateRef)
	if !ok {
		return "", false
	}

	return template.Kind, true
}

// DeleteNode removes a node and its connections. A gesture involving the node is
// cancelled first.
func (s *Session) DeleteNode(id string) bool {
	var changes changeSet

	if from, connecting := s.gestures.ConnectingFrom(); (connecting && from == id) || s.dragNodeID == id {
		s.resetGestures(&changes)
	}

	if s.graph.DeleteNode(id) {
		changes.add(GraphChanged)
	}

	s.notifyKinds(changes)

	return len(changes) > 0
}

func (s *Session) DeleteConnection(id string) bool {
	if !s.graph.DeleteConnection(id) {
		return false
	}

	s.notify(Change{Kind: GraphChanged})

	return true
}

// ClearAll removes every node and connection.
func (s *Session) ClearAll() {
	var changes changeSet

	s.resetGestures(&changes)
	s.graph.Clear()
	changes.add(GraphChanged)
	s.notifyKinds(changes)
}

func (s *Session) ZoomIn() {
	s.applyDirect(gesture.ZoomIn{})
}

func (s *Session) ZoomOut() {
	s.applyDirect(gesture.ZoomOut{})
}

func (s *Session) ResetView() {
	s.applyDirect(gesture.ResetView{})
}

func (s *Session) applyDirect(intent gesture.Intent) {
	var changes changeSet

	s.apply(intent, &changes)
	s.notifyKinds(changes)
}

// SetViewportSize updates the visible area used as the keyboard zoom anchor.
func (s *Session) SetViewportSize(width, height float64) {
	s.size = models.Point{X: width, Y: height}
}

func (s *Session) center() models.Point {
	return s.size.Scale(0.5)
}

// CancelGesture ends whatever gesture is in progress, including connect mode.
func (s *Session) CancelGesture() {
	var changes changeSet

	s.resetGestures(&changes)
	s.notifyKinds(changes)
}

func (s *Session) resetGestures(changes *changeSet) {
	wasConnecting := s.gestures.State().Kind == gesture.StateConnectingFrom

	for _, intent := range s.gestures.Reset() {
		s.apply(intent, changes)
	}

	s.dragNodeID = ""
	s.pinchBase = 0

	if wasConnecting {
		changes.add(ConnectModeChanged)
	}
}

// ConnectingFrom returns the node connect mode started from, for highlighting.
func (s *Session) ConnectingFrom() (string, bool) {
	return s.gestures.ConnectingFrom()
}

func (s *Session) GestureState() gesture.State {
	return s.gestures.State()
}

func (s *Session) Graph() GraphView {
	return s.graph
}

func (s *Session) Viewport() viewport.State {
	return s.viewport.State()
}

func (s *Session) ScreenToLogical(screen models.Point) models.Point {
	return s.viewport.ScreenToLogical(screen)
}

func (s *Session) LogicalToScreen(logical models.Point) models.Point {
	return s.viewport.LogicalToScreen(logical)
}

func (s *Session) Metadata() serializer.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.meta
}

func (s *Session) SetName(name string) {
	s.mu.Lock()
	s.meta.Name = name
	s.mu.Unlock()
}

func (s *Session) SetAgentID(agentID string) {
	s.mu.Lock()
	s.meta.AgentID = agentID
	s.mu.Unlock()
}

// Document serializes the current graph and metadata.
func (s *Session) Document() *models.Workflow {
	return serializer.Serialize(s.Metadata(), s.graph)
}

// SaveStatus reports the outcome of the most recent save and its error, if it failed.
func (s *Session) SaveStatus() (SaveStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveStatus, s.saveErr
}

// Save writes the current document and waits for the store. On failure the graph is
// left untouched so the user can retry.
func (s *Session) Save(ctx context.Context) error {
	doc, err := s.beginSave()
	if err != nil {
		return err
	}

	return s.finishSave(doc, s.store.Save(ctx, doc))
}

// SaveAsync snapshots the document immediately and saves it in the background so
// editing can continue. The channel receives the outcome and is then closed.
func (s *Session) SaveAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)

	doc, err := s.beginSave()
	if err != nil {
		done <- err
		close(done)

		return done
	}

	go func() {
		defer close(done)

		done <- s.finishSave(doc, s.store.Save(ctx, doc))
	}()

	return done
}

func (s *Session) beginSave() (*models.Workflow, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}

	doc := s.Document()
	s.setSaveStatus(SaveInFlight, nil)

	return doc, nil
}

func (s *Session) finishSave(doc *models.Workflow, err error) error {
	if err != nil {
		s.logger.Warn("failed to save workflow", "workflow_id", doc.ID, "error", err)
		s.setSaveStatus(SaveFailed, err)

		return fmt.Errorf("failed to save workflow: %w", err)
	}

	s.mu.Lock()
	// the store assigns the id of a new document
	if s.meta.ID == "" || s.meta.ID == doc.ID {
		s.meta.ID = doc.ID
		s.meta.CreatedAt = doc.CreatedAt
		s.meta.UpdatedAt = doc.UpdatedAt
	}
	s.mu.Unlock()

	s.logger.Debug("workflow saved", "workflow_id", doc.ID, "nodes", len(doc.Nodes), "connections", len(doc.Connections))
	s.setSaveStatus(SaveSucceeded, nil)

	return nil
}

func (s *Session) setSaveStatus(status SaveStatus, err error) {
	s.mu.Lock()
	s.saveStatus = status
	s.saveErr = err
	s.mu.Unlock()

	s.notify(Change{Kind: SaveStatusChanged, SaveStatus: status, Err: err})
}

// Load replaces the graph and metadata with a stored document. Entries that fail
// validation are dropped and listed in the report. The viewport and gesture state are
// reset. On a store error nothing changes.
func (s *Session) Load(ctx context.Context, id string) (*serializer.Report, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}

	doc, err := s.store.Load(ctx, id)
	if err != nil {
		s.logger.Warn("failed to load workflow", "workflow_id", id, "error", err)

		return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
	}

	report := s.Open(doc)

	return report, nil
}

// Open replaces the session content with a document that is already in memory.
func (s *Session) Open(doc *models.Workflow) *serializer.Report {
	opts := []serializer.Option{serializer.WithGraphOptions(s.graphOptions...)}
	if s.templates != nil {
		opts = append(opts, serializer.WithCatalog(s.templates))
	}

	meta, g, report := serializer.Deserialize(doc, opts...)

	if !report.Clean() {
		s.logger.Warn("dropped invalid workflow entries", "workflow_id", meta.ID, "issues", len(report.Issues))
	}

	var changes changeSet

	s.resetGestures(&changes)
	s.graph = g
	s.viewport.Reset()

	s.mu.Lock()
	s.meta = meta
	s.mu.Unlock()

	changes.add(WorkflowLoaded)
	changes.add(GraphChanged)
	changes.add(ViewportChanged)
	s.notifyKinds(changes)

	return report
}
