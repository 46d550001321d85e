package canvas

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/dukex/flowcanvas/pkg/catalog"
	"github.com/dukex/flowcanvas/pkg/gesture"
	"github.com/dukex/flowcanvas/pkg/graph"
	"github.com/dukex/flowcanvas/pkg/log"
	"github.com/dukex/flowcanvas/pkg/mocks"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/serializer"
	"github.com/dukex/flowcanvas/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() graph.IDGenerator {
	next := 0

	return graph.IDGeneratorFunc(func(prefix string) string {
		next++

		return prefix + "-" + strconv.Itoa(next)
	})
}

func newTestSession(opts ...Option) *Session {
	base := []Option{
		WithCatalog(catalog.Default()),
		WithGraphOptions(graph.WithIDGenerator(sequentialIDs())),
		WithLogger(log.Discard()),
		WithViewportSize(800, 600),
	}

	return NewSession(append(base, opts...)...)
}

// recordChanges subscribes to the session and returns the kinds seen so far.
func recordChanges(s *Session) *[]ChangeKind {
	var kinds []ChangeKind

	s.Subscribe(func(c Change) {
		kinds = append(kinds, c.Kind)
	})

	return &kinds
}

func click(x, y float64) gesture.Event {
	return gesture.Event{Type: gesture.Click, Point: models.Point{X: x, Y: y}}
}

func mouse(eventType gesture.EventType, x, y float64) gesture.Event {
	return gesture.Event{Type: eventType, Point: models.Point{X: x, Y: y}, Button: gesture.ButtonPrimary}
}

func TestSession_ConnectThenDeleteNode(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	changes := recordChanges(s)

	n1 := s.AddNode("incoming-call", models.Point{X: 100, Y: 100})
	n2 := s.AddNode("send-sms", models.Point{X: 400, Y: 100})
	require.NotNil(t, n1)
	require.NotNil(t, n2)
	assert.Equal(t, models.NodeKindTrigger, n1.Kind)
	assert.Equal(t, models.NodeKindAction, n2.Kind)

	s.Handle(click(140, 100))

	from, connecting := s.ConnectingFrom()
	require.True(t, connecting)
	assert.Equal(t, n1.ID, from)

	intents := s.Handle(click(400, 100))
	require.Len(t, intents, 1)
	assert.Equal(t, gesture.Connect{From: n1.ID, To: n2.ID}, intents[0])

	_, connecting = s.ConnectingFrom()
	assert.False(t, connecting)
	assert.True(t, s.Graph().HasConnection(n1.ID, n2.ID))

	assert.True(t, s.DeleteNode(n1.ID))
	assert.Equal(t, 1, s.Graph().NodeCount())
	assert.Equal(t, 0, s.Graph().ConnectionCount())

	assert.Equal(t, []ChangeKind{
		GraphChanged,
		GraphChanged,
		ConnectModeChanged,
		GraphChanged,
		ConnectModeChanged,
		GraphChanged,
	}, *changes)
}

func TestSession_ConnectRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target models.Point
	}{
		{name: "empty canvas", target: models.Point{X: 250, Y: 300}},
		{name: "same node", target: models.Point{X: 100, Y: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestSession()
			s.AddNode("incoming-call", models.Point{X: 100, Y: 100})
			s.AddNode("send-sms", models.Point{X: 400, Y: 100})

			s.Handle(click(140, 100))
			s.Handle(click(tt.target.X, tt.target.Y))

			_, connecting := s.ConnectingFrom()
			assert.False(t, connecting)
			assert.Equal(t, 0, s.Graph().ConnectionCount())
		})
	}
}

func TestSession_DuplicateConnectionIsIgnored(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	s.AddNode("incoming-call", models.Point{X: 100, Y: 100})
	s.AddNode("send-sms", models.Point{X: 400, Y: 100})

	for range 2 {
		s.Handle(click(140, 100))
		s.Handle(click(400, 100))
	}

	assert.Equal(t, 1, s.Graph().ConnectionCount())
}

func TestSession_DeleteNodeCancelsConnectMode(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	n1 := s.AddNode("incoming-call", models.Point{X: 100, Y: 100})
	changes := recordChanges(s)

	s.Handle(click(140, 100))
	require.True(t, s.DeleteNode(n1.ID))

	_, connecting := s.ConnectingFrom()
	assert.False(t, connecting)
	assert.Equal(t, gesture.StateIdle, s.GestureState().Kind)
	assert.Equal(t, []ChangeKind{ConnectModeChanged, ConnectModeChanged, GraphChanged}, *changes)
}

func TestSession_DragNodeKeepsGrabOffset(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	n1 := s.AddNode("incoming-call", models.Point{X: 100, Y: 100})

	s.Handle(mouse(gesture.MouseDown, 110, 100))
	assert.Equal(t, gesture.StateDraggingNode, s.GestureState().Kind)

	s.Handle(mouse(gesture.MouseMove, 210, 150))
	s.Handle(mouse(gesture.MouseUp, 210, 150))

	node, ok := s.Graph().Node(n1.ID)
	require.True(t, ok)
	assert.Equal(t, models.Point{X: 200, Y: 150}, node.Position)
	assert.Equal(t, gesture.StateIdle, s.GestureState().Kind)
}

func TestSession_DragUnderZoom(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	n1 := s.AddNode("incoming-call", models.Point{X: 100, Y: 100})

	s.Handle(gesture.Event{Type: gesture.Wheel, Point: models.Point{}, WheelDelta: -100})
	require.InDelta(t, 1.1, s.Viewport().Zoom, 1e-9)

	start := s.LogicalToScreen(models.Point{X: 100, Y: 100})
	s.Handle(mouse(gesture.MouseDown, start.X, start.Y))
	s.Handle(mouse(gesture.MouseMove, start.X+55, start.Y))
	s.Handle(mouse(gesture.MouseUp, start.X+55, start.Y))

	node, _ := s.Graph().Node(n1.ID)
	assert.InDelta(t, 150, node.Position.X, 1e-9)
	assert.InDelta(t, 100, node.Position.Y, 1e-9)
}

func TestSession_PanCanvas(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	changes := recordChanges(s)

	s.Handle(mouse(gesture.MouseDown, 250, 300))
	s.Handle(mouse(gesture.MouseMove, 260, 320))
	s.Handle(mouse(gesture.MouseUp, 260, 320))

	state := s.Viewport()
	assert.InDelta(t, 10, state.PanX, 1e-9)
	assert.InDelta(t, 20, state.PanY, 1e-9)
	assert.Equal(t, []ChangeKind{ViewportChanged}, *changes)
}

func TestSession_PinchZoom(t *testing.T) {
	t.Parallel()

	s := newTestSession()

	s.Handle(gesture.Event{Type: gesture.TouchStart, Touches: []gesture.Touch{
		{ID: 1, Point: models.Point{X: 100, Y: 100}},
		{ID: 2, Point: models.Point{X: 200, Y: 100}},
	}})
	s.Handle(gesture.Event{Type: gesture.TouchMove, Touches: []gesture.Touch{
		{ID: 1, Point: models.Point{X: 50, Y: 100}},
		{ID: 2, Point: models.Point{X: 250, Y: 100}},
	}})

	state := s.Viewport()
	assert.InDelta(t, 2, state.Zoom, 1e-9)
	assert.InDelta(t, -150, state.PanX, 1e-9)
	assert.InDelta(t, -100, state.PanY, 1e-9)

	// the pinch scale is relative to the zoom at pinch start
	s.Handle(gesture.Event{Type: gesture.TouchMove, Touches: []gesture.Touch{
		{ID: 1, Point: models.Point{X: 50, Y: 100}},
		{ID: 2, Point: models.Point{X: 250, Y: 100}},
	}})
	assert.InDelta(t, 2, s.Viewport().Zoom, 1e-9)

	s.Handle(gesture.Event{Type: gesture.TouchEnd, Touches: []gesture.Touch{
		{ID: 1, Point: models.Point{X: 50, Y: 100}},
	}})
	assert.Equal(t, gesture.StatePanningCanvas, s.GestureState().Kind)
}

func TestSession_KeyboardZoom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		wantZoom float64
		wantPanX float64
		wantPanY float64
	}{
		{name: "zoom in", key: "+", wantZoom: 1.2, wantPanX: -80, wantPanY: -60},
		{name: "zoom in with equals", key: "=", wantZoom: 1.2, wantPanX: -80, wantPanY: -60},
		{name: "zoom out", key: "-", wantZoom: 1 / 1.2, wantPanX: 400 - 400/1.2, wantPanY: 300 - 300/1.2},
		{name: "reset", key: "0", wantZoom: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestSession()
			s.Handle(gesture.Event{Type: gesture.Key, Key: tt.key, Ctrl: true})

			state := s.Viewport()
			assert.InDelta(t, tt.wantZoom, state.Zoom, 1e-9)
			assert.InDelta(t, tt.wantPanX, state.PanX, 1e-9)
			assert.InDelta(t, tt.wantPanY, state.PanY, 1e-9)
		})
	}
}

func TestSession_ZoomButtonsClamp(t *testing.T) {
	t.Parallel()

	s := newTestSession()

	for range 20 {
		s.ZoomIn()
	}

	assert.InDelta(t, 3.0, s.Viewport().Zoom, 1e-9)

	for range 40 {
		s.ZoomOut()
	}

	assert.InDelta(t, 0.3, s.Viewport().Zoom, 1e-9)

	s.ResetView()
	assert.Equal(t, 1.0, s.Viewport().Zoom)
}

func TestSession_DropAddsNodeAtLogicalPoint(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	s.Handle(mouse(gesture.MouseDown, 0, 0))
	s.Handle(mouse(gesture.MouseMove, 50, 50))
	s.Handle(mouse(gesture.MouseUp, 50, 50))

	s.Handle(gesture.Event{Type: gesture.Drop, TemplateRef: "send-email", Point: models.Point{X: 150, Y: 250}})

	nodes := s.Graph().Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, models.Point{X: 100, Y: 200}, nodes[0].Position)
	assert.Equal(t, models.NodeKindAction, nodes[0].Kind)
}

func TestSession_UnknownTemplateIsRejected(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	changes := recordChanges(s)

	assert.Nil(t, s.AddNode("teleport", models.Point{}))
	s.Handle(gesture.Event{Type: gesture.PaletteTap, TemplateRef: "teleport"})

	assert.Equal(t, 0, s.Graph().NodeCount())
	assert.Empty(t, *changes)
}

func TestSession_WithoutCatalogAcceptsAnyTemplate(t *testing.T) {
	t.Parallel()

	s := NewSession(WithLogger(log.Discard()))

	node := s.AddNode("custom-step", models.Point{X: 1, Y: 2})
	require.NotNil(t, node)
	assert.Equal(t, models.NodeKindAction, node.Kind)
}

func TestSession_PaletteTapUsesGrid(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	s.AddNode("incoming-call", GridPosition(1))

	s.Handle(gesture.Event{Type: gesture.PaletteTap, TemplateRef: "send-sms"})
	node := s.TapAdd("send-email")

	nodes := s.Graph().Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, GridPosition(2), nodes[1].Position)
	assert.Equal(t, GridPosition(3), node.Position)
}

func TestSession_ClearAll(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	s.AddNode("incoming-call", models.Point{X: 100, Y: 100})
	s.AddNode("send-sms", models.Point{X: 400, Y: 100})
	s.Handle(click(140, 100))

	s.ClearAll()

	assert.Equal(t, 0, s.Graph().NodeCount())
	_, connecting := s.ConnectingFrom()
	assert.False(t, connecting)

	node := s.AddNode("send-sms", models.Point{})
	assert.Equal(t, "node-3", node.ID, "ids are not reused after clear")
}

func TestSession_DeleteConnection(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	n1 := s.AddNode("incoming-call", models.Point{X: 100, Y: 100})
	n2 := s.AddNode("send-sms", models.Point{X: 400, Y: 100})
	s.Handle(click(140, 100))
	s.Handle(click(400, 100))

	conns := s.Graph().ConnectionsOf(n1.ID)
	require.Len(t, conns, 1)

	assert.True(t, s.DeleteConnection(conns[0].ID))
	assert.False(t, s.DeleteConnection(conns[0].ID))
	assert.False(t, s.Graph().HasConnection(n1.ID, n2.ID))
	assert.Equal(t, 2, s.Graph().NodeCount())
}

func TestSession_Unsubscribe(t *testing.T) {
	t.Parallel()

	s := newTestSession()

	calls := 0
	unsubscribe := s.Subscribe(func(Change) { calls++ })

	s.ZoomIn()
	unsubscribe()
	s.ZoomIn()

	assert.Equal(t, 1, calls)
}

func TestSession_Save(t *testing.T) {
	t.Parallel()

	store := &mocks.MockPersistence{}
	store.On("Save", mock.Anything, mock.AnythingOfType("*models.Workflow")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Workflow).ID = "wf-1"
		}).
		Return(nil).Once()

	s := newTestSession(WithStore(store))
	s.SetName("Missed call follow-up")
	s.SetAgentID("agent-1")
	s.AddNode("call-ended", models.Point{X: 10, Y: 20})

	var statuses []SaveStatus
	s.Subscribe(func(c Change) {
		if c.Kind == SaveStatusChanged {
			statuses = append(statuses, c.SaveStatus)
		}
	})

	require.NoError(t, s.Save(context.Background()))

	saved := store.Calls[0].Arguments.Get(1).(*models.Workflow)
	assert.Equal(t, "Missed call follow-up", saved.Name)
	assert.Equal(t, "agent-1", saved.AgentID)
	assert.Len(t, saved.Nodes, 1)
	assert.NotNil(t, saved.Connections)

	status, err := s.SaveStatus()
	assert.Equal(t, SaveSucceeded, status)
	require.NoError(t, err)
	assert.Equal(t, "wf-1", s.Metadata().ID)
	assert.Equal(t, []SaveStatus{SaveInFlight, SaveSucceeded}, statuses)
	store.AssertExpectations(t)
}

func TestSession_SaveFailureKeepsGraph(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("disk full")
	store := &mocks.MockPersistence{}
	store.On("Save", mock.Anything, mock.Anything).Return(storeErr).Once()

	s := newTestSession(WithStore(store))
	s.AddNode("call-ended", models.Point{X: 10, Y: 20})

	err := s.Save(context.Background())
	require.ErrorIs(t, err, storeErr)

	status, statusErr := s.SaveStatus()
	assert.Equal(t, SaveFailed, status)
	assert.ErrorIs(t, statusErr, storeErr)
	assert.Equal(t, 1, s.Graph().NodeCount())
	assert.Empty(t, s.Metadata().ID)
}

func TestSession_SaveAsyncSnapshotsDocument(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	store := &mocks.MockPersistence{}
	store.On("Save", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(nil).Once()

	s := newTestSession(WithStore(store))
	s.AddNode("call-ended", models.Point{X: 10, Y: 20})

	done := s.SaveAsync(context.Background())

	// editing continues while the save is in flight
	s.AddNode("send-sms", models.Point{X: 200, Y: 20})
	close(release)

	require.NoError(t, <-done)

	saved := store.Calls[0].Arguments.Get(1).(*models.Workflow)
	assert.Len(t, saved.Nodes, 1)
	assert.Equal(t, 2, s.Graph().NodeCount())
}

func TestSession_WithoutStore(t *testing.T) {
	t.Parallel()

	s := newTestSession()

	require.ErrorIs(t, s.Save(context.Background()), ErrNoStore)
	require.ErrorIs(t, <-s.SaveAsync(context.Background()), ErrNoStore)

	_, err := s.Load(context.Background(), "wf-1")
	require.ErrorIs(t, err, ErrNoStore)
}

func TestSession_LoadRepairsDocument(t *testing.T) {
	t.Parallel()

	doc := testutil.CreateTestWorkflow(func(w *models.Workflow) {
		w.ID = "wf-1"
		w.Connections = append(w.Connections, testutil.CreateTestConnection("conn-9", "node-1", "ghost"))
	})

	store := &mocks.MockPersistence{}
	store.On("Load", mock.Anything, "wf-1").Return(doc, nil).Once()

	s := newTestSession(WithStore(store))
	s.AddNode("send-sms", models.Point{})
	s.ZoomIn()

	changes := recordChanges(s)

	report, err := s.Load(context.Background(), "wf-1")
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, serializer.Issue{
		Entity: serializer.EntityConnection,
		ID:     "conn-9",
		Reason: serializer.ReasonDanglingEnd,
	}, report.Issues[0])

	assert.Equal(t, 3, s.Graph().NodeCount())
	assert.Equal(t, 2, s.Graph().ConnectionCount())
	assert.Equal(t, "wf-1", s.Metadata().ID)
	assert.Equal(t, "Test Workflow", s.Metadata().Name)
	assert.Equal(t, 1.0, s.Viewport().Zoom)
	assert.Equal(t, []ChangeKind{WorkflowLoaded, GraphChanged, ViewportChanged}, *changes)

	node := s.AddNode("send-sms", models.Point{})
	assert.NotContains(t, []string{"node-1", "node-2", "node-3"}, node.ID)
}

func TestSession_LoadErrorLeavesSessionUntouched(t *testing.T) {
	t.Parallel()

	store := &mocks.MockPersistence{}
	store.On("Load", mock.Anything, "missing").
		Return(nil, persistence.NewWorkflowError("load", "missing", persistence.ErrWorkflowNotFound)).Once()

	s := newTestSession(WithStore(store))
	s.AddNode("send-sms", models.Point{})

	_, err := s.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
	assert.Equal(t, 1, s.Graph().NodeCount())
}
