package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flowcanvas/pkg/agents"
	"github.com/dukex/flowcanvas/pkg/catalog"
	"github.com/dukex/flowcanvas/pkg/eventbus"
	"github.com/dukex/flowcanvas/pkg/events"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/otelhelper"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/serializer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

// Workflow is the document service behind the HTTP API: every document it writes has
// been through the serializer, so stored graphs always satisfy the graph invariants.
type Workflow struct {
	persistence persistence.Persistence
	templates   catalog.Resolver
	agents      agents.Directory
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
}

type Option func(*Workflow)

// WithCatalog rejects nodes whose template is unknown and normalises node kinds.
func WithCatalog(templates catalog.Resolver) Option {
	return func(w *Workflow) {
		w.templates = templates
	}
}

// WithAgents rejects documents assigned to agents missing from the directory.
func WithAgents(directory agents.Directory) Option {
	return func(w *Workflow) {
		w.agents = directory
	}
}

func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(w *Workflow) {
		w.publisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(w *Workflow) {
		w.tracer = tracer
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, opts ...Option) *Workflow {
	w := &Workflow{
		persistence: persistence,
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.tracer == nil {
		w.tracer = otelhelper.NoopTracer()
	}

	if w.logger == nil {
		w.logger = slog.Default()
	}

	return w
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListWorkflowsRequest contains options for listing workflows.
type ListWorkflowsRequest struct {
	Limit     int
	Offset    int
	AgentID   string
	SortBy    string
	SortOrder string
}

// ListWorkflowsResponse contains the result of listing workflows.
type ListWorkflowsResponse struct {
	Workflows   []*models.Workflow `json:"workflows"`
	TotalCount  int64              `json:"total_count"`
	HasNextPage bool               `json:"has_next_page"`
}

// ListWorkflows retrieves workflows with filtering, sorting, and pagination.
func (w *Workflow) ListWorkflows(ctx context.Context, req ListWorkflowsRequest) (*ListWorkflowsResponse, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "services.workflow.list",
		attribute.String(otelhelper.AgentIDKey, req.AgentID))
	defer span.End()

	opts, err := persistence.ListOptions{
		Limit:     req.Limit,
		Offset:    req.Offset,
		AgentID:   strings.TrimSpace(req.AgentID),
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}.Normalize()
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, listValidationError(req, err)
	}

	result, err := w.persistence.List(ctx, opts)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return &ListWorkflowsResponse{
		Workflows:   result.Workflows,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

func listValidationError(req ListWorkflowsRequest, err error) error {
	switch {
	case persistence.IsInvalidSortField(err):
		return NewValidationError(
			"ListWorkflows",
			"INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field '%s', allowed: created_at, updated_at, name", req.SortBy),
			ErrInvalidSortField,
		)
	case persistence.IsInvalidSortOrder(err):
		return NewValidationError(
			"ListWorkflows",
			"INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
			ErrInvalidSortOrder,
		)
	default:
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
}

// Fetch loads a workflow and returns it repaired: entries that violate the graph
// invariants are dropped and listed in the report. The stored document is not changed.
func (w *Workflow) Fetch(ctx context.Context, id string) (*models.Workflow, *serializer.Report, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "services.workflow.fetch",
		attribute.String(otelhelper.WorkflowIDKey, id))
	defer span.End()

	stored, err := w.persistence.Load(ctx, id)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, nil, err
	}

	doc, report := w.repair(stored)

	span.SetAttributes(
		attribute.Int(otelhelper.NodeCountKey, len(doc.Nodes)),
		attribute.Int(otelhelper.ConnectionCountKey, len(doc.Connections)),
		attribute.Int(otelhelper.DroppedEntriesKey, len(report.Issues)),
	)

	return doc, report, nil
}

// CreateWorkflowRequest is the metadata of a new, empty workflow.
type CreateWorkflowRequest struct {
	Name    string
	AgentID string
}

// Create stores a new workflow with an empty graph.
func (w *Workflow) Create(ctx context.Context, req CreateWorkflowRequest) (*models.Workflow, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "services.workflow.create",
		attribute.String(otelhelper.WorkflowNameKey, req.Name),
		attribute.String(otelhelper.AgentIDKey, req.AgentID))
	defer span.End()

	workflow := &models.Workflow{
		Name:        strings.TrimSpace(req.Name),
		AgentID:     req.AgentID,
		Nodes:       []*models.Node{},
		Connections: []*models.Connection{},
	}

	if err := w.validateMetadata(ctx, "Create", workflow); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if err := w.persistence.Save(ctx, workflow); err != nil {
		otelhelper.SetError(span, err)

		return nil, w.saveError("create", err)
	}

	span.SetAttributes(attribute.String(otelhelper.WorkflowIDKey, workflow.ID))

	w.publishSaved(ctx, workflow, true, 0)

	return workflow, nil
}

// Save replaces a stored workflow wholesale. The document is repaired before it is
// written; the report lists what was dropped. CreatedAt is kept from the stored copy.
func (w *Workflow) Save(ctx context.Context, id string, doc *models.Workflow) (*models.Workflow, *serializer.Report, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "services.workflow.save",
		attribute.String(otelhelper.WorkflowIDKey, id))
	defer span.End()

	if doc == nil {
		otelhelper.SetError(span, ErrWorkflowNil)

		return nil, nil, ErrWorkflowNil
	}

	existing, err := w.persistence.Load(ctx, id)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, nil, err
	}

	repaired, report := w.repair(doc)
	repaired.ID = id
	repaired.Name = strings.TrimSpace(repaired.Name)
	repaired.CreatedAt = existing.CreatedAt

	if err := w.validateMetadata(ctx, "Save", repaired); err != nil {
		otelhelper.SetError(span, err)

		return nil, nil, err
	}

	if err := w.persistence.Save(ctx, repaired); err != nil {
		otelhelper.SetError(span, err)

		return nil, nil, w.saveError("save", err)
	}

	if !report.Clean() {
		w.logger.InfoContext(ctx, "dropped invalid entries while saving workflow",
			"workflow_id", id, "issues", len(report.Issues))
	}

	span.SetAttributes(
		attribute.Int(otelhelper.NodeCountKey, len(repaired.Nodes)),
		attribute.Int(otelhelper.ConnectionCountKey, len(repaired.Connections)),
		attribute.Int(otelhelper.DroppedEntriesKey, len(report.Issues)),
	)

	w.publishSaved(ctx, repaired, false, len(report.Issues))

	return repaired, report, nil
}

// Delete removes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, id string) error {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "services.workflow.delete",
		attribute.String(otelhelper.WorkflowIDKey, id))
	defer span.End()

	if _, err := w.persistence.Load(ctx, id); err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	if err := w.persistence.Delete(ctx, id); err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	w.publish(ctx, id, events.WorkflowDeleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, id),
	})

	return nil
}

// repair runs a document through the serializer with the configured catalog.
func (w *Workflow) repair(doc *models.Workflow) (*models.Workflow, *serializer.Report) {
	var opts []serializer.Option
	if w.templates != nil {
		opts = append(opts, serializer.WithCatalog(w.templates))
	}

	meta, g, report := serializer.Deserialize(doc, opts...)

	return serializer.Serialize(meta, g), report
}

func (w *Workflow) validateMetadata(ctx context.Context, op string, workflow *models.Workflow) error {
	if workflow.Name == "" {
		return NewValidationError(op, "NAME_REQUIRED", "workflow name is required", ErrWorkflowNameRequired)
	}

	if workflow.AgentID == "" || w.agents == nil {
		return nil
	}

	_, found, err := agents.Find(ctx, w.agents, workflow.AgentID)
	if err != nil {
		return fmt.Errorf("failed to look up agent %s: %w", workflow.AgentID, err)
	}

	if !found {
		return NewValidationError(op, "UNKNOWN_AGENT",
			fmt.Sprintf("agent '%s' does not exist", workflow.AgentID), ErrUnknownAgent)
	}

	return nil
}

func (w *Workflow) saveError(op string, err error) error {
	if persistence.IsInvalidWorkflowID(err) {
		return NewValidationError(op, "INVALID_WORKFLOW_ID", err.Error(), ErrInvalidWorkflowID)
	}

	return fmt.Errorf("failed to %s workflow: %w", op, err)
}

func (w *Workflow) publishSaved(ctx context.Context, workflow *models.Workflow, created bool, dropped int) {
	w.publish(ctx, workflow.ID, events.WorkflowSaved{
		BaseEvent:       events.NewBaseEvent(events.WorkflowSavedEvent, workflow.ID),
		Name:            workflow.Name,
		AgentID:         workflow.AgentID,
		NodeCount:       len(workflow.Nodes),
		ConnectionCount: len(workflow.Connections),
		Created:         created,
		DroppedEntries:  dropped,
	})
}

// publish is best effort: the document is already stored, so a failure is only logged.
func (w *Workflow) publish(ctx context.Context, workflowID string, event eventbus.Event) {
	if w.publisher == nil {
		return
	}

	if err := w.publisher.Publish(ctx, workflowID, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to publish workflow event",
			"workflow_id", workflowID, "event_type", event.GetType(), "error", err)
	}
}
