// Package persistence provides the storage abstraction for workflow documents.
package persistence

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/google/uuid"
)

// Persistence stores workflow documents wholesale. Implementations never validate the
// graph: documents are repaired by the serializer when they are loaded.
type Persistence interface {
	// Save writes the whole document. An empty ID is assigned; CreatedAt is kept when
	// set and UpdatedAt is refreshed. The document is updated in place.
	Save(ctx context.Context, workflow *models.Workflow) error

	// Load returns ErrWorkflowNotFound when no document has the id.
	Load(ctx context.Context, id string) (*models.Workflow, error)

	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Delete is idempotent.
	Delete(ctx context.Context, id string) error

	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100

	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"
	SortByName      = "name"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListOptions filters and paginates List.
type ListOptions struct {
	Limit     int
	Offset    int
	AgentID   string
	SortBy    string
	SortOrder string
}

// ListResult is one page of workflows.
type ListResult struct {
	Workflows   []*models.Workflow `json:"workflows"`
	TotalCount  int64              `json:"total_count"`
	HasNextPage bool               `json:"has_next_page"`
}

// Normalize applies defaults and validates sort parameters against an allowlist.
func (o ListOptions) Normalize() (ListOptions, error) {
	if o.Limit <= 0 || o.Limit > MaxListLimit {
		o.Limit = DefaultListLimit
	}

	if o.Offset < 0 {
		o.Offset = 0
	}

	if o.SortBy == "" {
		o.SortBy = SortByCreatedAt
	}

	o.SortOrder = strings.ToLower(o.SortOrder)
	if o.SortOrder == "" {
		o.SortOrder = SortDesc
	}

	switch o.SortBy {
	case SortByCreatedAt, SortByUpdatedAt, SortByName:
	default:
		return o, NewInvalidSortFieldError(o.SortBy)
	}

	if o.SortOrder != SortAsc && o.SortOrder != SortDesc {
		return o, NewInvalidSortOrderError(o.SortOrder)
	}

	return o, nil
}

// Page filters, sorts and paginates workflows in memory. Backends without a query
// engine use it; opts must be normalized.
func Page(workflows []*models.Workflow, opts ListOptions) *ListResult {
	filtered := make([]*models.Workflow, 0, len(workflows))

	for _, workflow := range workflows {
		if opts.AgentID != "" && workflow.AgentID != opts.AgentID {
			continue
		}

		filtered = append(filtered, workflow)
	}

	slices.SortStableFunc(filtered, func(a, b *models.Workflow) int {
		cmp := compare(a, b, opts.SortBy)
		if opts.SortOrder == SortDesc {
			return -cmp
		}

		return cmp
	})

	total := len(filtered)
	start := min(opts.Offset, total)
	end := min(start+opts.Limit, total)

	return &ListResult{
		Workflows:   filtered[start:end],
		TotalCount:  int64(total),
		HasNextPage: end < total,
	}
}

func compare(a, b *models.Workflow, sortBy string) int {
	var cmp int

	switch sortBy {
	case SortByUpdatedAt:
		cmp = a.UpdatedAt.Compare(b.UpdatedAt)
	case SortByName:
		cmp = strings.Compare(a.Name, b.Name)
	default:
		cmp = a.CreatedAt.Compare(b.CreatedAt)
	}

	if cmp == 0 {
		cmp = strings.Compare(a.ID, b.ID)
	}

	return cmp
}

// Stamp prepares a document for saving: a new document gets a UUIDv7 id and its
// creation time, and UpdatedAt is always refreshed.
func Stamp(workflow *models.Workflow, now time.Time) error {
	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow id: %w", err)
		}

		workflow.ID = id.String()
	}

	if err := ValidateID(workflow.ID); err != nil {
		return err
	}

	now = now.UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	return nil
}

// ValidateID rejects ids that cannot be used as a storage key, such as path segments.
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id || strings.ContainsAny(id, `/\:`) {
		return fmt.Errorf("%w: %q", ErrInvalidWorkflowID, id)
	}

	return nil
}
