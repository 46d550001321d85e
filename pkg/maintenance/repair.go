// Package maintenance sweeps the workflow store and rewrites documents whose graph no
// longer satisfies the structural invariants.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/flowcanvas/pkg/catalog"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/serializer"
	"github.com/robfig/cron/v3"
)

var ErrAlreadyScheduled = errors.New("repair sweep already scheduled")

// Result summarizes one sweep.
type Result struct {
	Scanned  int
	Repaired int
	Dropped  int
}

// Repairer loads every stored workflow and re-saves the ones Deserialize had to fix.
type Repairer struct {
	store     persistence.Persistence
	templates catalog.Resolver
	logger    *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewRepairer creates a Repairer. templates may be nil to skip the template check.
func NewRepairer(store persistence.Persistence, templates catalog.Resolver, logger *slog.Logger) *Repairer {
	return &Repairer{
		store:     store,
		templates: templates,
		logger:    logger,
	}
}

// Run performs one sweep. Workflows are visited oldest first; a failed save is logged
// and the sweep continues, a failed list aborts it.
func (r *Repairer) Run(ctx context.Context) (Result, error) {
	var result Result

	opts := persistence.ListOptions{
		Limit:     persistence.MaxListLimit,
		SortBy:    persistence.SortByCreatedAt,
		SortOrder: persistence.SortAsc,
	}

	for {
		page, err := r.store.List(ctx, opts)
		if err != nil {
			return result, fmt.Errorf("failed to list workflows at offset %d: %w", opts.Offset, err)
		}

		for _, workflow := range page.Workflows {
			result.Scanned++

			dropped, err := r.repair(ctx, workflow)
			if err != nil {
				r.logger.ErrorContext(ctx, "failed to repair workflow", "workflow_id", workflow.ID, "error", err)

				continue
			}

			if dropped > 0 {
				result.Repaired++
				result.Dropped += dropped
			}
		}

		if !page.HasNextPage {
			break
		}

		opts.Offset += len(page.Workflows)
	}

	r.logger.InfoContext(ctx, "workflow repair sweep finished",
		"scanned", result.Scanned, "repaired", result.Repaired, "dropped", result.Dropped)

	return result, nil
}

func (r *Repairer) repair(ctx context.Context, workflow *models.Workflow) (int, error) {
	var opts []serializer.Option
	if r.templates != nil {
		opts = append(opts, serializer.WithCatalog(r.templates))
	}

	meta, g, report := serializer.Deserialize(workflow, opts...)
	if report.Clean() {
		return 0, nil
	}

	for _, issue := range report.Issues {
		r.logger.DebugContext(ctx, "dropping invalid entry", "workflow_id", workflow.ID, "issue", issue.String())
	}

	if err := r.store.Save(ctx, serializer.Serialize(meta, g)); err != nil {
		return 0, err
	}

	return len(report.Issues), nil
}

// Schedule runs the sweep on a standard five field cron expression until Stop.
// Overlapping runs are skipped.
func (r *Repairer) Schedule(ctx context.Context, spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid repair schedule %q: %w", spec, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil {
		return ErrAlreadyScheduled
	}

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := c.AddFunc(spec, func() {
		if _, err := r.Run(ctx); err != nil {
			r.logger.ErrorContext(ctx, "workflow repair sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule repair sweep: %w", err)
	}

	c.Start()
	r.cron = c

	r.logger.InfoContext(ctx, "workflow repair sweep scheduled", "schedule", spec)

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *Repairer) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
