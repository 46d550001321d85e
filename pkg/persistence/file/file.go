// Package file provides file-based persistence for workflow documents: one JSON file
// per workflow under <root>/workflows.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/serializer"
)

const workflowsDir = "workflows"

// Persistence implements persistence.Persistence using the file system.
type Persistence struct {
	root string
	now  func() time.Time

	// serialises writers within this process; readers never see partial files because
	// writes go through a rename
	mu sync.Mutex
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
// The root may be given as a file:// URL.
func NewPersistence(root string) *Persistence {
	return &Persistence{
		root: strings.TrimPrefix(root, "file://"),
		now:  time.Now,
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	info, err := os.Stat(fp.root)
	if err != nil {
		return fmt.Errorf("file persistence root %s: %w", fp.root, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("file persistence root %s is not a directory", fp.root)
	}

	return nil
}

// Save writes a workflow to <root>/workflows/<id>.json.
func (fp *Persistence) Save(_ context.Context, workflow *models.Workflow) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if err := persistence.Stamp(workflow, fp.now()); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	dir := filepath.Join(fp.root, workflowsDir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	tmp, err := os.CreateTemp(dir, workflow.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for workflow %s: %w", workflow.ID, err)
	}

	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("failed to write workflow %s: %w", workflow.ID, err)
	}

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("failed to set permissions on workflow %s: %w", workflow.ID, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close workflow %s: %w", workflow.ID, err)
	}

	if err := os.Rename(tmp.Name(), fp.path(workflow.ID)); err != nil {
		return fmt.Errorf("failed to store workflow %s: %w", workflow.ID, err)
	}

	return nil
}

// Load retrieves a workflow by its ID from the file system.
func (fp *Persistence) Load(_ context.Context, id string) (*models.Workflow, error) {
	if err := persistence.ValidateID(id); err != nil {
		return nil, persistence.NewWorkflowError("Load", id, persistence.ErrWorkflowNotFound)
	}

	body, err := os.ReadFile(fp.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError("Load", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", id, err)
	}

	// entries that fail to decode stay in the document as nil for the serializer to report
	workflow, err := serializer.Unmarshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}

	return workflow, nil
}

// List returns paginated and filtered workflows with in-memory operations.
func (fp *Persistence) List(ctx context.Context, opts persistence.ListOptions) (*persistence.ListResult, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	jsonFiles, err := fs.Glob(os.DirFS(filepath.Join(fp.root, workflowsDir)), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		workflow, err := fp.Load(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			if persistence.IsWorkflowNotFound(err) {
				// deleted while listing
				continue
			}

			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return persistence.Page(workflows, opts), nil
}

// Delete removes a workflow by its ID.
func (fp *Persistence) Delete(_ context.Context, id string) error {
	if err := persistence.ValidateID(id); err != nil {
		return nil
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	err := os.Remove(fp.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}

func (fp *Persistence) path(id string) string {
	return filepath.Join(fp.root, workflowsDir, id+".json")
}
