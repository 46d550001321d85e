package main

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/persistence/file"
	"github.com/dukex/flowcanvas/pkg/serializer"
	"github.com/dukex/flowcanvas/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	command := newCommand()
	command.Writer = &out
	command.ErrWriter = &out

	err := command.Run(context.Background(), append([]string{"flowcanvas"}, args...))

	return out.String(), err
}

func writeDocument(t *testing.T, doc *models.Workflow) string {
	t.Helper()

	data, err := serializer.Marshal(doc)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "workflow.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func TestValidateCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		doc        *models.Workflow
		wantErr    error
		wantOutput []string
	}{
		{
			name:       "clean document",
			doc:        testutil.CreateTestWorkflow(),
			wantOutput: []string{"3 nodes, 2 connections kept; 0 entries dropped"},
		},
		{
			name: "dangling connection",
			doc: testutil.CreateTestWorkflow(func(w *models.Workflow) {
				w.Connections = append(w.Connections, testutil.CreateTestConnection("conn-9", "node-1", "ghost"))
			}),
			wantErr: ErrDocumentIssues,
			wantOutput: []string{
				"connection conn-9 dropped: dangling_endpoint",
				"3 nodes, 2 connections kept; 1 entries dropped",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := runCommand(t, "validate", writeDocument(t, tt.doc))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			for _, want := range tt.wantOutput {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestValidateCommand_MissingArgument(t *testing.T) {
	t.Parallel()

	_, err := runCommand(t, "validate")
	require.ErrorIs(t, err, ErrMissingArgument)
}

func TestRenderCommand(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "preview.png")

	_, err := runCommand(t, "render", "--max-size", "200", writeDocument(t, testutil.CreateTestWorkflow()), out)
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)

	defer func() { _ = f.Close() }()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx(), 200)
}

func TestReplayCommand(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	events := filepath.Join(t.TempDir(), "events.jsonl")

	// two palette taps place nodes at (100,100) and (300,100); the connect handle of
	// the first sits on its right edge
	recording := strings.Join([]string{
		`{"type":"palettetap","template_ref":"incoming-call"}`,
		`{"type":"palettetap","template_ref":"send-sms"}`,
		``,
		`{"type":"click","point":{"x":140,"y":100}}`,
		`{"type":"click","point":{"x":300,"y":100}}`,
		`{"type":"mousedown","point":{"x":300,"y":100}}`,
		`{"type":"mousemove","point":{"x":320,"y":180}}`,
	}, "\n")
	require.NoError(t, os.WriteFile(events, []byte(recording), 0o600))

	out, err := runCommand(t, "replay", "--store", "file://"+root, "--name", "Recorded", events)
	require.NoError(t, err)
	assert.Contains(t, out, "replayed 6 events")
	assert.Contains(t, out, "2 nodes, 1 connections")

	store := file.NewPersistence(root)

	list, err := store.List(context.Background(), persistence.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list.Workflows, 1)

	saved := list.Workflows[0]
	assert.Equal(t, "Recorded", saved.Name)
	require.Len(t, saved.Nodes, 2)
	assert.Equal(t, "incoming-call", saved.Nodes[0].TemplateRef)
	assert.Equal(t, models.Point{X: 320, Y: 180}, saved.Nodes[1].Position)
	require.Len(t, saved.Connections, 1)
	assert.Equal(t, saved.Nodes[0].ID, saved.Connections[0].From)
	assert.Equal(t, saved.Nodes[1].ID, saved.Connections[0].To)
}

func TestReplayCommand_InvalidEvent(t *testing.T) {
	t.Parallel()

	events := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(events, []byte("{not json}\n"), 0o600))

	_, err := runCommand(t, "replay", "--store", "file://"+t.TempDir(), events)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestCatalogCommand(t *testing.T) {
	t.Parallel()

	out, err := runCommand(t, "catalog", "--kind", "condition")
	require.NoError(t, err)
	assert.Contains(t, out, "business-hours")
	assert.NotContains(t, out, "incoming-call")

	_, err = runCommand(t, "catalog", "--kind", "loop")
	require.Error(t, err)
}
