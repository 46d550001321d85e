package serializer

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var documentSchema string

var (
	ErrNotAWorkflow = errors.New("data is not a workflow document")

	schemaLoader = gojsonschema.NewStringLoader(documentSchema)
)

// Marshal encodes a document as indented JSON.
func Marshal(doc *models.Workflow) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrNotAWorkflow)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow: %w", err)
	}

	return data, nil
}

// rawDocument keeps entries undecoded so a single malformed entry does not reject the
// whole document.
type rawDocument struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	AgentID     string            `json:"agent_id"`
	Nodes       []json.RawMessage `json:"nodes"`
	Connections []json.RawMessage `json:"connections"`
	CreatedAt   json.RawMessage   `json:"created_at"`
	UpdatedAt   json.RawMessage   `json:"updated_at"`
}

// Unmarshal decodes a stored document. It fails only when data is not a workflow
// document at all; entries that cannot be decoded are kept as nil and reported by
// Deserialize.
func Unmarshal(data []byte) (*models.Workflow, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAWorkflow, err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrNotAWorkflow, strings.Join(problems, "; "))
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAWorkflow, err)
	}

	doc := &models.Workflow{
		ID:          raw.ID,
		Name:        raw.Name,
		AgentID:     raw.AgentID,
		Nodes:       make([]*models.Node, 0, len(raw.Nodes)),
		Connections: make([]*models.Connection, 0, len(raw.Connections)),
		CreatedAt:   decodeTime(raw.CreatedAt),
		UpdatedAt:   decodeTime(raw.UpdatedAt),
	}

	for _, entry := range raw.Nodes {
		doc.Nodes = append(doc.Nodes, decodeEntry[models.Node](entry))
	}

	for _, entry := range raw.Connections {
		doc.Connections = append(doc.Connections, decodeEntry[models.Connection](entry))
	}

	return doc, nil
}

func decodeEntry[T any](entry json.RawMessage) *T {
	var value *T
	if err := json.Unmarshal(entry, &value); err != nil {
		return nil
	}

	return value
}

// decodeTime falls back to the zero time for missing or unparsable timestamps; the
// store stamps them again on the next save.
func decodeTime(raw json.RawMessage) time.Time {
	if value := decodeEntry[time.Time](raw); value != nil {
		return *value
	}

	return time.Time{}
}
