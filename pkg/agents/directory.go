// Package agents exposes the read-only directory of voice agents a workflow can be assigned to.
package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	ErrDuplicateAgent = errors.New("duplicate agent id")
	ErrInvalidAgent   = errors.New("invalid agent")
)

// Directory lists agents. Implementations never mutate the records they return.
type Directory interface {
	ListAgents(ctx context.Context) ([]models.Agent, error)
}

// StaticDirectory serves a fixed list of agents.
type StaticDirectory struct {
	agents []models.Agent
}

// NewStaticDirectory validates the records and keeps them in the given order.
func NewStaticDirectory(agents ...models.Agent) (*StaticDirectory, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	seen := make(map[string]struct{}, len(agents))

	for i, agent := range agents {
		if err := validate.Struct(agent); err != nil {
			return nil, fmt.Errorf("%w at index %d (%q): %w", ErrInvalidAgent, i, agent.ID, err)
		}

		if _, exists := seen[agent.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAgent, agent.ID)
		}

		seen[agent.ID] = struct{}{}
	}

	return &StaticDirectory{agents: append([]models.Agent(nil), agents...)}, nil
}

// Parse reads a YAML document with a top level "agents" list.
func Parse(data []byte) (*StaticDirectory, error) {
	var f struct {
		Agents []models.Agent `yaml:"agents"`
	}

	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse agents YAML: %w", err)
	}

	return NewStaticDirectory(f.Agents...)
}

func (d *StaticDirectory) ListAgents(ctx context.Context) ([]models.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return append([]models.Agent(nil), d.agents...), nil
}

// Find returns the agent with the given id.
func Find(ctx context.Context, dir Directory, agentID string) (models.Agent, bool, error) {
	agents, err := dir.ListAgents(ctx)
	if err != nil {
		return models.Agent{}, false, err
	}

	for _, agent := range agents {
		if agent.ID == agentID {
			return agent, true, nil
		}
	}

	return models.Agent{}, false, nil
}

// Label returns the display name of an agent, falling back to its id when the agent is
// unknown or the directory is unavailable. An empty id yields "Unassigned".
func Label(ctx context.Context, dir Directory, agentID string) string {
	if agentID == "" {
		return "Unassigned"
	}

	if dir == nil {
		return agentID
	}

	agent, found, err := Find(ctx, dir, agentID)
	if err != nil || !found {
		return agentID
	}

	return agent.Name
}
