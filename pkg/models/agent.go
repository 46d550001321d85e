package models

// AgentStatus represents the lifecycle state of a voice agent.
type AgentStatus string

const (
	AgentStatusActive   AgentStatus = "active"
	AgentStatusInactive AgentStatus = "inactive"
	AgentStatusTraining AgentStatus = "training"
)

// Agent is a voice agent a workflow can be assigned to.
type Agent struct {
	ID     string      `json:"id"     yaml:"id"     validate:"required"`
	Name   string      `json:"name"   yaml:"name"   validate:"required"`
	Status AgentStatus `json:"status" yaml:"status" validate:"required,oneof=active inactive training"`
}
