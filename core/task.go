package core

// TaskStatus describes the outcome of a message exchange with an agent.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has been accepted but not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the agent is still working on the task.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the agent finished the task successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the agent reported a failure for the task.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusPartial indicates an incomplete result (e.g. truncated output).
	TaskStatusPartial TaskStatus = "partial"
)

// TaskResponse is the caller-facing result of a single message exchange.
// It is derived from the agent's JSON-RPC result and never persisted
// independently of the ConversationTurn it produced.
type TaskResponse struct {
	TaskID       string         `json:"task_id"`
	SessionID    string         `json:"session_id"`
	Status       TaskStatus     `json:"status"`
	Output       string         `json:"output,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// AgentCapability describes one capability advertised by an agent.
type AgentCapability struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	InputTypes  []string `json:"inputTypes"`
	OutputTypes []string `json:"outputTypes"`
}

// AgentCard carries an agent's identity and capability metadata as returned
// by the reserved agent/card method.
type AgentCard struct {
	AgentID            string            `json:"agentId"`
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	Version            string            `json:"version"`
	Capabilities       []AgentCapability `json:"capabilities"`
	EndpointURL        string            `json:"endpointUrl"`
	SupportedProtocols []string          `json:"supportedProtocols"`
}
