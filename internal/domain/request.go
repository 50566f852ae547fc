package domain

import "encoding/json"

// ChatRequest is the body of POST /v1/tasks/:task_id/chat.
type ChatRequest struct {
	UseCaseID               string `json:"use_case_id,omitempty"`
	Message                 string `json:"message,omitempty"`
	ButtonChoice            string `json:"button_choice,omitempty"`
	PreviousResponseID      string `json:"previous_response_id,omitempty"`
	IsAutoInitialization    bool   `json:"is_auto_initialization,omitempty"`
	GenerateSummaryOnDemand bool   `json:"generate_summary_on_demand,omitempty"`
}

// ChatResponse is the success body of the chat endpoint.
type ChatResponse struct {
	Response   *Envelope       `json:"response,omitempty"`
	Summary    json.RawMessage `json:"summary,omitempty"`
	ResponseID string          `json:"response_id"`
}

// ChatError is the failure body of the chat endpoint.
type ChatError struct {
	Error       string `json:"error"`
	IsRateLimit bool   `json:"is_rate_limit"`
}

// DialogMessage is one turn in the workflow-authoring conversation.
type DialogMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DialogRequest is the body of POST /v1/dialog.
type DialogRequest struct {
	Messages           []DialogMessage   `json:"messages"`
	PreviousResponseID string            `json:"previous_response_id,omitempty"`
	Mode               string            `json:"mode"`
	Parameters         map[string]string `json:"parameters,omitempty"`
	Customer           string            `json:"customer,omitempty"`
	CurrentSteps       json.RawMessage   `json:"current_steps,omitempty"`
	UseCaseDescription string            `json:"use_case_description,omitempty"`
	RoutingInfo        string            `json:"routing_info,omitempty"`
}

// DialogError is the failure body of the dialog endpoint.
type DialogError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DialogResponse is the success body of the dialog endpoint.
type DialogResponse struct {
	Message       string          `json:"message"`
	ResponseID    string          `json:"response_id"`
	DialogFlow    json.RawMessage `json:"dialog_flow,omitempty"`
	FlowExtracted bool            `json:"flow_extracted"`
}

// ChangeEvent is pushed on the change feed after a committed write.
type ChangeEvent struct {
	Entity  string          `json:"entity"`
	Action  string          `json:"action"` // insert, update, delete
	TaskID  string          `json:"task_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Ts      int64           `json:"ts"` // Unix milliseconds
}
