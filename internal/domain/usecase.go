package domain

import (
	"encoding/json"
	"time"
)

// UseCase is an admin-authored guided-workflow template. Steps holds the
// optional step graph produced by the dialog-flow authoring endpoint.
type UseCase struct {
	UseCaseID      string          `json:"use_case_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	RequiredInfo   string          `json:"required_info,omitempty"`
	ExpectedResult string          `json:"expected_result,omitempty"`
	Steps          json.RawMessage `json:"steps,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
