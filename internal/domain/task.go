// Package domain defines the core domain models for taskdesk.
package domain

import "time"

// TaskStatus represents the lifecycle status of a task.
type TaskStatus string

const (
	TaskStatusNew                TaskStatus = "new"
	TaskStatusInProgress         TaskStatus = "in_progress"
	TaskStatusFollowup           TaskStatus = "followup"
	TaskStatusWaitingForCustomer TaskStatus = "waiting_for_customer"
	TaskStatusCompleted          TaskStatus = "completed"
	TaskStatusCancelled          TaskStatus = "cancelled"
	TaskStatusForwarded          TaskStatus = "forwarded"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusNew, TaskStatusInProgress, TaskStatusFollowup,
		TaskStatusWaitingForCustomer, TaskStatusCompleted,
		TaskStatusCancelled, TaskStatusForwarded:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions except reopen.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// SourceChannel tags where a task originated.
type SourceChannel string

const (
	ChannelManual SourceChannel = "manual"
	ChannelEmail  SourceChannel = "email"
	ChannelChat   SourceChannel = "chat"
	ChannelPhone  SourceChannel = "phone"
)

// Task represents one unit of customer-support work.
type Task struct {
	TaskID               string        `json:"task_id"`
	Number               string        `json:"number"`
	Title                string        `json:"title"`
	Description          string        `json:"description,omitempty"`
	Status               TaskStatus    `json:"status"`
	AssigneeID           string        `json:"assignee_id,omitempty"`
	UseCaseID            string        `json:"use_case_id,omitempty"`
	CustomerID           string        `json:"customer_id,omitempty"`
	EndCustomerID        string        `json:"end_customer_id,omitempty"`
	FollowUpAt           *time.Time    `json:"follow_up_at,omitempty"`
	ClosingComment       string        `json:"closing_comment,omitempty"`
	TotalDurationSeconds int64         `json:"total_duration_seconds"`
	LastMessageID        string        `json:"last_message_id,omitempty"`
	Channel              SourceChannel `json:"channel"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}
