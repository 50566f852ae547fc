package domain

import (
	"encoding/json"
	"time"
)

// AuditAction identifies the kind of state change an audit entry records.
type AuditAction string

const (
	AuditTaskCreated       AuditAction = "task_created"
	AuditStatusChanged     AuditAction = "status_changed"
	AuditAssigned          AuditAction = "assigned"
	AuditReopened          AuditAction = "reopened"
	AuditFollowupScheduled AuditAction = "followup_scheduled"
	AuditCommentAdded      AuditAction = "comment_added"
	AuditAttachmentAdded   AuditAction = "attachment_added"
	AuditAttachmentRemoved AuditAction = "attachment_removed"
	AuditUseCaseMatched    AuditAction = "use_case_matched"
)

// AuditEntry is an immutable record of one state-changing action on a task.
// Entries are append-only; the store exposes no update or delete for them.
type AuditEntry struct {
	EntryID   string          `json:"entry_id"`
	TaskID    string          `json:"task_id"`
	UserID    string          `json:"user_id"`
	Action    AuditAction     `json:"action"`
	OldValue  json.RawMessage `json:"old_value,omitempty"`
	NewValue  json.RawMessage `json:"new_value,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
