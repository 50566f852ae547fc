package domain

import "time"

// Notification informs a user about an action on a task, e.g. an
// assignment.
type Notification struct {
	NotificationID string     `json:"notification_id"`
	UserID         string     `json:"user_id"`
	TaskID         string     `json:"task_id,omitempty"`
	Kind           string     `json:"kind"`
	Body           string     `json:"body"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Attachment is a file stored for a task. Path is the blob-store key;
// the public URL is derived from it.
type Attachment struct {
	AttachmentID string    `json:"attachment_id"`
	TaskID       string    `json:"task_id"`
	FileName     string    `json:"file_name"`
	ContentType  string    `json:"content_type,omitempty"`
	SizeBytes    int64     `json:"size_bytes"`
	Path         string    `json:"path"`
	UploadedBy   string    `json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}
