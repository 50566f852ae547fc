// Package store defines the storage interface and implementations.
package store

import (
	"context"
	"encoding/json"
	"time"

	"taskdesk/internal/domain"
)

// TransitionOp describes one atomic task mutation. The field updates, the
// audit entry and the session adjustment commit in a single transaction so
// a partial failure cannot desynchronize status, audit trail and sessions.
type TransitionOp struct {
	TaskID       string
	ActingUserID string

	Status         domain.TaskStatus // empty: leave unchanged
	AssigneeID     *string           // nil: leave unchanged
	FollowUpAt     *time.Time
	SetFollowUp    bool
	ClosingComment *string // nil: leave unchanged

	AuditEntryID string
	Audit        domain.AuditAction
	OldValue     json.RawMessage
	NewValue     json.RawMessage

	// OpenSession inserts an active session for ActingUserID unless one
	// exists; CloseSession closes it and folds the duration into the
	// task's cached total. SessionID is used when a row is inserted.
	OpenSession  bool
	CloseSession bool
	SessionID    string

	Now time.Time
}

// TaskFilter narrows ListTasks.
type TaskFilter struct {
	Status     domain.TaskStatus
	AssigneeID string
	Limit      int
}

// Store defines the interface for data persistence.
type Store interface {
	// Task operations
	CreateTask(ctx context.Context, task *domain.Task) error
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	ApplyTransition(ctx context.Context, op *TransitionOp) (*domain.Task, error)
	UpdateTaskUseCase(ctx context.Context, taskID, useCaseID string) error

	// Session operations
	StartSession(ctx context.Context, sessionID, taskID, userID string, now time.Time) (*domain.TaskSession, bool, error)
	EndSession(ctx context.Context, taskID, userID string, now time.Time) (*domain.TaskSession, error)
	ActiveSession(ctx context.Context, taskID, userID string) (*domain.TaskSession, error)
	ListSessions(ctx context.Context, taskID string) ([]domain.TaskSession, error)
	RecomputeTaskDuration(ctx context.Context, taskID string) (int64, error)

	// Message operations
	CreateMessage(ctx context.Context, message *domain.TaskMessage) error
	GetMessages(ctx context.Context, taskID string, limit int, before string) ([]domain.TaskMessage, error)
	CountMessages(ctx context.Context, taskID string) (int, error)

	// Audit operations (append-only)
	AppendAudit(ctx context.Context, entry *domain.AuditEntry) error
	ListAudit(ctx context.Context, taskID string) ([]domain.AuditEntry, error)

	// Use case operations
	CreateUseCase(ctx context.Context, uc *domain.UseCase) error
	GetUseCase(ctx context.Context, useCaseID string) (*domain.UseCase, error)
	ListUseCases(ctx context.Context) ([]domain.UseCase, error)
	UpdateUseCase(ctx context.Context, uc *domain.UseCase) error

	// User operations
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUsers(ctx context.Context, userIDs []string) ([]domain.User, error)

	// Customer operations
	CreateCustomer(ctx context.Context, c *domain.Customer) error
	GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error)
	CreateEndCustomer(ctx context.Context, ec *domain.EndCustomer) error
	GetEndCustomer(ctx context.Context, endCustomerID string) (*domain.EndCustomer, error)

	// Notification operations
	CreateNotification(ctx context.Context, n *domain.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string, now time.Time) error

	// Attachment operations
	CreateAttachment(ctx context.Context, a *domain.Attachment) error
	GetAttachment(ctx context.Context, attachmentID string) (*domain.Attachment, error)
	ListAttachments(ctx context.Context, taskID string) ([]domain.Attachment, error)
	DeleteAttachment(ctx context.Context, attachmentID string) error

	// Lifecycle
	Close() error
}
