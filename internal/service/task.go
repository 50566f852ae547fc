package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskdesk/internal/domain"
	"taskdesk/internal/policy"
	"taskdesk/internal/store"
)

// CreateTaskInput carries the fields for a new task.
type CreateTaskInput struct {
	Title         string
	Description   string
	Channel       domain.SourceChannel
	CustomerID    string
	EndCustomerID string
	UseCaseID     string
	AssigneeID    string
	ActingUserID  string
}

// CreateTask creates a task in status new and records the creation in the
// audit log.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (*domain.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	if in.Channel == "" {
		in.Channel = domain.ChannelManual
	}

	now := time.Now()
	task := &domain.Task{
		TaskID:        newID("tsk"),
		Number:        newTaskNumber(),
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Status:        domain.TaskStatusNew,
		AssigneeID:    in.AssigneeID,
		UseCaseID:     in.UseCaseID,
		CustomerID:    in.CustomerID,
		EndCustomerID: in.EndCustomerID,
		Channel:       in.Channel,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	newVal, _ := json.Marshal(map[string]string{"status": string(task.Status), "title": task.Title})
	if err := s.store.AppendAudit(ctx, &domain.AuditEntry{
		EntryID:   newID("aud"),
		TaskID:    task.TaskID,
		UserID:    in.ActingUserID,
		Action:    domain.AuditTaskCreated,
		NewValue:  newVal,
		CreatedAt: now,
	}); err != nil {
		s.log.Warn("failed to append creation audit entry", zap.String("task_id", task.TaskID), zap.Error(err))
	}

	s.publish("task", "insert", task.TaskID, task)
	return task, nil
}

// GetTask retrieves a task by ID.
func (s *Service) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, ErrNotFound
	}
	return task, nil
}

// ListTasks lists tasks matching the filter.
func (s *Service) ListTasks(ctx context.Context, filter store.TaskFilter) ([]domain.Task, error) {
	tasks, err := s.store.ListTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// SetStatus transitions a task. The status write, the audit entry and the
// session adjustment commit atomically: in_progress opens a session for the
// acting user, completed and followup close it.
func (s *Service) SetStatus(ctx context.Context, taskID string, newStatus domain.TaskStatus, actingUserID, closingComment string) (*domain.Task, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	effectiveComment := closingComment
	if effectiveComment == "" {
		effectiveComment = task.ClosingComment
	}
	decision, err := s.policy.Evaluate(ctx, policy.TransitionInput{
		From:           string(task.Status),
		To:             string(newStatus),
		ClosingComment: effectiveComment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate transition policy: %w", err)
	}
	switch decision {
	case policy.DecisionBlock:
		return nil, fmt.Errorf("%w: %s -> %s", ErrTransitionBlocked, task.Status, newStatus)
	case policy.DecisionRequireComment:
		return nil, ErrClosingCommentRequired
	}

	op := &store.TransitionOp{
		TaskID:       taskID,
		ActingUserID: actingUserID,
		Status:       newStatus,
		AuditEntryID: newID("aud"),
		Audit:        domain.AuditStatusChanged,
		SessionID:    newID("ses"),
		OpenSession:  newStatus == domain.TaskStatusInProgress,
		CloseSession: newStatus == domain.TaskStatusCompleted || newStatus == domain.TaskStatusFollowup,
	}
	op.OldValue, _ = json.Marshal(map[string]string{"status": string(task.Status)})
	op.NewValue, _ = json.Marshal(map[string]string{"status": string(newStatus)})
	if closingComment != "" {
		op.ClosingComment = &closingComment
	}

	updated, err := s.store.ApplyTransition(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("failed to apply transition: %w", err)
	}

	s.publish("task", "update", taskID, updated)
	return updated, nil
}

// Reopen forces a completed task back to in_progress.
func (s *Service) Reopen(ctx context.Context, taskID, actingUserID string) (*domain.Task, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.TaskStatusCompleted {
		return nil, fmt.Errorf("%w: only completed tasks can be reopened", ErrTransitionBlocked)
	}

	op := &store.TransitionOp{
		TaskID:       taskID,
		ActingUserID: actingUserID,
		Status:       domain.TaskStatusInProgress,
		AuditEntryID: newID("aud"),
		Audit:        domain.AuditReopened,
		SessionID:    newID("ses"),
		OpenSession:  true,
	}
	op.OldValue, _ = json.Marshal(map[string]string{"status": string(task.Status)})
	op.NewValue, _ = json.Marshal(map[string]string{"status": string(domain.TaskStatusInProgress)})

	updated, err := s.store.ApplyTransition(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen task: %w", err)
	}

	s.publish("task", "update", taskID, updated)
	return updated, nil
}

// AssignTo sets the assignee, forces in_progress unless the task is
// terminal, and notifies the new assignee.
func (s *Service) AssignTo(ctx context.Context, taskID, assigneeID, actingUserID string) (*domain.Task, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return nil, fmt.Errorf("%w: task is %s", ErrTransitionBlocked, task.Status)
	}

	op := &store.TransitionOp{
		TaskID:       taskID,
		ActingUserID: actingUserID,
		AssigneeID:   &assigneeID,
		AuditEntryID: newID("aud"),
		Audit:        domain.AuditAssigned,
	}
	if task.Status != domain.TaskStatusInProgress {
		op.Status = domain.TaskStatusInProgress
	}
	op.OldValue, _ = json.Marshal(map[string]string{"assignee_id": task.AssigneeID, "status": string(task.Status)})
	op.NewValue, _ = json.Marshal(map[string]string{"assignee_id": assigneeID, "status": string(domain.TaskStatusInProgress)})

	updated, err := s.store.ApplyTransition(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}

	if assigneeID != actingUserID {
		notification := &domain.Notification{
			NotificationID: newID("ntf"),
			UserID:         assigneeID,
			TaskID:         taskID,
			Kind:           "task_assigned",
			Body:           fmt.Sprintf("Aufgabe %s wurde dir zugewiesen: %s", updated.Number, updated.Title),
			CreatedAt:      time.Now(),
		}
		if err := s.store.CreateNotification(ctx, notification); err != nil {
			s.log.Warn("failed to create assignment notification", zap.String("task_id", taskID), zap.Error(err))
		} else {
			s.publish("notification", "insert", taskID, notification)
		}
	}

	s.publish("task", "update", taskID, updated)
	return updated, nil
}

// AssignToSelf assigns the task to the acting user.
func (s *Service) AssignToSelf(ctx context.Context, taskID, actingUserID string) (*domain.Task, error) {
	return s.AssignTo(ctx, taskID, actingUserID, actingUserID)
}

// ScheduleFollowUp sets the task to followup with a follow-up timestamp and
// closes the acting user's session.
func (s *Service) ScheduleFollowUp(ctx context.Context, taskID string, at time.Time, note, actingUserID string) (*domain.Task, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	decision, err := s.policy.Evaluate(ctx, policy.TransitionInput{
		From:           string(task.Status),
		To:             string(domain.TaskStatusFollowup),
		ClosingComment: task.ClosingComment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate transition policy: %w", err)
	}
	if decision == policy.DecisionBlock {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTransitionBlocked, task.Status, domain.TaskStatusFollowup)
	}

	op := &store.TransitionOp{
		TaskID:       taskID,
		ActingUserID: actingUserID,
		Status:       domain.TaskStatusFollowup,
		SetFollowUp:  true,
		FollowUpAt:   &at,
		AuditEntryID: newID("aud"),
		Audit:        domain.AuditFollowupScheduled,
		CloseSession: true,
	}
	op.OldValue, _ = json.Marshal(map[string]string{"status": string(task.Status)})
	op.NewValue, _ = json.Marshal(map[string]string{
		"status":       string(domain.TaskStatusFollowup),
		"follow_up_at": at.Format(time.RFC3339),
		"note":         note,
	})

	updated, err := s.store.ApplyTransition(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule follow-up: %w", err)
	}

	s.publish("task", "update", taskID, updated)
	return updated, nil
}

// AddComment records an agent comment as a task message plus an audit
// entry.
func (s *Service) AddComment(ctx context.Context, taskID, userID, text string) (*domain.TaskMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: comment must not be empty", ErrValidation)
	}
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &domain.TaskMessage{
		MessageID: newID("msg"),
		TaskID:    taskID,
		Role:      domain.RoleAgent,
		Content:   text,
		CreatedAt: now,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store comment: %w", err)
	}

	newVal, _ := json.Marshal(map[string]string{"message_id": msg.MessageID})
	if err := s.store.AppendAudit(ctx, &domain.AuditEntry{
		EntryID:   newID("aud"),
		TaskID:    taskID,
		UserID:    userID,
		Action:    domain.AuditCommentAdded,
		NewValue:  newVal,
		CreatedAt: now,
	}); err != nil {
		s.log.Warn("failed to append comment audit entry", zap.String("task_id", taskID), zap.Error(err))
	}

	s.publish("message", "insert", taskID, msg)
	return msg, nil
}

// GetMessages returns a task's message history, newest last. limit of 0
// returns everything; before restricts to messages older than the given
// message ID.
func (s *Service) GetMessages(ctx context.Context, taskID string, limit int, before string) ([]domain.TaskMessage, error) {
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	messages, err := s.store.GetMessages(ctx, taskID, limit, before)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return messages, nil
}

// OpenTask handles a detail-view open: a new task assigned to the viewer
// auto-transitions to in_progress, and a session is started unless the
// task is terminal.
func (s *Service) OpenTask(ctx context.Context, taskID, viewerID string) (*domain.Task, *domain.TaskSession, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}

	if task.Status == domain.TaskStatusNew && task.AssigneeID == viewerID {
		task, err = s.SetStatus(ctx, taskID, domain.TaskStatusInProgress, viewerID, "")
		if err != nil {
			return nil, nil, err
		}
	} else if !task.Status.Terminal() {
		if _, err := s.StartSession(ctx, taskID, viewerID); err != nil {
			// Session accounting is best-effort; viewing still works.
			s.log.Warn("failed to start session on task open", zap.String("task_id", taskID), zap.Error(err))
		}
	}

	session, err := s.store.ActiveSession(ctx, taskID, viewerID)
	if err != nil {
		s.log.Warn("failed to load active session", zap.String("task_id", taskID), zap.Error(err))
	}
	return task, session, nil
}

// CloseTask handles a detail-view close by ending the viewer's session.
func (s *Service) CloseTask(ctx context.Context, taskID, viewerID string) (*domain.TaskSession, error) {
	return s.EndSession(ctx, taskID, viewerID)
}

// ListAudit returns the task's audit trail.
func (s *Service) ListAudit(ctx context.Context, taskID string) ([]domain.AuditEntry, error) {
	entries, err := s.store.ListAudit(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}
