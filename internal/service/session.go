package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"taskdesk/internal/domain"
)

// StartSession opens a session for (task, user). Any session the user left
// open on another task is closed first. Starting twice is a no-op that
// returns the existing session. Terminal tasks record no sessions.
func (s *Service) StartSession(ctx context.Context, taskID, userID string) (*domain.TaskSession, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return nil, nil
	}

	session, created, err := s.store.StartSession(ctx, newID("ses"), taskID, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	if created {
		s.publish("session", "insert", taskID, session)
	}
	return session, nil
}

// EndSession closes the active session for (task, user). It is a no-op
// when no session is active, so repeated calls are safe.
func (s *Service) EndSession(ctx context.Context, taskID, userID string) (*domain.TaskSession, error) {
	session, err := s.store.EndSession(ctx, taskID, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	s.publish("session", "update", taskID, session)
	return session, nil
}

// TaskTotalDuration returns the accumulated handling time of a task in
// seconds. The denormalized cache on the task row is preferred; when it is
// empty the total is recomputed from closed sessions and re-cached.
func (s *Service) TaskTotalDuration(ctx context.Context, taskID string) (int64, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	if task.TotalDurationSeconds > 0 {
		return task.TotalDurationSeconds, nil
	}

	total, err := s.store.RecomputeTaskDuration(ctx, taskID)
	if err != nil {
		return 0, fmt.Errorf("failed to recompute task duration: %w", err)
	}
	return total, nil
}

// ListSessions returns all recorded sessions for a task.
func (s *Service) ListSessions(ctx context.Context, taskID string) ([]domain.TaskSession, error) {
	sessions, err := s.store.ListSessions(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// EndSessionBestEffort closes the user's session on a task and only
// logs failures. Used on feed disconnects, where session loss must not
// block connection teardown.
func (s *Service) EndSessionBestEffort(ctx context.Context, taskID, userID string) {
	if _, err := s.EndSession(ctx, taskID, userID); err != nil {
		s.log.Warn("failed to end session", zap.String("task_id", taskID), zap.String("user_id", userID), zap.Error(err))
	}
}
