package domain

import "time"

// TaskSession is one continuous interval during which a user had a task open.
type TaskSession struct {
	SessionID       string     `json:"session_id"`
	TaskID          string     `json:"task_id"`
	UserID          string     `json:"user_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
}

// Active reports whether the session has not been closed yet.
func (s *TaskSession) Active() bool {
	return s.EndedAt == nil
}
