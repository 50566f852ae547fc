package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"taskdesk/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'agent',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			customer_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS end_customers (
			end_customer_id TEXT PRIMARY KEY,
			customer_id TEXT,
			name TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			address TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS use_cases (
			use_case_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			required_info TEXT,
			expected_result TEXT,
			steps TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			task_id TEXT PRIMARY KEY,
			number TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'new',
			assignee_id TEXT,
			use_case_id TEXT,
			customer_id TEXT,
			end_customer_id TEXT,
			follow_up_at DATETIME,
			closing_comment TEXT,
			total_duration_seconds INTEGER NOT NULL DEFAULT 0,
			last_message_id TEXT,
			channel TEXT NOT NULL DEFAULT 'manual',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status, updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id, status)`,
		`CREATE TABLE IF NOT EXISTS task_sessions (
			session_id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			duration_seconds INTEGER,
			FOREIGN KEY (task_id) REFERENCES tasks(task_id)
		)`,
		// At most one active session per (task, user) pair.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_active ON task_sessions(task_id, user_id) WHERE ended_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_task ON task_sessions(task_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS task_messages (
			message_id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			reply_to_id TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (task_id) REFERENCES tasks(task_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_task ON task_messages(task_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			entry_id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			action TEXT NOT NULL,
			old_value TEXT,
			new_value TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (task_id) REFERENCES tasks(task_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_task ON audit_log(task_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			notification_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			task_id TEXT,
			kind TEXT NOT NULL,
			body TEXT NOT NULL,
			read_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS attachments (
			attachment_id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			content_type TEXT,
			size_bytes INTEGER NOT NULL DEFAULT 0,
			path TEXT NOT NULL,
			uploaded_by TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (task_id) REFERENCES tasks(task_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attachments_task ON attachments(task_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTask creates a new task.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *domain.Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (task_id, number, title, description, status, assignee_id, use_case_id, customer_id, end_customer_id, follow_up_at, closing_comment, total_duration_seconds, last_message_id, channel, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.TaskID, task.Number, task.Title, task.Description, task.Status,
		nullString(task.AssigneeID), nullString(task.UseCaseID), nullString(task.CustomerID), nullString(task.EndCustomerID),
		nullTime(task.FollowUpAt), nullString(task.ClosingComment), task.TotalDurationSeconds,
		nullString(task.LastMessageID), task.Channel, task.CreatedAt, task.UpdatedAt)
	return err
}

// GetTask retrieves a task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT task_id, number, title, description, status, assignee_id, use_case_id, customer_id, end_customer_id, follow_up_at, closing_comment, total_duration_seconds, last_message_id, channel, created_at, updated_at
		 FROM tasks WHERE task_id = ?`, taskID)
	return scanTask(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var description, assigneeID, useCaseID, customerID, endCustomerID, closingComment, lastMessageID sql.NullString
	var followUpAt sql.NullTime
	err := row.Scan(&task.TaskID, &task.Number, &task.Title, &description, &task.Status,
		&assigneeID, &useCaseID, &customerID, &endCustomerID, &followUpAt, &closingComment,
		&task.TotalDurationSeconds, &lastMessageID, &task.Channel, &task.CreatedAt, &task.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	task.Description = description.String
	task.AssigneeID = assigneeID.String
	task.UseCaseID = useCaseID.String
	task.CustomerID = customerID.String
	task.EndCustomerID = endCustomerID.String
	task.ClosingComment = closingComment.String
	task.LastMessageID = lastMessageID.String
	if followUpAt.Valid {
		task.FollowUpAt = &followUpAt.Time
	}
	return &task, nil
}

// ListTasks lists tasks matching the filter, most recently updated first.
func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]domain.Task, error) {
	query := `SELECT task_id, number, title, description, status, assignee_id, use_case_id, customer_id, end_customer_id, follow_up_at, closing_comment, total_duration_seconds, last_message_id, channel, created_at, updated_at FROM tasks WHERE 1=1`
	args := []interface{}{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.AssigneeID != "" {
		query += ` AND assignee_id = ?`
		args = append(args, filter.AssigneeID)
	}
	query += ` ORDER BY updated_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// ApplyTransition applies a task mutation, its audit entry and its session
// adjustment in a single transaction, and returns the updated task.
func (s *SQLiteStore) ApplyTransition(ctx context.Context, op *TransitionOp) (*domain.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := op.Now
	if now.IsZero() {
		now = time.Now()
	}

	sets := []string{"updated_at = ?"}
	args := []interface{}{now}
	if op.Status != "" {
		sets = append(sets, "status = ?")
		args = append(args, op.Status)
	}
	if op.AssigneeID != nil {
		sets = append(sets, "assignee_id = ?")
		args = append(args, nullString(*op.AssigneeID))
	}
	if op.SetFollowUp {
		sets = append(sets, "follow_up_at = ?")
		args = append(args, nullTime(op.FollowUpAt))
	}
	if op.ClosingComment != nil {
		sets = append(sets, "closing_comment = ?")
		args = append(args, nullString(*op.ClosingComment))
	}
	args = append(args, op.TaskID)

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE tasks SET %s WHERE task_id = ?", strings.Join(sets, ", ")), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("task %s not found", op.TaskID)
	}

	if op.Audit != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO audit_log (entry_id, task_id, user_id, action, old_value, new_value, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			op.AuditEntryID, op.TaskID, op.ActingUserID, op.Audit,
			nullStringBytes(op.OldValue), nullStringBytes(op.NewValue), now); err != nil {
			return nil, fmt.Errorf("failed to append audit entry: %w", err)
		}
	}

	if op.CloseSession {
		if err := closeActiveSession(ctx, tx, op.TaskID, op.ActingUserID, now); err != nil {
			return nil, fmt.Errorf("failed to close session: %w", err)
		}
	}
	if op.OpenSession {
		if err := openSessionIfNone(ctx, tx, op.SessionID, op.TaskID, op.ActingUserID, now); err != nil {
			return nil, fmt.Errorf("failed to open session: %w", err)
		}
	}

	row := tx.QueryRowContext(ctx,
		`SELECT task_id, number, title, description, status, assignee_id, use_case_id, customer_id, end_customer_id, follow_up_at, closing_comment, total_duration_seconds, last_message_id, channel, created_at, updated_at
		 FROM tasks WHERE task_id = ?`, op.TaskID)
	task, err := scanTask(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTaskUseCase sets the matched use case of a task.
func (s *SQLiteStore) UpdateTaskUseCase(ctx context.Context, taskID, useCaseID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET use_case_id = ?, updated_at = ? WHERE task_id = ?`,
		nullString(useCaseID), time.Now(), taskID)
	return err
}

// closeActiveSession closes the active session for (task, user) inside tx and
// folds the duration into the task's cached total. No-op when none is active.
func closeActiveSession(ctx context.Context, tx *sql.Tx, taskID, userID string, now time.Time) error {
	var sessionID string
	var startedAt time.Time
	err := tx.QueryRowContext(ctx,
		`SELECT session_id, started_at FROM task_sessions WHERE task_id = ? AND user_id = ? AND ended_at IS NULL`,
		taskID, userID).Scan(&sessionID, &startedAt)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	duration := int64(now.Sub(startedAt).Seconds())
	if duration < 0 {
		duration = 0
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE task_sessions SET ended_at = ?, duration_seconds = ? WHERE session_id = ?`,
		now, duration, sessionID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET total_duration_seconds = total_duration_seconds + ? WHERE task_id = ?`,
		duration, taskID)
	return err
}

// openSessionIfNone inserts an active session for (task, user) inside tx
// unless one already exists.
func openSessionIfNone(ctx context.Context, tx *sql.Tx, sessionID, taskID, userID string, now time.Time) error {
	var existing string
	err := tx.QueryRowContext(ctx,
		`SELECT session_id FROM task_sessions WHERE task_id = ? AND user_id = ? AND ended_at IS NULL`,
		taskID, userID).Scan(&existing)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO task_sessions (session_id, task_id, user_id, started_at) VALUES (?, ?, ?, ?)`,
		sessionID, taskID, userID, now)
	return err
}

// StartSession opens an active session for (task, user). Any active session
// of the same user on a different task is closed first. Returns the session
// and whether a new row was inserted; a concurrent duplicate start returns
// the existing row.
func (s *SQLiteStore) StartSession(ctx context.Context, sessionID, taskID, userID string, now time.Time) (*domain.TaskSession, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	// Close sessions the user left open on other tasks.
	rows, err := tx.QueryContext(ctx,
		`SELECT session_id, task_id, started_at FROM task_sessions WHERE user_id = ? AND task_id != ? AND ended_at IS NULL`,
		userID, taskID)
	if err != nil {
		return nil, false, err
	}
	type openRow struct {
		sessionID string
		taskID    string
		startedAt time.Time
	}
	var open []openRow
	for rows.Next() {
		var r openRow
		if err := rows.Scan(&r.sessionID, &r.taskID, &r.startedAt); err != nil {
			rows.Close()
			return nil, false, err
		}
		open = append(open, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	for _, r := range open {
		if err := closeActiveSession(ctx, tx, r.taskID, userID, now); err != nil {
			return nil, false, err
		}
	}

	var existingID string
	var startedAt time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT session_id, started_at FROM task_sessions WHERE task_id = ? AND user_id = ? AND ended_at IS NULL`,
		taskID, userID).Scan(&existingID, &startedAt)
	if err == nil {
		if err := tx.Commit(); err != nil {
			return nil, false, err
		}
		return &domain.TaskSession{SessionID: existingID, TaskID: taskID, UserID: userID, StartedAt: startedAt}, false, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO task_sessions (session_id, task_id, user_id, started_at) VALUES (?, ?, ?, ?)`,
		sessionID, taskID, userID, now); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return &domain.TaskSession{SessionID: sessionID, TaskID: taskID, UserID: userID, StartedAt: now}, true, nil
}

// EndSession closes the active session for (task, user). Duration is whole
// seconds, floored at zero on clock skew. Returns nil without error when no
// session is active, so repeated calls are no-ops.
func (s *SQLiteStore) EndSession(ctx context.Context, taskID, userID string, now time.Time) (*domain.TaskSession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var sessionID string
	var startedAt time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT session_id, started_at FROM task_sessions WHERE task_id = ? AND user_id = ? AND ended_at IS NULL`,
		taskID, userID).Scan(&sessionID, &startedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	duration := int64(now.Sub(startedAt).Seconds())
	if duration < 0 {
		duration = 0
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE task_sessions SET ended_at = ?, duration_seconds = ? WHERE session_id = ?`,
		now, duration, sessionID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET total_duration_seconds = total_duration_seconds + ? WHERE task_id = ?`,
		duration, taskID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &domain.TaskSession{
		SessionID:       sessionID,
		TaskID:          taskID,
		UserID:          userID,
		StartedAt:       startedAt,
		EndedAt:         &now,
		DurationSeconds: &duration,
	}, nil
}

// ActiveSession returns the active session for (task, user), or nil.
func (s *SQLiteStore) ActiveSession(ctx context.Context, taskID, userID string) (*domain.TaskSession, error) {
	var sess domain.TaskSession
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, task_id, user_id, started_at FROM task_sessions WHERE task_id = ? AND user_id = ? AND ended_at IS NULL`,
		taskID, userID).Scan(&sess.SessionID, &sess.TaskID, &sess.UserID, &sess.StartedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// ListSessions lists all sessions for a task, oldest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, taskID string) ([]domain.TaskSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, task_id, user_id, started_at, ended_at, duration_seconds FROM task_sessions WHERE task_id = ? ORDER BY started_at ASC`,
		taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.TaskSession
	for rows.Next() {
		var sess domain.TaskSession
		var endedAt sql.NullTime
		var duration sql.NullInt64
		if err := rows.Scan(&sess.SessionID, &sess.TaskID, &sess.UserID, &sess.StartedAt, &endedAt, &duration); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			sess.EndedAt = &endedAt.Time
		}
		if duration.Valid {
			sess.DurationSeconds = &duration.Int64
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// RecomputeTaskDuration recomputes the task's total from closed sessions
// across all users and refreshes the cached column.
func (s *SQLiteStore) RecomputeTaskDuration(ctx context.Context, taskID string) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(duration_seconds) FROM task_sessions WHERE task_id = ? AND ended_at IS NOT NULL`,
		taskID).Scan(&total)
	if err != nil {
		return 0, err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET total_duration_seconds = ? WHERE task_id = ?`,
		total.Int64, taskID); err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// CreateMessage persists a message and advances the task's last-message
// pointer in the same transaction.
func (s *SQLiteStore) CreateMessage(ctx context.Context, message *domain.TaskMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO task_messages (message_id, task_id, role, content, reply_to_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		message.MessageID, message.TaskID, message.Role, message.Content, nullString(message.ReplyToID), message.CreatedAt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET last_message_id = ?, updated_at = ? WHERE task_id = ?`,
		message.MessageID, message.CreatedAt, message.TaskID); err != nil {
		return err
	}
	return tx.Commit()
}

// GetMessages retrieves messages for a task in chronological order. A
// non-empty before restricts the result to messages created before the
// given message; message IDs are random, so the cursor is keyed on the
// anchor's timestamp with the ID as tie-break. An unknown cursor yields
// no messages.
func (s *SQLiteStore) GetMessages(ctx context.Context, taskID string, limit int, before string) ([]domain.TaskMessage, error) {
	query := `SELECT message_id, task_id, role, content, reply_to_id, created_at FROM task_messages WHERE task_id = ?`
	args := []interface{}{taskID}

	if before != "" {
		var anchor time.Time
		err := s.db.QueryRowContext(ctx,
			`SELECT created_at FROM task_messages WHERE message_id = ? AND task_id = ?`,
			before, taskID).Scan(&anchor)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		query += ` AND (created_at < ? OR (created_at = ? AND message_id < ?))`
		args = append(args, anchor, anchor, before)
	}
	query += ` ORDER BY created_at ASC, message_id ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.TaskMessage
	for rows.Next() {
		var msg domain.TaskMessage
		var replyTo sql.NullString
		if err := rows.Scan(&msg.MessageID, &msg.TaskID, &msg.Role, &msg.Content, &replyTo, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.ReplyToID = replyTo.String
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CountMessages returns the number of messages recorded for a task.
func (s *SQLiteStore) CountMessages(ctx context.Context, taskID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM task_messages WHERE task_id = ?`, taskID).Scan(&count)
	return count, err
}

// AppendAudit appends an audit entry. Entries are never updated or deleted.
func (s *SQLiteStore) AppendAudit(ctx context.Context, entry *domain.AuditEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (entry_id, task_id, user_id, action, old_value, new_value, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.EntryID, entry.TaskID, entry.UserID, entry.Action,
		nullStringBytes(entry.OldValue), nullStringBytes(entry.NewValue), entry.CreatedAt)
	return err
}

// ListAudit lists the audit trail for a task, oldest first.
func (s *SQLiteStore) ListAudit(ctx context.Context, taskID string) ([]domain.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_id, task_id, user_id, action, old_value, new_value, created_at FROM audit_log WHERE task_id = ? ORDER BY created_at ASC`,
		taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var oldVal, newVal sql.NullString
		if err := rows.Scan(&e.EntryID, &e.TaskID, &e.UserID, &e.Action, &oldVal, &newVal, &e.CreatedAt); err != nil {
			return nil, err
		}
		if oldVal.Valid {
			e.OldValue = []byte(oldVal.String)
		}
		if newVal.Valid {
			e.NewValue = []byte(newVal.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CreateUseCase creates a new use case.
func (s *SQLiteStore) CreateUseCase(ctx context.Context, uc *domain.UseCase) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO use_cases (use_case_id, title, description, required_info, expected_result, steps, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uc.UseCaseID, uc.Title, uc.Description, uc.RequiredInfo, uc.ExpectedResult,
		nullStringBytes(uc.Steps), uc.CreatedAt, uc.UpdatedAt)
	return err
}

// GetUseCase retrieves a use case by ID.
func (s *SQLiteStore) GetUseCase(ctx context.Context, useCaseID string) (*domain.UseCase, error) {
	var uc domain.UseCase
	var description, requiredInfo, expectedResult, steps sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT use_case_id, title, description, required_info, expected_result, steps, created_at, updated_at FROM use_cases WHERE use_case_id = ?`,
		useCaseID).Scan(&uc.UseCaseID, &uc.Title, &description, &requiredInfo, &expectedResult, &steps, &uc.CreatedAt, &uc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	uc.Description = description.String
	uc.RequiredInfo = requiredInfo.String
	uc.ExpectedResult = expectedResult.String
	if steps.Valid {
		uc.Steps = []byte(steps.String)
	}
	return &uc, nil
}

// ListUseCases lists all use cases.
func (s *SQLiteStore) ListUseCases(ctx context.Context) ([]domain.UseCase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT use_case_id, title, description, required_info, expected_result, steps, created_at, updated_at FROM use_cases ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var useCases []domain.UseCase
	for rows.Next() {
		var uc domain.UseCase
		var description, requiredInfo, expectedResult, steps sql.NullString
		if err := rows.Scan(&uc.UseCaseID, &uc.Title, &description, &requiredInfo, &expectedResult, &steps, &uc.CreatedAt, &uc.UpdatedAt); err != nil {
			return nil, err
		}
		uc.Description = description.String
		uc.RequiredInfo = requiredInfo.String
		uc.ExpectedResult = expectedResult.String
		if steps.Valid {
			uc.Steps = []byte(steps.String)
		}
		useCases = append(useCases, uc)
	}
	return useCases, rows.Err()
}

// UpdateUseCase updates an existing use case.
func (s *SQLiteStore) UpdateUseCase(ctx context.Context, uc *domain.UseCase) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE use_cases SET title = ?, description = ?, required_info = ?, expected_result = ?, steps = ?, updated_at = ? WHERE use_case_id = ?`,
		uc.Title, uc.Description, uc.RequiredInfo, uc.ExpectedResult, nullStringBytes(uc.Steps), uc.UpdatedAt, uc.UseCaseID)
	return err
}

// CreateUser creates a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, name, email, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.UserID, user.Name, user.Email, user.Role, user.CreatedAt)
	return err
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var user domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, name, email, role, created_at FROM users WHERE user_id = ?`,
		userID).Scan(&user.UserID, &user.Name, &user.Email, &user.Role, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUsers retrieves users by ID in bulk.
func (s *SQLiteStore) GetUsers(ctx context.Context, userIDs []string) ([]domain.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(userIDs))
	args := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT user_id, name, email, role, created_at FROM users WHERE user_id IN (%s)`, strings.Join(placeholders, ",")),
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.UserID, &user.Name, &user.Email, &user.Role, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateCustomer creates a new customer.
func (s *SQLiteStore) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (customer_id, name, created_at) VALUES (?, ?, ?)`,
		c.CustomerID, c.Name, c.CreatedAt)
	return err
}

// GetCustomer retrieves a customer by ID.
func (s *SQLiteStore) GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx,
		`SELECT customer_id, name, created_at FROM customers WHERE customer_id = ?`,
		customerID).Scan(&c.CustomerID, &c.Name, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateEndCustomer creates a new end customer.
func (s *SQLiteStore) CreateEndCustomer(ctx context.Context, ec *domain.EndCustomer) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO end_customers (end_customer_id, customer_id, name, email, phone, address, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ec.EndCustomerID, nullString(ec.CustomerID), ec.Name, nullString(ec.Email), nullString(ec.Phone), nullString(ec.Address), ec.CreatedAt)
	return err
}

// GetEndCustomer retrieves an end customer by ID.
func (s *SQLiteStore) GetEndCustomer(ctx context.Context, endCustomerID string) (*domain.EndCustomer, error) {
	var ec domain.EndCustomer
	var customerID, email, phone, address sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT end_customer_id, customer_id, name, email, phone, address, created_at FROM end_customers WHERE end_customer_id = ?`,
		endCustomerID).Scan(&ec.EndCustomerID, &customerID, &ec.Name, &email, &phone, &address, &ec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ec.CustomerID = customerID.String
	ec.Email = email.String
	ec.Phone = phone.String
	ec.Address = address.String
	return &ec, nil
}

// CreateNotification creates a new notification.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *domain.Notification) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (notification_id, user_id, task_id, kind, body, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		n.NotificationID, n.UserID, nullString(n.TaskID), n.Kind, n.Body, n.CreatedAt)
	return err
}

// ListNotifications lists a user's notifications, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	query := `SELECT notification_id, user_id, task_id, kind, body, read_at, created_at FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var taskID sql.NullString
		var readAt sql.NullTime
		if err := rows.Scan(&n.NotificationID, &n.UserID, &taskID, &n.Kind, &n.Body, &readAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.TaskID = taskID.String
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks a notification as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, notificationID string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = ? WHERE notification_id = ? AND read_at IS NULL`,
		now, notificationID)
	return err
}

// CreateAttachment creates a new attachment record.
func (s *SQLiteStore) CreateAttachment(ctx context.Context, a *domain.Attachment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attachments (attachment_id, task_id, file_name, content_type, size_bytes, path, uploaded_by, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.AttachmentID, a.TaskID, a.FileName, nullString(a.ContentType), a.SizeBytes, a.Path, a.UploadedBy, a.CreatedAt)
	return err
}

// GetAttachment retrieves an attachment by ID.
func (s *SQLiteStore) GetAttachment(ctx context.Context, attachmentID string) (*domain.Attachment, error) {
	var a domain.Attachment
	var contentType sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT attachment_id, task_id, file_name, content_type, size_bytes, path, uploaded_by, created_at FROM attachments WHERE attachment_id = ?`,
		attachmentID).Scan(&a.AttachmentID, &a.TaskID, &a.FileName, &contentType, &a.SizeBytes, &a.Path, &a.UploadedBy, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.ContentType = contentType.String
	return &a, nil
}

// ListAttachments lists attachments for a task, oldest first.
func (s *SQLiteStore) ListAttachments(ctx context.Context, taskID string) ([]domain.Attachment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT attachment_id, task_id, file_name, content_type, size_bytes, path, uploaded_by, created_at FROM attachments WHERE task_id = ? ORDER BY created_at ASC`,
		taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		var contentType sql.NullString
		if err := rows.Scan(&a.AttachmentID, &a.TaskID, &a.FileName, &contentType, &a.SizeBytes, &a.Path, &a.UploadedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ContentType = contentType.String
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// DeleteAttachment deletes an attachment record.
func (s *SQLiteStore) DeleteAttachment(ctx context.Context, attachmentID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM attachments WHERE attachment_id = ?`, attachmentID)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
