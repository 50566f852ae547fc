package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskdesk/internal/adapter/completion"
	"taskdesk/internal/blob"
	"taskdesk/internal/config"
	"taskdesk/internal/domain"
	"taskdesk/internal/feed"
	"taskdesk/internal/policy"
	"taskdesk/internal/service"
	"taskdesk/internal/store"
)

func newTestHandler(t *testing.T, replies ...string) (*Handler, store.Store, *completion.MockClient) {
	t.Helper()

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	blobs, err := blob.NewStore(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	log := zap.NewNop()
	hub := feed.NewHub(log)
	go hub.Run()

	cfg := &config.Config{CompletionModel: "test-model"}
	mock := completion.NewMockClient(replies...)
	svc := service.New(db, mock, policyEngine, hub, blobs, cfg, log)
	return NewHandler(svc, hub), db, mock
}

func createTestTask(t *testing.T, h *Handler) *domain.Task {
	t.Helper()
	e := echo.New()
	body := `{"title":"Heizung ausgefallen","description":"Wohnung kalt"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/tasks", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "usr_1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateTask(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var task domain.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	return &task
}

func TestCreateTaskValidation(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/tasks", bytes.NewBufferString(`{"description":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateTask(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateAndGetTask(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)
	task := createTestTask(t, h)

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/"+task.TaskID, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("task_id")
	c.SetParamValues(task.TaskID)

	if err := h.GetTask(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/tsk_nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("task_id")
	c.SetParamValues("tsk_nope")

	if err := h.GetTask(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSetStatusRequiresUserHeader(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)
	task := createTestTask(t, h)

	req := httptest.NewRequest(http.MethodPost, "/v1/tasks/"+task.TaskID+"/status", bytes.NewBufferString(`{"status":"in_progress"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("task_id")
	c.SetParamValues(task.TaskID)

	if err := h.SetStatus(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSetStatusTransition(t *testing.T) {
	e := echo.New()
	h, db, _ := newTestHandler(t)
	task := createTestTask(t, h)

	req := httptest.NewRequest(http.MethodPost, "/v1/tasks/"+task.TaskID+"/status", bytes.NewBufferString(`{"status":"in_progress"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "usr_1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("task_id")
	c.SetParamValues(task.TaskID)

	if err := h.SetStatus(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got, err := db.GetTask(context.Background(), task.TaskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Status != domain.TaskStatusInProgress {
		t.Fatalf("expected in_progress, got %s", got.Status)
	}
}

func TestSetStatusCompletionWithoutCommentRejected(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)
	task := createTestTask(t, h)

	req := httptest.NewRequest(http.MethodPost, "/v1/tasks/"+task.TaskID+"/status", bytes.NewBufferString(`{"status":"completed"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "usr_1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("task_id")
	c.SetParamValues(task.TaskID)

	if err := h.SetStatus(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTerminalTransitionConflict(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)
	task := createTestTask(t, h)

	cancel := httptest.NewRequest(http.MethodPost, "/v1/tasks/"+task.TaskID+"/status", bytes.NewBufferString(`{"status":"cancelled"}`))
	cancel.Header.Set("Content-Type", "application/json")
	cancel.Header.Set("X-User-ID", "usr_1")
	rec := httptest.NewRecorder()
	c := e.NewContext(cancel, rec)
	c.SetParamNames("task_id")
	c.SetParamValues(task.TaskID)
	if err := h.SetStatus(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	retry := httptest.NewRequest(http.MethodPost, "/v1/tasks/"+task.TaskID+"/status", bytes.NewBufferString(`{"status":"in_progress"}`))
	retry.Header.Set("Content-Type", "application/json")
	retry.Header.Set("X-User-ID", "usr_1")
	rec = httptest.NewRecorder()
	c = e.NewContext(retry, rec)
	c.SetParamNames("task_id")
	c.SetParamValues(task.TaskID)
	if err := h.SetStatus(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestListTasksStatusFilter(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)
	createTestTask(t, h)

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks?status=new", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.ListTasks(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	bad := httptest.NewRequest(http.MethodGet, "/v1/tasks?status=archived", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(bad, rec)
	if err := h.ListTasks(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestOpenAndCloseTask(t *testing.T) {
	e := echo.New()
	h, db, _ := newTestHandler(t)
	task := createTestTask(t, h)

	open := httptest.NewRequest(http.MethodPost, "/v1/tasks/"+task.TaskID+"/open", nil)
	open.Header.Set("X-User-ID", "usr_1")
	rec := httptest.NewRecorder()
	c := e.NewContext(open, rec)
	c.SetParamNames("task_id")
	c.SetParamValues(task.TaskID)
	if err := h.OpenTask(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	active, err := db.ActiveSession(context.Background(), task.TaskID, "usr_1")
	if err != nil {
		t.Fatalf("ActiveSession failed: %v", err)
	}
	if active == nil {
		t.Fatal("expected an active session after open")
	}

	closeReq := httptest.NewRequest(http.MethodPost, "/v1/tasks/"+task.TaskID+"/close", nil)
	closeReq.Header.Set("X-User-ID", "usr_1")
	rec = httptest.NewRecorder()
	c = e.NewContext(closeReq, rec)
	c.SetParamNames("task_id")
	c.SetParamValues(task.TaskID)
	if err := h.CloseTask(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	active, err = db.ActiveSession(context.Background(), task.TaskID, "usr_1")
	if err != nil {
		t.Fatalf("ActiveSession failed: %v", err)
	}
	if active != nil {
		t.Fatal("expected session closed")
	}
}

func TestGetTaskDuration(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)
	task := createTestTask(t, h)

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/"+task.TaskID+"/duration", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("task_id")
	c.SetParamValues(task.TaskID)

	if err := h.GetTaskDuration(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if _, ok := body["total_duration_seconds"]; !ok {
		t.Fatalf("missing total_duration_seconds: %s", rec.Body.String())
	}
}
