package feed

import (
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"taskdesk/internal/domain"
)

func newTestHub() *Hub {
	h := NewHub(zap.NewNop())
	go h.Run()
	return h
}

func register(t *testing.T, h *Hub, taskID string) *Connection {
	t.Helper()
	conn := h.NewConnection(nil, taskID)
	h.Register(conn)
	waitForSubscribers(t, h, taskID, 1)
	return conn
}

func waitForSubscribers(t *testing.T, h *Hub, taskID string, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if h.SubscriberCount(taskID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("subscriber count for %s never reached %d", taskID, want)
}

func TestPublishReachesTaskSubscriber(t *testing.T) {
	h := newTestHub()
	conn := register(t, h, "tsk_1")

	h.Publish(domain.ChangeEvent{Entity: "task", Action: "update", TaskID: "tsk_1"})

	select {
	case data := <-conn.Send:
		var event domain.ChangeEvent
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if event.Entity != "task" || event.TaskID != "tsk_1" {
			t.Fatalf("unexpected event: %+v", event)
		}
		if event.Ts == 0 {
			t.Fatal("expected a timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}

func TestPublishSkipsOtherTasks(t *testing.T) {
	h := newTestHub()
	conn := register(t, h, "tsk_1")

	h.Publish(domain.ChangeEvent{Entity: "task", Action: "update", TaskID: "tsk_2"})

	select {
	case <-conn.Send:
		t.Fatal("subscriber received an event for a different task")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterRemovesSubscriber(t *testing.T) {
	h := newTestHub()
	conn := register(t, h, "tsk_1")

	h.Unregister(conn)
	waitForSubscribers(t, h, "tsk_1", 0)

	if _, ok := <-conn.Send; ok {
		t.Fatal("send channel should be closed after unregister")
	}
}

func TestMultipleSubscribersSameTask(t *testing.T) {
	h := newTestHub()
	first := register(t, h, "tsk_1")
	second := h.NewConnection(nil, "tsk_1")
	h.Register(second)
	waitForSubscribers(t, h, "tsk_1", 2)

	h.Publish(domain.ChangeEvent{Entity: "message", Action: "insert", TaskID: "tsk_1"})

	for _, conn := range []*Connection{first, second} {
		select {
		case <-conn.Send:
		case <-time.After(time.Second):
			t.Fatal("subscriber missed the event")
		}
	}
}
