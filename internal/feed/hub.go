// Package feed provides the change-notification feed: one hub manages all
// WebSocket subscribers, keyed by task.
package feed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"taskdesk/internal/domain"
)

// Connection represents a single WebSocket subscriber.
type Connection struct {
	ID     string
	TaskID string
	Conn   *websocket.Conn
	Send   chan []byte
	mu     sync.Mutex
}

// Hub manages all feed subscribers.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// tasks maps task_id to set of connection IDs
	tasks map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *taskMessage

	log *zap.Logger
	mu  sync.RWMutex
}

type taskMessage struct {
	taskID string
	data   []byte
}

// NewHub creates a new Hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		tasks:       make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *taskMessage, 256),
		log:         log,
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if conn.TaskID != "" {
				if h.tasks[conn.TaskID] == nil {
					h.tasks[conn.TaskID] = make(map[string]bool)
				}
				h.tasks[conn.TaskID][conn.ID] = true
			}
			h.mu.Unlock()
			h.log.Debug("feed subscriber registered", zap.String("connection_id", conn.ID), zap.String("task_id", conn.TaskID))

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				if conn.TaskID != "" && h.tasks[conn.TaskID] != nil {
					delete(h.tasks[conn.TaskID], conn.ID)
					if len(h.tasks[conn.TaskID]) == 0 {
						delete(h.tasks, conn.TaskID)
					}
				}
				close(conn.Send)
			}
			h.mu.Unlock()
			h.log.Debug("feed subscriber unregistered", zap.String("connection_id", conn.ID))

		case msg := <-h.broadcast:
			h.mu.RLock()
			if connIDs, ok := h.tasks[msg.taskID]; ok {
				for connID := range connIDs {
					if conn, exists := h.connections[connID]; exists {
						select {
						case conn.Send <- msg.data:
						default:
							// Buffer full, drop the subscriber.
							h.log.Warn("feed subscriber buffer full, closing", zap.String("connection_id", connID))
							go h.Unregister(conn)
						}
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewConnection creates a new connection for the given WebSocket.
func (h *Hub) NewConnection(ws *websocket.Conn, taskID string) *Connection {
	return &Connection{
		ID:     uuid.New().String(),
		TaskID: taskID,
		Conn:   ws,
		Send:   make(chan []byte, 256),
	}
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Publish sends a change event to all subscribers of its task.
func (h *Hub) Publish(event domain.ChangeEvent) {
	if event.Ts == 0 {
		event.Ts = time.Now().UnixMilli()
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("failed to marshal change event", zap.Error(err))
		return
	}
	h.broadcast <- &taskMessage{taskID: event.TaskID, data: data}
}

// SubscriberCount returns the number of subscribers for a task.
func (h *Hub) SubscriberCount(taskID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tasks[taskID])
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// Close closes the underlying WebSocket.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
