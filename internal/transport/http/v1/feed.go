package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"taskdesk/internal/feed"
)

const (
	feedWriteTimeout = 10 * time.Second
	feedReadTimeout  = 60 * time.Second
	feedPingInterval = 30 * time.Second
	feedReadLimit    = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Feed upgrades the request to a WebSocket and streams change events for
// one task. When user_id is given, a disconnect ends that viewer's
// session, so clients that vanish without calling the close endpoint
// stop accruing time.
// GET /v1/feed?task_id=...&user_id=...
func (h *Handler) Feed(c echo.Context) error {
	taskID := c.QueryParam("task_id")
	if taskID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "task_id is required"})
	}
	if _, err := h.service.GetTask(c.Request().Context(), taskID); err != nil {
		return jsonError(c, err)
	}
	userID := c.QueryParam("user_id")

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	conn := h.hub.NewConnection(ws, taskID)
	h.hub.Register(conn)

	ws.SetReadLimit(feedReadLimit)

	go h.feedWritePump(conn)
	go func() {
		h.feedReadPump(conn)
		if userID != "" {
			// The request context is gone once the pump exits.
			h.service.EndSessionBestEffort(context.Background(), taskID, userID)
		}
	}()

	return nil
}

// feedReadPump drains client frames so pongs and close frames are
// processed. The feed is one-directional; inbound payloads are discarded.
func (h *Handler) feedReadPump(conn *feed.Connection) {
	defer func() {
		h.hub.Unregister(conn)
		conn.Close()
	}()

	conn.Conn.SetReadDeadline(time.Now().Add(feedReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(feedReadTimeout))
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

// feedWritePump forwards hub events to the client and keeps the
// connection alive with pings.
func (h *Handler) feedWritePump(conn *feed.Connection) {
	ticker := time.NewTicker(feedPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
