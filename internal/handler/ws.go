package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"sudooom.impostor/internal/middleware"
	"sudooom.impostor/internal/session"
)

const (
	wsPingInterval = 30 * time.Second
	wsReadTimeout  = 45 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	// 会话 ID 即凭据，不校验来源
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// EventsWS 房间事件流 (WebSocket)，与 SSE 推送相同的事件
// 客户端的任何消息与 pong 都会刷新会话活跃时间
// GET /api/v1/rooms/:code/ws
func (h *RoomHandler) EventsWS(c *gin.Context) {
	client := middleware.GetConnection(c)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "sessionId", client.ID(), "error", err)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	follower, err := client.Service().Follow(ctx, client.RoomCode(), client.PlayerID())
	if err != nil {
		appErr := toAppError(err)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, appErr.Message),
			time.Now().Add(wsWriteTimeout))
		return
	}
	defer follower.Close()

	ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
	ws.SetPongHandler(func(string) error {
		client.Touch()
		return ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	// 读协程：只用于感知断开和处理 pong
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("WebSocket read failed", "sessionId", client.ID(), "error", err)
				}
				return
			}
			client.Touch()
			ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	events := follower.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case <-client.Done():
			if client.RoomClosed() {
				h.writeWSEvent(ws, client.ID(), roomClosedEvent(client))
				return
			}
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
				time.Now().Add(wsWriteTimeout))
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !h.writeWSEvent(ws, client.ID(), ev) || ev.Kind == session.EventRoomClosed {
				return
			}
		}
	}
}

// writeWSEvent 写出事件，room_closed 之后发送关闭帧
func (h *RoomHandler) writeWSEvent(ws *websocket.Conn, sessionID string, ev session.Event) bool {
	ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := ws.WriteJSON(ev); err != nil {
		h.logger.Debug("WebSocket write failed", "sessionId", sessionID, "error", err)
		return false
	}
	if ev.Kind == session.EventRoomClosed {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "room closed"),
			time.Now().Add(wsWriteTimeout))
	}
	return true
}
