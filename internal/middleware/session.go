package middleware

import (
	"github.com/gin-gonic/gin"

	"sudooom.impostor/internal/connection"
	"sudooom.impostor/pkg/response"
)

// SessionHeader 客户端会话标识
const SessionHeader = "X-Session-ID"

// SessionQuery 无法设置请求头的客户端（WebSocket、EventSource）通过查询参数携带会话
const SessionQuery = "session"

const connectionKey = "connection"

// SessionAuth 根据 X-Session-ID 或 session 查询参数查找客户端会话
// 路由带 :code 时，会话必须属于该房间
func SessionAuth(manager *connection.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" {
			id = c.Query(SessionQuery)
		}
		if id == "" {
			response.Unauthorized(c)
			return
		}

		conn := manager.Get(id)
		if conn == nil {
			response.Unauthorized(c)
			return
		}

		if code := c.Param("code"); code != "" && code != conn.RoomCode() {
			response.Forbidden(c)
			return
		}

		conn.Touch()
		c.Set(connectionKey, conn)
		c.Next()
	}
}

// GetConnection 从 context 获取客户端会话
func GetConnection(c *gin.Context) *connection.Connection {
	v, exists := c.Get(connectionKey)
	if !exists {
		return nil
	}
	return v.(*connection.Connection)
}
