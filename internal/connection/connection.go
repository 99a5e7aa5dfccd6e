// Package connection 网关侧的客户端会话
package connection

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"sudooom.impostor/internal/session"
	"sudooom.impostor/internal/store"
)

// Connection 一个客户端会话，持有独立的存储连接
// 会话关闭即存储连接断开，登记的断开动作随之执行
type Connection struct {
	id         string
	conn       store.Conn
	svc        *session.Service
	roomCode   string
	playerID   string
	createTime time.Time
	lastActive atomic.Int64
	closeOnce  sync.Once
	done       chan struct{}
	roomClosed atomic.Bool
}

// New 创建会话
func New(conn store.Conn, svc *session.Service, roomCode, playerID string) *Connection {
	c := &Connection{
		id:         uuid.NewString(),
		conn:       conn,
		svc:        svc,
		roomCode:   roomCode,
		playerID:   playerID,
		createTime: time.Now(),
		done:       make(chan struct{}),
	}
	c.Touch()
	return c
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) RoomCode() string {
	return c.roomCode
}

func (c *Connection) PlayerID() string {
	return c.playerID
}

// Service 该会话的会话服务
func (c *Connection) Service() *session.Service {
	return c.svc
}

func (c *Connection) CreateTime() time.Time {
	return c.createTime
}

// Touch 刷新最后活跃时间
func (c *Connection) Touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

func (c *Connection) LastActiveTime() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

// Close 关闭存储连接，可重复调用
func (c *Connection) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close(ctx)
		close(c.done)
	})
	return err
}

// Done 会话关闭后该通道关闭，事件流据此结束
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// RoomClosed 会话是否因房间删除而关闭
func (c *Connection) RoomClosed() bool {
	return c.roomClosed.Load()
}

func (c *Connection) closeForRoom(ctx context.Context) error {
	c.roomClosed.Store(true)
	return c.Close(ctx)
}

func (c *Connection) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
