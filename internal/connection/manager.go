package connection

import (
	"context"
	"errors"
	"sync"
)

// Manager 管理所有客户端会话
type Manager struct {
	connections map[string]*Connection
	roomConns   map[string]map[string]*Connection // roomCode -> connID -> Connection
	mu          sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		connections: make(map[string]*Connection),
		roomConns:   make(map[string]map[string]*Connection),
	}
}

func (m *Manager) Add(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[conn.ID()] = conn
	if _, ok := m.roomConns[conn.RoomCode()]; !ok {
		m.roomConns[conn.RoomCode()] = make(map[string]*Connection)
	}
	m.roomConns[conn.RoomCode()][conn.ID()] = conn
}

func (m *Manager) Remove(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.connections[connID]
	if !ok {
		return
	}
	delete(m.connections, connID)

	if roomConns, ok := m.roomConns[conn.RoomCode()]; ok {
		delete(roomConns, connID)
		if len(roomConns) == 0 {
			delete(m.roomConns, conn.RoomCode())
		}
	}
}

func (m *Manager) Get(connID string) *Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connections[connID]
}

// GetByRoom 返回房间内的全部会话
func (m *Manager) GetByRoom(roomCode string) []*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	roomConns, ok := m.roomConns[roomCode]
	if !ok {
		return nil
	}
	conns := make([]*Connection, 0, len(roomConns))
	for _, conn := range roomConns {
		conns = append(conns, conn)
	}
	return conns
}

// CloseRoom 房间删除后关闭并移除房间内剩余的会话，返回被关闭的会话
func (m *Manager) CloseRoom(ctx context.Context, roomCode string) ([]*Connection, error) {
	m.mu.Lock()
	roomConns := m.roomConns[roomCode]
	delete(m.roomConns, roomCode)
	conns := make([]*Connection, 0, len(roomConns))
	for id, conn := range roomConns {
		delete(m.connections, id)
		conns = append(conns, conn)
	}
	m.mu.Unlock()

	var errs []error
	for _, conn := range conns {
		if err := conn.closeForRoom(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return conns, errors.Join(errs...)
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// GetAllConnections 返回所有会话（用于心跳检测）
func (m *Manager) GetAllConnections() []*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conns := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		conns = append(conns, conn)
	}
	return conns
}
