package connection

import (
	"context"
	"log/slog"
	"time"

	"sudooom.impostor/internal/session"
)

// IdleSweeper 关闭长时间没有请求或事件流的客户端会话
// 关闭会话即断开其存储连接，房主会话断开时房间随之删除，房间内其余会话一并关闭
type IdleSweeper struct {
	manager  *Manager
	timeout  time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewIdleSweeper timeout 或 interval 非正时使用 90s / 15s
func NewIdleSweeper(manager *Manager, timeout, interval time.Duration, logger *slog.Logger) *IdleSweeper {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IdleSweeper{manager: manager, timeout: timeout, interval: interval, logger: logger}
}

// Run 按间隔清理，直到 ctx 取消
func (s *IdleSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Idle session sweeper started", "timeout", s.timeout, "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep 关闭并移除空闲会话，返回被关闭的会话
func (s *IdleSweeper) Sweep(ctx context.Context) []*Connection {
	cutoff := time.Now().Add(-s.timeout)

	var swept []*Connection
	for _, conn := range s.manager.GetAllConnections() {
		if conn.closed() || conn.LastActiveTime().After(cutoff) {
			continue
		}
		s.manager.Remove(conn.ID())
		if err := conn.Close(ctx); err != nil {
			s.logger.Warn("Failed to close idle session", "sessionId", conn.ID(), "error", err)
		}
		s.logger.Info("Idle session closed",
			"sessionId", conn.ID(),
			"roomCode", conn.RoomCode(),
			"playerId", conn.PlayerID(),
			"idleFor", time.Since(conn.LastActiveTime()).Round(time.Second))
		swept = append(swept, conn)

		if conn.PlayerID() == session.HostID {
			s.closeRoom(ctx, conn.RoomCode())
		}
	}
	return swept
}

// closeRoom 房主会话关闭后房间已删除，结束其余会话
func (s *IdleSweeper) closeRoom(ctx context.Context, roomCode string) {
	closed, err := s.manager.CloseRoom(ctx, roomCode)
	if err != nil {
		s.logger.Warn("Failed to close room sessions", "roomCode", roomCode, "error", err)
	}
	if len(closed) > 0 {
		s.logger.Info("Room sessions closed", "roomCode", roomCode, "count", len(closed))
	}
}
