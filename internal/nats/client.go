// Package nats 跨实例的房间变更通知连接
package nats

import (
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"sudooom.impostor/internal/config"
)

// Connect 连接 NATS，断线与重连写入日志
// 断线期间其他实例的房间变更依靠 Follower 的定时对账补齐
func Connect(cfg config.NATSConfig, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return nats.Connect(cfg.URL,
		nats.Name("impostor"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(10*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected, room changes from other instances delayed", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
}

// Close 排空订阅后关闭，失败时直接关闭
func Close(nc *nats.Conn, logger *slog.Logger) {
	if nc == nil {
		return
	}
	if err := nc.Drain(); err != nil {
		if logger != nil {
			logger.Warn("Failed to drain NATS connection", "error", err)
		}
		nc.Close()
	}
}
