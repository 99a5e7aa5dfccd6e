package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

const (
	StatusConnected     = "connected"
	StatusDisconnected  = "disconnected"
	StatusNotConfigured = "not configured"
)

// Status 健康状态
type Status struct {
	Service  string `json:"service"`
	Store    string `json:"store"`
	NATS     string `json:"nats"`
	Redis    string `json:"redis"`
	Database string `json:"database"`
	Sessions int    `json:"sessions"`
}

// SessionCounter 客户端会话计数
type SessionCounter interface {
	Count() int
}

// Checker 健康检查器，未配置的依赖不影响健康状态
type Checker struct {
	storeDriver string
	nc          *nats.Conn
	redisClient *redis.Client
	db          *pgxpool.Pool
	sessions    SessionCounter
}

// NewChecker 创建健康检查器，nc / redisClient / db 均可为 nil
func NewChecker(storeDriver string, nc *nats.Conn, redisClient *redis.Client, db *pgxpool.Pool, sessions SessionCounter) *Checker {
	return &Checker{
		storeDriver: storeDriver,
		nc:          nc,
		redisClient: redisClient,
		db:          db,
		sessions:    sessions,
	}
}

// Check 执行健康检查
func (h *Checker) Check(ctx context.Context) *Status {
	status := &Status{
		Service:  "impostor",
		Store:    h.storeDriver,
		NATS:     StatusNotConfigured,
		Redis:    StatusNotConfigured,
		Database: StatusNotConfigured,
	}

	// 检查 NATS
	if h.nc != nil {
		if h.nc.IsConnected() {
			status.NATS = StatusConnected
		} else {
			status.NATS = StatusDisconnected
		}
	}

	// 检查 Redis
	if h.redisClient != nil {
		redisCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.redisClient.Ping(redisCtx).Err(); err == nil {
			status.Redis = StatusConnected
		} else {
			status.Redis = StatusDisconnected
		}
	}

	// 检查 PostgreSQL
	if h.db != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.db.Ping(dbCtx); err == nil {
			status.Database = StatusConnected
		} else {
			status.Database = StatusDisconnected
		}
	}

	if h.sessions != nil {
		status.Sessions = h.sessions.Count()
	}
	return status
}

// IsHealthy 所有已配置的依赖均可用
func (s *Status) IsHealthy() bool {
	return s.NATS != StatusDisconnected &&
		s.Redis != StatusDisconnected &&
		s.Database != StatusDisconnected
}

// IsHealthy 检查是否健康
func (h *Checker) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx).IsHealthy()
}

// ServeHTTP HTTP 健康检查端点
func (h *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if status.IsHealthy() {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

// ServeReady 就绪探针
func (h *Checker) ServeReady(w http.ResponseWriter, r *http.Request) {
	if h.IsHealthy(r.Context()) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte("Not Ready"))
}
