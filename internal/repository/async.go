package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sudooom.impostor/internal/session"
	"sudooom.impostor/internal/workerpool"
)

// ErrRecordQueueFull 记录队列已满，结果被丢弃
var ErrRecordQueueFull = errors.New("result record queue full")

// AsyncRecorder 在任务池中异步保存对局结果
type AsyncRecorder struct {
	next    session.ResultRecorder
	pool    *workerpool.Pool
	timeout time.Duration
	logger  *slog.Logger
}

// NewAsyncRecorder 包装同步记录器，每次写入限时 timeout
func NewAsyncRecorder(next session.ResultRecorder, pool *workerpool.Pool, timeout time.Duration) *AsyncRecorder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AsyncRecorder{
		next:    next,
		pool:    pool,
		timeout: timeout,
		logger:  slog.Default(),
	}
}

// RecordResult 入队后立即返回
func (r *AsyncRecorder) RecordResult(_ context.Context, result *session.Result) error {
	ok := r.pool.TrySubmit(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		if err := r.next.RecordResult(ctx, result); err != nil {
			r.logger.Error("Failed to save game result", "roomCode", result.RoomCode, "error", err)
		}
	})
	if !ok {
		return ErrRecordQueueFull
	}
	return nil
}
