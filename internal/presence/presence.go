// Package presence 断线清理与房间消失检测
package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sudooom.impostor/internal/store"
)

// DefaultRecheckDelay 观察到路径消失后的复查延迟
const DefaultRecheckDelay = 300 * time.Millisecond

// Handler 基于存储断开动作的在线状态处理器
type Handler struct {
	store   store.Store
	recheck time.Duration
	logger  *slog.Logger
}

// NewHandler 创建处理器
func NewHandler(st store.Store, recheck time.Duration) *Handler {
	if recheck <= 0 {
		recheck = DefaultRecheckDelay
	}
	return &Handler{
		store:   st,
		recheck: recheck,
		logger:  slog.Default(),
	}
}

// ArmCleanup 登记连接断开时删除 path
func (h *Handler) ArmCleanup(ctx context.Context, path string) error {
	if err := h.store.OnDisconnect(ctx, path, store.RemoveOnDisconnect()); err != nil {
		return err
	}
	h.logger.Debug("Disconnect cleanup armed", "path", path)
	return nil
}

// WatchGone 监听 path：见过有值之后变为空，且复查仍为空时调用 onGone（只调用一次）
// 复查读取失败视为未知，不触发
func (h *Handler) WatchGone(ctx context.Context, path string, onGone func()) (stop func(), err error) {
	wctx, cancel := context.WithCancel(ctx)
	w := &goneWatch{
		h:      h,
		ctx:    wctx,
		path:   path,
		onGone: onGone,
	}

	unsub, err := h.store.Subscribe(wctx, path, w.onSnapshot)
	if err != nil {
		cancel()
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			unsub()
		})
	}, nil
}

type goneWatch struct {
	h      *Handler
	ctx    context.Context
	path   string
	onGone func()

	mu       sync.Mutex
	seen     bool
	checking bool
	fired    bool
}

func (w *goneWatch) onSnapshot(snap store.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if snap.Exists() {
		w.seen = true
		return
	}
	if !w.seen || w.fired || w.checking {
		return
	}
	w.checking = true
	go w.confirm()
}

// confirm 延迟后用一致性读取复查
func (w *goneWatch) confirm() {
	defer func() {
		w.mu.Lock()
		w.checking = false
		w.mu.Unlock()
	}()

	timer := time.NewTimer(w.h.recheck)
	defer timer.Stop()
	select {
	case <-w.ctx.Done():
		return
	case <-timer.C:
	}

	snap, err := w.h.store.Get(w.ctx, w.path)
	if err != nil {
		w.h.logger.Warn("Presence recheck failed", "path", w.path, "error", err)
		return
	}
	if snap.Exists() {
		w.h.logger.Debug("Spurious empty snapshot ignored", "path", w.path)
		return
	}

	w.mu.Lock()
	if w.fired || w.ctx.Err() != nil {
		w.mu.Unlock()
		return
	}
	w.fired = true
	w.mu.Unlock()

	w.h.logger.Info("Watched path gone", "path", w.path)
	w.onGone()
}
