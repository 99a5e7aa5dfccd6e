package store

import (
	"context"
	"log/slog"
	"sync"
)

// watch 订阅泵：收到变更通知后重新读取路径，按顺序投递，合并突发通知
type watch struct {
	path   string
	read   func(ctx context.Context) (any, error)
	fn     func(Snapshot)
	kick   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	onStop func()
	logger *slog.Logger

	delivered bool
	last      any
}

// newWatchDeferred 创建订阅泵，调用方登记通知源后再调用 start
func newWatchDeferred(path string, read func(ctx context.Context) (any, error), fn func(Snapshot)) *watch {
	ctx, cancel := context.WithCancel(context.Background())
	w := &watch{
		path:   path,
		read:   read,
		fn:     fn,
		kick:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		logger: slog.Default(),
	}
	return w
}

// start 启动订阅泵并投递初始值
func (w *watch) start() {
	go w.run()
	w.notify()
}

// notify 非阻塞地唤醒订阅泵
func (w *watch) notify() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

func (w *watch) run() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.kick:
		}

		value, err := w.read(w.ctx)
		if err != nil {
			if w.ctx.Err() != nil {
				return
			}
			w.logger.Warn("Failed to read subscribed path", "path", w.path, "error", err)
			continue
		}
		if w.delivered && equalValues(w.last, value) {
			continue
		}
		w.delivered = true
		w.last = value
		if w.ctx.Err() != nil {
			return
		}
		w.fn(Snapshot{Path: w.path, Value: clone(value)})
	}
}

func (w *watch) stop() {
	w.once.Do(func() {
		w.cancel()
		if w.onStop != nil {
			w.onStop()
		}
	})
}
