package store

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
)

// Notifier 文档变更通知的扇出通道
type Notifier interface {
	// Publish 通知 doc 已提交变更
	Publish(ctx context.Context, doc string) error
	// Subscribe 监听 doc 的变更通知，返回取消函数
	Subscribe(doc string, fn func()) (func(), error)
}

// LocalNotifier 进程内通知，单实例部署使用
type LocalNotifier struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string]map[uint64]func()
}

// NewLocalNotifier 创建进程内通知
func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{handlers: make(map[string]map[uint64]func())}
}

func (n *LocalNotifier) Publish(ctx context.Context, doc string) error {
	n.mu.RLock()
	fns := make([]func(), 0, len(n.handlers[doc]))
	for _, fn := range n.handlers[doc] {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

func (n *LocalNotifier) Subscribe(doc string, fn func()) (func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	id := n.nextID
	if n.handlers[doc] == nil {
		n.handlers[doc] = make(map[uint64]func())
	}
	n.handlers[doc][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.handlers[doc], id)
			if len(n.handlers[doc]) == 0 {
				delete(n.handlers, doc)
			}
		})
	}, nil
}

// SubjectPrefix NATS 变更通知主题前缀
const SubjectPrefix = "impostor.store.changed."

// BuildChangedSubject 构建文档变更主题，如 impostor.store.changed.rooms.482913
func BuildChangedSubject(doc string) string {
	return SubjectPrefix + strings.ReplaceAll(doc, "/", ".")
}

// NATSNotifier 通过 NATS 在多个网关实例之间扇出变更通知
type NATSNotifier struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// NewNATSNotifier 创建 NATS 通知
func NewNATSNotifier(nc *nats.Conn) *NATSNotifier {
	return &NATSNotifier{nc: nc, logger: slog.Default()}
}

func (n *NATSNotifier) Publish(ctx context.Context, doc string) error {
	return n.nc.Publish(BuildChangedSubject(doc), []byte(doc))
}

func (n *NATSNotifier) Subscribe(doc string, fn func()) (func(), error) {
	sub, err := n.nc.Subscribe(BuildChangedSubject(doc), func(msg *nats.Msg) {
		fn()
	})
	if err != nil {
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed {
				n.logger.Warn("Failed to unsubscribe store notice", "doc", doc, "error", err)
			}
		})
	}, nil
}
