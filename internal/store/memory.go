package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Memory 进程内存储，所有连接共享同一棵树
type Memory struct {
	mu      sync.RWMutex
	root    any
	watches map[*watch][]string
	logger  *slog.Logger
}

// NewMemory 创建内存存储
func NewMemory() *Memory {
	return &Memory{
		watches: make(map[*watch][]string),
		logger:  slog.Default(),
	}
}

// Connect 建立一个内存连接
func (m *Memory) Connect(ctx context.Context) (Conn, error) {
	return &memoryConn{
		mem:     m,
		id:      uuid.NewString(),
		watches: make(map[*watch]struct{}),
	}, nil
}

func (m *Memory) get(segs []string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return getAt(m.root, segs)
}

// apply 在一次加锁内写入所有路径，然后通知受影响的订阅
func (m *Memory) apply(updates []pathUpdate) {
	m.mu.Lock()
	root := m.root
	for _, u := range updates {
		root = setAt(root, u.segs, u.value)
	}
	m.root = root

	var affected []*watch
	for w, segs := range m.watches {
		for _, u := range updates {
			if overlaps(segs, u.segs) {
				affected = append(affected, w)
				break
			}
		}
	}
	m.mu.Unlock()

	for _, w := range affected {
		w.notify()
	}
}

func (m *Memory) subscribe(path string, segs []string, fn func(Snapshot)) *watch {
	w := newWatchDeferred(path, func(ctx context.Context) (any, error) {
		return m.get(segs), nil
	}, fn)
	m.mu.Lock()
	m.watches[w] = segs
	m.mu.Unlock()
	w.onStop = func() {
		m.mu.Lock()
		delete(m.watches, w)
		m.mu.Unlock()
	}
	w.start()
	return w
}

type memoryConn struct {
	mem *Memory
	id  string

	mu      sync.Mutex
	closed  bool
	actions []pendingAction
	watches map[*watch]struct{}
}

type pendingAction struct {
	path   string
	action DisconnectAction
}

func (c *memoryConn) ID() string {
	return c.id
}

func (c *memoryConn) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *memoryConn) Get(ctx context.Context, path string) (Snapshot, error) {
	if err := c.checkOpen(); err != nil {
		return Snapshot{}, err
	}
	segs, err := SplitPath(path)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Path: path, Value: clone(c.mem.get(segs))}, nil
}

func (c *memoryConn) Subscribe(ctx context.Context, path string, fn func(Snapshot)) (Unsubscribe, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	segs, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	w := c.mem.subscribe(path, segs, fn)
	c.mu.Lock()
	c.watches[w] = struct{}{}
	c.mu.Unlock()
	return func() {
		w.stop()
		c.mu.Lock()
		delete(c.watches, w)
		c.mu.Unlock()
	}, nil
}

func (c *memoryConn) Set(ctx context.Context, path string, value any) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	segs, err := SplitPath(path)
	if err != nil {
		return err
	}
	v, err := normalize(value)
	if err != nil {
		return fmt.Errorf("normalize value: %w", err)
	}
	c.mem.apply([]pathUpdate{{segs: segs, value: v}})
	return nil
}

func (c *memoryConn) Update(ctx context.Context, path string, values map[string]any) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	base, err := SplitPath(path)
	if err != nil {
		return err
	}
	updates, err := expandUpdate(base, values)
	if err != nil {
		return err
	}
	c.mem.apply(updates)
	return nil
}

func (c *memoryConn) Remove(ctx context.Context, path string) error {
	return c.Set(ctx, path, nil)
}

func (c *memoryConn) OnDisconnect(ctx context.Context, path string, action DisconnectAction) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if _, err := SplitPath(path); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, a := range c.actions {
		if a.path == path {
			c.actions[i].action = action
			return nil
		}
	}
	c.actions = append(c.actions, pendingAction{path: path, action: action})
	return nil
}

// Close 按登记顺序执行断开动作，并释放该连接的全部订阅
func (c *memoryConn) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	actions := c.actions
	c.actions = nil
	watches := make([]*watch, 0, len(c.watches))
	for w := range c.watches {
		watches = append(watches, w)
	}
	c.watches = nil
	c.mu.Unlock()

	for _, w := range watches {
		w.stop()
	}
	for _, a := range actions {
		segs, _ := SplitPath(a.path)
		var value any
		if a.action.Op == OpSet {
			v, err := normalize(a.action.Value)
			if err != nil {
				c.mem.logger.Warn("Skip invalid on-disconnect value", "path", a.path, "error", err)
				continue
			}
			value = v
		}
		c.mem.apply([]pathUpdate{{segs: segs, value: value}})
		c.mem.logger.Debug("On-disconnect action executed", "conn_id", c.id, "path", a.path, "op", a.action.Op)
	}
	return nil
}
