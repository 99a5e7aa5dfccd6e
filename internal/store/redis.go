package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis 键布局
const (
	DefaultKeyPrefix = "impostor:"

	docKeySegment      = "doc:"
	presenceKeySegment = "presence:"
	actionsKeySegment  = "ondisconnect:"
	sessionsKeySegment = "sessions"
)

// RedisOptions Redis 存储参数
type RedisOptions struct {
	KeyPrefix         string
	DocumentTTL       time.Duration // 文档过期时间
	PresenceTTL       time.Duration // 连接存活键过期时间
	HeartbeatInterval time.Duration // 存活键续期间隔
	MaxRetries        int           // 乐观事务冲突重试次数
}

func (o *RedisOptions) withDefaults() {
	if o.KeyPrefix == "" {
		o.KeyPrefix = DefaultKeyPrefix
	}
	if o.DocumentTTL <= 0 {
		o.DocumentTTL = 48 * time.Hour
	}
	if o.PresenceTTL <= 0 {
		o.PresenceTTL = 30 * time.Second
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 10 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 16
	}
}

// Redis 基于 Redis 的共享存储
// 路径的前两段（如 rooms/482913）构成一个 JSON 文档，文档内的多键更新通过 WATCH/MULTI 原子提交
type Redis struct {
	client   *redis.Client
	notifier Notifier
	opts     RedisOptions
	logger   *slog.Logger
}

// NewRedis 创建 Redis 存储
func NewRedis(client *redis.Client, notifier Notifier, opts RedisOptions) *Redis {
	opts.withDefaults()
	if notifier == nil {
		notifier = NewLocalNotifier()
	}
	return &Redis{
		client:   client,
		notifier: notifier,
		opts:     opts,
		logger:   slog.Default(),
	}
}

func (r *Redis) docKey(doc string) string {
	return r.opts.KeyPrefix + docKeySegment + doc
}

func (r *Redis) presenceKey(connID string) string {
	return r.opts.KeyPrefix + presenceKeySegment + connID
}

func (r *Redis) actionsKey(connID string) string {
	return r.opts.KeyPrefix + actionsKeySegment + connID
}

func (r *Redis) sessionsKey() string {
	return r.opts.KeyPrefix + sessionsKeySegment
}

// splitDoc 将路径拆分为文档名与文档内路径
func splitDoc(path string) (string, []string, error) {
	segs, err := SplitPath(path)
	if err != nil {
		return "", nil, err
	}
	if len(segs) < 2 {
		return "", nil, fmt.Errorf("%w: %q addresses no document", ErrInvalidPath, path)
	}
	return segs[0] + "/" + segs[1], segs[2:], nil
}

// Connect 建立连接：登记会话并写入存活键，后台定期续期
func (r *Redis) Connect(ctx context.Context) (Conn, error) {
	id := uuid.NewString()
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, r.sessionsKey(), id)
	pipe.Set(ctx, r.presenceKey(id), time.Now().UnixMilli(), r.opts.PresenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("register store connection: %w", err)
	}

	hbCtx, cancel := context.WithCancel(context.Background())
	c := &redisConn{
		r:       r,
		id:      id,
		cancel:  cancel,
		watches: make(map[*watch]struct{}),
	}
	go c.heartbeat(hbCtx)
	return c, nil
}

func (r *Redis) read(ctx context.Context, doc string, rest []string) (any, error) {
	data, err := r.client.Get(ctx, r.docKey(doc)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", doc, err)
	}
	return getAt(root, rest), nil
}

// mutate 以乐观事务读改写整个文档，冲突时重试
func (r *Redis) mutate(ctx context.Context, doc string, updates []pathUpdate) error {
	key := r.docKey(doc)
	for attempt := 0; attempt < r.opts.MaxRetries; attempt++ {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			var root any
			data, err := tx.Get(ctx, key).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			default:
				if err := json.Unmarshal(data, &root); err != nil {
					return fmt.Errorf("decode document %s: %w", doc, err)
				}
			}

			for _, u := range updates {
				root = setAt(root, u.segs, u.value)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if root == nil {
					pipe.Del(ctx, key)
					return nil
				}
				encoded, err := json.Marshal(root)
				if err != nil {
					return err
				}
				pipe.Set(ctx, key, encoded, r.opts.DocumentTTL)
				return nil
			})
			return err
		}, key)

		if err == nil {
			if err := r.notifier.Publish(ctx, doc); err != nil {
				r.logger.Warn("Failed to publish store change", "doc", doc, "error", err)
			}
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: %s", ErrConflict, doc)
}

func (r *Redis) set(ctx context.Context, path string, value any) error {
	doc, rest, err := splitDoc(path)
	if err != nil {
		return err
	}
	v, err := normalize(value)
	if err != nil {
		return fmt.Errorf("normalize value: %w", err)
	}
	return r.mutate(ctx, doc, []pathUpdate{{segs: rest, value: v}})
}

func (r *Redis) update(ctx context.Context, path string, values map[string]any) error {
	base, err := SplitPath(path)
	if err != nil {
		return err
	}
	updates, err := expandUpdate(base, values)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	var doc string
	for i, u := range updates {
		if len(u.segs) < 2 {
			return fmt.Errorf("%w: update key addresses no document", ErrInvalidPath)
		}
		d := u.segs[0] + "/" + u.segs[1]
		if doc != "" && d != doc {
			return ErrCrossDocument
		}
		doc = d
		updates[i].segs = u.segs[2:]
	}
	return r.mutate(ctx, doc, updates)
}

// runActions 执行并清除某连接登记的断开动作
func (r *Redis) runActions(ctx context.Context, connID string) error {
	key := r.actionsKey(connID)
	actions, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return err
	}
	for path, raw := range actions {
		var action DisconnectAction
		if err := json.Unmarshal([]byte(raw), &action); err != nil {
			r.logger.Warn("Skip malformed on-disconnect action", "conn_id", connID, "path", path, "error", err)
			continue
		}
		var value any
		if action.Op == OpSet {
			value = action.Value
		}
		if err := r.set(ctx, path, value); err != nil {
			return fmt.Errorf("run on-disconnect action for %s: %w", path, err)
		}
		r.logger.Debug("On-disconnect action executed", "conn_id", connID, "path", path, "op", action.Op)
	}
	return r.client.Del(ctx, key, r.presenceKey(connID)).Err()
}

// ReapOnce 扫描存活键已过期的连接并执行其断开动作，返回处理的连接数
func (r *Redis) ReapOnce(ctx context.Context) (int, error) {
	ids, err := r.client.SMembers(ctx, r.sessionsKey()).Result()
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, id := range ids {
		alive, err := r.client.Exists(ctx, r.presenceKey(id)).Result()
		if err != nil {
			return reaped, err
		}
		if alive > 0 {
			continue
		}
		// SREM 成功的实例负责执行动作，多个实例并发回收时只执行一次
		removed, err := r.client.SRem(ctx, r.sessionsKey(), id).Result()
		if err != nil {
			return reaped, err
		}
		if removed == 0 {
			continue
		}
		if err := r.runActions(ctx, id); err != nil {
			r.logger.Error("Failed to run on-disconnect actions", "conn_id", id, "error", err)
			continue
		}
		reaped++
	}
	return reaped, nil
}

// RunReaper 周期性回收失联连接（阻塞，应在 goroutine 中调用）
func (r *Redis) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("Store reaper started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Store reaper stopped")
			return
		case <-ticker.C:
			n, err := r.ReapOnce(ctx)
			if err != nil {
				r.logger.Warn("Store reaper pass failed", "error", err)
				continue
			}
			if n > 0 {
				r.logger.Info("Reaped lost store connections", "count", n)
			}
		}
	}
}

type redisConn struct {
	r      *Redis
	id     string
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	watches map[*watch]struct{}
}

func (c *redisConn) ID() string {
	return c.id
}

func (c *redisConn) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(c.r.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.r.client.Expire(ctx, c.r.presenceKey(c.id), c.r.opts.PresenceTTL).Err(); err != nil {
				c.r.logger.Warn("Failed to refresh store presence", "conn_id", c.id, "error", err)
			}
		}
	}
}

func (c *redisConn) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *redisConn) Get(ctx context.Context, path string) (Snapshot, error) {
	if err := c.checkOpen(); err != nil {
		return Snapshot{}, err
	}
	doc, rest, err := splitDoc(path)
	if err != nil {
		return Snapshot{}, err
	}
	value, err := c.r.read(ctx, doc, rest)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Path: path, Value: value}, nil
}

func (c *redisConn) Subscribe(ctx context.Context, path string, fn func(Snapshot)) (Unsubscribe, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	doc, rest, err := splitDoc(path)
	if err != nil {
		return nil, err
	}

	w := newWatchDeferred(path, func(ctx context.Context) (any, error) {
		return c.r.read(ctx, doc, rest)
	}, fn)
	cancelNotice, err := c.r.notifier.Subscribe(doc, w.notify)
	if err != nil {
		return nil, fmt.Errorf("subscribe store notice: %w", err)
	}
	w.onStop = cancelNotice
	w.start()

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

func (c *redisConn) Set(ctx context.Context, path string, value any) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.r.set(ctx, path, value)
}

func (c *redisConn) Update(ctx context.Context, path string, values map[string]any) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.r.update(ctx, path, values)
}

func (c *redisConn) Remove(ctx context.Context, path string) error {
	return c.Set(ctx, path, nil)
}

func (c *redisConn) OnDisconnect(ctx context.Context, path string, action DisconnectAction) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if _, _, err := splitDoc(path); err != nil {
		return err
	}
	encoded, err := json.Marshal(action)
	if err != nil {
		return err
	}
	return c.r.client.HSet(ctx, c.r.actionsKey(c.id), path, encoded).Err()
}

// Close 停止续期，执行断开动作并注销会话
func (c *redisConn) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	watches := make([]*watch, 0, len(c.watches))
	for w := range c.watches {
		watches = append(watches, w)
	}
	c.watches = nil
	c.mu.Unlock()

	c.cancel()
	for _, w := range watches {
		w.stop()
	}

	removed, err := c.r.client.SRem(ctx, c.r.sessionsKey(), c.id).Result()
	if err != nil {
		return fmt.Errorf("unregister store connection: %w", err)
	}
	if removed == 0 {
		// 已被回收器处理
		return nil
	}
	return c.r.runActions(ctx, c.id)
}
