package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"sudooom.impostor/internal/store"
)

// EventKind 跟随者事件类型
type EventKind string

const (
	EventStatusChanged EventKind = "status_changed"
	EventRoomUpdated   EventKind = "room_updated"
	EventRoomClosed    EventKind = "room_closed"
)

// Event 推送给客户端的房间事件
type Event struct {
	Kind   EventKind `json:"kind"`
	Code   string    `json:"roomCode"`
	Status Status    `json:"status,omitempty"`
	Room   *Room     `json:"room,omitempty"`
}

const eventBuffer = 16

// Follower 一个客户端对房间的持续观察
// 订阅推送之外，按固定间隔重新读取状态并补做遗漏的阶段推进
type Follower struct {
	svc      *Service
	code     string
	playerID string

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	unsubscribe store.Unsubscribe
	stopWatch   func()
	closeOnce   sync.Once

	mu     sync.Mutex // 保护 events 的发送与关闭
	closed bool

	stateMu    sync.Mutex
	lastStatus Status
	roomClosed bool
}

// Follow 开始观察房间，调用方必须调用 Close 释放订阅
func (s *Service) Follow(ctx context.Context, code, playerID string) (*Follower, error) {
	if !ValidRoomCode(code) {
		return nil, ErrInvalidRoomCode
	}

	fctx, cancel := context.WithCancel(ctx)
	f := &Follower{
		svc:      s,
		code:     code,
		playerID: playerID,
		events:   make(chan Event, eventBuffer),
		ctx:      fctx,
		cancel:   cancel,
	}

	unsub, err := s.store.Subscribe(fctx, RoomPath(code), f.onSnapshot)
	if err != nil {
		cancel()
		return nil, err
	}
	f.unsubscribe = unsub

	stop, err := s.presence.WatchGone(fctx, RoomPath(code), f.onRoomGone)
	if err != nil {
		unsub()
		cancel()
		return nil, err
	}
	f.stopWatch = stop

	f.wg.Add(1)
	go f.reconcileLoop()

	s.logger.Debug("Following room", "roomCode", code, "playerId", playerID)
	return f, nil
}

// Events 事件通道，Close 后关闭
func (f *Follower) Events() <-chan Event {
	return f.events
}

// Close 释放订阅与定时器，可重复调用
func (f *Follower) Close() {
	f.closeOnce.Do(func() {
		f.cancel()
		f.unsubscribe()
		f.stopWatch()
		f.wg.Wait()

		f.mu.Lock()
		f.closed = true
		close(f.events)
		f.mu.Unlock()
		f.svc.logger.Debug("Stopped following room", "roomCode", f.code, "playerId", f.playerID)
	})
}

func (f *Follower) emit(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.events <- ev:
	case <-f.ctx.Done():
	}
}

// observe 记录房间状态，返回状态是否变化
func (f *Follower) observe(room *Room) bool {
	f.stateMu.Lock()
	defer f.stateMu.Unlock()
	if f.roomClosed || room.Status == f.lastStatus {
		return false
	}
	f.lastStatus = room.Status
	return true
}

func (f *Follower) onSnapshot(snap store.Snapshot) {
	if !snap.Exists() {
		// 交给 WatchGone 复查后判定
		return
	}
	var room Room
	if err := snap.Decode(&room); err != nil {
		f.svc.logger.Warn("Failed to decode room snapshot", "roomCode", f.code, "error", err)
		return
	}
	room.Code = f.code

	if f.observe(&room) {
		f.emit(Event{Kind: EventStatusChanged, Code: f.code, Status: room.Status, Room: room.RedactFor(f.playerID)})
		return
	}
	f.emit(Event{Kind: EventRoomUpdated, Code: f.code, Status: room.Status, Room: room.RedactFor(f.playerID)})
}

func (f *Follower) onRoomGone() {
	f.stateMu.Lock()
	if f.roomClosed {
		f.stateMu.Unlock()
		return
	}
	f.roomClosed = true
	f.stateMu.Unlock()

	f.emit(Event{Kind: EventRoomClosed, Code: f.code})
}

func (f *Follower) isClosed() bool {
	f.stateMu.Lock()
	defer f.stateMu.Unlock()
	return f.roomClosed
}

// confirmGone 等待复查间隔后再次读取，房间仍不存在才判定关闭
func (f *Follower) confirmGone() {
	timer := time.NewTimer(f.svc.cfg.HostLossRecheck)
	defer timer.Stop()
	select {
	case <-f.ctx.Done():
		return
	case <-timer.C:
	}

	if _, err := f.svc.GetRoom(f.ctx, f.code); errors.Is(err, ErrRoomNotFound) {
		f.svc.logger.Info("Followed room no longer exists", "roomCode", f.code, "playerId", f.playerID)
		f.onRoomGone()
	}
}

func (f *Follower) reconcileLoop() {
	defer f.wg.Done()
	ticker := time.NewTicker(f.svc.cfg.ReconcileInterval)
	defer ticker.Stop()

	f.reconcile()
	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			f.reconcile()
		}
	}
}

// reconcile 读取失败视为未知，下个周期重试
// 房间不存在时复查一次，仍不存在则推送关闭，覆盖从未出现过的房间
func (f *Follower) reconcile() {
	if f.isClosed() {
		return
	}
	room, err := f.svc.GetRoom(f.ctx, f.code)
	if errors.Is(err, ErrRoomNotFound) {
		f.confirmGone()
		return
	}
	if err != nil {
		if f.ctx.Err() == nil {
			f.svc.logger.Debug("Reconcile read failed", "roomCode", f.code, "error", err)
		}
		return
	}

	if f.observe(room) {
		f.emit(Event{Kind: EventStatusChanged, Code: f.code, Status: room.Status, Room: room.RedactFor(f.playerID)})
	}
	if room.Status == StatusReveal && room.GameState.AllReady() {
		if _, err := f.svc.TryAdvanceToDiscussion(f.ctx, f.code); err != nil && f.ctx.Err() == nil {
			f.svc.logger.Warn("Reconcile transition failed", "roomCode", f.code, "error", err)
		}
	}
}
