// Package session 房间生命周期状态机
package session

import (
	"context"
	"log/slog"
	"time"

	"sudooom.impostor/internal/presence"
	"sudooom.impostor/internal/roles"
	"sudooom.impostor/internal/store"
	"sudooom.impostor/internal/translate"
	"sudooom.impostor/internal/words"
)

// WordSource 词库
type WordSource interface {
	RandomWord(categoryKeys []string) (words.Word, error)
}

// Translator 翻译服务
type Translator interface {
	TranslateGameContent(ctx context.Context, word, hint, lang string) (translate.Content, error)
}

// ResultRecorder 记录已结束的回合
type ResultRecorder interface {
	RecordResult(ctx context.Context, result *Result) error
}

// Config 会话参数
type Config struct {
	MinPlayers        int
	CodeRetries       int
	ReconcileInterval time.Duration
	HostLossRecheck   time.Duration
}

func (c *Config) withDefaults() {
	if c.MinPlayers <= 0 {
		c.MinPlayers = 3
	}
	if c.CodeRetries <= 0 {
		c.CodeRetries = 5
	}
	if c.ReconcileInterval <= 0 {
		c.ReconcileInterval = 2 * time.Second
	}
	if c.HostLossRecheck <= 0 {
		c.HostLossRecheck = presence.DefaultRecheckDelay
	}
}

// Dependencies 外部协作者
type Dependencies struct {
	Words      WordSource
	Translator Translator
	Recorder   ResultRecorder // 可选
}

// Service 一个客户端视角的会话服务，所有写入都经过该客户端的存储连接
type Service struct {
	store      store.Store
	words      WordSource
	translator Translator
	recorder   ResultRecorder
	presence   *presence.Handler
	cfg        Config
	logger     *slog.Logger

	now  func() time.Time
	rand roles.Rand
}

// NewService 创建会话服务
func NewService(st store.Store, deps Dependencies, cfg Config) *Service {
	cfg.withDefaults()
	return &Service{
		store:      st,
		words:      deps.Words,
		translator: deps.Translator,
		recorder:   deps.Recorder,
		presence:   presence.NewHandler(st, cfg.HostLossRecheck),
		cfg:        cfg,
		logger:     slog.Default(),
		now:        time.Now,
		rand:       defaultRand{},
	}
}

func (s *Service) nowMillis() int64 {
	return s.now().UnixMilli()
}

// GetRoom 一致性读取房间
func (s *Service) GetRoom(ctx context.Context, code string) (*Room, error) {
	if !ValidRoomCode(code) {
		return nil, ErrInvalidRoomCode
	}
	snap, err := s.store.Get(ctx, RoomPath(code))
	if err != nil {
		return nil, retryable(ErrStoreUnavailable, "failed to read room", err)
	}
	if !snap.Exists() {
		return nil, ErrRoomNotFound
	}
	var room Room
	if err := snap.Decode(&room); err != nil {
		return nil, err
	}
	room.Code = code
	return &room, nil
}
