package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sudooom.impostor/internal/connection"
	"sudooom.impostor/internal/middleware"
	"sudooom.impostor/internal/repository"
	"sudooom.impostor/internal/session"
	"sudooom.impostor/internal/store"
	appErrors "sudooom.impostor/pkg/errors"
	"sudooom.impostor/pkg/response"
)

// sseKeepaliveInterval 事件流空闲时写注释行并刷新会话活跃时间，须小于会话超时
const sseKeepaliveInterval = 15 * time.Second

// ResultLister 查询历史对局
type ResultLister interface {
	ListByRoom(ctx context.Context, roomCode string, limit int) ([]*repository.GameResult, error)
}

// RoomHandler 房间处理器
// 每个客户端会话持有独立的存储连接，会话关闭时其断开动作生效
type RoomHandler struct {
	connector store.Connector
	deps      session.Dependencies
	cfg       session.Config
	manager   *connection.Manager
	results   ResultLister
	logger    *slog.Logger
	keepalive time.Duration
}

// NewRoomHandler 创建房间处理器，results 可为 nil
func NewRoomHandler(connector store.Connector, deps session.Dependencies, cfg session.Config, manager *connection.Manager, results ResultLister) *RoomHandler {
	return &RoomHandler{
		connector: connector,
		deps:      deps,
		cfg:       cfg,
		manager:   manager,
		results:   results,
		logger:    slog.Default(),
		keepalive: sseKeepaliveInterval,
	}
}

// CreateRoomRequest 创建房间请求
type CreateRoomRequest struct {
	Name     string `json:"name" binding:"required,max=32"`
	UID      string `json:"uid"`
	AvatarID int    `json:"avatarId"`
}

// JoinRoomRequest 加入房间请求
type JoinRoomRequest struct {
	Name               string         `json:"name" binding:"required,max=32"`
	UID                string         `json:"uid"`
	AvatarID           int            `json:"avatarId"`
	CustomAvatarConfig map[string]any `json:"customAvatarConfig"`
}

// VoteRequest 投票请求
type VoteRequest struct {
	TargetID string `json:"targetId" binding:"required"`
}

// SessionResponse 建立会话后返回
type SessionResponse struct {
	SessionID string        `json:"sessionId"`
	RoomCode  string        `json:"roomCode"`
	PlayerID  string        `json:"playerId"`
	Room      *session.Room `json:"room,omitempty"`
}

func (h *RoomHandler) openSession(ctx context.Context) (store.Conn, *session.Service, error) {
	conn, err := h.connector.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	return conn, session.NewService(conn, h.deps, h.cfg), nil
}

// fail 输出会话错误，携带修正建议时一并返回
func (h *RoomHandler) fail(c *gin.Context, err error) {
	appErr := toAppError(err)
	if appErr.Code == appErrors.CodeServerError {
		h.logger.Error("Unhandled session error", "path", c.FullPath(), "error", err)
	}
	if suggestion, ok := session.SuggestionOf(err); ok {
		response.ErrorWithData(c, appErr, gin.H{"suggestion": suggestion, "retryable": session.IsRetryable(err)})
		return
	}
	if session.IsRetryable(err) {
		response.ErrorWithData(c, appErr, gin.H{"retryable": true})
		return
	}
	response.ErrorFromAppError(c, appErr)
}

// CreateRoom 创建房间
// POST /api/v1/rooms
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	conn, svc, err := h.openSession(ctx)
	if err != nil {
		h.logger.Error("Failed to open store connection", "error", err)
		response.ErrorFromAppError(c, appErrors.ErrStoreUnavailable.Wrap(err))
		return
	}

	code, err := svc.NewRoomCode(ctx)
	if err == nil {
		var room *session.Room
		room, err = svc.CreateRoom(ctx, code, session.HostInfo{UID: req.UID, Name: req.Name, AvatarID: req.AvatarID})
		if err == nil {
			client := connection.New(conn, svc, code, session.HostID)
			h.manager.Add(client)
			response.Success(c, SessionResponse{
				SessionID: client.ID(),
				RoomCode:  code,
				PlayerID:  session.HostID,
				Room:      room,
			})
			return
		}
	}

	h.closeConn(conn)
	h.fail(c, err)
}

// JoinRoom 加入房间
// POST /api/v1/rooms/:code/players
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	code := c.Param("code")
	if !session.ValidRoomCode(code) {
		response.ErrorFromAppError(c, appErrors.ErrInvalidRoomCode)
		return
	}

	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	conn, svc, err := h.openSession(ctx)
	if err != nil {
		h.logger.Error("Failed to open store connection", "error", err)
		response.ErrorFromAppError(c, appErrors.ErrStoreUnavailable.Wrap(err))
		return
	}

	player, err := svc.JoinRoom(ctx, code, session.PlayerInfo{
		UID:                req.UID,
		Name:               req.Name,
		AvatarID:           req.AvatarID,
		CustomAvatarConfig: req.CustomAvatarConfig,
	})
	if err != nil {
		h.closeConn(conn)
		h.fail(c, err)
		return
	}

	client := connection.New(conn, svc, code, player.ID)
	h.manager.Add(client)
	response.Success(c, SessionResponse{
		SessionID: client.ID(),
		RoomCode:  code,
		PlayerID:  player.ID,
	})
}

// GetRoom 当前房间状态，仅包含本人的角色信息
// GET /api/v1/rooms/:code
func (h *RoomHandler) GetRoom(c *gin.Context) {
	client := middleware.GetConnection(c)
	room, err := client.Service().GetRoom(c.Request.Context(), client.RoomCode())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, room.RedactFor(client.PlayerID()))
}

// StartGame 房主开始游戏
// POST /api/v1/rooms/:code/start
func (h *RoomHandler) StartGame(c *gin.Context) {
	client := middleware.GetConnection(c)

	var settings session.Settings
	if err := c.ShouldBindJSON(&settings); err != nil && !errors.Is(err, io.EOF) {
		response.InvalidParams(c, err.Error())
		return
	}

	gs, err := client.Service().StartGame(c.Request.Context(), client.RoomCode(), client.PlayerID(), nil, settings)
	if err != nil {
		h.fail(c, err)
		return
	}

	ready, total := gs.ReadyCount()
	response.Success(c, gin.H{
		"phase":         gs.Phase,
		"impostorCount": gs.ImpostorCount,
		"language":      gs.Language,
		"category":      gs.Category,
		"ready":         ready,
		"total":         total,
	})
}

// MarkReady 标记本人已查看身份
// POST /api/v1/rooms/:code/ready
func (h *RoomHandler) MarkReady(c *gin.Context) {
	client := middleware.GetConnection(c)
	advanced, err := client.Service().MarkReady(c.Request.Context(), client.RoomCode(), client.PlayerID())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"advanced": advanced})
}

// SubmitVote 投票
// POST /api/v1/rooms/:code/votes
func (h *RoomHandler) SubmitVote(c *gin.Context) {
	client := middleware.GetConnection(c)

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err.Error())
		return
	}

	if err := client.Service().SubmitVote(c.Request.Context(), client.RoomCode(), client.PlayerID(), req.TargetID); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, nil)
}

// ConcludeVoting 房主结束投票
// POST /api/v1/rooms/:code/conclude
func (h *RoomHandler) ConcludeVoting(c *gin.Context) {
	client := middleware.GetConnection(c)
	outcome, err := client.Service().ConcludeVoting(c.Request.Context(), client.RoomCode(), client.PlayerID())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, outcome)
}

// PlayAgain 房主回到大厅
// POST /api/v1/rooms/:code/play-again
func (h *RoomHandler) PlayAgain(c *gin.Context) {
	client := middleware.GetConnection(c)
	if err := client.Service().PlayAgain(c.Request.Context(), client.RoomCode(), client.PlayerID()); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, nil)
}

// LeaveRoom 离开房间并结束会话
// DELETE /api/v1/rooms/:code/players/me
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	client := middleware.GetConnection(c)
	if err := client.Service().LeaveRoom(c.Request.Context(), client.RoomCode(), client.PlayerID()); err != nil {
		h.fail(c, err)
		return
	}

	h.manager.Remove(client.ID())
	if err := client.Close(c.Request.Context()); err != nil {
		h.logger.Warn("Failed to close store connection", "sessionId", client.ID(), "error", err)
	}
	if client.PlayerID() == session.HostID {
		h.closeRoomSessions(client.RoomCode())
	}
	response.Success(c, nil)
}

// closeRoomSessions 房间已删除，结束房间内其余会话
func (h *RoomHandler) closeRoomSessions(code string) {
	closed, err := h.manager.CloseRoom(context.Background(), code)
	if err != nil {
		h.logger.Warn("Failed to close room sessions", "roomCode", code, "error", err)
	}
	if len(closed) > 0 {
		h.logger.Info("Room sessions closed", "roomCode", code, "count", len(closed))
	}
}

// Heartbeat 刷新会话活跃时间
// POST /api/v1/heartbeat
func (h *RoomHandler) Heartbeat(c *gin.Context) {
	client := middleware.GetConnection(c)
	response.Success(c, gin.H{"roomCode": client.RoomCode(), "playerId": client.PlayerID()})
}

// Events 房间事件流 (SSE)，房间关闭或会话关闭后结束
// 流打开期间定期写注释行，会话不会被判定为空闲
// GET /api/v1/rooms/:code/events
func (h *RoomHandler) Events(c *gin.Context) {
	client := middleware.GetConnection(c)

	follower, err := client.Service().Follow(c.Request.Context(), client.RoomCode(), client.PlayerID())
	if err != nil {
		h.fail(c, err)
		return
	}
	defer follower.Close()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	events := follower.Events()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			client.Touch()
			c.SSEvent(string(ev.Kind), ev)
			return ev.Kind != session.EventRoomClosed
		case <-ticker.C:
			client.Touch()
			_, err := io.WriteString(w, ": keepalive\n\n")
			return err == nil
		case <-client.Done():
			if client.RoomClosed() {
				c.SSEvent(string(session.EventRoomClosed), roomClosedEvent(client))
			}
			return false
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func roomClosedEvent(client *connection.Connection) session.Event {
	return session.Event{Kind: session.EventRoomClosed, Code: client.RoomCode()}
}

// ListResults 房间历史对局
// GET /api/v1/rooms/:code/results
func (h *RoomHandler) ListResults(c *gin.Context) {
	if h.results == nil {
		response.Success(c, gin.H{"list": []*repository.GameResult{}})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	list, err := h.results.ListByRoom(c.Request.Context(), c.Param("code"), limit)
	if err != nil {
		h.logger.Error("Failed to list results", "roomCode", c.Param("code"), "error", err)
		response.ErrorFromAppError(c, appErrors.ErrDBError.Wrap(err))
		return
	}
	response.Success(c, gin.H{"list": list})
}

func (h *RoomHandler) closeConn(conn store.Conn) {
	// 请求可能已取消，断开动作仍需执行
	if err := conn.Close(context.Background()); err != nil && !errors.Is(err, store.ErrClosed) {
		h.logger.Warn("Failed to close store connection", "error", err)
	}
}
