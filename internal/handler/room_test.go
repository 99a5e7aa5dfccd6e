package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.impostor/internal/connection"
	"sudooom.impostor/internal/middleware"
	"sudooom.impostor/internal/repository"
	"sudooom.impostor/internal/roles"
	"sudooom.impostor/internal/session"
	"sudooom.impostor/internal/store"
	"sudooom.impostor/internal/translate"
	"sudooom.impostor/internal/words"
	appErrors "sudooom.impostor/pkg/errors"
)

// APIResponse 用于解析响应体
type APIResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type failingTranslator struct{}

func (failingTranslator) TranslateGameContent(ctx context.Context, word, hint, lang string) (translate.Content, error) {
	return translate.Content{}, translate.ErrUnavailable
}

type staticResults struct {
	list []*repository.GameResult
}

func (s staticResults) ListByRoom(ctx context.Context, roomCode string, limit int) ([]*repository.GameResult, error) {
	return s.list, nil
}

type testServer struct {
	engine  *gin.Engine
	manager *connection.Manager
	mem     *store.Memory
}

// setupTestServer 内存存储上的完整路由
func setupTestServer(t *testing.T, translator session.Translator, results ResultLister) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog, err := words.Default()
	require.NoError(t, err)

	mem := store.NewMemory()
	manager := connection.NewManager()
	h := NewRoomHandler(mem, session.Dependencies{Words: catalog, Translator: translator}, session.Config{
		ReconcileInterval: 50 * time.Millisecond,
		HostLossRecheck:   20 * time.Millisecond,
	}, manager, results)
	h.keepalive = 20 * time.Millisecond

	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.POST("/rooms", h.CreateRoom)
	v1.POST("/rooms/:code/players", h.JoinRoom)
	v1.GET("/rooms/:code/results", h.ListResults)

	authenticated := v1.Group("")
	authenticated.Use(middleware.SessionAuth(manager))
	authenticated.POST("/heartbeat", h.Heartbeat)
	room := authenticated.Group("/rooms/:code")
	room.GET("", h.GetRoom)
	room.GET("/events", h.Events)
	room.GET("/ws", h.EventsWS)
	room.POST("/start", h.StartGame)
	room.POST("/ready", h.MarkReady)
	room.POST("/votes", h.SubmitVote)
	room.POST("/conclude", h.ConcludeVoting)
	room.POST("/play-again", h.PlayAgain)
	room.DELETE("/players/me", h.LeaveRoom)

	t.Cleanup(func() {
		for _, c := range manager.GetAllConnections() {
			_ = c.Close(context.Background())
		}
	})
	return &testServer{engine: r, manager: manager, mem: mem}
}

func (s *testServer) do(t *testing.T, method, path, sessionID string, body any) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(middleware.SessionHeader, sessionID)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func (s *testServer) createRoom(t *testing.T) SessionResponse {
	t.Helper()
	_, resp := s.do(t, http.MethodPost, "/api/v1/rooms", "", gin.H{"name": "Host", "avatarId": 3})
	require.Equal(t, appErrors.CodeSuccess, resp.Code, resp.Message)
	var sess SessionResponse
	require.NoError(t, json.Unmarshal(resp.Data, &sess))
	return sess
}

func (s *testServer) join(t *testing.T, code, name string) SessionResponse {
	t.Helper()
	_, resp := s.do(t, http.MethodPost, "/api/v1/rooms/"+code+"/players", "", gin.H{"name": name})
	require.Equal(t, appErrors.CodeSuccess, resp.Code, resp.Message)
	var sess SessionResponse
	require.NoError(t, json.Unmarshal(resp.Data, &sess))
	return sess
}

func (s *testServer) room(t *testing.T, sess SessionResponse) *session.Room {
	t.Helper()
	_, resp := s.do(t, http.MethodGet, "/api/v1/rooms/"+sess.RoomCode, sess.SessionID, nil)
	require.Equal(t, appErrors.CodeSuccess, resp.Code, resp.Message)
	var room session.Room
	require.NoError(t, json.Unmarshal(resp.Data, &room))
	return &room
}

func TestRoomHandler_CreateAndJoin(t *testing.T) {
	s := setupTestServer(t, nil, nil)

	host := s.createRoom(t)
	assert.True(t, session.ValidRoomCode(host.RoomCode))
	assert.Equal(t, session.HostID, host.PlayerID)
	require.NotNil(t, host.Room)
	assert.Equal(t, session.StatusLobby, host.Room.Status)

	guest := s.join(t, host.RoomCode, "Guest")
	assert.NotEmpty(t, guest.PlayerID)
	assert.NotEqual(t, host.SessionID, guest.SessionID)
	assert.Equal(t, 2, s.manager.Count())

	room := s.room(t, guest)
	require.Contains(t, room.Players, guest.PlayerID)
	assert.Equal(t, "Guest", room.Players[guest.PlayerID].Name)
	assert.Equal(t, "Host", room.Host)
}

func TestRoomHandler_CreateRoom_InvalidParams(t *testing.T) {
	s := setupTestServer(t, nil, nil)

	_, resp := s.do(t, http.MethodPost, "/api/v1/rooms", "", gin.H{"avatarId": 1})
	assert.Equal(t, appErrors.CodeInvalidParams, resp.Code)
	assert.Equal(t, 0, s.manager.Count())
}

func TestRoomHandler_JoinRoom_Errors(t *testing.T) {
	s := setupTestServer(t, nil, nil)

	tests := []struct {
		name     string
		code     string
		wantCode int
	}{
		{"malformed code", "12ab56", appErrors.CodeInvalidRoomCode},
		{"missing room", "555555", appErrors.CodeRoomNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp := s.do(t, http.MethodPost, "/api/v1/rooms/"+tt.code+"/players", "", gin.H{"name": "Guest"})
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
	assert.Equal(t, 0, s.manager.Count(), "failed joins must not leave sessions behind")
}

func TestRoomHandler_SessionRequired(t *testing.T) {
	s := setupTestServer(t, nil, nil)
	host := s.createRoom(t)

	w, resp := s.do(t, http.MethodGet, "/api/v1/rooms/"+host.RoomCode, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.CodeSessionNotFound, resp.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/rooms/"+host.RoomCode, "unknown-session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other := s.createRoom(t)
	w, resp = s.do(t, http.MethodGet, "/api/v1/rooms/"+other.RoomCode, host.SessionID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, appErrors.CodeSessionMismatch, resp.Code)
}

func TestRoomHandler_Heartbeat(t *testing.T) {
	s := setupTestServer(t, nil, nil)
	host := s.createRoom(t)

	before := s.manager.Get(host.SessionID).LastActiveTime()
	time.Sleep(5 * time.Millisecond)

	_, resp := s.do(t, http.MethodPost, "/api/v1/heartbeat", host.SessionID, nil)
	require.Equal(t, appErrors.CodeSuccess, resp.Code)
	assert.True(t, s.manager.Get(host.SessionID).LastActiveTime().After(before))
}

func TestRoomHandler_StartGame_Validation(t *testing.T) {
	s := setupTestServer(t, failingTranslator{}, nil)
	host := s.createRoom(t)
	guest := s.join(t, host.RoomCode, "Guest 1")

	startPath := "/api/v1/rooms/" + host.RoomCode + "/start"

	_, resp := s.do(t, http.MethodPost, startPath, host.SessionID, gin.H{})
	assert.Equal(t, appErrors.CodeNotEnoughPlayers, resp.Code)

	s.join(t, host.RoomCode, "Guest 2")
	s.join(t, host.RoomCode, "Guest 3")

	_, resp = s.do(t, http.MethodPost, startPath, guest.SessionID, gin.H{})
	assert.Equal(t, appErrors.CodeNotRoomHost, resp.Code)

	_, resp = s.do(t, http.MethodPost, startPath, host.SessionID, gin.H{"impostorCount": 3})
	assert.Equal(t, appErrors.CodeInvalidImpostorCount, resp.Code)
	var data struct {
		Suggestion int `json:"suggestion"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 1, data.Suggestion)

	_, resp = s.do(t, http.MethodPost, startPath, host.SessionID, gin.H{"language": "xx"})
	assert.Equal(t, appErrors.CodeUnsupportedLanguage, resp.Code)

	_, resp = s.do(t, http.MethodPost, startPath, host.SessionID, gin.H{"language": "ml"})
	assert.Equal(t, appErrors.CodeTranslationFailed, resp.Code)
	var retry struct {
		Retryable bool `json:"retryable"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &retry))
	assert.True(t, retry.Retryable)

	assert.Equal(t, session.StatusLobby, s.room(t, host).Status, "failed starts leave the lobby untouched")
}

func TestRoomHandler_FullRound(t *testing.T) {
	s := setupTestServer(t, nil, nil)
	host := s.createRoom(t)
	code := host.RoomCode
	sessions := []SessionResponse{host}
	for _, name := range []string{"Asha", "Ben", "Chen"} {
		sessions = append(sessions, s.join(t, code, name))
	}

	_, resp := s.do(t, http.MethodPost, "/api/v1/rooms/"+code+"/start", host.SessionID, gin.H{"impostorCount": 1})
	require.Equal(t, appErrors.CodeSuccess, resp.Code, resp.Message)

	// 每人只能看到自己的角色
	impostor := ""
	for _, sess := range sessions {
		room := s.room(t, sess)
		require.Equal(t, session.StatusReveal, room.Status)
		require.NotNil(t, room.GameState)
		assert.Empty(t, room.GameState.SecretWord)
		for id, a := range room.GameState.Assignments {
			if id != sess.PlayerID {
				assert.Empty(t, a.Role)
				assert.Empty(t, a.Word)
			}
		}
		own := room.GameState.Assignments[sess.PlayerID]
		require.NotEmpty(t, own.Role)
		if own.Role == roles.RoleImpostor {
			impostor = sess.PlayerID
		}
	}
	require.NotEmpty(t, impostor)

	advanced := 0
	for _, sess := range sessions {
		_, resp := s.do(t, http.MethodPost, "/api/v1/rooms/"+code+"/ready", sess.SessionID, nil)
		require.Equal(t, appErrors.CodeSuccess, resp.Code, resp.Message)
		var data struct {
			Advanced bool `json:"advanced"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		if data.Advanced {
			advanced++
		}
	}
	assert.Equal(t, 1, advanced, "only the last ready player advances the room")
	assert.Equal(t, session.StatusDiscussion, s.room(t, host).Status)

	for _, sess := range sessions {
		target := impostor
		if sess.PlayerID == impostor {
			target = host.PlayerID
			if impostor == host.PlayerID {
				target = sessions[1].PlayerID
			}
		}
		_, resp := s.do(t, http.MethodPost, "/api/v1/rooms/"+code+"/votes", sess.SessionID, gin.H{"targetId": target})
		require.Equal(t, appErrors.CodeSuccess, resp.Code, resp.Message)
	}

	_, resp = s.do(t, http.MethodPost, "/api/v1/rooms/"+code+"/votes", sessions[1].SessionID, gin.H{"targetId": host.PlayerID})
	assert.Equal(t, appErrors.CodeAlreadyVoted, resp.Code)

	_, resp = s.do(t, http.MethodPost, "/api/v1/rooms/"+code+"/conclude", sessions[2].SessionID, nil)
	assert.Equal(t, appErrors.CodeNotRoomHost, resp.Code)

	_, resp = s.do(t, http.MethodPost, "/api/v1/rooms/"+code+"/conclude", host.SessionID, nil)
	require.Equal(t, appErrors.CodeSuccess, resp.Code, resp.Message)
	var outcome session.Outcome
	require.NoError(t, json.Unmarshal(resp.Data, &outcome))
	assert.False(t, outcome.Tied)
	assert.Equal(t, roles.RoleCitizen, outcome.Winners)
	require.NotNil(t, outcome.Ejected)
	assert.Equal(t, impostor, outcome.Ejected.ID)
	assert.NotEmpty(t, outcome.SecretWord)

	result := s.room(t, sessions[3])
	assert.Equal(t, session.StatusResult, result.Status)
	assert.Equal(t, roles.RoleCitizen, result.GameState.Winners)

	_, resp = s.do(t, http.MethodPost, "/api/v1/rooms/"+code+"/play-again", host.SessionID, nil)
	require.Equal(t, appErrors.CodeSuccess, resp.Code)
	lobby := s.room(t, sessions[1])
	assert.Equal(t, session.StatusLobby, lobby.Status)
	assert.Nil(t, lobby.GameState)
	assert.Len(t, lobby.Players, 3)
}

func TestRoomHandler_LeaveRoom(t *testing.T) {
	s := setupTestServer(t, nil, nil)
	host := s.createRoom(t)
	guest := s.join(t, host.RoomCode, "Guest")
	other := s.join(t, host.RoomCode, "Other")

	_, resp := s.do(t, http.MethodDelete, "/api/v1/rooms/"+host.RoomCode+"/players/me", guest.SessionID, nil)
	require.Equal(t, appErrors.CodeSuccess, resp.Code)
	assert.Nil(t, s.manager.Get(guest.SessionID))
	assert.NotContains(t, s.room(t, host).Players, guest.PlayerID)

	w, _ := s.do(t, http.MethodGet, "/api/v1/rooms/"+host.RoomCode, guest.SessionID, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, resp = s.do(t, http.MethodDelete, "/api/v1/rooms/"+host.RoomCode+"/players/me", host.SessionID, nil)
	require.Equal(t, appErrors.CodeSuccess, resp.Code)

	// 房主离开后房间内其余会话一并结束
	assert.Nil(t, s.manager.Get(other.SessionID))
	assert.Equal(t, 0, s.manager.Count())
	w, resp = s.do(t, http.MethodGet, "/api/v1/rooms/"+host.RoomCode, other.SessionID, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.CodeSessionNotFound, resp.Code)

	_, resp = s.do(t, http.MethodPost, "/api/v1/rooms/"+host.RoomCode+"/players", "", gin.H{"name": "Late"})
	assert.Equal(t, appErrors.CodeRoomNotFound, resp.Code)
}

func TestRoomHandler_HostSessionTimeoutRemovesRoom(t *testing.T) {
	s := setupTestServer(t, nil, nil)
	host := s.createRoom(t)
	guest := s.join(t, host.RoomCode, "Guest")

	sweeper := connection.NewIdleSweeper(s.manager, 50*time.Millisecond, time.Hour, nil)
	time.Sleep(80 * time.Millisecond)
	s.manager.Get(guest.SessionID).Touch()

	guestConn := s.manager.Get(guest.SessionID)
	swept := sweeper.Sweep(context.Background())
	assert.Len(t, swept, 1)
	assert.Nil(t, s.manager.Get(host.SessionID))
	assert.Nil(t, s.manager.Get(guest.SessionID))
	assert.True(t, guestConn.RoomClosed())

	w, _ := s.do(t, http.MethodGet, "/api/v1/rooms/"+host.RoomCode, guest.SessionID, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, resp := s.do(t, http.MethodPost, "/api/v1/rooms/"+host.RoomCode+"/players", "", gin.H{"name": "Late"})
	assert.Equal(t, appErrors.CodeRoomNotFound, resp.Code)
}

func TestRoomHandler_EventsStreamKeepsHostActive(t *testing.T) {
	s := setupTestServer(t, nil, nil)
	host := s.createRoom(t)
	guest := s.join(t, host.RoomCode, "Guest")

	srv := httptest.NewServer(s.engine)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := openEvents(t, ctx, srv.URL, host.RoomCode, host.SessionID)
	waitForEvent(t, ctx, events, session.EventStatusChanged)

	// 大厅无事件，只有保活注释维持活跃
	sweeper := connection.NewIdleSweeper(s.manager, 100*time.Millisecond, time.Hour, nil)
	time.Sleep(250 * time.Millisecond)
	s.manager.Get(guest.SessionID).Touch()

	assert.Empty(t, sweeper.Sweep(context.Background()))
	require.NotNil(t, s.manager.Get(host.SessionID))
	assert.Equal(t, session.StatusLobby, s.room(t, guest).Status)
}

func TestRoomHandler_EventsStreamEndsWhenSessionClosed(t *testing.T) {
	s := setupTestServer(t, nil, nil)
	host := s.createRoom(t)
	guest := s.join(t, host.RoomCode, "Guest")

	srv := httptest.NewServer(s.engine)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := openEvents(t, ctx, srv.URL, host.RoomCode, guest.SessionID)
	waitForEvent(t, ctx, events, session.EventStatusChanged)

	client := s.manager.Get(guest.SessionID)
	s.manager.Remove(client.ID())
	require.NoError(t, client.Close(context.Background()))

	for name := range events {
		assert.NotEqual(t, string(session.EventRoomClosed), name)
	}
	assert.NoError(t, ctx.Err(), "stream ends once its session is closed")
}

// 房间在打开事件流之前已被删除
func TestRoomHandler_EventsStreamOnDeletedRoom(t *testing.T) {
	s := setupTestServer(t, nil, nil)
	host := s.createRoom(t)
	guest := s.join(t, host.RoomCode, "Guest")

	admin, err := s.mem.Connect(context.Background())
	require.NoError(t, err)
	defer admin.Close(context.Background())
	require.NoError(t, admin.Remove(context.Background(), session.RoomPath(host.RoomCode)))

	srv := httptest.NewServer(s.engine)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := openEvents(t, ctx, srv.URL, host.RoomCode, guest.SessionID)
	waitForEvent(t, ctx, events, session.EventRoomClosed)
	for range events {
	}
	assert.NoError(t, ctx.Err())
}

func TestRoomHandler_ListResults(t *testing.T) {
	s := setupTestServer(t, nil, staticResults{list: []*repository.GameResult{{RoomCode: "123456", Winners: "Impostor"}}})

	_, resp := s.do(t, http.MethodGet, "/api/v1/rooms/123456/results", "", nil)
	require.Equal(t, appErrors.CodeSuccess, resp.Code)
	var data struct {
		List []repository.GameResult `json:"list"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.Len(t, data.List, 1)
	assert.Equal(t, "Impostor", data.List[0].Winners)

	empty := setupTestServer(t, nil, nil)
	_, resp = empty.do(t, http.MethodGet, "/api/v1/rooms/123456/results", "", nil)
	require.Equal(t, appErrors.CodeSuccess, resp.Code)
}

// openEvents 打开 SSE 事件流，返回事件名，流结束时通道关闭
func openEvents(t *testing.T, ctx context.Context, baseURL, code, sessionID string) <-chan string {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/rooms/"+code+"/events", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.SessionHeader, sessionID)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	require.Equal(t, http.StatusOK, res.StatusCode)

	events := make(chan string, 32)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(res.Body)
		for scanner.Scan() {
			if name, ok := strings.CutPrefix(scanner.Text(), "event:"); ok {
				events <- name
			}
		}
	}()
	return events
}

func waitForEvent(t *testing.T, ctx context.Context, events <-chan string, kind session.EventKind) {
	t.Helper()
	for {
		select {
		case name, ok := <-events:
			require.True(t, ok, "stream ended before %s", kind)
			if name == string(kind) {
				return
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestRoomHandler_EventsStream(t *testing.T) {
	s := setupTestServer(t, nil, nil)
	host := s.createRoom(t)
	guest := s.join(t, host.RoomCode, "Guest")

	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := openEvents(t, ctx, srv.URL, host.RoomCode, guest.SessionID)
	waitForEvent(t, ctx, events, session.EventStatusChanged)

	_, resp := s.do(t, http.MethodDelete, "/api/v1/rooms/"+host.RoomCode+"/players/me", host.SessionID, nil)
	require.Equal(t, appErrors.CodeSuccess, resp.Code)

	waitForEvent(t, ctx, events, session.EventRoomClosed)

	// 房间关闭后服务端结束事件流
	for range events {
	}
	assert.False(t, errors.Is(ctx.Err(), context.DeadlineExceeded))
}

func TestRoomHandler_EventsWebSocket(t *testing.T) {
	s := setupTestServer(t, nil, nil)
	host := s.createRoom(t)
	guest := s.join(t, host.RoomCode, "Guest")

	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/rooms/" + host.RoomCode + "/ws?" + middleware.SessionQuery + "=" + guest.SessionID
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first session.Event
	require.NoError(t, ws.ReadJSON(&first))
	assert.Equal(t, session.EventStatusChanged, first.Kind)
	assert.Equal(t, session.StatusLobby, first.Status)
	require.NotNil(t, first.Room)
	assert.Contains(t, first.Room.Players, guest.PlayerID)

	_, resp := s.do(t, http.MethodDelete, "/api/v1/rooms/"+host.RoomCode+"/players/me", host.SessionID, nil)
	require.Equal(t, appErrors.CodeSuccess, resp.Code)

	for {
		var ev session.Event
		require.NoError(t, ws.ReadJSON(&ev))
		if ev.Kind == session.EventRoomClosed {
			assert.Equal(t, host.RoomCode, ev.Code)
			break
		}
	}

	_, _, err = ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "server closes after room_closed: %v", err)
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"sentinel", session.ErrRoomNotFound, appErrors.CodeRoomNotFound},
		{"wrapped sentinel", errors.Join(errors.New("ctx"), session.ErrGameStarted), appErrors.CodeGameStarted},
		{"unknown", errors.New("boom"), appErrors.CodeServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := toAppError(tt.err)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}
