package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sudooom.impostor/internal/roles"
	"sudooom.impostor/internal/store"
	"sudooom.impostor/internal/translate"
	"sudooom.impostor/internal/words"
)

const testRoomCode = "482913"

type fixedWords struct {
	word words.Word
}

func (f fixedWords) RandomWord(categoryKeys []string) (words.Word, error) {
	return f.word, nil
}

type fakeTranslator struct {
	err   error
	calls int
}

func (f *fakeTranslator) TranslateGameContent(ctx context.Context, word, hint, lang string) (translate.Content, error) {
	f.calls++
	if f.err != nil {
		return translate.Content{}, f.err
	}
	return translate.Content{Word: "[" + lang + "] " + word, Hint: "[" + lang + "] " + hint}, nil
}

type memRecorder struct {
	mu      sync.Mutex
	results []*Result
}

func (r *memRecorder) RecordResult(ctx context.Context, result *Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

// failingStore 指定路径前缀的写入失败
type failingStore struct {
	store.Store
	failUpdates bool
}

var errInjected = errors.New("injected network failure")

func (f *failingStore) Update(ctx context.Context, path string, values map[string]any) error {
	if f.failUpdates {
		return errInjected
	}
	return f.Store.Update(ctx, path, values)
}

type testEnv struct {
	mem        *store.Memory
	conn       store.Conn
	svc        *Service
	translator *fakeTranslator
	recorder   *memRecorder
}

func testWord() words.Word {
	return words.Word{Word: "Beach", Hint: "Sand and sea", ImpostorHint: "Nature", Category: "places"}
}

func newTestService(t *testing.T, st store.Store, tr *fakeTranslator, rec *memRecorder) *Service {
	t.Helper()
	svc := NewService(st, Dependencies{
		Words:      fixedWords{word: testWord()},
		Translator: tr,
		Recorder:   rec,
	}, Config{
		ReconcileInterval: 50 * time.Millisecond,
		HostLossRecheck:   20 * time.Millisecond,
	})
	svc.rand = rand.New(rand.NewPCG(11, 22))
	return svc
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := store.NewMemory()
	conn, err := mem.Connect(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(context.Background()) })

	tr := &fakeTranslator{}
	rec := &memRecorder{}
	return &testEnv{
		mem:        mem,
		conn:       conn,
		svc:        newTestService(t, conn, tr, rec),
		translator: tr,
		recorder:   rec,
	}
}

// clientService 另一个客户端的独立连接
func (e *testEnv) clientService(t *testing.T) (*Service, store.Conn) {
	t.Helper()
	conn, err := e.mem.Connect(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(context.Background()) })
	return newTestService(t, conn, e.translator, e.recorder), conn
}

// setupLobby 创建房间并加入 guests 个玩家，返回全部玩家 ID（房主在前）
func (e *testEnv) setupLobby(t *testing.T, guests int) []string {
	t.Helper()
	ctx := context.Background()
	_, err := e.svc.CreateRoom(ctx, testRoomCode, HostInfo{Name: "Host", AvatarID: 1})
	require.NoError(t, err)

	ids := []string{HostID}
	for i := 0; i < guests; i++ {
		p, err := e.svc.JoinRoom(ctx, testRoomCode, PlayerInfo{
			ID:       fmt.Sprintf("guest-%d", i+1),
			Name:     fmt.Sprintf("Guest %d", i+1),
			AvatarID: i + 2,
		})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	return ids
}

func (e *testEnv) room(t *testing.T) *Room {
	t.Helper()
	room, err := e.svc.GetRoom(context.Background(), testRoomCode)
	require.NoError(t, err)
	return room
}

func countRole(gs *GameState, role roles.Role) int {
	n := 0
	for _, a := range gs.Assignments {
		if a.Role == role {
			n++
		}
	}
	return n
}
