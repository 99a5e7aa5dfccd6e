package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, m *Memory) Conn {
	t.Helper()
	conn, err := m.Connect(context.Background())
	require.NoError(t, err)
	return conn
}

func waitSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func TestMemory_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	conn := connect(t, NewMemory())

	require.NoError(t, conn.Set(ctx, "rooms/482913", map[string]any{
		"status": "lobby",
		"host":   "Asha",
	}))

	snap, err := conn.Get(ctx, "rooms/482913/status")
	require.NoError(t, err)
	assert.True(t, snap.Exists())
	assert.Equal(t, "lobby", snap.Value)

	require.NoError(t, conn.Remove(ctx, "rooms/482913"))
	snap, err = conn.Get(ctx, "rooms/482913")
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestMemory_EmptyObjectsArePruned(t *testing.T) {
	ctx := context.Background()
	conn := connect(t, NewMemory())

	require.NoError(t, conn.Set(ctx, "rooms/1/players/p1", map[string]any{"name": "A"}))
	require.NoError(t, conn.Remove(ctx, "rooms/1/players/p1"))

	snap, err := conn.Get(ctx, "rooms/1")
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestMemory_UpdateAppliesAllKeys(t *testing.T) {
	ctx := context.Background()
	conn := connect(t, NewMemory())

	require.NoError(t, conn.Set(ctx, "rooms/1", map[string]any{"status": "reveal", "host": "H"}))
	require.NoError(t, conn.Update(ctx, "rooms/1", map[string]any{
		"status":          "discussion",
		"gameState/phase": "discussion",
		"host":            nil,
	}))

	var room struct {
		Status    string `json:"status"`
		Host      string `json:"host"`
		GameState struct {
			Phase string `json:"phase"`
		} `json:"gameState"`
	}
	snap, err := conn.Get(ctx, "rooms/1")
	require.NoError(t, err)
	require.NoError(t, snap.Decode(&room))
	assert.Equal(t, "discussion", room.Status)
	assert.Equal(t, "discussion", room.GameState.Phase)
	assert.Empty(t, room.Host)
}

func TestMemory_UpdateRejectsOverlappingKeys(t *testing.T) {
	conn := connect(t, NewMemory())
	err := conn.Update(context.Background(), "rooms/1", map[string]any{
		"gameState":       nil,
		"gameState/phase": "lobby",
	})
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestMemory_InvalidPath(t *testing.T) {
	conn := connect(t, NewMemory())
	_, err := conn.Get(context.Background(), "rooms//1")
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = conn.Get(context.Background(), "rooms/a.b")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestMemory_SubscribeDeliversInitialThenChanges(t *testing.T) {
	ctx := context.Background()
	conn := connect(t, NewMemory())
	require.NoError(t, conn.Set(ctx, "rooms/1/status", "lobby"))

	ch := make(chan Snapshot, 16)
	unsub, err := conn.Subscribe(ctx, "rooms/1/status", func(s Snapshot) { ch <- s })
	require.NoError(t, err)
	defer unsub()

	assert.Equal(t, "lobby", waitSnapshot(t, ch).Value)

	require.NoError(t, conn.Set(ctx, "rooms/1/status", "reveal"))
	assert.Equal(t, "reveal", waitSnapshot(t, ch).Value)

	// 无关路径的写入不会触发投递
	require.NoError(t, conn.Set(ctx, "rooms/2/status", "lobby"))
	require.NoError(t, conn.Remove(ctx, "rooms/1"))
	snap := waitSnapshot(t, ch)
	assert.False(t, snap.Exists())
}

func TestMemory_UnsubscribeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	conn := connect(t, mem)

	ch := make(chan Snapshot, 16)
	unsub, err := conn.Subscribe(ctx, "rooms/1", func(s Snapshot) { ch <- s })
	require.NoError(t, err)
	waitSnapshot(t, ch)

	unsub()
	unsub()

	mem.mu.RLock()
	assert.Empty(t, mem.watches)
	mem.mu.RUnlock()
}

func TestMemory_CloseRunsDisconnectActions(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	host := connect(t, mem)
	guest := connect(t, mem)

	require.NoError(t, host.Set(ctx, "rooms/1", map[string]any{"status": "lobby"}))
	require.NoError(t, host.OnDisconnect(ctx, "rooms/1", RemoveOnDisconnect()))
	require.NoError(t, host.OnDisconnect(ctx, "rooms/2/hostDisconnected", SetOnDisconnect(true)))

	require.NoError(t, host.Close(ctx))
	require.NoError(t, host.Close(ctx))

	snap, err := guest.Get(ctx, "rooms/1")
	require.NoError(t, err)
	assert.False(t, snap.Exists())

	snap, err = guest.Get(ctx, "rooms/2/hostDisconnected")
	require.NoError(t, err)
	assert.Equal(t, true, snap.Value)

	_, err = host.Get(ctx, "rooms/1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSnapshot_ValuesAreIsolated(t *testing.T) {
	ctx := context.Background()
	conn := connect(t, NewMemory())
	require.NoError(t, conn.Set(ctx, "rooms/1", map[string]any{"status": "lobby"}))

	snap, err := conn.Get(ctx, "rooms/1")
	require.NoError(t, err)
	snap.Value.(map[string]any)["status"] = "mutated"

	snap, err = conn.Get(ctx, "rooms/1/status")
	require.NoError(t, err)
	assert.Equal(t, "lobby", snap.Value)
}
