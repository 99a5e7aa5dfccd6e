package session

import (
	"context"
	"errors"
)

// PlayAgain 房主将房间带回大厅，沿用同一房间号，已连接的客户端只会看到状态变化
func (s *Service) PlayAgain(ctx context.Context, code, requesterID string) error {
	room, err := s.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if !room.IsHost(requesterID) {
		return ErrNotRoomHost
	}

	if err := s.store.Update(ctx, RoomPath(code), map[string]any{
		"gameState":        nil,
		"status":           StatusLobby,
		"hostDisconnected": false,
		"hostLeft":         false,
		"lastActionAt":     s.nowMillis(),
	}); err != nil {
		s.logger.Error("Failed to reset room", "roomCode", code, "error", err)
		return retryable(ErrStoreUnavailable, "failed to return to lobby", err)
	}

	s.logger.Info("Room returned to lobby", "roomCode", code)
	return nil
}

// LeaveRoom 玩家离开房间；房主离开则删除整个房间
func (s *Service) LeaveRoom(ctx context.Context, code, playerID string) error {
	isHost := playerID == HostID
	if !isHost {
		room, err := s.GetRoom(ctx, code)
		if errors.Is(err, ErrRoomNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		isHost = room.IsHost(playerID)
	}

	if isHost {
		if err := s.store.Remove(ctx, RoomPath(code)); err != nil {
			return retryable(ErrStoreUnavailable, "failed to close room", err)
		}
		s.logger.Info("Host left, room closed", "roomCode", code)
		return nil
	}

	if err := s.store.Remove(ctx, PlayerPath(code, playerID)); err != nil {
		return retryable(ErrStoreUnavailable, "failed to leave room", err)
	}
	s.logger.Info("Player left room", "roomCode", code, "playerId", playerID)
	return nil
}
