package session

import "context"

// MarkReady 标记玩家已查看角色，已准备时不重复写入；随后尝试推进到讨论阶段
func (s *Service) MarkReady(ctx context.Context, code, playerID string) (advanced bool, err error) {
	snap, err := s.store.Get(ctx, AssignmentPath(code, playerID))
	if err != nil {
		return false, retryable(ErrStoreUnavailable, "failed to read assignment", err)
	}
	if !snap.Exists() {
		return false, ErrNotInGame
	}
	var a Assignment
	if err := snap.Decode(&a); err != nil {
		return false, err
	}

	if !a.Ready {
		if err := s.store.Update(ctx, AssignmentPath(code, playerID), map[string]any{
			"ready":   true,
			"readyAt": s.nowMillis(),
		}); err != nil {
			s.logger.Error("Failed to mark ready", "roomCode", code, "playerId", playerID, "error", err)
			return false, retryable(ErrStoreUnavailable, "failed to mark ready, please retry", err)
		}
		s.logger.Debug("Player ready", "roomCode", code, "playerId", playerID)
	}

	return s.TryAdvanceToDiscussion(ctx, code)
}

// TryAdvanceToDiscussion 重新读取全部分配，全员准备时写入 reveal → discussion
// 该写入是幂等的，多个客户端同时触发时后写者覆盖即可
func (s *Service) TryAdvanceToDiscussion(ctx context.Context, code string) (bool, error) {
	room, err := s.GetRoom(ctx, code)
	if err != nil {
		return false, err
	}
	if room.Status != StatusReveal || !room.GameState.AllReady() {
		return false, nil
	}

	now := s.nowMillis()
	if err := s.store.Update(ctx, RoomPath(code), map[string]any{
		"status":                        StatusDiscussion,
		"gameState/phase":               StatusDiscussion,
		"gameState/discussionStartTime": now,
		"gameState/allPlayersReady":     true,
		"gameState/forceDiscussion":     true,
		"gameState/lastActionAt":        now,
	}); err != nil {
		s.logger.Error("Failed to advance to discussion", "roomCode", code, "error", err)
		return false, retryable(ErrStoreUnavailable, "failed to start discussion", err)
	}

	s.logger.Info("All players ready, discussion started", "roomCode", code)
	return true, nil
}
