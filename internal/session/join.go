package session

import (
	"context"

	"github.com/google/uuid"
)

// PlayerInfo 加入房间的玩家信息
type PlayerInfo struct {
	ID                 string // 为空时按 UID 复用或新生成
	UID                string
	Name               string
	AvatarID           int
	CustomAvatarConfig map[string]any
}

// JoinRoom 在大厅阶段加入房间，同一 UID 重复加入复用原有条目
func (s *Service) JoinRoom(ctx context.Context, code string, info PlayerInfo) (*Player, error) {
	if info.Name == "" {
		return nil, newError(ErrInvalidPlayer, "player name is required")
	}
	if info.AvatarID != 0 && info.CustomAvatarConfig != nil {
		return nil, newError(ErrInvalidPlayer, "avatarId and customAvatarConfig are mutually exclusive")
	}
	if info.ID == HostID {
		return nil, newError(ErrInvalidPlayer, "reserved player id")
	}

	room, err := s.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.Status != StatusLobby {
		return nil, ErrGameStarted
	}

	id := info.ID
	if id == "" && info.UID != "" {
		for existingID, p := range room.Players {
			if p.UID == info.UID {
				id = existingID
				break
			}
		}
	}
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}

	player := &Player{
		ID:                 id,
		UID:                info.UID,
		Name:               info.Name,
		AvatarID:           info.AvatarID,
		CustomAvatarConfig: info.CustomAvatarConfig,
		Status:             "waiting",
	}
	if err := s.store.Set(ctx, PlayerPath(code, id), player); err != nil {
		return nil, retryable(ErrStoreUnavailable, "failed to join room", err)
	}

	s.logger.Info("Player joined room", "roomCode", code, "playerId", id, "name", info.Name)
	return player, nil
}
