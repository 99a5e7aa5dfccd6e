package session

import (
	"context"
	"math/rand/v2"
	"strconv"
)

const (
	roomCodeMin  = 100000
	roomCodeSpan = 900000
)

type defaultRand struct{}

func (defaultRand) IntN(n int) int {
	return rand.IntN(n)
}

// HostInfo 房主信息
type HostInfo struct {
	UID      string // 稳定用户标识，可为空
	Name     string
	AvatarID int
}

// ValidRoomCode 6 位数字房间号
func ValidRoomCode(code string) bool {
	if len(code) != 6 || code[0] == '0' {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// NewRoomCode 生成当前未被占用的房间号
func (s *Service) NewRoomCode(ctx context.Context) (string, error) {
	for i := 0; i < s.cfg.CodeRetries; i++ {
		code := strconv.Itoa(roomCodeMin + s.rand.IntN(roomCodeSpan))
		snap, err := s.store.Get(ctx, RoomPath(code))
		if err != nil {
			return "", retryable(ErrStoreUnavailable, "failed to check room code", err)
		}
		if !snap.Exists() {
			return code, nil
		}
		s.logger.Debug("Room code collision, retrying", "roomCode", code, "attempt", i+1)
	}
	return "", retryable(ErrRoomCodeUnavailable, "no free room code, try again", nil)
}

// CreateRoom 写入大厅状态的房间，并登记房主断线时删除整个房间
func (s *Service) CreateRoom(ctx context.Context, code string, host HostInfo) (*Room, error) {
	if !ValidRoomCode(code) {
		return nil, ErrInvalidRoomCode
	}
	if host.Name == "" {
		return nil, newError(ErrInvalidPlayer, "host name is required")
	}

	hostID := host.UID
	if hostID == "" {
		hostID = HostID
	}
	room := &Room{
		Code:       code,
		Status:     StatusLobby,
		Host:       host.Name,
		HostID:     hostID,
		HostAvatar: host.AvatarID,
		CreatedAt:  s.nowMillis(),
	}
	if err := s.store.Set(ctx, RoomPath(code), room); err != nil {
		return nil, retryable(ErrStoreUnavailable, "failed to create room", err)
	}

	// 尽力而为：登记失败时房间仍可用，只是房主崩溃后不会自动清理
	if err := s.presence.ArmCleanup(ctx, RoomPath(code)); err != nil {
		s.logger.Warn("Failed to arm host cleanup", "roomCode", code, "error", err)
	}

	s.logger.Info("Room created", "roomCode", code, "host", host.Name)
	return room, nil
}
