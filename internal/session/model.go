package session

import (
	"sort"

	"sudooom.impostor/internal/roles"
)

// Status 房间阶段
type Status string

const (
	StatusLobby      Status = "lobby"
	StatusReveal     Status = "reveal"
	StatusDiscussion Status = "discussion"
	StatusResult     Status = "result"
)

// HostID 创建房间的设备使用的固定玩家 ID
const HostID = "host-id"

// Player 房间中的玩家（不含房主）
type Player struct {
	ID                 string         `json:"id"`
	UID                string         `json:"uid,omitempty"`
	Name               string         `json:"name"`
	AvatarID           int            `json:"avatarId,omitempty"`
	CustomAvatarConfig map[string]any `json:"customAvatarConfig,omitempty"`
	Status             string         `json:"status,omitempty"`
}

// Room rooms/{code} 下的房间文档
type Room struct {
	Code             string            `json:"-"`
	Status           Status            `json:"status"`
	Host             string            `json:"host"`
	HostID           string            `json:"hostId"`
	HostAvatar       int               `json:"hostAvatar"`
	CreatedAt        int64             `json:"createdAt"`
	HostDisconnected bool              `json:"hostDisconnected,omitempty"`
	HostLeft         bool              `json:"hostLeft,omitempty"`
	LastActionAt     int64             `json:"lastActionAt,omitempty"`
	Players          map[string]Player `json:"players,omitempty"`
	GameState        *GameState        `json:"gameState,omitempty"`
}

// IsHost 判断玩家是否为房主
func (r *Room) IsHost(playerID string) bool {
	return playerID == HostID || (r.HostID != "" && playerID == r.HostID)
}

// Roster 房主在前，其余玩家按 ID 排序
func (r *Room) Roster() []roles.Player {
	out := make([]roles.Player, 0, len(r.Players)+1)
	out = append(out, roles.Player{ID: HostID, Name: r.Host, AvatarID: r.HostAvatar})

	ids := make([]string, 0, len(r.Players))
	for id := range r.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := r.Players[id]
		out = append(out, roles.Player{
			ID:                 id,
			Name:               p.Name,
			AvatarID:           p.AvatarID,
			CustomAvatarConfig: p.CustomAvatarConfig,
		})
	}
	return out
}

// PlayerRef 结果页展示用的玩家引用
type PlayerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Assignment 单个玩家本轮的角色与词语
type Assignment struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	AvatarID           int                `json:"avatarId,omitempty"`
	CustomAvatarConfig map[string]any     `json:"customAvatarConfig,omitempty"`
	Role               roles.Role         `json:"role"`
	Word               string             `json:"word"`
	Hint               string             `json:"hint"`
	OriginalWord       string             `json:"originalWord,omitempty"`
	OriginalHint       string             `json:"originalHint,omitempty"`
	ImpostorHint       string             `json:"impostorHint,omitempty"`
	ML                 *roles.Translation `json:"ml,omitempty"`
	Ready              bool               `json:"ready"`
	ReadyAt            int64              `json:"readyAt,omitempty"`
	Order              int                `json:"order"`
	CoverIndex         int                `json:"coverIndex"`
}

func newAssignment(a roles.Assignment) Assignment {
	return Assignment{
		ID:                 a.ID,
		Name:               a.Name,
		AvatarID:           a.AvatarID,
		CustomAvatarConfig: a.CustomAvatarConfig,
		Role:               a.Role,
		Word:               a.Word,
		Hint:               a.Hint,
		OriginalWord:       a.OriginalWord,
		OriginalHint:       a.OriginalHint,
		ImpostorHint:       a.ImpostorHint,
		ML:                 a.Alt,
		Order:              a.Order,
		CoverIndex:         a.CoverIndex,
	}
}

// GameState rooms/{code}/gameState
type GameState struct {
	Assignments         map[string]Assignment `json:"assignments"`
	Phase               Status                `json:"phase"`
	SecretWord          string                `json:"secretWord"`
	Language            string                `json:"language"`
	ImpostorCount       int                   `json:"impostorCount"`
	Category            string                `json:"category,omitempty"`
	StartTime           int64                 `json:"startTime"`
	Duration            int                   `json:"duration"`
	IsPaused            bool                  `json:"isPaused"`
	AllPlayersReady     bool                  `json:"allPlayersReady,omitempty"`
	ForceDiscussion     bool                  `json:"forceDiscussion,omitempty"`
	DiscussionStartTime int64                 `json:"discussionStartTime,omitempty"`
	LastActionAt        int64                 `json:"lastActionAt,omitempty"`
	Votes               map[string]string     `json:"votes,omitempty"`
	VoteTied            bool                  `json:"voteTied,omitempty"`
	Winners             roles.Role            `json:"winners,omitempty"`
	EjectedPlayer       *PlayerRef            `json:"ejectedPlayer,omitempty"`
	Impostors           []PlayerRef           `json:"impostors,omitempty"`
}

// ReadyCount 已准备人数与总人数
func (g *GameState) ReadyCount() (ready, total int) {
	if g == nil {
		return 0, 0
	}
	for _, a := range g.Assignments {
		if a.Ready {
			ready++
		}
	}
	return ready, len(g.Assignments)
}

// AllReady 每个分配都已准备
func (g *GameState) AllReady() bool {
	ready, total := g.ReadyCount()
	return total > 0 && ready == total
}

// RedactFor 返回仅保留 viewer 自己角色与词语的副本
func (r *Room) RedactFor(viewerID string) *Room {
	out := *r
	if r.GameState == nil || r.Status == StatusResult {
		return &out
	}
	gs := *r.GameState
	gs.SecretWord = ""
	gs.Assignments = make(map[string]Assignment, len(r.GameState.Assignments))
	for id, a := range r.GameState.Assignments {
		if id != viewerID {
			a = Assignment{
				ID:                 a.ID,
				Name:               a.Name,
				AvatarID:           a.AvatarID,
				CustomAvatarConfig: a.CustomAvatarConfig,
				Ready:              a.Ready,
				ReadyAt:            a.ReadyAt,
				Order:              a.Order,
				CoverIndex:         a.CoverIndex,
			}
		}
		gs.Assignments[id] = a
	}
	out.GameState = &gs
	return &out
}
