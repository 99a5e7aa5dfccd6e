package session

import (
	"context"
	"sort"
	"time"

	"sudooom.impostor/internal/roles"
)

// Result 一轮结束后的记录
type Result struct {
	RoomCode      string
	Winners       roles.Role
	SecretWord    string
	Category      string
	Language      string
	PlayerCount   int
	ImpostorCount int
	Ejected       PlayerRef
	Impostors     []PlayerRef
	Votes         map[string]string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Outcome 计票结果
type Outcome struct {
	Tied       bool           `json:"tied"`
	Tally      map[string]int `json:"tally"`
	Winners    roles.Role     `json:"winners,omitempty"`
	Ejected    *PlayerRef     `json:"ejectedPlayer,omitempty"`
	Impostors  []PlayerRef    `json:"impostors,omitempty"`
	SecretWord string         `json:"secretWord,omitempty"`
}

// SubmitVote 讨论阶段投票，每轮每人一票
func (s *Service) SubmitVote(ctx context.Context, code, voterID, targetID string) error {
	room, err := s.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.Status != StatusDiscussion || room.GameState == nil {
		return newError(ErrInvalidPhase, "voting is only open during discussion")
	}
	gs := room.GameState
	if _, ok := gs.Assignments[voterID]; !ok {
		return ErrNotInGame
	}
	if _, ok := gs.Assignments[targetID]; !ok || targetID == voterID {
		return newError(ErrInvalidPlayer, "invalid vote target")
	}
	if _, voted := gs.Votes[voterID]; voted {
		return ErrAlreadyVoted
	}

	if err := s.store.Set(ctx, VotePath(code, voterID), targetID); err != nil {
		return retryable(ErrStoreUnavailable, "failed to submit vote", err)
	}
	s.logger.Debug("Vote submitted", "roomCode", code, "voterId", voterID, "targetId", targetID)
	return nil
}

// ConcludeVoting 房主结束投票
// 无人投票或平票时清空选票留在讨论阶段；否则淘汰得票最多者并进入结果阶段
func (s *Service) ConcludeVoting(ctx context.Context, code, requesterID string) (*Outcome, error) {
	room, err := s.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(requesterID) {
		return nil, ErrNotRoomHost
	}
	if room.Status != StatusDiscussion || room.GameState == nil {
		return nil, newError(ErrInvalidPhase, "voting is only open during discussion")
	}
	gs := room.GameState

	tally := make(map[string]int)
	for voter, target := range gs.Votes {
		if _, ok := gs.Assignments[voter]; !ok {
			continue
		}
		if _, ok := gs.Assignments[target]; ok {
			tally[target]++
		}
	}
	top, maxVotes := "", 0
	tied := false
	for target, n := range tally {
		switch {
		case n > maxVotes:
			top, maxVotes, tied = target, n, false
		case n == maxVotes:
			tied = true
		}
	}

	now := s.nowMillis()
	if maxVotes == 0 || tied {
		if err := s.store.Update(ctx, RoomPath(code), map[string]any{
			"gameState/votes":               nil,
			"gameState/voteTied":            true,
			"gameState/discussionStartTime": now,
			"gameState/lastActionAt":        now,
		}); err != nil {
			return nil, retryable(ErrStoreUnavailable, "failed to reset votes", err)
		}
		s.logger.Info("Vote tied, discussion continues", "roomCode", code, "maxVotes", maxVotes)
		return &Outcome{Tied: true, Tally: tally}, nil
	}

	ejected := gs.Assignments[top]
	winners := roles.RoleImpostor
	if ejected.Role == roles.RoleImpostor {
		winners = roles.RoleCitizen
	}
	impostors := impostorsOf(gs)
	secretWord := gs.SecretWord
	if secretWord == "" {
		secretWord = citizenWord(gs)
	}
	ejectedRef := &PlayerRef{ID: ejected.ID, Name: ejected.Name}

	if err := s.store.Update(ctx, RoomPath(code), map[string]any{
		"status":                  StatusResult,
		"gameState/phase":         StatusResult,
		"gameState/winners":       winners,
		"gameState/secretWord":    secretWord,
		"gameState/impostors":     impostors,
		"gameState/ejectedPlayer": ejectedRef,
		"gameState/voteTied":      nil,
		"gameState/lastActionAt":  now,
		"lastActionAt":            now,
	}); err != nil {
		return nil, retryable(ErrStoreUnavailable, "failed to publish result", err)
	}
	s.logger.Info("Round finished", "roomCode", code, "winners", winners, "ejectedId", ejected.ID)

	outcome := &Outcome{
		Tally:      tally,
		Winners:    winners,
		Ejected:    ejectedRef,
		Impostors:  impostors,
		SecretWord: secretWord,
	}
	s.record(ctx, code, gs, outcome, now)
	return outcome, nil
}

// record 尽力而为地保存本轮结果
func (s *Service) record(ctx context.Context, code string, gs *GameState, outcome *Outcome, finishedAt int64) {
	if s.recorder == nil {
		return
	}
	result := &Result{
		RoomCode:      code,
		Winners:       outcome.Winners,
		SecretWord:    outcome.SecretWord,
		Category:      gs.Category,
		Language:      gs.Language,
		PlayerCount:   len(gs.Assignments),
		ImpostorCount: gs.ImpostorCount,
		Ejected:       *outcome.Ejected,
		Impostors:     outcome.Impostors,
		Votes:         gs.Votes,
		StartedAt:     time.UnixMilli(gs.StartTime),
		FinishedAt:    time.UnixMilli(finishedAt),
	}
	if err := s.recorder.RecordResult(ctx, result); err != nil {
		s.logger.Warn("Failed to record game result", "roomCode", code, "error", err)
	}
}

func impostorsOf(gs *GameState) []PlayerRef {
	list := make([]Assignment, 0, gs.ImpostorCount)
	for _, a := range gs.Assignments {
		if a.Role == roles.RoleImpostor {
			list = append(list, a)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Order < list[j].Order })

	out := make([]PlayerRef, len(list))
	for i, a := range list {
		out[i] = PlayerRef{ID: a.ID, Name: a.Name}
	}
	return out
}

func citizenWord(gs *GameState) string {
	for _, a := range gs.Assignments {
		if a.Role == roles.RoleCitizen {
			return a.Word
		}
	}
	return ""
}
