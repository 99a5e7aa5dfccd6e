package session

import (
	"context"
	"fmt"

	"sudooom.impostor/internal/roles"
	"sudooom.impostor/internal/translate"
)

// 讨论时长：每位玩家一分钟
const secondsPerPlayer = 60

// Settings 开局设置
type Settings struct {
	ImpostorCount int      `json:"impostorCount"`
	Language      string   `json:"language"`
	Categories    []string `json:"categories"`
}

// StartGame 房主开局：选词、翻译、分配角色后一次性写入 status 与完整 gameState
// players 为空时使用房间当前名单。任何校验或翻译失败都不会产生写入
func (s *Service) StartGame(ctx context.Context, code, requesterID string, players []roles.Player, settings Settings) (*GameState, error) {
	room, err := s.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(requesterID) {
		return nil, ErrNotRoomHost
	}
	if room.Status != StatusLobby {
		return nil, newError(ErrInvalidPhase, fmt.Sprintf("cannot start game in %s", room.Status))
	}

	if len(players) == 0 {
		players = room.Roster()
	}
	n := len(players)
	if n < s.cfg.MinPlayers {
		return nil, newError(ErrNotEnoughPlayers, fmt.Sprintf("need at least %d players, have %d", s.cfg.MinPlayers, n))
	}

	k := settings.ImpostorCount
	if k == 0 {
		k = 1
	}
	if maxK := roles.MaxImpostors(n); k < 1 || k > maxK {
		return nil, &SessionError{
			Code:       ErrInvalidImpostorCount,
			Message:    fmt.Sprintf("impostor count must be between 1 and %d for %d players", maxK, n),
			Suggestion: min(max(k, 1), maxK),
		}
	}

	lang := settings.Language
	if lang == "" {
		lang = translate.SourceLanguage
	}
	if !translate.IsSupported(lang) {
		return nil, newError(ErrUnsupportedLanguage, fmt.Sprintf("language %q is not supported", lang))
	}

	word, err := s.words.RandomWord(settings.Categories)
	if err != nil {
		return nil, &SessionError{Code: ErrWordUnavailable, Message: "failed to pick a word", Err: err}
	}

	content := roles.Content{
		Word:         word.Word,
		Hint:         word.Hint,
		OriginalWord: word.Word,
		OriginalHint: word.Hint,
		ImpostorHint: word.ImpostorHint,
	}
	if lang != translate.SourceLanguage {
		translated, err := s.translator.TranslateGameContent(ctx, word.Word, word.Hint, lang)
		if err != nil {
			s.logger.Warn("Translation failed, game not started", "roomCode", code, "lang", lang, "error", err)
			return nil, retryable(ErrTranslationFailed, "translation failed, check your connection and retry", err)
		}
		content.Word = translated.Word
		content.Hint = translated.Hint
		if lang == "ml" {
			content.Alt = &roles.Translation{Word: translated.Word, Hint: translated.Hint}
		}
	}

	assigned := roles.AssignWith(s.rand, players, k, content)
	assignments := make(map[string]Assignment, len(assigned))
	for _, a := range assigned {
		assignments[a.ID] = newAssignment(a)
	}

	now := s.nowMillis()
	gs := &GameState{
		Assignments:   assignments,
		Phase:         StatusReveal,
		SecretWord:    content.Word,
		Language:      lang,
		ImpostorCount: k,
		Category:      word.Category,
		StartTime:     now,
		Duration:      n * secondsPerPlayer,
		LastActionAt:  now,
	}

	// status 与 gameState 必须在同一次更新中写入
	if err := s.store.Update(ctx, RoomPath(code), map[string]any{
		"status":       StatusReveal,
		"gameState":    gs,
		"lastActionAt": now,
	}); err != nil {
		s.logger.Error("Failed to start game", "roomCode", code, "error", err)
		return nil, retryable(ErrStoreUnavailable, "failed to start game", err)
	}

	s.logger.Info("Game started",
		"roomCode", code,
		"players", n,
		"impostorCount", k,
		"language", lang,
		"category", word.Category)
	return gs, nil
}
