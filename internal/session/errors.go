package session

import (
	"errors"
	"fmt"
)

// 会话错误定义

var (
	ErrRoomNotFound         = errors.New("ROOM_NOT_FOUND")
	ErrInvalidRoomCode      = errors.New("INVALID_ROOM_CODE")
	ErrRoomCodeUnavailable  = errors.New("ROOM_CODE_UNAVAILABLE")
	ErrGameStarted          = errors.New("GAME_STARTED")
	ErrNotRoomHost          = errors.New("NOT_ROOM_HOST")
	ErrNotEnoughPlayers     = errors.New("NOT_ENOUGH_PLAYERS")
	ErrInvalidImpostorCount = errors.New("INVALID_IMPOSTOR_COUNT")
	ErrUnsupportedLanguage  = errors.New("UNSUPPORTED_LANGUAGE")
	ErrTranslationFailed    = errors.New("TRANSLATION_FAILED")
	ErrWordUnavailable      = errors.New("WORD_UNAVAILABLE")
	ErrNotInGame            = errors.New("NOT_IN_GAME")
	ErrInvalidPhase         = errors.New("INVALID_PHASE")
	ErrInvalidPlayer        = errors.New("INVALID_PLAYER")
	ErrAlreadyVoted         = errors.New("ALREADY_VOTED")
	ErrStoreUnavailable     = errors.New("STORE_UNAVAILABLE")
)

// SessionError 携带可重试标记与修正建议的会话错误
type SessionError struct {
	Code       error  // 上面定义的哨兵错误
	Message    string // 面向用户的说明
	Retryable  bool
	Suggestion int // 非零时为建议值，如修正后的卧底人数
	Err        error
}

func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap 同时暴露哨兵错误与底层错误
func (e *SessionError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Code, e.Err}
	}
	return []error{e.Code}
}

func newError(code error, message string) *SessionError {
	return &SessionError{Code: code, Message: message}
}

func retryable(code error, message string, err error) *SessionError {
	return &SessionError{Code: code, Message: message, Retryable: true, Err: err}
}

// IsRetryable 错误是否可由用户重试
func IsRetryable(err error) bool {
	var se *SessionError
	return errors.As(err, &se) && se.Retryable
}

// SuggestionOf 返回错误携带的修正建议
func SuggestionOf(err error) (int, bool) {
	var se *SessionError
	if errors.As(err, &se) && se.Suggestion != 0 {
		return se.Suggestion, true
	}
	return 0, false
}
