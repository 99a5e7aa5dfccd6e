package errors

import (
	"errors"
	"fmt"
)

// AppError 应用错误类型
// 对外接口统一使用的错误码与错误消息
type AppError struct {
	Code    int    // 错误码
	Message string // 用户可见的错误消息
	Err     error  // 原始错误（可选，用于调试）
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError 创建新错误
func NewError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装原始错误
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// WithMessage 替换用户可见消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Err:     e.Err,
	}
}

// Is 判断是否为指定错误
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// GetCode 获取错误码，如果不是 AppError 返回默认错误码
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// ============== 错误码定义 ==============

const (
	CodeSuccess = 0

	// 会话相关 10000-10999
	CodeSessionNotFound = 10001
	CodeSessionMismatch = 10002

	// 参数相关 11000-11999
	CodeInvalidParams = 11002

	// 房间相关 20000-20999
	CodeRoomNotFound        = 20001
	CodeInvalidRoomCode     = 20002
	CodeRoomCodeUnavailable = 20003
	CodeGameStarted         = 20004
	CodeNotRoomHost         = 20005
	CodeInvalidPlayer       = 20006

	// 对局相关 21000-21999
	CodeNotEnoughPlayers     = 21001
	CodeInvalidImpostorCount = 21002
	CodeUnsupportedLanguage  = 21003
	CodeTranslationFailed    = 21004
	CodeWordUnavailable      = 21005
	CodeNotInGame            = 21006
	CodeInvalidPhase         = 21007
	CodeAlreadyVoted         = 21008

	// 系统错误 50000-50999
	CodeServerError      = 50001
	CodeDBError          = 50002
	CodeStoreUnavailable = 50004
)

// ============== 预定义错误 ==============

// 会话相关
var (
	ErrSessionNotFound = NewError(CodeSessionNotFound, "session not found or expired")
	ErrSessionMismatch = NewError(CodeSessionMismatch, "session does not belong to this room")
	ErrInvalidParams   = NewError(CodeInvalidParams, "invalid parameters")
)

// 房间相关
var (
	ErrRoomNotFound        = NewError(CodeRoomNotFound, "room not found")
	ErrInvalidRoomCode     = NewError(CodeInvalidRoomCode, "room code must be 6 digits")
	ErrRoomCodeUnavailable = NewError(CodeRoomCodeUnavailable, "no free room code, try again")
	ErrGameStarted         = NewError(CodeGameStarted, "game already started")
	ErrNotRoomHost         = NewError(CodeNotRoomHost, "only the host can do this")
	ErrInvalidPlayer       = NewError(CodeInvalidPlayer, "invalid player")
)

// 对局相关
var (
	ErrNotEnoughPlayers     = NewError(CodeNotEnoughPlayers, "not enough players")
	ErrInvalidImpostorCount = NewError(CodeInvalidImpostorCount, "invalid impostor count")
	ErrUnsupportedLanguage  = NewError(CodeUnsupportedLanguage, "unsupported language")
	ErrTranslationFailed    = NewError(CodeTranslationFailed, "translation failed, check your connection and retry")
	ErrWordUnavailable      = NewError(CodeWordUnavailable, "no word available")
	ErrNotInGame            = NewError(CodeNotInGame, "player is not in this game")
	ErrInvalidPhase         = NewError(CodeInvalidPhase, "action not allowed in current phase")
	ErrAlreadyVoted         = NewError(CodeAlreadyVoted, "already voted this round")
)

// 系统相关
var (
	ErrServerError      = NewError(CodeServerError, "internal server error")
	ErrDBError          = NewError(CodeDBError, "database error")
	ErrStoreUnavailable = NewError(CodeStoreUnavailable, "store unavailable, please retry")
)
