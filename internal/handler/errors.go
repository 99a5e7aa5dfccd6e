package handler

import (
	"errors"

	"sudooom.impostor/internal/session"
	appErrors "sudooom.impostor/pkg/errors"
)

var sessionErrors = []struct {
	sentinel error
	app      *appErrors.AppError
}{
	{session.ErrRoomNotFound, appErrors.ErrRoomNotFound},
	{session.ErrInvalidRoomCode, appErrors.ErrInvalidRoomCode},
	{session.ErrRoomCodeUnavailable, appErrors.ErrRoomCodeUnavailable},
	{session.ErrGameStarted, appErrors.ErrGameStarted},
	{session.ErrNotRoomHost, appErrors.ErrNotRoomHost},
	{session.ErrInvalidPlayer, appErrors.ErrInvalidPlayer},
	{session.ErrNotEnoughPlayers, appErrors.ErrNotEnoughPlayers},
	{session.ErrInvalidImpostorCount, appErrors.ErrInvalidImpostorCount},
	{session.ErrUnsupportedLanguage, appErrors.ErrUnsupportedLanguage},
	{session.ErrTranslationFailed, appErrors.ErrTranslationFailed},
	{session.ErrWordUnavailable, appErrors.ErrWordUnavailable},
	{session.ErrNotInGame, appErrors.ErrNotInGame},
	{session.ErrInvalidPhase, appErrors.ErrInvalidPhase},
	{session.ErrAlreadyVoted, appErrors.ErrAlreadyVoted},
	{session.ErrStoreUnavailable, appErrors.ErrStoreUnavailable},
}

// toAppError 会话错误转换为接口错误码，SessionError 的说明作为消息
func toAppError(err error) *appErrors.AppError {
	for _, e := range sessionErrors {
		if !errors.Is(err, e.sentinel) {
			continue
		}
		var se *session.SessionError
		if errors.As(err, &se) && se.Message != "" {
			return e.app.WithMessage(se.Message).Wrap(err)
		}
		return e.app.Wrap(err)
	}
	return appErrors.ErrServerError.Wrap(err)
}
