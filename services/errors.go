package services

import "errors"

// Общие ошибки сервисного слоя, используемые в маппинге HTTP.
var (
	// Ресурс не найден
	ErrNotFound       = errors.New("requested resource not found")
	ErrTeamNotFound   = errors.New("team not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrMatchNotFound  = errors.New("match not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed      = errors.New("validation failed")
	ErrTeamNameRequired      = errors.New("team name is required")
	ErrPlayerNameRequired    = errors.New("player name is required")
	ErrInvalidPosition       = errors.New("invalid player position")
	ErrInvalidMatchFormat    = errors.New("match format must be league or tournament")
	ErrInvalidFormatSettings = errors.New("invalid format settings")
	ErrTeamInactive          = errors.New("team is not active")
	ErrInvalidEventType      = errors.New("invalid event type")
	ErrEventTimeInFuture     = errors.New("event time is ahead of the match clock")
	ErrMatchNotDeletable     = errors.New("only scheduled matches can be deleted")

	// Ошибки конфликтов
	ErrTeamNameConflict     = errors.New("team name is already in use")
	ErrJerseyNumberConflict = errors.New("jersey number is already taken in this team")

	// Ошибки жизненного цикла матча
	ErrIllegalTransition = errors.New("illegal match status transition")
	ErrMatchNotLive      = errors.New("match is not in progress")
	ErrNoMoreHalves      = errors.New("no more halves configured for this match")

	// Ошибки состава
	ErrInvalidLineupSize      = errors.New("lineup size does not match the configured players on field")
	ErrInvalidPlayer          = errors.New("player does not belong to the match team or is inactive")
	ErrForeignPlayer          = errors.New("player does not belong to the match team")
	ErrPlayerNotOnField       = errors.New("player is not on the field")
	ErrPlayerAlreadyOnField   = errors.New("player is already on the field")
	ErrUnbalancedSubstitution = errors.New("players out and players in counts do not match")
	ErrHalftimeWindowClosed   = errors.New("halftime changes require a paused live match")

	// Ошибки аутентификации
	ErrAuthInvalidCredentials = errors.New("invalid operator name or password")
)
