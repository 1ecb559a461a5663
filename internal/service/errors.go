package service

import (
	"errors"
	"fmt"
)

// Common service errors
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrDuplicateAnswer  = errors.New("answer already submitted")
	ErrInsufficientData = errors.New("insufficient data")
)

// User service specific errors
var (
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
)

// Matchmaking errors
var (
	ErrSelfMatch        = fmt.Errorf("%w: cannot play against yourself", ErrInvalidInput)
	ErrUnknownOpponent  = fmt.Errorf("%w: opponent does not exist", ErrInvalidInput)
	ErrMissingPlayerID  = fmt.Errorf("%w: player id is required", ErrInvalidInput)
	ErrInvalidPlayerIDs = fmt.Errorf("%w: players must be different", ErrInvalidInput)
)

// Game errors
var (
	ErrMatchNotFound         = fmt.Errorf("match %w", ErrNotFound)
	ErrRoundNotFound         = fmt.Errorf("round %w", ErrNotFound)
	ErrNoActiveRound         = fmt.Errorf("active round %w", ErrNotFound)
	ErrNotParticipant        = fmt.Errorf("%w: not a participant of this match", ErrForbidden)
	ErrNotYourTurn           = fmt.Errorf("%w: not your turn to choose", ErrForbidden)
	ErrMatchNotActive        = fmt.Errorf("%w: match is not active", ErrInvalidState)
	ErrCategoryAlreadyChosen = fmt.Errorf("%w: category already chosen", ErrInvalidState)
	ErrCategoryNotChosen     = fmt.Errorf("%w: category not chosen yet", ErrInvalidState)
	ErrInvalidCategory       = fmt.Errorf("%w: invalid category", ErrInvalidInput)
	ErrInvalidQuestionNumber = fmt.Errorf("%w: invalid question number", ErrInvalidInput)
	ErrNotEnoughQuestions    = fmt.Errorf("%w: not enough questions in category", ErrInsufficientData)
)

// ErrorKind API로 전달되는 에러 분류
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindAuthorization    ErrorKind = "authorization"
	KindNotFound         ErrorKind = "not_found"
	KindInvalidState     ErrorKind = "invalid_state"
	KindDuplicateAnswer  ErrorKind = "duplicate_answer"
	KindInsufficientData ErrorKind = "insufficient_data"
	KindConflict         ErrorKind = "conflict"
	KindInternal         ErrorKind = "internal"
)

// KindOf 에러를 분류 (알 수 없는 에러는 internal)
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return KindUnauthorized
	case errors.Is(err, ErrForbidden):
		return KindAuthorization
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrDuplicateAnswer):
		return KindDuplicateAnswer
	case errors.Is(err, ErrInsufficientData):
		return KindInsufficientData
	case errors.Is(err, ErrUserAlreadyExists):
		return KindConflict
	default:
		return KindInternal
	}
}
