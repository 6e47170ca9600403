package session

import "errors"

// not-found
var (
	ErrRoomNotFound = errors.New("room-not-found")
	ErrGameNotFound = errors.New("game-not-found")
)

// precondition-failed
var (
	ErrNotInRoom          = errors.New("not-in-room")
	ErrNoActiveGame       = errors.New("no-active-game")
	ErrNotHost            = errors.New("not-host")
	ErrNotEnoughPlayers   = errors.New("not-enough-players")
	ErrGameInProgress     = errors.New("game-in-progress")
	ErrGameFull           = errors.New("game-full")
	ErrInvalidPhase       = errors.New("invalid-phase")
	ErrRoomNotPersistent  = errors.New("room-not-persistent")
	ErrCodeSpaceExhausted = errors.New("code-space-exhausted")
	ErrDrawerCannotGuess  = errors.New("drawer-cannot-guess")
	ErrAlreadyGuessed     = errors.New("already-guessed")
)

// collaborator-failure
var (
	ErrPersistenceUnavailable = errors.New("persistence-unavailable")
	ErrPersistenceFailed      = errors.New("persistence-failed")
)

// malformed-input
var (
	ErrInvalidPayload  = errors.New("invalid-payload")
	ErrMissingUserName = errors.New("missing-user-name")
	ErrMissingCode     = errors.New("missing-code")
	ErrInvalidSettings = errors.New("invalid-settings")
	ErrUnknownEvent    = errors.New("unknown-event")
)

const (
	KindNotFound            = "not-found"
	KindPreconditionFailed  = "precondition-failed"
	KindCollaboratorFailure = "collaborator-failure"
	KindMalformedInput      = "malformed-input"
	KindUnknown             = "unknown"
)

// ErrorKind classifies err into one of the four failure kinds reported to clients.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrGameNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotInRoom), errors.Is(err, ErrNoActiveGame), errors.Is(err, ErrNotHost),
		errors.Is(err, ErrNotEnoughPlayers), errors.Is(err, ErrGameInProgress), errors.Is(err, ErrGameFull),
		errors.Is(err, ErrInvalidPhase), errors.Is(err, ErrRoomNotPersistent),
		errors.Is(err, ErrCodeSpaceExhausted), errors.Is(err, ErrDrawerCannotGuess), errors.Is(err, ErrAlreadyGuessed):
		return KindPreconditionFailed
	case errors.Is(err, ErrPersistenceUnavailable), errors.Is(err, ErrPersistenceFailed):
		return KindCollaboratorFailure
	case errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrMissingUserName), errors.Is(err, ErrMissingCode),
		errors.Is(err, ErrInvalidSettings), errors.Is(err, ErrUnknownEvent):
		return KindMalformedInput
	default:
		return KindUnknown
	}
}
