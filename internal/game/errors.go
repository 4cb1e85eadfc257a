package game

import "errors"

// Validation errors. Each one is also surfaced as the session's
// current message until the next successful intent.
var (
	ErrEmptyName         = errors.New("enter a name before joining")
	ErrDuplicateName     = errors.New("that name is already in the lobby")
	ErrJoinMidRound      = errors.New("players can join once the current round is over")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrNoPlayers         = errors.New("add at least one player before starting")
	ErrQuickfirePlayers  = errors.New("quickfire needs at least two players")
	ErrRoundNotActive    = errors.New("no round in progress")
	ErrRoundActive       = errors.New("settings are locked while a round is in progress")
	ErrNotInteger        = errors.New("enter a whole number")
	ErrGuessOutOfRange   = errors.New("guess out of range")
	ErrDuplicateGuess    = errors.New("that number was already guessed this round, pick a new one")
	ErrAlreadyGuessed    = errors.New("each player only gets one guess in quickfire")
	ErrReorderNotAllowed = errors.New("players can only be reordered in set order before a round starts")
	ErrNoWinner          = errors.New("there is no winner to remove")
	ErrInvalidMode       = errors.New("unknown game mode")
	ErrInvalidOrdering   = errors.New("unknown guess order")
	ErrInvalidMaxNumber  = errors.New("range must be a whole number")
)

// ErrDeclined is returned when a confirmation prompt was answered "no".
// It never replaces the session message.
var ErrDeclined = errors.New("action cancelled")

var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableClosed   = errors.New("table closed")
)
