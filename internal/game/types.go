package game

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
	StatusWon     Status = "won"
)

// Mode is the win rule for a round.
type Mode string

const (
	ModeExact     Mode = "exact"
	ModeQuickfire Mode = "quickfire"
)

func (m Mode) Valid() bool { return m == ModeExact || m == ModeQuickfire }

// Label is the display name shown by render surfaces.
func (m Mode) Label() string {
	if m == ModeQuickfire {
		return "Quickfire Closest"
	}
	return "Exact Match"
}

// Ordering decides how the turn sequence is built at round start.
type Ordering string

const (
	OrderRandom Ordering = "random"
	OrderSet    Ordering = "set"
)

func (o Ordering) Valid() bool { return o == OrderRandom || o == OrderSet }

// Feedback classifies a guess. FeedbackLower means the guess was below the
// target, FeedbackHigher that it was above.
type Feedback string

const (
	FeedbackCorrect Feedback = "correct"
	FeedbackHigher  Feedback = "higher"
	FeedbackLower   Feedback = "lower"
	FeedbackNeutral Feedback = "neutral"
)

const (
	// MaxNumberCeiling is the largest allowed range upper bound.
	MaxNumberCeiling = 1_000_000
	DefaultMaxNumber = 50
	DefaultMinMax    = 5
)

type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Wins   int    `json:"wins"`
	Streak int    `json:"streak"`
}

// Guess is immutable once recorded.
type Guess struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"playerId"`
	PlayerName string    `json:"player"`
	Value      int       `json:"value"`
	Feedback   Feedback  `json:"feedback"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Settings struct {
	Mode      Mode     `json:"mode"`
	Ordering  Ordering `json:"ordering"`
	MaxNumber int      `json:"maxNumber"`
	Hints     bool     `json:"hints"`
}

// Envelope WS envelope: {"type":"...","payload":{...}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// inbound payloads
type AddPlayerPayload struct {
	Name string `json:"name"`
}

type PlayerRefPayload struct {
	PlayerID string `json:"playerId"`
}

type ReorderPayload struct {
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
}

type SetModePayload struct {
	Mode Mode `json:"mode"`
}

type SetOrderingPayload struct {
	Ordering Ordering `json:"ordering"`
}

type SetMaxPayload struct {
	Max int `json:"max"`
}

type SetHintsPayload struct {
	Enabled bool `json:"enabled"`
}

type SubmitGuessPayload struct {
	Value string `json:"value"`
}

type RestartPayload struct {
	ResetPlayers bool `json:"resetPlayers"`
}

type ConfirmReplyPayload struct {
	Token string `json:"token"`
	OK    bool   `json:"ok"`
}

// outbound payloads
type ConfirmPayload struct {
	Token  string `json:"token"`
	Prompt string `json:"prompt"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
