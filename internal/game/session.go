package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"example.com/stuckem/internal/dependencies/clock"
	"example.com/stuckem/internal/dependencies/random"
	"github.com/google/uuid"
)

type Options struct {
	// SecretWinner is the rigging name; empty disables rigging.
	SecretWinner string
	// MinMaxNumber is the floor for the range upper bound.
	MinMaxNumber int
	MaxNumber    int
	Hints        bool
	FeedbackTTL  time.Duration
	RestartTTL   time.Duration

	Random random.Random
	Clock  clock.Clock
}

// Session is the round controller for one pass-and-play game. It is not
// safe for concurrent use; callers feed it one intent at a time.
type Session struct {
	rnd random.Random
	clk clock.Clock
	rig Rig

	minMax      int
	feedbackTTL time.Duration
	restartTTL  time.Duration

	settings Settings
	registry *Registry

	status  Status
	round   int
	target  int // 0 outside a round, or while a rigged exact round has not resolved it
	turns   []string
	turn    int
	guesses []Guess
	winner  *Player
	rigged  RigState

	message     string
	cueSeq      uint64
	feedbackCue Signal
	restartCue  Signal
}

func NewSession(opts Options) *Session {
	if opts.Random == nil {
		opts.Random = random.New()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.MinMaxNumber < 1 {
		opts.MinMaxNumber = DefaultMinMax
	}
	if opts.MaxNumber == 0 {
		opts.MaxNumber = DefaultMaxNumber
	}
	if opts.FeedbackTTL <= 0 {
		opts.FeedbackTTL = 1400 * time.Millisecond
	}
	if opts.RestartTTL <= 0 {
		opts.RestartTTL = 1300 * time.Millisecond
	}

	s := &Session{
		rnd:         opts.Random,
		clk:         opts.Clock,
		rig:         NewRig(opts.SecretWinner),
		minMax:      opts.MinMaxNumber,
		feedbackTTL: opts.FeedbackTTL,
		restartTTL:  opts.RestartTTL,
		registry:    NewRegistry(),
		status:      StatusWaiting,
		settings: Settings{
			Mode:     ModeExact,
			Ordering: OrderRandom,
			Hints:    opts.Hints,
		},
	}
	s.settings.MaxNumber = s.clampMax(opts.MaxNumber)
	return s
}

func (s *Session) Status() Status { return s.status }

func (s *Session) Round() int { return s.round }

func (s *Session) Settings() Settings { return s.settings }

func (s *Session) Players() []Player { return s.registry.Players() }

func (s *Session) Guesses() []Guess { return append([]Guess(nil), s.guesses...) }

func (s *Session) Message() string { return s.message }

// PlayerByName looks a player up by exact (trimmed) name.
func (s *Session) PlayerByName(name string) (Player, bool) { return s.registry.FindByName(name) }

// Winner returns the current round's winner, if any.
func (s *Session) Winner() (Player, bool) {
	if s.winner == nil {
		return Player{}, false
	}
	return *s.winner, true
}

// CurrentPlayer is the player expected to guess next.
func (s *Session) CurrentPlayer() (Player, bool) {
	if len(s.turns) > 0 {
		return s.registry.Get(s.turns[s.turn%len(s.turns)])
	}
	players := s.registry.players
	if len(players) == 0 {
		return Player{}, false
	}
	return players[s.turn%len(players)], true
}

// HintsActive reports whether higher/lower hints and range narrowing apply.
// They are suppressed whenever a secret winner is configured.
func (s *Session) HintsActive() bool {
	return s.settings.Hints && s.settings.Mode == ModeExact && !s.rig.Configured()
}

// GuessBounds is the range the next guess must fall in.
func (s *Session) GuessBounds() (int, int) {
	return Bounds(s.settings.MaxNumber, s.guesses, s.HintsActive())
}

func (s *Session) AddPlayer(name string) (Player, error) {
	if s.status == StatusActive {
		return Player{}, s.record(ErrJoinMidRound)
	}
	p, err := s.registry.Add(name)
	if err != nil {
		return Player{}, s.record(err)
	}
	return p, s.record(nil)
}

// RemovePlayer asks c to confirm, then drops the player from the registry
// and from the running round.
func (s *Session) RemovePlayer(ctx context.Context, id string, c Confirmer) error {
	p, ok := s.registry.Get(id)
	if !ok {
		return s.record(ErrPlayerNotFound)
	}
	if err := confirm(ctx, c, fmt.Sprintf("Remove %s from the game?", p.Name)); err != nil {
		return err
	}

	s.registry.Remove(id)
	if s.registry.Len() == 0 {
		s.resetRound()
		return s.record(nil)
	}

	if s.winner != nil && s.winner.ID == id {
		s.continueWithoutWinner(id)
		return s.record(nil)
	}

	if len(s.turns) == 0 {
		if s.turn >= s.registry.Len() {
			s.turn = 0
		}
		return s.record(nil)
	}

	s.dropFromTurns(id)
	if s.status != StatusActive {
		return s.record(nil)
	}

	if s.rigged.SecretID == id {
		s.rigged = RigState{}
		if s.target == 0 {
			s.target = s.newTarget()
		}
	}
	if s.settings.Mode == ModeQuickfire {
		kept := s.guesses[:0]
		for _, g := range s.guesses {
			if g.PlayerID != id {
				kept = append(kept, g)
			}
		}
		s.guesses = kept
		if len(s.guesses) > 0 && s.everyoneGuessed(s.guesses) {
			ev := s.finishQuickfire(FeedbackNeutral, s.guesses)
			if ev.ResolvedTarget != 0 {
				s.target = ev.ResolvedTarget
			}
			s.resolveWin(ev.WinnerID)
		} else if len(s.turns) > 0 && hasGuessed(s.guesses, s.turns[s.turn]) {
			s.advanceQuickfire()
		}
	}
	return s.record(nil)
}

// RemoveWinner drops the current winner and lets the remaining players
// continue with a fresh target.
func (s *Session) RemoveWinner() error {
	if s.winner == nil {
		return s.record(ErrNoWinner)
	}
	id := s.winner.ID
	s.registry.Remove(id)
	if s.registry.Len() == 0 {
		s.resetRound()
		return s.record(nil)
	}
	s.continueWithoutWinner(id)
	return s.record(nil)
}

// Reorder moves sourceID to anchorID's position. Only allowed in set order
// while waiting. The turn pointer keeps pointing at the same player.
func (s *Session) Reorder(sourceID, anchorID string) error {
	if s.status != StatusWaiting || s.settings.Ordering != OrderSet {
		return s.record(ErrReorderNotAllowed)
	}
	if sourceID == anchorID {
		return s.record(nil)
	}
	current, hasCurrent := s.CurrentPlayer()
	if !s.registry.Move(sourceID, anchorID) {
		return s.record(ErrPlayerNotFound)
	}
	if hasCurrent && len(s.turns) == 0 {
		if i := s.registry.IndexOf(current.ID); i >= 0 {
			s.turn = i
		}
	}
	return s.record(nil)
}

func (s *Session) SetMode(m Mode) error {
	if !m.Valid() {
		return s.record(ErrInvalidMode)
	}
	if s.status == StatusActive {
		return s.record(ErrRoundActive)
	}
	s.settings.Mode = m
	s.resetRound()
	return s.record(nil)
}

func (s *Session) SetOrdering(o Ordering) error {
	if !o.Valid() {
		return s.record(ErrInvalidOrdering)
	}
	if s.status == StatusActive {
		return s.record(ErrRoundActive)
	}
	s.settings.Ordering = o
	s.resetRound()
	return s.record(nil)
}

// SetMaxNumber clamps n into the allowed range and stores it. It takes
// effect at the next round start.
func (s *Session) SetMaxNumber(n int) (int, error) {
	if s.status == StatusActive {
		return s.settings.MaxNumber, s.record(ErrRoundActive)
	}
	s.settings.MaxNumber = s.clampMax(n)
	return s.settings.MaxNumber, s.record(nil)
}

func (s *Session) SetHints(on bool) error {
	if s.status == StatusActive {
		return s.record(ErrRoundActive)
	}
	s.settings.Hints = on
	return s.record(nil)
}

// StartRound snapshots the registry into a turn sequence and begins a new
// round. It also serves as "play again" after a win.
func (s *Session) StartRound() error {
	if s.status == StatusActive {
		return s.record(ErrRoundActive)
	}
	n := s.registry.Len()
	if n == 0 {
		return s.record(ErrNoPlayers)
	}
	if s.settings.Mode == ModeQuickfire && n < 2 {
		return s.record(ErrQuickfirePlayers)
	}

	turns := make([]string, 0, n)
	for _, p := range s.registry.players {
		turns = append(turns, p.ID)
	}
	if s.settings.Ordering == OrderRandom {
		random.Shuffle(s.rnd, len(turns), func(i, j int) {
			turns[i], turns[j] = turns[j], turns[i]
		})
	}

	s.turns = turns
	s.turn = 0
	s.guesses = nil
	s.winner = nil
	s.feedbackCue = Signal{}
	s.planRound()
	s.status = StatusActive
	s.round++
	return s.record(nil)
}

// SubmitGuess records a guess for the current player.
func (s *Session) SubmitGuess(raw string) (Guess, error) {
	if s.status != StatusActive {
		return Guess{}, s.record(ErrRoundNotActive)
	}
	cur, ok := s.CurrentPlayer()
	if !ok {
		return Guess{}, s.record(ErrRoundNotActive)
	}

	lo, hi := s.GuessBounds()
	v, err := ParseGuess(raw, lo, hi)
	if err != nil {
		return Guess{}, s.record(err)
	}
	if containsValue(s.guesses, v) {
		return Guess{}, s.record(ErrDuplicateGuess)
	}
	if s.settings.Mode == ModeQuickfire && hasGuessed(s.guesses, cur.ID) {
		return Guess{}, s.record(ErrAlreadyGuessed)
	}

	now := s.clk.Now()
	g := Guess{
		ID:         uuid.NewString(),
		PlayerID:   cur.ID,
		PlayerName: cur.Name,
		Value:      v,
		CreatedAt:  now,
	}
	ev := s.evaluate(g)
	g.Feedback = ev.Feedback
	s.guesses = append(s.guesses, g)

	if ev.ResolvedTarget != 0 {
		s.target = ev.ResolvedTarget
	}
	if g.Feedback != FeedbackNeutral {
		s.cue(string(g.Feedback))
	}

	switch {
	case ev.EndsRound:
		s.resolveWin(ev.WinnerID)
	case s.settings.Mode == ModeQuickfire:
		s.advanceQuickfire()
	default:
		s.turn = (s.turn + 1) % len(s.turns)
	}
	return g, s.record(nil)
}

// ClearRound returns to waiting, keeping the registry.
func (s *Session) ClearRound() {
	s.resetRound()
	s.record(nil)
}

// Restart asks c to confirm, then clears the round and, with resetPlayers,
// the registry.
func (s *Session) Restart(ctx context.Context, resetPlayers bool, c Confirmer) error {
	if err := confirm(ctx, c, "Restart the current game and wipe to start fresh?"); err != nil {
		return err
	}
	s.resetRound()
	if resetPlayers {
		s.registry.Reset()
	}
	s.cueSeq++
	s.restartCue = Signal{Kind: CueRestart, Seq: s.cueSeq, ExpiresAt: s.clk.Now().Add(s.restartTTL)}
	return s.record(nil)
}

func (s *Session) evaluate(g Guess) Evaluation {
	if s.settings.Mode == ModeQuickfire {
		fb := FeedbackNeutral
		if !s.rigged.Active() && g.Value == s.target {
			fb = FeedbackCorrect
		}
		next := append(append([]Guess(nil), s.guesses...), g)
		if !s.everyoneGuessed(next) {
			return Evaluation{Feedback: fb}
		}
		return s.finishQuickfire(fb, next)
	}

	if s.rigged.Active() {
		if s.rigged.TriggersExact(g.PlayerID, len(s.guesses)) {
			return Evaluation{Feedback: FeedbackCorrect, EndsRound: true, WinnerID: g.PlayerID, ResolvedTarget: g.Value}
		}
		return Evaluation{Feedback: FeedbackNeutral}
	}

	fb := Classify(g.Value, s.target, s.HintsActive())
	if fb == FeedbackCorrect {
		return Evaluation{Feedback: fb, EndsRound: true, WinnerID: g.PlayerID}
	}
	return Evaluation{Feedback: fb}
}

func (s *Session) finishQuickfire(fb Feedback, guesses []Guess) Evaluation {
	ev := Evaluation{Feedback: fb, EndsRound: true}
	if target, ok := s.rigged.ResolveQuickfire(guesses, s.settings.MaxNumber, s.rnd); ok {
		ev.ResolvedTarget = target
		ev.WinnerID = s.rigged.SecretID
		return ev
	}
	best, _ := Closest(guesses, s.target)
	ev.WinnerID = best.PlayerID
	return ev
}

func (s *Session) everyoneGuessed(guesses []Guess) bool {
	for _, id := range s.turns {
		if !hasGuessed(guesses, id) {
			return false
		}
	}
	return len(s.turns) > 0
}

// advanceQuickfire moves to the next player in the turn sequence who has
// not guessed yet.
func (s *Session) advanceQuickfire() {
	n := len(s.turns)
	for i := 1; i <= n; i++ {
		next := (s.turn + i) % n
		if !hasGuessed(s.guesses, s.turns[next]) {
			s.turn = next
			return
		}
	}
}

// resolveWin credits the winner and ends the round.
func (s *Session) resolveWin(winnerID string) {
	w, ok := s.registry.recordWin(winnerID)
	if !ok {
		return
	}
	s.winner = &w
	s.status = StatusWon
	s.rigged = RigState{}
	s.cue(string(FeedbackCorrect))
}

func (s *Session) continueWithoutWinner(id string) {
	s.dropFromTurns(id)
	s.guesses = nil
	s.winner = nil
	s.feedbackCue = Signal{}
	s.planRound()
	s.status = StatusActive
}

// planRound computes the rig state and the target for the current turns.
func (s *Session) planRound() {
	s.rigged = s.rig.Plan(s.registry, s.turns, s.settings.Mode, s.settings.MaxNumber, s.rnd)
	if s.settings.Mode == ModeExact && s.rigged.Active() {
		s.target = 0
		return
	}
	s.target = s.newTarget()
}

func (s *Session) resetRound() {
	s.status = StatusWaiting
	s.turns = nil
	s.turn = 0
	s.guesses = nil
	s.winner = nil
	s.rigged = RigState{}
	s.feedbackCue = Signal{}
	s.target = 0
}

func (s *Session) dropFromTurns(id string) {
	for i, tid := range s.turns {
		if tid != id {
			continue
		}
		s.turns = append(s.turns[:i], s.turns[i+1:]...)
		if i < s.turn {
			s.turn--
		}
		break
	}
	if s.turn >= len(s.turns) {
		s.turn = 0
	}
}

func (s *Session) cue(kind string) {
	s.cueSeq++
	s.feedbackCue = Signal{Kind: kind, Seq: s.cueSeq, ExpiresAt: s.clk.Now().Add(s.feedbackTTL)}
}

func (s *Session) newTarget() int {
	return 1 + s.rnd.Intn(s.settings.MaxNumber)
}

func (s *Session) clampMax(n int) int {
	return max(s.minMax, min(n, MaxNumberCeiling))
}

// record replaces the session message with err, or clears it on success.
func (s *Session) record(err error) error {
	switch {
	case err == nil:
		s.message = ""
	case errors.Is(err, ErrDeclined):
	default:
		s.message = err.Error()
	}
	return err
}
