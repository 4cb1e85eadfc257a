package game

import (
	"context"
	"testing"
	"time"

	"example.com/stuckem/internal/dependencies/mocks"
	"github.com/stretchr/testify/suite"
)

var declineAll = ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })

type SessionSuite struct {
	suite.Suite
	rnd *mocks.MockRandom
	clk *mocks.MockClock
	ctx context.Context
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.rnd = mocks.NewMockRandom()
	s.clk = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.ctx = context.Background()
}

func (s *SessionSuite) newSession(opts Options) *Session {
	opts.Random = s.rnd
	opts.Clock = s.clk
	return NewSession(opts)
}

// table builds a session in set order with the given players.
func (s *SessionSuite) table(opts Options, players ...string) (*Session, map[string]Player) {
	sess := s.newSession(opts)
	s.Require().NoError(sess.SetOrdering(OrderSet))
	byName := make(map[string]Player, len(players))
	for _, n := range players {
		p, err := sess.AddPlayer(n)
		s.Require().NoError(err)
		byName[n] = p
	}
	return sess, byName
}

func (s *SessionSuite) guess(sess *Session, raw string) Guess {
	s.T().Helper()
	g, err := sess.SubmitGuess(raw)
	s.Require().NoError(err)
	return g
}

func (s *SessionSuite) current(sess *Session) string {
	p, ok := sess.CurrentPlayer()
	s.Require().True(ok)
	return p.Name
}

func (s *SessionSuite) TestDefaults() {
	sess := s.newSession(Options{})
	st := sess.Settings()
	s.Equal(ModeExact, st.Mode)
	s.Equal(OrderRandom, st.Ordering)
	s.Equal(DefaultMaxNumber, st.MaxNumber)
	s.False(st.Hints)
	s.Equal(StatusWaiting, sess.Status())
	s.Empty(s.rnd.Calls, "no target is drawn before a round starts")

	v := sess.View()
	s.Equal("Setting up", v.StatusLabel)
	s.Equal("Exact Match", v.ModeLabel)
	s.True(v.CanAddPlayers)
	s.False(v.CanGuess)
	s.Nil(v.Target)
}

func (s *SessionSuite) TestExactWithHints() {
	sess, _ := s.table(Options{Hints: true}, "Alice", "Bob")
	s.rnd.QueueIntn(6)

	s.Require().NoError(sess.StartRound())
	s.Equal(StatusActive, sess.Status())
	s.Equal(1, sess.Round())
	s.Equal([]int{50}, s.rnd.Calls)
	s.Equal("Alice", s.current(sess))
	s.Nil(sess.View().Target, "target stays hidden during the round")

	g := s.guess(sess, "5")
	s.Equal(FeedbackLower, g.Feedback)
	lo, hi := sess.GuessBounds()
	s.Equal(6, lo)
	s.Equal(50, hi)
	s.Equal("Bob", s.current(sess))

	_, err := sess.SubmitGuess("5")
	s.ErrorIs(err, ErrGuessOutOfRange)
	s.Contains(sess.Message(), "between 6 and 50")

	g = s.guess(sess, "7")
	s.Equal(FeedbackCorrect, g.Feedback)
	s.Empty(sess.Message())
	s.Equal(StatusWon, sess.Status())

	w, ok := sess.Winner()
	s.Require().True(ok)
	s.Equal("Bob", w.Name)
	s.Equal(1, w.Wins)
	s.Equal(1, w.Streak)

	v := sess.View()
	s.Equal("Winner", v.StatusLabel)
	s.Require().NotNil(v.Target)
	s.Equal(7, *v.Target)
	s.False(v.CanGuess)
	s.True(v.CanAddPlayers)
}

func (s *SessionSuite) TestExactWithoutHintsIsNeutral() {
	sess, _ := s.table(Options{}, "Alice")
	s.rnd.QueueIntn(6)
	s.Require().NoError(sess.StartRound())

	g := s.guess(sess, "5")
	s.Equal(FeedbackNeutral, g.Feedback)
	lo, hi := sess.GuessBounds()
	s.Equal(1, lo)
	s.Equal(50, hi)
	s.Nil(sess.View().Feedback, "neutral guesses raise no cue")
	s.Equal("Alice", s.current(sess), "a lone player keeps the turn")
}

func (s *SessionSuite) TestQuickfireClosestWins() {
	sess, _ := s.table(Options{}, "Alice", "Bob")
	s.Require().NoError(sess.SetMode(ModeQuickfire))
	_, err := sess.SetMaxNumber(60)
	s.Require().NoError(err)
	s.rnd.QueueIntn(49)
	s.Require().NoError(sess.StartRound())

	g := s.guess(sess, "40")
	s.Equal(FeedbackNeutral, g.Feedback)
	s.Equal(StatusActive, sess.Status())
	s.Equal("Bob", s.current(sess))

	s.guess(sess, "55")
	s.Equal(StatusWon, sess.Status())
	w, _ := sess.Winner()
	s.Equal("Bob", w.Name)
	s.Equal(50, *sess.View().Target)
}

func (s *SessionSuite) TestQuickfireExactHitDoesNotEndEarly() {
	sess, _ := s.table(Options{}, "Alice", "Bob", "Cara")
	s.Require().NoError(sess.SetMode(ModeQuickfire))
	s.rnd.QueueIntn(9)
	s.Require().NoError(sess.StartRound())

	g := s.guess(sess, "10")
	s.Equal(FeedbackCorrect, g.Feedback)
	s.Equal(StatusActive, sess.Status())
	s.Require().NotNil(sess.View().Feedback)
	s.Equal(string(FeedbackCorrect), sess.View().Feedback.Kind)

	s.guess(sess, "20")
	s.guess(sess, "30")
	w, _ := sess.Winner()
	s.Equal("Alice", w.Name)
}

func (s *SessionSuite) TestQuickfireNeedsTwoPlayers() {
	sess, _ := s.table(Options{}, "Alice")
	s.Require().NoError(sess.SetMode(ModeQuickfire))
	s.ErrorIs(sess.StartRound(), ErrQuickfirePlayers)
	s.Equal(ErrQuickfirePlayers.Error(), sess.Message())
	s.Equal(StatusWaiting, sess.Status())
}

func (s *SessionSuite) TestRiggedExact() {
	sess := s.newSession(Options{SecretWinner: "Alice", Hints: true})
	_, err := sess.AddPlayer("Alice")
	s.Require().NoError(err)
	_, err = sess.AddPlayer("Bob")
	s.Require().NoError(err)

	// shuffle swaps to [Bob, Alice], then the threshold draw gives 4
	s.rnd.QueueIntn(0, 3)
	s.Require().NoError(sess.StartRound())
	s.Equal([]int{2, 50}, s.rnd.Calls, "no target drawn for a rigged exact round")
	s.False(sess.HintsActive())

	order := sess.View().TurnOrder
	s.Require().Len(order, 2)
	s.Equal("Bob", order[0].Name)
	s.Equal("Alice", order[1].Name)

	for _, raw := range []string{"10", "20", "30"} {
		g := s.guess(sess, raw)
		s.Equal(FeedbackNeutral, g.Feedback)
		s.Equal(StatusActive, sess.Status())
	}

	g := s.guess(sess, "40")
	s.Equal(FeedbackCorrect, g.Feedback)
	w, _ := sess.Winner()
	s.Equal("Alice", w.Name)
	s.Equal(40, *sess.View().Target)
}

func (s *SessionSuite) TestRiggedQuickfire() {
	sess, _ := s.table(Options{SecretWinner: "Alice"}, "Bob", "Alice")
	s.Require().NoError(sess.SetMode(ModeQuickfire))
	s.rnd.QueueIntn(0)
	s.Require().NoError(sess.StartRound())

	s.guess(sess, "30")
	g := s.guess(sess, "20")
	s.Equal(FeedbackNeutral, g.Feedback)

	w, _ := sess.Winner()
	s.Equal("Alice", w.Name)
	target := *sess.View().Target
	s.Less(target, 25)
	s.NotEqual(20, target)
}

func (s *SessionSuite) TestRemoveWinnerContinues() {
	sess, ps := s.table(Options{Hints: true}, "Alice", "Bob")
	s.rnd.QueueIntn(6)
	s.Require().NoError(sess.StartRound())
	s.guess(sess, "5")
	s.guess(sess, "7")
	s.Require().Equal(StatusWon, sess.Status())

	s.rnd.QueueIntn(19)
	s.Require().NoError(sess.RemoveWinner())
	s.Equal(StatusActive, sess.Status())
	s.Empty(sess.Guesses())
	s.Equal([]string{"Alice"}, names(sess.Players()))
	s.Equal("Alice", s.current(sess))
	_, ok := sess.Winner()
	s.False(ok)

	g := s.guess(sess, "20")
	s.Equal(FeedbackCorrect, g.Feedback)
	w, _ := sess.Winner()
	s.Equal(ps["Alice"].ID, w.ID)

	s.rnd.QueueIntn(0)
	s.Require().NoError(sess.RemoveWinner())
	s.Equal(StatusWaiting, sess.Status(), "nobody left to play")
	s.ErrorIs(sess.RemoveWinner(), ErrNoWinner)
}

func (s *SessionSuite) TestRemovePlayerNeedsConfirmation() {
	sess, ps := s.table(Options{}, "Alice", "Bob")

	err := sess.RemovePlayer(s.ctx, ps["Bob"].ID, declineAll)
	s.ErrorIs(err, ErrDeclined)
	s.Empty(sess.Message(), "a declined prompt is not an error message")
	s.Len(sess.Players(), 2)

	var asked string
	yes := ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		asked = prompt
		return true, nil
	})
	s.Require().NoError(sess.RemovePlayer(s.ctx, ps["Bob"].ID, yes))
	s.Equal("Remove Bob from the game?", asked)
	s.Equal([]string{"Alice"}, names(sess.Players()))

	s.ErrorIs(sess.RemovePlayer(s.ctx, "missing", nil), ErrPlayerNotFound)
}

func (s *SessionSuite) TestRemoveCurrentPlayerPassesTurn() {
	sess, ps := s.table(Options{}, "Alice", "Bob", "Cara")
	s.rnd.QueueIntn(49)
	s.Require().NoError(sess.StartRound())
	s.guess(sess, "1")
	s.Require().Equal("Bob", s.current(sess))

	s.Require().NoError(sess.RemovePlayer(s.ctx, ps["Bob"].ID, nil))
	s.Equal("Cara", s.current(sess))

	s.Require().NoError(sess.RemovePlayer(s.ctx, ps["Cara"].ID, nil))
	s.Equal("Alice", s.current(sess), "pointer wraps to the start")
	s.Equal(StatusActive, sess.Status())
}

func (s *SessionSuite) TestRemovePlayerResolvesQuickfire() {
	sess, ps := s.table(Options{}, "Alice", "Bob", "Cara")
	s.Require().NoError(sess.SetMode(ModeQuickfire))
	s.rnd.QueueIntn(49)
	s.Require().NoError(sess.StartRound())

	s.guess(sess, "40")
	s.guess(sess, "45")
	s.Require().Equal("Cara", s.current(sess))

	s.Require().NoError(sess.RemovePlayer(s.ctx, ps["Cara"].ID, AlwaysConfirm))
	s.Equal(StatusWon, sess.Status())
	w, _ := sess.Winner()
	s.Equal("Bob", w.Name)
}

func (s *SessionSuite) TestRemovePlayerKeepsQuickfireTurn() {
	sess, ps := s.table(Options{}, "Alice", "Bob", "Cara", "Dan")
	s.Require().NoError(sess.SetMode(ModeQuickfire))
	s.rnd.QueueIntn(49)
	s.Require().NoError(sess.StartRound())

	s.Require().NoError(sess.RemovePlayer(s.ctx, ps["Dan"].ID, nil))
	s.Equal("Alice", s.current(sess), "nobody has guessed, the turn stays put")

	s.guess(sess, "10")
	s.Require().Equal("Bob", s.current(sess))
	s.Require().NoError(sess.RemovePlayer(s.ctx, ps["Alice"].ID, nil))
	s.Equal("Bob", s.current(sess))
	s.Equal(StatusActive, sess.Status())

	s.Require().NoError(sess.RemovePlayer(s.ctx, ps["Bob"].ID, nil))
	s.Equal("Cara", s.current(sess))
}

func (s *SessionSuite) TestRemovePlayerWhoJustWon() {
	sess, ps := s.table(Options{}, "Alice", "Bob")
	s.rnd.QueueIntn(0)
	s.Require().NoError(sess.StartRound())
	s.guess(sess, "1")
	s.Require().Equal(StatusWon, sess.Status())

	s.Require().NoError(sess.RemovePlayer(s.ctx, ps["Alice"].ID, AlwaysConfirm))
	s.Equal(StatusActive, sess.Status())
	_, hasWinner := sess.Winner()
	s.False(hasWinner)
	s.Empty(sess.Guesses())
	s.Equal([]string{"Bob"}, names(sess.Players()))
	s.Equal("Bob", s.current(sess))

	s.guess(sess, "1")
	s.Require().Equal(StatusWon, sess.Status())
	s.Require().NoError(sess.RemovePlayer(s.ctx, ps["Bob"].ID, AlwaysConfirm))
	s.Equal(StatusWaiting, sess.Status())
	_, hasWinner = sess.Winner()
	s.False(hasWinner)
	s.Empty(sess.Players())
}

func (s *SessionSuite) TestRemoveLastPlayerResets() {
	sess, ps := s.table(Options{}, "Alice")
	s.Require().NoError(sess.StartRound())
	s.Require().NoError(sess.RemovePlayer(s.ctx, ps["Alice"].ID, nil))
	s.Equal(StatusWaiting, sess.Status())
	s.Empty(sess.Guesses())
}

func (s *SessionSuite) TestStartAndClearRoundTrip() {
	sess, _ := s.table(Options{}, "Alice", "Bob")
	s.ErrorIs(s.newSession(Options{}).StartRound(), ErrNoPlayers)

	s.Require().NoError(sess.StartRound())
	s.guess(sess, "3")
	s.ErrorIs(sess.StartRound(), ErrRoundActive)

	sess.ClearRound()
	s.Equal(StatusWaiting, sess.Status())
	s.Empty(sess.Guesses())
	s.Len(sess.Players(), 2)
	s.Empty(sess.View().TurnOrder)

	_, err := sess.SubmitGuess("4")
	s.ErrorIs(err, ErrRoundNotActive)

	s.Require().NoError(sess.StartRound())
	s.Equal(2, sess.Round())
}

func (s *SessionSuite) TestGuessValidation() {
	sess, _ := s.table(Options{}, "Alice", "Bob")
	s.rnd.QueueIntn(49)
	s.Require().NoError(sess.StartRound())

	_, err := sess.SubmitGuess("abc")
	s.ErrorIs(err, ErrNotInteger)
	s.Contains(sess.Message(), "enter a whole number")

	s.guess(sess, "10")
	s.Empty(sess.Message())

	_, err = sess.SubmitGuess(" 10 ")
	s.ErrorIs(err, ErrDuplicateGuess)
	s.Equal("Bob", s.current(sess), "a rejected guess keeps the turn")
	s.Len(sess.Guesses(), 1)
}

func (s *SessionSuite) TestJoinRules() {
	sess, _ := s.table(Options{}, "Alice")
	s.Require().NoError(sess.StartRound())

	_, err := sess.AddPlayer("Bob")
	s.ErrorIs(err, ErrJoinMidRound)
	s.False(sess.View().CanAddPlayers)

	sess.ClearRound()
	_, err = sess.AddPlayer("ALICE")
	s.ErrorIs(err, ErrDuplicateName)
	_, err = sess.AddPlayer("Bob")
	s.NoError(err)
}

func (s *SessionSuite) TestSettingsLockedDuringRound() {
	sess, _ := s.table(Options{}, "Alice")
	s.Require().NoError(sess.StartRound())

	s.ErrorIs(sess.SetMode(ModeQuickfire), ErrRoundActive)
	s.ErrorIs(sess.SetOrdering(OrderRandom), ErrRoundActive)
	s.ErrorIs(sess.SetHints(true), ErrRoundActive)
	_, err := sess.SetMaxNumber(10)
	s.ErrorIs(err, ErrRoundActive)
	s.Equal(ModeExact, sess.Settings().Mode)
}

func (s *SessionSuite) TestSettingsValidation() {
	sess := s.newSession(Options{})
	s.ErrorIs(sess.SetMode("sudden-death"), ErrInvalidMode)
	s.ErrorIs(sess.SetOrdering("alphabetical"), ErrInvalidOrdering)

	got, err := sess.SetMaxNumber(2)
	s.NoError(err)
	s.Equal(DefaultMinMax, got)

	got, _ = sess.SetMaxNumber(2_000_000)
	s.Equal(MaxNumberCeiling, got)

	low := s.newSession(Options{MinMaxNumber: 1, MaxNumber: 1})
	s.Equal(1, low.Settings().MaxNumber)
}

func (s *SessionSuite) TestModeChangeAfterWinResets() {
	sess, _ := s.table(Options{}, "Alice")
	s.rnd.QueueIntn(0)
	s.Require().NoError(sess.StartRound())
	s.guess(sess, "1")
	s.Require().Equal(StatusWon, sess.Status())

	s.Require().NoError(sess.SetMode(ModeQuickfire))
	s.Equal(StatusWaiting, sess.Status())
	_, ok := sess.Winner()
	s.False(ok)
	s.Equal(1, sess.Players()[0].Wins, "win counts survive a mode change")
}

func (s *SessionSuite) TestReorder() {
	sess := s.newSession(Options{})
	a, _ := sess.AddPlayer("Alice")
	b, _ := sess.AddPlayer("Bob")
	c, _ := sess.AddPlayer("Cara")

	s.ErrorIs(sess.Reorder(c.ID, a.ID), ErrReorderNotAllowed, "random order has nothing to arrange")
	s.False(sess.View().CanReorder)

	s.Require().NoError(sess.SetOrdering(OrderSet))
	s.True(sess.View().CanReorder)
	s.Require().NoError(sess.Reorder(c.ID, a.ID))
	s.Equal([]string{"Cara", "Alice", "Bob"}, names(sess.Players()))
	s.ErrorIs(sess.Reorder("missing", b.ID), ErrPlayerNotFound)

	s.Require().NoError(sess.StartRound())
	s.Equal("Cara", s.current(sess))
	s.ErrorIs(sess.Reorder(a.ID, c.ID), ErrReorderNotAllowed)
}

func (s *SessionSuite) TestStreaks() {
	sess, _ := s.table(Options{}, "Alice", "Bob")

	s.rnd.QueueIntn(0)
	s.Require().NoError(sess.StartRound())
	s.guess(sess, "1")

	s.rnd.QueueIntn(0)
	s.Require().NoError(sess.StartRound())
	s.guess(sess, "1")

	ps := sess.Players()
	s.Equal(2, ps[0].Wins)
	s.Equal(2, ps[0].Streak)

	s.rnd.QueueIntn(1)
	s.Require().NoError(sess.StartRound())
	s.guess(sess, "1")
	s.guess(sess, "2")

	ps = sess.Players()
	s.Equal(2, ps[0].Wins)
	s.Zero(ps[0].Streak)
	s.Equal(1, ps[1].Wins)
	s.Equal(1, ps[1].Streak)
}

func (s *SessionSuite) TestFeedbackCueExpires() {
	sess, _ := s.table(Options{Hints: true, FeedbackTTL: time.Second}, "Alice", "Bob")
	s.rnd.QueueIntn(29)
	s.Require().NoError(sess.StartRound())

	s.guess(sess, "10")
	cue := sess.View().Feedback
	s.Require().NotNil(cue)
	s.Equal(string(FeedbackLower), cue.Kind)

	s.guess(sess, "40")
	next := sess.View().Feedback
	s.Require().NotNil(next)
	s.Equal(string(FeedbackHigher), next.Kind)
	s.Greater(next.Seq, cue.Seq, "a new cue supersedes the old one")

	s.clk.Advance(1500 * time.Millisecond)
	s.Nil(sess.View().Feedback)

	s.guess(sess, "20")
	s.NotNil(sess.View().Feedback)
	sess.ClearRound()
	s.Nil(sess.View().Feedback, "clearing cancels the cue")
}

func (s *SessionSuite) TestRestart() {
	sess, _ := s.table(Options{}, "Alice", "Bob")
	s.Require().NoError(sess.StartRound())

	s.ErrorIs(sess.Restart(s.ctx, true, declineAll), ErrDeclined)
	s.Equal(StatusActive, sess.Status())

	var asked string
	yes := ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		asked = prompt
		return true, nil
	})
	s.Require().NoError(sess.Restart(s.ctx, false, yes))
	s.Equal("Restart the current game and wipe to start fresh?", asked)
	s.Equal(StatusWaiting, sess.Status())
	s.Len(sess.Players(), 2)
	s.Require().NotNil(sess.View().RestartCue)
	s.Equal(CueRestart, sess.View().RestartCue.Kind)

	s.Require().NoError(sess.Restart(s.ctx, true, AlwaysConfirm))
	s.Empty(sess.Players())

	s.clk.Advance(2 * time.Second)
	s.Nil(sess.View().RestartCue)
}
