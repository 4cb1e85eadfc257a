package game

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"example.com/stuckem/internal/dependencies/clock"
	"github.com/google/uuid"
)

// message types
const (
	msgAddPlayer    = "add_player"
	msgRemovePlayer = "remove_player"
	msgRemoveWinner = "remove_winner"
	msgReorder      = "reorder"
	msgSetMode      = "set_mode"
	msgSetOrdering  = "set_ordering"
	msgSetMax       = "set_max"
	msgSetHints     = "set_hints"
	msgStartRound   = "start_round"
	msgSubmitGuess  = "submit_guess"
	msgClearRound   = "clear_round"
	msgRestart      = "restart"
	msgConfirmReply = "confirm_reply"

	msgState   = "state"
	msgConfirm = "confirm"
	msgError   = "error"
)

// error codes
const (
	codeBadJSON        = "bad_json"
	codeBadInput       = "bad_input"
	codeRejected       = "rejected"
	codeUnknownType    = "unknown_type"
	codeBusy           = "busy"
	codeConfirmTimeout = "confirm_timeout"
)

type intent struct {
	from *ClientConn
	env  Envelope
}

// Table hosts one Session for the browser surface. Every intent, attach,
// detach and confirmation reply is handled by the Run goroutine one at a
// time, so the session itself needs no locking.
type Table struct {
	id             string
	log            *slog.Logger
	clk            clock.Clock
	session        *Session
	confirmTimeout time.Duration

	register   chan *ClientConn
	unregister chan *ClientConn
	intents    chan intent
	replies    chan ConfirmReplyPayload
	views      chan chan View
	done       chan struct{}
	closeOnce  sync.Once

	// owned by Run
	clients map[*ClientConn]struct{}
	expiry  *time.Timer

	lastActive atomic.Int64
}

func NewTable(id string, opts Options, confirmTimeout time.Duration, log *slog.Logger) *Table {
	if log == nil {
		log = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if confirmTimeout <= 0 {
		confirmTimeout = 30 * time.Second
	}
	t := &Table{
		id:             id,
		log:            log.With("table", id),
		clk:            opts.Clock,
		session:        NewSession(opts),
		confirmTimeout: confirmTimeout,
		register:       make(chan *ClientConn),
		unregister:     make(chan *ClientConn),
		intents:        make(chan intent),
		replies:        make(chan ConfirmReplyPayload),
		views:          make(chan chan View),
		done:           make(chan struct{}),
		clients:        make(map[*ClientConn]struct{}),
		expiry:         time.NewTimer(time.Hour),
	}
	t.expiry.Stop()
	t.touch()
	return t
}

func (t *Table) ID() string { return t.id }

func (t *Table) LastActive() time.Time {
	return time.Unix(0, t.lastActive.Load())
}

// Run processes events until Close is called.
func (t *Table) Run() {
	defer t.closeClients()
	for {
		select {
		case <-t.done:
			return
		case c := <-t.register:
			t.attach(c)
		case c := <-t.unregister:
			t.detach(c)
		case in := <-t.intents:
			t.touch()
			t.apply(in)
			t.broadcast()
		case p := <-t.replies:
			t.log.Debug("stale confirm reply", "token", p.Token)
		case ch := <-t.views:
			ch <- t.session.View()
		case <-t.expiry.C:
			t.broadcast()
		}
	}
}

func (t *Table) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
	})
}

func (t *Table) Attach(c *ClientConn) error {
	select {
	case t.register <- c:
		return nil
	case <-t.done:
		return ErrTableClosed
	}
}

func (t *Table) Detach(c *ClientConn) {
	select {
	case t.unregister <- c:
	case <-t.done:
	}
}

// Dispatch hands an inbound envelope to the run loop. from receives any
// error or confirmation prompt the intent produces.
func (t *Table) Dispatch(ctx context.Context, from *ClientConn, env Envelope) error {
	select {
	case t.intents <- intent{from: from, env: env}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrTableClosed
	}
}

// Reply answers a pending confirmation prompt. Replies with an unknown
// token are dropped.
func (t *Table) Reply(p ConfirmReplyPayload) {
	select {
	case t.replies <- p:
	case <-t.done:
	}
}

// Snapshot returns the current view of the table's session.
func (t *Table) Snapshot(ctx context.Context) (View, error) {
	ch := make(chan View, 1)
	select {
	case t.views <- ch:
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-t.done:
		return View{}, ErrTableClosed
	}
	return <-ch, nil
}

func (t *Table) apply(in intent) {
	s := t.session
	before := s.Status()
	confirmer := ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
		return t.awaitConfirm(ctx, in.from, prompt)
	})

	var err error
	switch in.env.Type {
	case msgAddPlayer:
		var p AddPlayerPayload
		if !t.decode(in, &p) {
			return
		}
		var pl Player
		if pl, err = s.AddPlayer(p.Name); err == nil {
			t.log.Info("player added", "player", pl.Name)
		}

	case msgRemovePlayer:
		var p PlayerRefPayload
		if !t.decode(in, &p) {
			return
		}
		pl, _ := s.registry.Get(p.PlayerID)
		if err = s.RemovePlayer(context.Background(), p.PlayerID, confirmer); err == nil {
			t.log.Info("player removed", "player", pl.Name)
		}

	case msgRemoveWinner:
		w, _ := s.Winner()
		if err = s.RemoveWinner(); err == nil {
			t.log.Info("winner removed", "player", w.Name)
		}

	case msgReorder:
		var p ReorderPayload
		if !t.decode(in, &p) {
			return
		}
		err = s.Reorder(p.SourceID, p.TargetID)

	case msgSetMode:
		var p SetModePayload
		if !t.decode(in, &p) {
			return
		}
		err = s.SetMode(p.Mode)

	case msgSetOrdering:
		var p SetOrderingPayload
		if !t.decode(in, &p) {
			return
		}
		err = s.SetOrdering(p.Ordering)

	case msgSetMax:
		var p SetMaxPayload
		if !t.decode(in, &p) {
			return
		}
		_, err = s.SetMaxNumber(p.Max)

	case msgSetHints:
		var p SetHintsPayload
		if !t.decode(in, &p) {
			return
		}
		err = s.SetHints(p.Enabled)

	case msgStartRound:
		if err = s.StartRound(); err == nil {
			t.log.Info("round started", "round", s.Round(), "mode", s.Settings().Mode)
		}

	case msgSubmitGuess:
		var p SubmitGuessPayload
		if !t.decode(in, &p) {
			return
		}
		_, err = s.SubmitGuess(p.Value)

	case msgClearRound:
		s.ClearRound()

	case msgRestart:
		var p RestartPayload
		if !t.decode(in, &p) {
			return
		}
		if err = s.Restart(context.Background(), p.ResetPlayers, confirmer); err == nil {
			t.log.Info("table restarted", "resetPlayers", p.ResetPlayers)
		}

	default:
		t.sendError(in.from, codeUnknownType, "unknown message type")
		return
	}

	if err != nil {
		if !errors.Is(err, ErrDeclined) {
			t.log.Debug("intent rejected", "type", in.env.Type, "err", err)
			t.sendError(in.from, codeRejected, err.Error())
		}
		return
	}
	if before != StatusWon && s.Status() == StatusWon {
		w, _ := s.Winner()
		t.log.Info("round won", "round", s.Round(), "player", w.Name, "wins", w.Wins)
	}
}

// decode unmarshals the payload into v. An empty payload leaves v zeroed.
func (t *Table) decode(in intent, v any) bool {
	if len(in.env.Payload) == 0 {
		return true
	}
	if err := json.Unmarshal(in.env.Payload, v); err != nil {
		t.sendError(in.from, codeBadInput, "invalid payload")
		return false
	}
	return true
}

// awaitConfirm sends a prompt to the surface and waits for the matching
// reply. Other intents arriving meanwhile are turned away; timing out or
// losing the asking connection counts as "no".
func (t *Table) awaitConfirm(ctx context.Context, to *ClientConn, prompt string) (bool, error) {
	token := uuid.NewString()
	if !t.sendTo(to, envelope(msgConfirm, ConfirmPayload{Token: token, Prompt: prompt})) {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.confirmTimeout)
	defer cancel()

	for {
		select {
		case p := <-t.replies:
			if p.Token == token {
				return p.OK, nil
			}
			t.log.Debug("stale confirm reply", "token", p.Token)
		case in := <-t.intents:
			t.sendError(in.from, codeBusy, "waiting for a confirmation")
		case c := <-t.register:
			t.attach(c)
		case c := <-t.unregister:
			t.detach(c)
			if c == to {
				return false, nil
			}
		case ch := <-t.views:
			ch <- t.session.View()
		case <-t.expiry.C:
			t.broadcast()
		case <-ctx.Done():
			t.sendError(to, codeConfirmTimeout, "confirmation timed out")
			return false, nil
		case <-t.done:
			return false, ErrTableClosed
		}
	}
}

func (t *Table) attach(c *ClientConn) {
	t.touch()
	t.clients[c] = struct{}{}
	t.log.Debug("client attached", "clients", len(t.clients))
	t.deliver(c, envelope(msgState, t.session.View()))
}

func (t *Table) detach(c *ClientConn) {
	if _, ok := t.clients[c]; !ok {
		return
	}
	delete(t.clients, c)
	c.Close()
	t.log.Debug("client detached", "clients", len(t.clients))
}

func (t *Table) broadcast() {
	v := t.session.View()
	msg := envelope(msgState, v)
	for c := range t.clients {
		t.deliver(c, msg)
	}
	t.scheduleExpiry(v)
}

// scheduleExpiry rebroadcasts once the earliest live cue runs out so
// surfaces can drop it.
func (t *Table) scheduleExpiry(v View) {
	var next time.Time
	for _, sig := range []*Signal{v.Feedback, v.RestartCue} {
		if sig != nil && (next.IsZero() || sig.ExpiresAt.Before(next)) {
			next = sig.ExpiresAt
		}
	}
	if next.IsZero() {
		t.expiry.Stop()
		return
	}
	t.expiry.Reset(max(next.Sub(t.clk.Now()), time.Millisecond))
}

// sendTo delivers msg to c, or to every client when c is nil. It reports
// whether anyone received it.
func (t *Table) sendTo(c *ClientConn, msg []byte) bool {
	if c != nil {
		if _, ok := t.clients[c]; !ok {
			return false
		}
		return t.deliver(c, msg)
	}
	sent := false
	for cc := range t.clients {
		if t.deliver(cc, msg) {
			sent = true
		}
	}
	return sent
}

func (t *Table) sendError(c *ClientConn, code, message string) {
	msg := envelope(msgError, ErrorPayload{Code: code, Message: message})
	if c == nil {
		return
	}
	c.Send(msg)
}

// deliver drops a client whose send buffer is full.
func (t *Table) deliver(c *ClientConn, msg []byte) bool {
	if c.Send(msg) {
		return true
	}
	t.log.Warn("dropping slow client")
	t.detach(c)
	return false
}

func (t *Table) closeClients() {
	t.expiry.Stop()
	for c := range t.clients {
		delete(t.clients, c)
		c.Close()
	}
}

func (t *Table) touch() {
	t.lastActive.Store(t.clk.Now().UnixNano())
}

func envelope(typ string, payload any) []byte {
	b, _ := json.Marshal(Envelope{Type: typ, Payload: mustJSON(payload)})
	return b
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
