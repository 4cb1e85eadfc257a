package game

import (
	"strings"

	"example.com/stuckem/internal/dependencies/random"
)

// Rig steers rounds toward the player whose trimmed name equals the
// configured secret winner name. An empty name disables it.
type Rig struct {
	name string
}

func NewRig(name string) Rig {
	return Rig{name: strings.TrimSpace(name)}
}

func (r Rig) Configured() bool { return r.name != "" }

// RigState is recomputed at every round start and cleared at round end.
type RigState struct {
	SecretID string
	// Threshold is the cumulative guess count at or after which the secret
	// winner's own guess becomes the target (exact mode). Zero when unset.
	Threshold int
}

func (s RigState) Active() bool { return s.SecretID != "" }

// Plan derives the rig state for a round with the given turn sequence.
// The secret winner must be part of the sequence, otherwise the rig is
// inert for the round.
func (r Rig) Plan(reg *Registry, turns []string, mode Mode, maxNumber int, rnd random.Random) RigState {
	if !r.Configured() {
		return RigState{}
	}
	secret, ok := reg.FindByName(r.name)
	if !ok {
		return RigState{}
	}
	idx := -1
	for i, id := range turns {
		if id == secret.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return RigState{}
	}

	st := RigState{SecretID: secret.ID}
	if mode == ModeExact {
		st.Threshold = 1 + rnd.Intn(maxReachableGuess(idx+1, len(turns), maxNumber))
	}
	return st
}

// maxReachableGuess is the last cumulative guess number, within maxNumber
// guesses, that lands on the secret winner's turn. first is the secret
// winner's 1-based turn position.
func maxReachableGuess(first, players, maxNumber int) int {
	reach := first + players*floorDiv(maxNumber-first, players)
	return max(1, reach)
}

// TriggersExact reports whether a guess by playerID, made after
// guessCount earlier guesses, should become the winning number.
func (s RigState) TriggersExact(playerID string, guessCount int) bool {
	return s.Active() && playerID == s.SecretID && s.Threshold > 0 && guessCount+1 >= s.Threshold
}

// ViableTargets lists every target in [1, maxNumber] for which the secret
// winner's guess is the unique closest one.
func ViableTargets(guesses []Guess, secretID string, maxNumber int) []int {
	secretGuess, others := -1, make([]int, 0, len(guesses))
	for _, g := range guesses {
		if g.PlayerID == secretID {
			secretGuess = g.Value
			continue
		}
		others = append(others, g.Value)
	}
	if secretGuess < 0 {
		return nil
	}

	var viable []int
	for c := 1; c <= maxNumber; c++ {
		d := absDiff(secretGuess, c)
		unique := true
		for _, v := range others {
			if absDiff(v, c) <= d {
				unique = false
				break
			}
		}
		if unique {
			viable = append(viable, c)
		}
	}
	return viable
}

// ResolveQuickfire picks the revealed target once every player has
// guessed. Targets other than the secret winner's exact guess are
// preferred; the guess itself is the fallback.
func (s RigState) ResolveQuickfire(guesses []Guess, maxNumber int, rnd random.Random) (int, bool) {
	if !s.Active() {
		return 0, false
	}
	secretGuess := -1
	for _, g := range guesses {
		if g.PlayerID == s.SecretID {
			secretGuess = g.Value
			break
		}
	}
	if secretGuess < 0 {
		return 0, false
	}

	viable := ViableTargets(guesses, s.SecretID, maxNumber)
	pool := make([]int, 0, len(viable))
	for _, c := range viable {
		if c != secretGuess {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		pool = viable
	}
	if len(pool) == 0 {
		return secretGuess, true
	}
	return pool[rnd.Intn(len(pool))], true
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
