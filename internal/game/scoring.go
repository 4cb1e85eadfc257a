package game

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Evaluation is the outcome of scoring one guess against the round.
type Evaluation struct {
	Feedback  Feedback
	EndsRound bool
	WinnerID  string
	// ResolvedTarget is non-zero when the guess fixed the target
	// (rigged rounds only).
	ResolvedTarget int
}

// Bounds returns the currently valid guessing range. With narrowing on,
// the lower bound is one above the highest guess that came in low and the
// upper bound one below the lowest guess that came in high. Inverted bounds
// collapse to a single value.
func Bounds(maxNumber int, guesses []Guess, narrow bool) (lo, hi int) {
	lo, hi = 1, maxNumber
	if narrow {
		for _, g := range guesses {
			switch g.Feedback {
			case FeedbackLower:
				lo = max(lo, g.Value+1)
			case FeedbackHigher:
				hi = min(hi, g.Value-1)
			}
		}
	}
	if lo > hi {
		c := max(1, min(lo, hi))
		lo, hi = c, c
	}
	return lo, hi
}

// ParseGuess parses raw input as an integer within [lo, hi]. Integral
// decimal forms such as "5.0" or "1e1" count as whole numbers.
func ParseGuess(raw string, lo, hi int) (int, error) {
	v, ok := parseWhole(strings.TrimSpace(raw))
	if !ok {
		return 0, fmt.Errorf("%w between %d and %d", ErrNotInteger, lo, hi)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%w: enter a whole number between %d and %d", ErrGuessOutOfRange, lo, hi)
	}
	return v, nil
}

func parseWhole(s string) (int, bool) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// Classify scores a guess against a known target.
func Classify(value, target int, hints bool) Feedback {
	switch {
	case value == target:
		return FeedbackCorrect
	case !hints:
		return FeedbackNeutral
	case value < target:
		return FeedbackLower
	default:
		return FeedbackHigher
	}
}

// Closest returns the guess with the smallest distance to target. Ties go
// to the earliest CreatedAt, then to submission order.
func Closest(guesses []Guess, target int) (Guess, bool) {
	if len(guesses) == 0 {
		return Guess{}, false
	}
	best := guesses[0]
	bestDiff := absDiff(best.Value, target)
	for _, g := range guesses[1:] {
		d := absDiff(g.Value, target)
		if d < bestDiff || (d == bestDiff && g.CreatedAt.Before(best.CreatedAt)) {
			best, bestDiff = g, d
		}
	}
	return best, true
}

func containsValue(guesses []Guess, v int) bool {
	for _, g := range guesses {
		if g.Value == v {
			return true
		}
	}
	return false
}

func hasGuessed(guesses []Guess, playerID string) bool {
	for _, g := range guesses {
		if g.PlayerID == playerID {
			return true
		}
	}
	return false
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
