package game

import "time"

// Signal is a transient cue with a time-to-live. The session replaces it
// when a newer cue supersedes it; surfaces decide how to show it.
type Signal struct {
	Kind      string    `json:"kind"`
	Seq       uint64    `json:"seq"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s Signal) Live(now time.Time) bool {
	return s.Seq != 0 && now.Before(s.ExpiresAt)
}

// CueRestart marks the restart animation cue.
const CueRestart = "restart"
