package game

import (
	"strings"

	"github.com/google/uuid"
)

// Registry is the ordered list of registered players.
// Names are unique case-insensitively.
type Registry struct {
	players []Player
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a new player with a fresh id. The name is trimmed.
func (r *Registry) Add(name string) (Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Player{}, ErrEmptyName
	}
	for _, p := range r.players {
		if strings.EqualFold(p.Name, name) {
			return Player{}, ErrDuplicateName
		}
	}

	p := Player{ID: uuid.NewString(), Name: name}
	r.players = append(r.players, p)
	return p, nil
}

func (r *Registry) Remove(id string) (Player, bool) {
	i := r.IndexOf(id)
	if i < 0 {
		return Player{}, false
	}
	p := r.players[i]
	r.players = append(r.players[:i], r.players[i+1:]...)
	return p, true
}

// Move takes the player sourceID out of the list and reinserts it at the
// index anchorID occupied. Moving up lands it just before the anchor,
// moving down just after it.
func (r *Registry) Move(sourceID, anchorID string) bool {
	if sourceID == "" || anchorID == "" || sourceID == anchorID {
		return false
	}
	from, to := r.IndexOf(sourceID), r.IndexOf(anchorID)
	if from < 0 || to < 0 {
		return false
	}

	moved := r.players[from]
	rest := append(r.players[:from:from], r.players[from+1:]...)
	out := make([]Player, 0, len(r.players))
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)
	r.players = out
	return true
}

func (r *Registry) IndexOf(id string) int {
	for i, p := range r.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) Get(id string) (Player, bool) {
	i := r.IndexOf(id)
	if i < 0 {
		return Player{}, false
	}
	return r.players[i], true
}

// FindByName matches a trimmed name exactly (case-sensitive).
func (r *Registry) FindByName(name string) (Player, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Player{}, false
	}
	for _, p := range r.players {
		if strings.TrimSpace(p.Name) == name {
			return p, true
		}
	}
	return Player{}, false
}

// Players returns a copy in registry order.
func (r *Registry) Players() []Player {
	return append([]Player(nil), r.players...)
}

func (r *Registry) Len() int { return len(r.players) }

func (r *Registry) Reset() { r.players = nil }

// recordWin increments the winner's wins and streak and resets every other
// player's streak.
func (r *Registry) recordWin(winnerID string) (Player, bool) {
	var winner Player
	found := false
	for i := range r.players {
		if r.players[i].ID == winnerID {
			r.players[i].Wins++
			r.players[i].Streak++
			winner = r.players[i]
			found = true
			continue
		}
		r.players[i].Streak = 0
	}
	return winner, found
}
