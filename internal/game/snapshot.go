package game

// View is the read-only snapshot a render surface draws from.
type View struct {
	Status      Status   `json:"status"`
	StatusLabel string   `json:"statusLabel"`
	Settings    Settings `json:"settings"`
	ModeLabel   string   `json:"modeLabel"`
	Round       int      `json:"round"`

	// Min and Max bound the next guess.
	Min int `json:"min"`
	Max int `json:"max"`

	Players   []Player `json:"players"`
	TurnOrder []Player `json:"turnOrder"`
	Current   *Player  `json:"current,omitempty"`
	Guesses   []Guess  `json:"guesses"`
	Winner    *Player  `json:"winner,omitempty"`
	// Target is revealed only once the round is won.
	Target *int `json:"target,omitempty"`

	Error       string  `json:"error,omitempty"`
	Feedback    *Signal `json:"feedback,omitempty"`
	RestartCue  *Signal `json:"restartCue,omitempty"`
	HintsActive bool    `json:"hintsActive"`

	CanAddPlayers bool `json:"canAddPlayers"`
	CanGuess      bool `json:"canGuess"`
	CanReorder    bool `json:"canReorder"`
}

func (s *Session) View() View {
	lo, hi := s.GuessBounds()
	v := View{
		Status:        s.status,
		StatusLabel:   statusLabel(s.status),
		Settings:      s.settings,
		ModeLabel:     s.settings.Mode.Label(),
		Round:         s.round,
		Min:           lo,
		Max:           hi,
		Players:       s.registry.Players(),
		TurnOrder:     make([]Player, 0, len(s.turns)),
		Guesses:       append([]Guess{}, s.guesses...),
		Error:         s.message,
		HintsActive:   s.HintsActive(),
		CanAddPlayers: s.status != StatusActive,
		CanGuess:      s.status == StatusActive && s.registry.Len() > 0,
		CanReorder:    s.status == StatusWaiting && s.settings.Ordering == OrderSet,
	}

	for _, id := range s.turns {
		if p, ok := s.registry.Get(id); ok {
			v.TurnOrder = append(v.TurnOrder, p)
		}
	}
	if s.status != StatusWaiting {
		if p, ok := s.CurrentPlayer(); ok {
			v.Current = &p
		}
	}
	if s.winner != nil {
		w := *s.winner
		v.Winner = &w
		t := s.target
		v.Target = &t
	}

	now := s.clk.Now()
	if s.feedbackCue.Live(now) {
		c := s.feedbackCue
		v.Feedback = &c
	}
	if s.restartCue.Live(now) {
		c := s.restartCue
		v.RestartCue = &c
	}
	return v
}

func statusLabel(st Status) string {
	switch st {
	case StatusWon:
		return "Winner"
	case StatusActive:
		return "In-Progress"
	default:
		return "Setting up"
	}
}
