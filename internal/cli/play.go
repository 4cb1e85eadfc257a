package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"example.com/stuckem/internal/app"
	"example.com/stuckem/internal/config"
	"example.com/stuckem/internal/game"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

const playHelp = `Commands:
  add <name>            add a player (between rounds)
  rm <player>           remove a player
  rmwinner              remove the current winner and keep playing
  mv <player> <player>  move the first player to the second one's spot (set order)
  mode exact|quickfire  choose the win rule
  order random|set      choose how the turn order is built
  max <n>               set the upper bound of the range
  hints on|off          higher/lower hints (exact mode)
  start, again          start a round
  clear                 end the round, keep the players
  restart [--players]   wipe the round, and with --players the players too
  show                  print the table
  help                  print this help
  quit                  leave
A player is a name or a 1-based position. A bare number is a guess.
`

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play a table in this terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			s := game.NewSession(app.SessionOptions(cfg))
			return newTerminal(cmd.InOrStdin(), cmd.OutOrStdout(), s).run(cmd.Context())
		},
	}
}

type styles struct {
	title lipgloss.Style
	muted lipgloss.Style
	good  lipgloss.Style
	bad   lipgloss.Style
	warn  lipgloss.Style
	focus lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#58a6ff")),
		muted: r.NewStyle().Foreground(lipgloss.Color("#8b949e")),
		good:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#3fb950")),
		bad:   r.NewStyle().Foreground(lipgloss.Color("#f85149")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("#e3b341")),
		focus: r.NewStyle().Bold(true),
	}
}

// terminal is the line-oriented render surface for one session. It also
// answers confirmation prompts from the same input.
type terminal struct {
	in      *bufio.Scanner
	out     io.Writer
	session *game.Session
	st      styles
	notice  string
}

func newTerminal(in io.Reader, out io.Writer, s *game.Session) *terminal {
	return &terminal{
		in:      bufio.NewScanner(in),
		out:     out,
		session: s,
		st:      newStyles(lipgloss.NewRenderer(out)),
	}
}

func (t *terminal) Confirm(_ context.Context, prompt string) (bool, error) {
	fmt.Fprintf(t.out, "%s [y/N] ", prompt)
	line, ok := t.readLine()
	if !ok {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (t *terminal) run(ctx context.Context) error {
	fmt.Fprint(t.out, playHelp)
	t.render()
	for ctx.Err() == nil {
		fmt.Fprint(t.out, t.prompt())
		line, ok := t.readLine()
		if !ok {
			fmt.Fprintln(t.out)
			return t.in.Err()
		}
		if t.exec(ctx, line) {
			return nil
		}
		t.render()
	}
	return nil
}

func (t *terminal) readLine() (string, bool) {
	if !t.in.Scan() {
		return "", false
	}
	return t.in.Text(), true
}

// exec runs one command line and reports whether the player asked to quit.
func (t *terminal) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	s := t.session
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	rest := strings.Join(args, " ")

	if _, err := strconv.ParseFloat(cmd, 64); err == nil && len(args) == 0 {
		_, err := s.SubmitGuess(cmd)
		t.settle(err)
		return false
	}

	var err error
	switch cmd {
	case "add":
		_, err = s.AddPlayer(rest)
	case "rm", "remove":
		p, ok := t.lookup(rest)
		if !ok {
			t.notice = fmt.Sprintf("no player %q", rest)
			return false
		}
		err = s.RemovePlayer(ctx, p.ID, t)
	case "rmwinner":
		err = s.RemoveWinner()
	case "mv", "move":
		if len(args) != 2 {
			t.notice = "usage: mv <player> <player>"
			return false
		}
		src, ok1 := t.lookup(args[0])
		dst, ok2 := t.lookup(args[1])
		if !ok1 || !ok2 {
			t.notice = "unknown player"
			return false
		}
		err = s.Reorder(src.ID, dst.ID)
	case "mode":
		err = s.SetMode(game.Mode(strings.ToLower(rest)))
	case "order":
		err = s.SetOrdering(game.Ordering(strings.ToLower(rest)))
	case "max":
		n, convErr := strconv.Atoi(rest)
		if convErr != nil {
			t.notice = game.ErrInvalidMaxNumber.Error()
			return false
		}
		var got int
		if got, err = s.SetMaxNumber(n); err == nil && got != n {
			t.notice = fmt.Sprintf("range set to 1-%d", got)
			return false
		}
	case "hints":
		on, ok := parseSwitch(rest)
		if !ok {
			t.notice = "usage: hints on|off"
			return false
		}
		err = s.SetHints(on)
	case "start", "again":
		err = s.StartRound()
	case "clear":
		s.ClearRound()
	case "restart":
		err = s.Restart(ctx, slices.Contains(args, "--players"), t)
	case "show":
	case "help", "?":
		fmt.Fprint(t.out, playHelp)
	case "quit", "exit", "q":
		return true
	default:
		t.notice = fmt.Sprintf("unknown command %q, try help", cmd)
		return false
	}
	t.settle(err)
	return false
}

// settle turns a declined confirmation into a notice. Other errors are
// already on the session and shown by render.
func (t *terminal) settle(err error) {
	if errors.Is(err, game.ErrDeclined) {
		t.notice = "Cancelled."
	}
}

// lookup resolves a player by 1-based position or by exact name.
func (t *terminal) lookup(ref string) (game.Player, bool) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		players := t.session.Players()
		if n >= 1 && n <= len(players) {
			return players[n-1], true
		}
		return game.Player{}, false
	}
	return t.session.PlayerByName(ref)
}

func (t *terminal) prompt() string {
	v := t.session.View()
	if v.CanGuess && v.Current != nil {
		return fmt.Sprintf("%s, your guess (%d-%d)> ", v.Current.Name, v.Min, v.Max)
	}
	return "> "
}

func (t *terminal) render() {
	v := t.session.View()
	st := t.st
	var b strings.Builder

	header := v.ModeLabel + " · " + v.StatusLabel
	if v.Round > 0 {
		header += fmt.Sprintf(" · round %d", v.Round)
	}
	b.WriteString("\n" + st.title.Render(header) + "\n")
	b.WriteString(st.muted.Render(fmt.Sprintf("order %s · range 1-%d · hints %s",
		v.Settings.Ordering, v.Settings.MaxNumber, onOff(v.HintsActive))) + "\n")

	if len(v.Players) == 0 {
		b.WriteString(st.muted.Render("No players yet. add <name> to join.") + "\n")
	}
	for i, p := range v.Players {
		line := fmt.Sprintf("%2d. %-16s wins %d  streak %d", i+1, p.Name, p.Wins, p.Streak)
		if v.Current != nil && v.Current.ID == p.ID && v.Status == game.StatusActive {
			line = st.focus.Render(line + "  <")
		}
		b.WriteString(line + "\n")
	}

	if len(v.TurnOrder) > 0 && v.Status == game.StatusActive {
		names := make([]string, 0, len(v.TurnOrder))
		for _, p := range v.TurnOrder {
			names = append(names, p.Name)
		}
		b.WriteString(st.muted.Render("turns: "+strings.Join(names, " → ")) + "\n")
	}

	for _, g := range v.Guesses {
		b.WriteString(fmt.Sprintf("  %s guessed %d%s\n", g.PlayerName, g.Value, feedbackSuffix(g.Feedback)))
	}

	if v.Feedback != nil && v.Status == game.StatusActive {
		b.WriteString(st.warn.Render(cueText(game.Feedback(v.Feedback.Kind))) + "\n")
	}
	if v.Winner != nil {
		msg := fmt.Sprintf("%s wins! The number was %d.", v.Winner.Name, *v.Target)
		b.WriteString(st.good.Render(msg) + "\n")
		b.WriteString(st.muted.Render("again · rmwinner · clear") + "\n")
	}
	if v.RestartCue != nil {
		b.WriteString(st.good.Render("Fresh start.") + "\n")
	}
	if v.Error != "" {
		b.WriteString(st.bad.Render("! "+v.Error) + "\n")
	}
	if t.notice != "" {
		b.WriteString(st.warn.Render(t.notice) + "\n")
		t.notice = ""
	}

	fmt.Fprint(t.out, b.String())
}

func feedbackSuffix(f game.Feedback) string {
	switch f {
	case game.FeedbackLower:
		return " (too low)"
	case game.FeedbackHigher:
		return " (too high)"
	case game.FeedbackCorrect:
		return " (correct)"
	}
	return ""
}

func cueText(f game.Feedback) string {
	switch f {
	case game.FeedbackLower:
		return "Too low, go higher."
	case game.FeedbackHigher:
		return "Too high, go lower."
	case game.FeedbackCorrect:
		return "Spot on!"
	}
	return ""
}

func parseSwitch(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes":
		return true, true
	case "off", "no":
		return false, true
	}
	b, err := strconv.ParseBool(s)
	return b, err == nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
