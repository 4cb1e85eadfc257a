package cli

import (
	"io"
	"log/slog"
	"net/http"

	"example.com/stuckem/internal/config"
	"github.com/spf13/cobra"
)

type Options struct {
	Version string
	// Static serves the browser client; serve runs API-only without it.
	Static http.Handler
}

// NewRootCmd builds the stuckem command tree.
func NewRootCmd(opts Options) *cobra.Command {
	root := &cobra.Command{
		Use:   "stuckem",
		Short: "A pass-and-play number guessing game.",
		Long: `stuckem hosts a pass-and-play number guessing game.

Players take turns guessing a hidden number. "serve" hosts tables for a
browser on this device; "play" runs a table right in the terminal.`,
		Args:          cobra.NoArgs,
		Version:       opts.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newPlayCmd())

	root.CompletionOptions.HiddenDefaultCmd = true
	root.SetVersionTemplate("stuckem v{{.Version}}\n")

	return root
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Log.Verbose {
		hopts.Level = slog.LevelDebug
	}
	var h slog.Handler
	if cfg.Log.Format == "json" {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}
	return slog.New(h).With("env", cfg.Env)
}
