package cli

import (
	"os"
	"os/signal"
	"syscall"

	"example.com/stuckem/internal/app"
	"example.com/stuckem/internal/config"
	"github.com/spf13/cobra"
)

func newServeCmd(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Host tables for the browser client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			log := newLogger(cfg, cmd.ErrOrStderr())
			if cfg.Game.SecretWinner != "" {
				log.Debug("secret winner configured")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a := app.New(cfg, log, app.Options{Static: opts.Static, Version: opts.Version})
			return a.Run(ctx)
		},
	}
}
