package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"example.com/stuckem/internal/config"
	"example.com/stuckem/internal/game"
	"example.com/stuckem/internal/httpapi"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg config.Config
	log *slog.Logger

	tables *game.TableService
	srv    *http.Server
}

type Options struct {
	Static  http.Handler // optional; if nil, no frontend is served
	Version string
}

func New(cfg config.Config, log *slog.Logger, opts Options) *App {
	if log == nil {
		log = slog.Default()
	}

	tables := game.NewTableService(game.TableConfig{
		Session:        SessionOptions(cfg),
		ConfirmTimeout: cfg.Game.ConfirmTimeout,
		IdleTimeout:    cfg.Game.TableIdleTimeout,
	}, game.NewInMemoryTableStore(), log)
	gameSrv := game.NewServer(tables, cfg.HTTP.PublicURL, log)

	mux := httprouter.New()
	mux.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.GET("/version", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("stuckem v" + opts.Version + "\n"))
	})
	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		log.Error("handler panic", "path", r.URL.Path, "panic", v)
		httpapi.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
	}

	gameSrv.RegisterRoutes(mux)

	if opts.Static != nil {
		// The table page is the same single-page client.
		mux.GET("/tables/:table", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			r2 := r.Clone(r.Context())
			r2.URL.Path = "/"
			opts.Static.ServeHTTP(w, r2)
		})
		mux.NotFound = opts.Static
	}

	var h http.Handler = mux
	h = httpapi.SecurityHeaders(cfg.HTTPS())(h)
	h = httpapi.RequestLog(log)(h)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	return &App{cfg: cfg, log: log, tables: tables, srv: srv}
}

// SessionOptions maps the game settings onto new-session defaults.
func SessionOptions(cfg config.Config) game.Options {
	return game.Options{
		SecretWinner: cfg.Game.SecretWinner,
		MinMaxNumber: cfg.Game.MinMaxNumber,
		MaxNumber:    cfg.Game.MaxNumber,
		Hints:        cfg.Game.Hints,
		FeedbackTTL:  cfg.Game.FeedbackTTL,
		RestartTTL:   cfg.Game.RestartTTL,
	}
}

func (a *App) Handler() http.Handler { return a.srv.Handler }

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	a.log.Info("http server starting", "addr", a.cfg.HTTP.Bind, "port", a.cfg.HTTP.Port)

	g.Go(func() error {
		err := a.srv.ListenAndServe()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		return a.tables.RunReaper(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		a.log.Info("http server shutting down")
		_ = a.srv.Shutdown(shutdownCtx)
		return nil
	})

	err := g.Wait()
	a.Close()
	return err
}

// Close stops every hosted table.
func (a *App) Close() {
	a.tables.CloseAll()
}
