package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"talkline/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API with graceful shutdown on SIGINT/SIGTERM.

When SWEEP_INTERVAL is set, the same housekeeping as "talkline sweep" runs
periodically in the background.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Root context that cancels on shutdown
		rootCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(rootCtx)
		if err != nil {
			return err
		}
		defer a.Close()
		log := a.log

		if a.cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}

		identity, err := auth.NewOIDCVerifier(rootCtx, a.cfg.Auth.OIDCIssuer, a.cfg.Auth.OIDCClientID)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              a.cfg.HTTPAddr(),
			Handler:           newRouter(a, identity),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			log.Info("api listening", "addr", srv.Addr, "env", a.cfg.App.Env)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server failed", "err", err)
				stop()
			}
		}()

		if every := a.cfg.Engine.SweepInterval; every > 0 {
			go sweepLoop(rootCtx, a, every)
		}

		<-rootCtx.Done()
		log.Info("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", "err", err)
			return err
		}
		return nil
	},
}

func sweepLoop(ctx context.Context, a *app, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := runSweep(ctx, a, time.Now()); err != nil {
				a.log.Error("sweep failed", "err", err)
			}
		}
	}
}
