package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rapidmidiex/rmxscore/config"
	"github.com/rapidmidiex/rmxscore/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the score server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *cfg, log.New(cmd.ErrOrStderr(), "rmx ", log.LstdFlags))
		},
	}
	cfg.ServerFlags(cmd.Flags())
	return cmd
}

func serve(ctx context.Context, cfg config.Config, l *log.Logger) error {
	st, err := cfg.OpenStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
		return fmt.Errorf("export dir: %w", err)
	}

	srv := server.New(server.Options{
		Store:          st,
		ExportDir:      cfg.ExportDir,
		AllowedOrigins: cfg.AllowedOrigins,
		Debounce:       cfg.Debounce,
		Logger:         l,
	})
	defer srv.Close()

	hs := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		l.Printf("listening on %s (%s store)", cfg.Addr, cfg.Store)
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	l.Println("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
