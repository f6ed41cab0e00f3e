package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"custodial-ledger/config"
	"custodial-ledger/pkg/logger"

	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/sync/errgroup"
)

var (
	version = "0.1.0-src"
	commit  = versioninfo.Short()
)

func main() {
	configPath := flag.String("config", "", "config file path (default: ./config.yaml or ./config/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, cleanup, err := setupApp(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("setup failed")
	}
	defer cleanup()

	log.Info().
		Str("version", version).
		Str("commit", commit).
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Str("settlement", cfg.Settlement.Mode).
		Str("addr", a.srv.Addr).
		Msg("custodial ledger launched")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exit")
	}
	log.Info().Msg("server exited")
}
