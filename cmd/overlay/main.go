package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/Overlay/internal/adapters/host"
	router "github.com/dkeye/Overlay/internal/adapters/http"
	"github.com/dkeye/Overlay/internal/app/orch"
	"github.com/dkeye/Overlay/internal/app/reactor"
	"github.com/dkeye/Overlay/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Debug().Str("module", "main").Msg("no .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Str("module", "main").Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	rx := reactor.New(cfg.Reactor.Mailbox)
	link := host.New(cfg.Host)
	o := orch.New(orch.Options{
		DefaultPort:  cfg.Session.DefaultPort,
		ChatCapacity: cfg.Chat.Capacity,
	}, link, link, rx)
	o.Start()
	defer o.Stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router.SetupRouter(ctx, cfg, o),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rx.Run(gctx) })
	g.Go(func() error { return link.Run(gctx) })
	g.Go(func() error {
		log.Info().Str("module", "main").Str("addr", addr).Msg("overlay server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Str("module", "main").Msg("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, reactor.ErrStopped) {
		log.Error().Err(err).Str("module", "main").Msg("server stopped with error")
		return
	}
	log.Info().Str("module", "main").Msg("server exited gracefully")
}
