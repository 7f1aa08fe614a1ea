package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/peerchess/internal/adapters/http"
	"github.com/dkeye/peerchess/internal/adapters/navstore"
	"github.com/dkeye/peerchess/internal/adapters/rtc"
	"github.com/dkeye/peerchess/internal/adapters/rules"
	"github.com/dkeye/peerchess/internal/app"
	"github.com/dkeye/peerchess/internal/app/history"
	"github.com/dkeye/peerchess/internal/app/orch"
	"github.com/dkeye/peerchess/internal/config"
	"github.com/dkeye/peerchess/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Err(err).Str("log_level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}

	nav, closeNav, err := openNavigator(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("history store unavailable")
	}
	defer closeNav()

	sess, err := orch.New(orch.Options{
		NewTransport: rtc.NewFactory(rtc.Config{
			ICEServers: cfg.ICEServers,
			Label:      cfg.DataChannelLabel,
		}),
		Rules:     rules.NewEngine(),
		Navigator: nav,
		Policy:    app.SimplePolicy{},
		GameID:    cfg.History.GameID,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("session setup")
	}
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		sess.Run(ctx)
	}()

	r := router.SetupRouter(ctx, cfg, sess)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("peerchess started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	<-loopDone
	log.Info().Msg("Server exited gracefully")
}

// openNavigator picks Redis when a url is configured, memory otherwise.
func openNavigator(ctx context.Context, cfg *config.Config) (core.Navigator, func(), error) {
	if cfg.History.RedisURL == "" {
		log.Info().Str("module", "main").Msg("history kept in memory")
		return history.NewMemoryNavigator(), func() {}, nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rdb, err := navstore.Open(pingCtx, cfg.History.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("module", "main").Str("game", cfg.History.GameID).Msg("history kept in redis")
	nav := navstore.New(rdb, cfg.History.KeyPrefix, cfg.History.GameID, cfg.History.TTL)
	return nav, func() { _ = rdb.Close() }, nil
}
