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

	router "github.com/kellyg78/vu-music-sala/internal/adapters/http"
	"github.com/kellyg78/vu-music-sala/internal/app"
	"github.com/kellyg78/vu-music-sala/internal/auth"
	"github.com/kellyg78/vu-music-sala/internal/broadcast"
	"github.com/kellyg78/vu-music-sala/internal/config"
	"github.com/kellyg78/vu-music-sala/internal/remote"
	"github.com/kellyg78/vu-music-sala/internal/search"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// One remote client per session: sessions never share an identity.
	gateway := broadcast.NewGateway()
	registry := app.NewRegistry(func() remote.Client {
		return remote.NewHTTPClient(cfg.RemoteBaseURL, cfg.RemoteTimeout)
	}, gateway)
	authn := auth.NewJWT(cfg.JWTSecret)
	provider := search.NewYouTube(cfg.YouTubeAPIKey)

	r := router.SetupRouter(ctx, cfg, registry, gateway, authn, provider)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Sala server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
