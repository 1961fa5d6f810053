package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhangyumengsarah-gif/word/internal/app"
	"github.com/zhangyumengsarah-gif/word/internal/config"
	"github.com/zhangyumengsarah-gif/word/internal/ports/ws"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	// `server token <uid>` prints a token for WS_JWT_SECRET and exits.
	if len(os.Args) == 3 && os.Args[1] == "token" {
		auth := ws.NewTokenAuth(os.Getenv("WS_JWT_SECRET"))
		if auth == nil {
			log.Fatal().Msg("WS_JWT_SECRET is not set")
		}
		token, err := auth.SignToken(os.Args[2], nil)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to sign token")
		}
		fmt.Println(token)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid game config")
	}

	origin := os.Getenv("CLIENT_ORIGIN")
	hub := ws.NewHub(log.Logger)
	coord := app.NewCoordinator(app.NewService(cfg, nil), nil, hub)
	handler := ws.NewHandler(coord, hub, ws.NewTokenAuth(os.Getenv("WS_JWT_SECRET")), origin, log.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ClaimTimeoutSeconds > 0 {
		go expireClaims(ctx, coord, time.Second/time.Duration(cfg.TickRate))
	}

	port := getEnv("PORT", "3000")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           ws.NewRouter(coord, hub, handler, origin),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("port", port).
		Int("hand_size", cfg.HandSize).
		Bool("strict_turns", cfg.StrictTurns).
		Bool("strict_win", cfg.StrictWin).
		Int("claim_timeout_seconds", cfg.ClaimTimeoutSeconds).
		Msg("starting letterpeng server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// loadConfig reads GAME_CONFIG if set, then overlays letterpeng_* variables.
func loadConfig() (*config.GameConfig, error) {
	cfg := config.Default()
	if path := os.Getenv("GAME_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expireClaims drives claim timeouts at the configured tick rate.
func expireClaims(ctx context.Context, coord *app.Coordinator, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := coord.Tick(ctx, now); err != nil {
				log.Warn().Err(err).Msg("claim expiry")
			}
		}
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
