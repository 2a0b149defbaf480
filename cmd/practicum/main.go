package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/practicum/internal/authn"
	"github.com/dukerupert/practicum/internal/config"
	"github.com/dukerupert/practicum/internal/database"
	"github.com/dukerupert/practicum/internal/logging"
	"github.com/dukerupert/practicum/internal/question"
	"github.com/dukerupert/practicum/internal/recommend"
	"github.com/dukerupert/practicum/internal/server"
	"github.com/dukerupert/practicum/internal/token"
)

func main() {
	cfg, err := config.Load(os.Getenv("PRACTICUM_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if cfg.Session.Secret == "" {
		cfg.Session.Secret = devSecret()
		slog.Warn("no session secret configured; using a random one, sessions will not survive a restart")
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	bank, err := question.Load(cfg.Questions.Dir, logger.With("component", "questions"))
	if err != nil {
		slog.Error("failed to load questions", "error", err)
		os.Exit(1)
	}

	var rec recommend.Recommender = recommend.Disabled{}
	if cfg.Gemini.APIKey != "" {
		g, err := recommend.NewGemini(context.Background(), recommend.GeminiConfig{
			APIKey:     cfg.Gemini.APIKey,
			ModelName:  cfg.Gemini.ModelName,
			MaxRetries: cfg.Gemini.MaxRetries,
		}, logger.With("component", "gemini"))
		if err != nil {
			slog.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		defer g.Close()
		rec = g
	}

	scheme, err := cfg.PasswordScheme()
	if err != nil {
		slog.Error("invalid password scheme", "error", err)
		os.Exit(1)
	}
	issuer := token.NewIssuer([]byte(cfg.Session.Secret), cfg.Session.Audience, cfg.Session.TTL)
	srv := server.New(db, bank, issuer, rec, server.Options{
		Auth: authn.Config{Scheme: scheme, SessionTTL: cfg.Session.TTL},
	}, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(cfg.Session.Cleanup)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(cleanupCtx, time.Now()); err != nil {
					slog.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("practicum starting", "addr", httpServer.Addr, "questions", bank.Len(), "dev", cfg.Dev)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cleanupCancel()
	srv.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func devSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
