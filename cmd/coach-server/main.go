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

	"ai-fitness-coach/internal/config"
	"ai-fitness-coach/internal/httpapi"
	"ai-fitness-coach/internal/logger"
	"ai-fitness-coach/internal/telegram"
	"ai-fitness-coach/internal/wiring"

	"github.com/gin-gonic/gin"
)

const sessionCleanupInterval = time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	if cfg.LogMode == "prod" || cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := wiring.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	var bot *telegram.Bot
	var webhook http.Handler
	if cfg.TelegramBotToken != "" {
		sessions := telegram.NewSessionRepository(svc.DB.SQL)
		bot, err = telegram.NewBot(cfg, svc.App, sessions, svc.DataDir(), log)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram Bot: %w", err)
		}
		svc.App.OnAgentMeta(bot.CheckContextBloat)
		webhook = bot.WebhookHandler()
		go cleanupSessions(ctx, sessions, log)
	} else {
		log.Info("TELEGRAM_BOT_TOKEN not set, serving the HTTP API only")
	}
	if cfg.APIJWTSecret == "" {
		log.Warn("API_JWT_SECRET not set, every /api request will be rejected")
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Handler:        httpapi.NewHandler(svc.App, svc.Gemini, log),
		Verifier:       httpapi.NewVerifier(cfg.APIJWTSecret),
		AllowedOrigins: cfg.APIAllowedOrigins,
		Webhook:        webhook,
		Log:            log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("coach server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if bot != nil {
		bot.Wait()
	}

	log.Info("server exiting")
	return nil
}

func cleanupSessions(ctx context.Context, sessions *telegram.SessionRepository, log *logger.Logger) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.CleanupExpired(ctx)
			if err != nil {
				log.Warn("failed to clean up chat sessions", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("removed expired chat sessions", "count", n)
			}
		}
	}
}
