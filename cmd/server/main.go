// Package main is the entry point for the Gemini-Web2API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Mag1cFall/Gemini-Web2API/internal/browser"
	"github.com/Mag1cFall/Gemini-Web2API/internal/config"
	"github.com/Mag1cFall/Gemini-Web2API/internal/gemini"
	"github.com/Mag1cFall/Gemini-Web2API/internal/handler"
	"github.com/Mag1cFall/Gemini-Web2API/internal/security"
	"github.com/Mag1cFall/Gemini-Web2API/internal/ui"
)

func main() {
	// The cookie bootstrap is a one-shot tool, not a server mode.
	if len(os.Args) > 1 && os.Args[1] == "--fetch-cookies" {
		if err := browser.FetchCookies(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ui.PrintBanner()

	// =========================================================================
	// 1. Load .env and configuration
	// =========================================================================
	_ = godotenv.Load()

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// =========================================================================
	// 2. Setup structured logger (secrets redacted)
	// =========================================================================
	logger := setupLogger(cfg.Logging)

	logger.Info("starting gemini-web2api",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.Bool("auth_enabled", cfg.Auth.APIKey != ""),
	)

	// =========================================================================
	// 3. Initialize the backend session handle (once, before any request)
	// =========================================================================
	backend := initBackend(cfg, logger)

	// =========================================================================
	// 4. Setup Gin router with middleware
	// =========================================================================
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	chatHandler := handler.NewChatHandler(backend, handler.WithLogger(logger))

	router := gin.New()
	router.Use(handler.RecoveryMiddleware(logger))
	router.Use(handler.CORSMiddleware())
	router.Use(handler.LoggingMiddleware(logger))

	router.GET("/", chatHandler.HandleRoot)

	v1 := router.Group("/v1", handler.AuthMiddleware(cfg.Auth.APIKey))
	v1.POST("/chat/completions", chatHandler.HandleChatCompletion)
	v1.GET("/models", chatHandler.HandleModels)

	// =========================================================================
	// 5. Start HTTP server with graceful shutdown
	// =========================================================================
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		// No write timeout: streaming responses wait on the backend call,
		// which is bounded only by the session timeout.
	}

	go func() {
		logger.Info("server starting", slog.String("address", addr))
		ui.PrintStartupSummary(addr, backendStatus(backend), len(gemini.Catalog()))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	ui.PrintShutdown()

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
	ui.PrintStopped()
}

// initBackend performs the once-per-process session initialization. The
// handle's state never changes after this returns: missing secrets leave it
// uninitialized, a thrown initialization marks it permanently failed, and
// requests never retry either.
func initBackend(cfg *config.Configuration, logger *slog.Logger) *handler.Backend {
	if !cfg.Credentials.Present() {
		logger.Warn("session cookies not found; chat endpoint will answer 503",
			slog.String("hint", "run with --fetch-cookies or fill .env manually"),
		)
		return handler.NewUninitializedBackend()
	}

	client, err := gemini.New(
		cfg.Credentials.PSID,
		cfg.Credentials.PSIDTS,
		gemini.WithTimeout(cfg.Backend.SessionTimeoutSeconds),
		gemini.WithLogger(logger),
	)
	if err != nil {
		logger.Error("failed to construct gemini client", slog.String("error", err.Error()))
		return handler.NewFailedBackend()
	}

	initTimeout := time.Duration(cfg.Backend.InitTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	if err := client.Init(ctx); err != nil {
		logger.Error("failed to initialize gemini session",
			slog.String("error", err.Error()),
			slog.String("hint", "cookies may be expired; rerun --fetch-cookies"),
		)
		return handler.NewFailedBackend()
	}

	logger.Info("gemini session ready")
	return handler.NewReadyBackend(client)
}

func backendStatus(b *handler.Backend) string {
	switch b.State() {
	case handler.BackendReady:
		return "ready"
	case handler.BackendUninitialized:
		return "uninitialized"
	default:
		return "failed"
	}
}

// setupLogger creates a structured logger with secret redaction.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if cfg.Format == "text" {
		inner = slog.NewTextHandler(os.Stdout, opts)
	} else {
		inner = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(security.NewRedactedHandler(inner))
	slog.SetDefault(logger)
	return logger
}
