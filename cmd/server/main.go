package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/burntop/burntop/internal/config"
	"github.com/burntop/burntop/internal/logger"
	"github.com/burntop/burntop/internal/server"
	"github.com/burntop/burntop/internal/version"
)

func main() {
	// No arguments: start server (default behavior)
	if len(os.Args) < 2 {
		runServer()
		return
	}

	switch os.Args[1] {
	case "serve":
		runServer()
	case "prune":
		cmdPrune(os.Args[2:])
	case "-v", "--version", "version":
		printVersion()
	case "-h", "--help", "help":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("Burntop %s\n", version.Version)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
	fmt.Printf("Build Date: %s\n", version.BuildDate)
}

func printHelp() {
	fmt.Print(`Burntop - community usage tracking backend for AI coding tools

Usage: burntop [command] [options]

Commands:
  serve     Start the API server (default if no command)
  prune     Remove aged dedup entries and expired sessions

Options:
  -h, --help       Show this help message
  -v, --version    Show version information

Environment Variables:
  BURNTOP_API_PORT               API server port (default: 8080)
  BURNTOP_DATABASE_PATH          DuckDB database path (default: ./data/burntop.duckdb)
  BURNTOP_SECRET_KEY             Session signing secret, at least 32 characters (required)
  BURNTOP_FRONTEND_URL           Frontend URL for CORS (default: http://localhost:5173)
  BURNTOP_PRICING_URL            Pricing catalog URL
  BURNTOP_PRICING_CACHE_PATH     Pricing catalog cache file
  BURNTOP_RATE_LIMIT_ENABLED     Enable per-client rate limiting (default: false)
  BURNTOP_LOG_LEVEL              Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  BURNTOP_LOG_FORMAT             Log format: json or text (default: json)
`)
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	initLogging(cfg)
	log := logger.Logger()

	srv, err := server.New(cfg)
	if err != nil {
		log.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGINT/SIGTERM
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("received shutdown signal")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("error during shutdown", "error", err)
		}
	}()

	log.Info("burntop starting",
		"database", cfg.DatabasePath,
		"api_port", cfg.APIPort,
	)

	if err := srv.ListenAndServe(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func initLogging(cfg *config.Config) {
	level := parseLogLevel(cfg.LogLevel)
	if strings.EqualFold(cfg.LogFormat, "text") {
		logger.InitializeText(level)
	} else {
		logger.Initialize(level)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
