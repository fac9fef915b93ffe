// Package main is the entry point for the pollchat server.
//
// main stays minimal: read configuration, build the logger, hand everything
// to internal/server. All actual logic lives in the imported packages.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sakif/pollchat/internal/server"
)

// defaultPollOptions is the fixed option set seeded on first start. Override
// with POLL_OPTIONS (comma-separated) before the first run; options are keys
// in the votes table, so changing them later adds rows but never removes any.
var defaultPollOptions = []string{
	"Climate_Change",
	"Rise_In_Temperature",
	"Sustainable_Development",
}

func main() {
	// A local .env is optional — absence is not an error.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
		port = p
	}

	staticDir, _ := filepath.Abs("web/static")
	if envStatic := os.Getenv("STATIC_DIR"); envStatic != "" {
		staticDir = envStatic
	}

	dbPath := "data/pollchat.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// JWT_SECRET must be a long random string, e.g.:
	//   JWT_SECRET=$(openssl rand -hex 32)
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	pollOptions := defaultPollOptions
	if envOpts := os.Getenv("POLL_OPTIONS"); envOpts != "" {
		pollOptions = nil
		for _, opt := range strings.Split(envOpts, ",") {
			if opt = strings.TrimSpace(opt); opt != "" {
				pollOptions = append(pollOptions, opt)
			}
		}
	}
	if len(pollOptions) == 0 {
		logger.Error("POLL_OPTIONS resolved to an empty option set")
		os.Exit(1)
	}

	cfg := server.Config{
		Port:        port,
		StaticDir:   staticDir,
		DBPath:      dbPath,
		JWTSecret:   jwtSecret,
		PollOptions: pollOptions,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down via SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
