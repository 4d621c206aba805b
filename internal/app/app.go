// Package app wires the duel server together: configuration from the
// environment, the logging router and its sinks, the room hub, and the HTTP
// surface.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	server "crossblades/server"
	servernet "crossblades/server/internal/net"
	"crossblades/server/internal/telemetry"
	"crossblades/server/logging"
	loggingsinks "crossblades/server/logging/sinks"
)

// Config carries process-level settings. FromEnv builds one from the
// CROSSBLADES_* environment variables.
type Config struct {
	Addr      string
	ClientDir string
	Room      server.RoomConfig
	Logging   logging.Config
	Logger    *log.Logger
}

// FromEnv reads the environment into a Config. Unparseable values are
// logged and left at their defaults.
func FromEnv(logger *log.Logger) Config {
	if logger == nil {
		logger = log.Default()
	}

	cfg := Config{
		Addr:    ":8080",
		Room:    server.DefaultRoomConfig(),
		Logging: logging.DefaultConfig(),
		Logger:  logger,
	}

	if raw := os.Getenv("CROSSBLADES_ADDR"); raw != "" {
		cfg.Addr = raw
	}
	if raw := os.Getenv("CROSSBLADES_CLIENT_DIR"); raw != "" {
		cfg.ClientDir = raw
	} else {
		cfg.ClientDir = probeWebDir()
	}
	if raw := os.Getenv("CROSSBLADES_ROUNDS_TO_WIN"); raw != "" {
		if value, err := strconv.Atoi(raw); err != nil {
			logger.Printf("invalid CROSSBLADES_ROUNDS_TO_WIN=%q: %v", raw, err)
		} else {
			cfg.Room.RoundsToWin = value
		}
	}
	if raw := os.Getenv("CROSSBLADES_MAX_ROUNDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err != nil {
			logger.Printf("invalid CROSSBLADES_MAX_ROUNDS=%q: %v", raw, err)
		} else {
			cfg.Room.MaxRounds = value
		}
	}
	if raw := os.Getenv("CROSSBLADES_COUNTDOWN_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err != nil {
			logger.Printf("invalid CROSSBLADES_COUNTDOWN_SECONDS=%q: %v", raw, err)
		} else {
			cfg.Room.CountdownSeconds = value
		}
	}
	if raw := os.Getenv("CROSSBLADES_LOG_JSON"); raw != "" {
		cfg.Logging.JSON.FilePath = raw
		if !cfg.Logging.HasSink("json") {
			cfg.Logging.EnabledSinks = append(cfg.Logging.EnabledSinks, "json")
		}
	}
	return cfg
}

// Run starts the server and blocks until the context is cancelled or the
// listener fails.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	logCfg := cfg.Logging
	if len(logCfg.EnabledSinks) == 0 {
		logCfg = logging.DefaultConfig()
	}

	var namedSinks []logging.NamedSink
	if logCfg.HasSink("console") {
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "console",
			Sink: loggingsinks.NewConsoleSink(os.Stdout, logCfg.Console),
		})
	}
	if logCfg.HasSink("json") && logCfg.JSON.FilePath != "" {
		file, err := os.OpenFile(logCfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open json log file: %w", err)
		}
		defer file.Close()
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "json",
			Sink: loggingsinks.NewJSON(file, logCfg.JSON.FlushInterval),
		})
	}

	router, err := logging.NewRouter(nil, logCfg, namedSinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	metrics := logging.NewMetrics()
	hub := server.NewHub(cfg.Room, router, telemetry.WrapLogger(logger))
	defer hub.Close()

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir: cfg.ClientDir,
		Logger:    logger,
		Publisher: router,
		Metrics:   telemetry.WrapMetrics(metrics),
		Router:    router,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Printf("duel server listening on %s", srv.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("http shutdown: %v", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}
