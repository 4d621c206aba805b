package app

import (
	"bytes"
	"io"
	"log"
	"strings"
	"testing"

	server "crossblades/server"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CROSSBLADES_ADDR",
		"CROSSBLADES_CLIENT_DIR",
		"CROSSBLADES_ROUNDS_TO_WIN",
		"CROSSBLADES_MAX_ROUNDS",
		"CROSSBLADES_COUNTDOWN_SECONDS",
		"CROSSBLADES_LOG_JSON",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv(log.New(io.Discard, "", 0))

	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %q", cfg.Addr)
	}
	if cfg.Room != server.DefaultRoomConfig() {
		t.Fatalf("expected default room config, got %+v", cfg.Room)
	}
	if !cfg.Logging.HasSink("console") {
		t.Fatalf("expected the console sink enabled by default, got %v", cfg.Logging.EnabledSinks)
	}
	if cfg.Logging.HasSink("json") {
		t.Fatalf("expected no json sink without CROSSBLADES_LOG_JSON, got %v", cfg.Logging.EnabledSinks)
	}
}

func TestFromEnvReadsOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CROSSBLADES_ADDR", ":9999")
	t.Setenv("CROSSBLADES_CLIENT_DIR", "/srv/duel-web")
	t.Setenv("CROSSBLADES_ROUNDS_TO_WIN", "2")
	t.Setenv("CROSSBLADES_MAX_ROUNDS", "3")
	t.Setenv("CROSSBLADES_COUNTDOWN_SECONDS", "5")
	t.Setenv("CROSSBLADES_LOG_JSON", "/tmp/duel-events.jsonl")

	cfg := FromEnv(log.New(io.Discard, "", 0))

	if cfg.Addr != ":9999" {
		t.Fatalf("expected addr :9999, got %q", cfg.Addr)
	}
	if cfg.ClientDir != "/srv/duel-web" {
		t.Fatalf("expected client dir /srv/duel-web, got %q", cfg.ClientDir)
	}
	if cfg.Room.RoundsToWin != 2 || cfg.Room.MaxRounds != 3 || cfg.Room.CountdownSeconds != 5 {
		t.Fatalf("expected room overrides applied, got %+v", cfg.Room)
	}
	if cfg.Logging.JSON.FilePath != "/tmp/duel-events.jsonl" {
		t.Fatalf("expected json log path set, got %q", cfg.Logging.JSON.FilePath)
	}
	if !cfg.Logging.HasSink("json") {
		t.Fatalf("expected the json sink enabled, got %v", cfg.Logging.EnabledSinks)
	}
}

func TestFromEnvKeepsDefaultsOnGarbage(t *testing.T) {
	clearEnv(t)
	t.Setenv("CROSSBLADES_ROUNDS_TO_WIN", "many")

	var buf bytes.Buffer
	cfg := FromEnv(log.New(&buf, "", 0))

	if got, want := cfg.Room.RoundsToWin, server.DefaultRoomConfig().RoundsToWin; got != want {
		t.Fatalf("expected rounds-to-win to stay %d, got %d", want, got)
	}
	if !strings.Contains(buf.String(), "CROSSBLADES_ROUNDS_TO_WIN") {
		t.Fatalf("expected the bad value logged, got %q", buf.String())
	}
}
