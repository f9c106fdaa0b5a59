package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "cadence.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.Owner != "" {
		t.Fatalf("expected no owner, got %q", cfg.Owner)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.Local {
		t.Fatalf("expected local zone, got %v, %v", loc, err)
	}
	level, err := cfg.Level()
	if err != nil || level != slog.LevelInfo {
		t.Fatalf("expected info level, got %v, %v", level, err)
	}
}

func TestLoadFromValues(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"CADENCE_DB":        "/tmp/reviews.db",
		"CADENCE_OWNER":     "alice",
		"CADENCE_TZ":        "Europe/Berlin",
		"CADENCE_LOG_LEVEL": "DEBUG",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/reviews.db" || cfg.Owner != "alice" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if loc.String() != "Europe/Berlin" {
		t.Fatalf("expected Europe/Berlin, got %s", loc)
	}
	level, err := cfg.Level()
	if err != nil || level != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v, %v", level, err)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("CADENCE_OWNER", "bob")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Owner != "bob" {
		t.Fatalf("expected owner bob, got %q", cfg.Owner)
	}
}

func TestInvalidValues(t *testing.T) {
	cfg := Config{TZ: "Mars/Olympus", LogLevel: "loud"}

	if _, err := cfg.Location(); err == nil || !strings.Contains(err.Error(), "CADENCE_TZ") {
		t.Fatalf("expected zone error, got %v", err)
	}
	if _, err := cfg.Level(); err == nil || !strings.Contains(err.Error(), "CADENCE_LOG_LEVEL") {
		t.Fatalf("expected level error, got %v", err)
	}
}
