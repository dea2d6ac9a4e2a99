package config

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TODODAY_DATA", "")
	t.Setenv("TODODAY_DB", "")
	t.Setenv("TODODAY_LOG_LEVEL", "")
	t.Setenv("TODODAY_TZ", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != filepath.Join(home, ".tododay") {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.DBPath() != filepath.Join(home, ".tododay", "todos.db") {
		t.Errorf("DBPath = %q", cfg.DBPath())
	}
	if lvl, _ := cfg.Level(); lvl != slog.LevelInfo {
		t.Errorf("Level = %v, want INFO", lvl)
	}
	if loc, _ := cfg.Location(); loc != time.Local {
		t.Errorf("Location = %v, want Local", loc)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("TODODAY_DATA", "/var/lib/tododay")
	t.Setenv("TODODAY_DB", "work.db")
	t.Setenv("TODODAY_LOG_LEVEL", "debug")
	t.Setenv("TODODAY_TZ", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath() != filepath.Join("/var/lib/tododay", "work.db") {
		t.Errorf("DBPath = %q", cfg.DBPath())
	}
	if lvl, _ := cfg.Level(); lvl != slog.LevelDebug {
		t.Errorf("Level = %v, want DEBUG", lvl)
	}
	if loc, _ := cfg.Location(); loc.String() != "UTC" {
		t.Errorf("Location = %v, want UTC", loc)
	}
}

func TestLoad_InMemory(t *testing.T) {
	t.Setenv("TODODAY_DATA", t.TempDir())
	t.Setenv("TODODAY_DB", ":memory:")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.InMemory() || cfg.DBPath() != ":memory:" {
		t.Errorf("DBPath = %q, want :memory:", cfg.DBPath())
	}
}

func TestLoad_BadLevel(t *testing.T) {
	t.Setenv("TODODAY_DATA", t.TempDir())
	t.Setenv("TODODAY_LOG_LEVEL", "chatty")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for bad log level")
	}
}

func TestLoad_BadTimeZone(t *testing.T) {
	t.Setenv("TODODAY_DATA", t.TempDir())
	t.Setenv("TODODAY_LOG_LEVEL", "info")
	t.Setenv("TODODAY_TZ", "Mars/Olympus_Mons")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "TODODAY_TZ") {
		t.Fatalf("err = %v, want TODODAY_TZ error", err)
	}
}

func TestUsage(t *testing.T) {
	if !strings.Contains(Usage(), "TODODAY_DB") {
		t.Errorf("usage missing TODODAY_DB: %s", Usage())
	}
}
