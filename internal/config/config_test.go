package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Host != defaultHost || cfg.Port != defaultPort {
		t.Fatalf("endpoint = %s:%d, want %s:%d", cfg.Host, cfg.Port, defaultHost, defaultPort)
	}
	if cfg.MaxRetries != 4 || cfg.RetryDelay != 10*time.Second {
		t.Fatalf("retry = %d/%v, want 4/10s", cfg.MaxRetries, cfg.RetryDelay)
	}
	if !reflect.DeepEqual(cfg.SecurePorts, []int{443, 7130}) {
		t.Fatalf("SecurePorts = %v, want [443 7130]", cfg.SecurePorts)
	}
	wantLogDir, err := expandPath(defaultLogDir)
	if err != nil {
		t.Fatalf("expandPath(defaultLogDir) returned error: %v", err)
	}
	if cfg.LogDir != wantLogDir {
		t.Fatalf("LogDir = %q, want %q", cfg.LogDir, wantLogDir)
	}
}

func TestLoad_ParsesAndTrimsTOML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, "config.toml", `
[moonraker]
host = "  voron.local  "
port = 7130
api_key = " abc123 "
route_prefix = "/printer/"
secure_ports = [7130]

[connection]
max_retries = 7
retry_delay_seconds = 2.5

[history]
size = 600

[log]
dir = "  ~/.hotend/logs  "
level = "DEBUG"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Host != "voron.local" || cfg.Port != 7130 {
		t.Fatalf("endpoint = %s:%d, want voron.local:7130", cfg.Host, cfg.Port)
	}
	if cfg.APIKey != "abc123" {
		t.Fatalf("APIKey = %q, want abc123", cfg.APIKey)
	}
	if cfg.RoutePrefix != "printer" {
		t.Fatalf("RoutePrefix = %q, want printer", cfg.RoutePrefix)
	}
	if cfg.MaxRetries != 7 || cfg.RetryDelay != 2500*time.Millisecond {
		t.Fatalf("retry = %d/%v, want 7/2.5s", cfg.MaxRetries, cfg.RetryDelay)
	}
	if cfg.HistorySize != 600 {
		t.Fatalf("HistorySize = %d, want 600", cfg.HistorySize)
	}
	if cfg.ConsoleLines != defaultConsoleLines {
		t.Fatalf("ConsoleLines = %d, want %d", cfg.ConsoleLines, defaultConsoleLines)
	}
	if !strings.HasPrefix(cfg.LogDir, home) {
		t.Fatalf("LogDir = %q, want it under HOME %q", cfg.LogDir, home)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_ParsesYAML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := writeConfig(t, "config.yaml", `
moonraker:
  host: mainsail.lan
  port: 80
connection:
  max_retries: 2
console:
  lines: 100
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Host != "mainsail.lan" || cfg.Port != 80 {
		t.Fatalf("endpoint = %s:%d, want mainsail.lan:80", cfg.Host, cfg.Port)
	}
	if cfg.MaxRetries != 2 || cfg.ConsoleLines != 100 {
		t.Fatalf("MaxRetries/ConsoleLines = %d/%d, want 2/100", cfg.MaxRetries, cfg.ConsoleLines)
	}
	if cfg.RetryDelay != defaultRetryDelay {
		t.Fatalf("RetryDelay = %v, want default", cfg.RetryDelay)
	}
}

func TestLoad_YAMLUnknownFieldFails(t *testing.T) {
	path := writeConfig(t, "config.yml", "moonraker:\n  hots: typo\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %v, want parse config error", err)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := writeConfig(t, "config.toml", `[moonraker`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"port", "[moonraker]\nport = 70000\n", "port 70000"},
		{"secure port", "[moonraker]\nsecure_ports = [0]\n", "secure port"},
		{"retries", "[connection]\nmax_retries = -1\n", "max_retries"},
		{"history", "[history]\nsize = -5\n", "history size"},
		{"level", "[log]\nlevel = \"loud\"\n", "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			_, err := Load(writeConfig(t, "config.toml", tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestLogPath_DefaultsWhenLogDirEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	var cfg Config
	got := cfg.LogPath()
	if !strings.HasPrefix(got, home) {
		t.Fatalf("LogPath = %q, want it under HOME %q", got, home)
	}
	if !strings.HasSuffix(got, filepath.FromSlash("/hotend.log")) {
		t.Fatalf("LogPath = %q, want it to end with /hotend.log", got)
	}
}
