package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config captures everything hotend needs to reach and display a printer.
type Config struct {
	Host        string
	Port        int
	APIKey      string
	RoutePrefix string
	SecurePorts []int

	MaxRetries int
	RetryDelay time.Duration

	HistorySize  int
	ConsoleLines int

	LogDir   string
	LogLevel string
}

const (
	defaultConfigPath   = "~/.config/hotend/config.toml"
	defaultLogDir       = "~/.local/share/hotend"
	defaultHost         = "127.0.0.1"
	defaultPort         = 7125
	defaultMaxRetries   = 4
	defaultRetryDelay   = 10 * time.Second
	defaultHistorySize  = 1200
	defaultConsoleLines = 500
	defaultLogLevel     = "info"
)

var defaultSecurePorts = []int{443, 7130}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Host:         defaultHost,
		Port:         defaultPort,
		SecurePorts:  append([]int(nil), defaultSecurePorts...),
		MaxRetries:   defaultMaxRetries,
		RetryDelay:   defaultRetryDelay,
		HistorySize:  defaultHistorySize,
		ConsoleLines: defaultConsoleLines,
		LogDir:       mustExpand(defaultLogDir),
		LogLevel:     defaultLogLevel,
	}
}

type rawConfig struct {
	Moonraker struct {
		Host        string `toml:"host" yaml:"host"`
		Port        int    `toml:"port" yaml:"port"`
		APIKey      string `toml:"api_key" yaml:"api_key"`
		RoutePrefix string `toml:"route_prefix" yaml:"route_prefix"`
		SecurePorts []int  `toml:"secure_ports" yaml:"secure_ports"`
	} `toml:"moonraker" yaml:"moonraker"`
	Connection struct {
		MaxRetries        int     `toml:"max_retries" yaml:"max_retries"`
		RetryDelaySeconds float64 `toml:"retry_delay_seconds" yaml:"retry_delay_seconds"`
	} `toml:"connection" yaml:"connection"`
	History struct {
		Size int `toml:"size" yaml:"size"`
	} `toml:"history" yaml:"history"`
	Console struct {
		Lines int `toml:"lines" yaml:"lines"`
	} `toml:"console" yaml:"console"`
	Log struct {
		Dir   string `toml:"dir" yaml:"dir"`
		Level string `toml:"level" yaml:"level"`
	} `toml:"log" yaml:"log"`
}

// Load locates and parses the hotend config, falling back to defaults when
// missing. Files ending in .yaml or .yml are decoded as YAML, anything else
// as TOML.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := decode(resolved, data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if host := strings.TrimSpace(raw.Moonraker.Host); host != "" {
		cfg.Host = host
	}
	if raw.Moonraker.Port != 0 {
		cfg.Port = raw.Moonraker.Port
	}
	cfg.APIKey = strings.TrimSpace(raw.Moonraker.APIKey)
	cfg.RoutePrefix = strings.Trim(strings.TrimSpace(raw.Moonraker.RoutePrefix), "/")
	if raw.Moonraker.SecurePorts != nil {
		cfg.SecurePorts = raw.Moonraker.SecurePorts
	}
	if raw.Connection.MaxRetries != 0 {
		cfg.MaxRetries = raw.Connection.MaxRetries
	}
	if raw.Connection.RetryDelaySeconds != 0 {
		cfg.RetryDelay = time.Duration(raw.Connection.RetryDelaySeconds * float64(time.Second))
	}
	if raw.History.Size != 0 {
		cfg.HistorySize = raw.History.Size
	}
	if raw.Console.Lines != 0 {
		cfg.ConsoleLines = raw.Console.Lines
	}
	if dir := strings.TrimSpace(raw.Log.Dir); dir != "" {
		cfg.LogDir = mustExpand(dir)
	}
	if level := strings.TrimSpace(raw.Log.Level); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, data []byte, raw *rawConfig) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(raw); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		return toml.Unmarshal(data, raw)
	}
}

// Validate rejects values the connection layer cannot use.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid config: port %d out of range", c.Port)
	}
	for _, p := range c.SecurePorts {
		if p < 1 || p > 65535 {
			return fmt.Errorf("invalid config: secure port %d out of range", p)
		}
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("invalid config: max_retries must not be negative")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("invalid config: retry_delay_seconds must not be negative")
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("invalid config: history size must be positive")
	}
	if c.ConsoleLines < 0 {
		return fmt.Errorf("invalid config: console lines must not be negative")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid config: log level %q", c.LogLevel)
	}
	return nil
}

// LogPath returns the path to the hotend log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return mustExpand(defaultLogDir + "/hotend.log")
	}
	return filepath.Join(c.LogDir, "hotend.log")
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
