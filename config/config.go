package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid config")

const (
	appDir          = "go-recplay"
	envPrefix       = "RECPLAY_"
	defaultQuantum  = 300
	defaultListen   = "127.0.0.1:7400"
	defaultLogLevel = "info"
)

// UIConfig stores UI preferences
type UIConfig struct {
	Palette     string `toml:"palette,omitempty"` // GIMP .gpl file, empty for built-in
	NoticeLines int    `toml:"notice_lines,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Input         string   `toml:"input"`  // port name, index or substring
	Output        string   `toml:"output"` // port name, index or substring
	Channel       *int     `toml:"channel,omitempty"`
	PollQuantumMS int      `toml:"poll_quantum_ms"`
	ListenAddr    string   `toml:"listen_addr"`
	Debug         bool     `toml:"debug"`
	LogLevel      string   `toml:"log_level"`
	UI            UIConfig `toml:"ui"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		PollQuantumMS: defaultQuantum,
		ListenAddr:    defaultListen,
		LogLevel:      defaultLogLevel,
		UI: UIConfig{
			NoticeLines: 12,
		},
	}
}

// Dir returns the config directory path
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appDir), nil
}

// Path returns the full path to config.toml
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadDotEnv reads .env files into the environment. Missing files are not
// an error; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Load reads the config from path (the default path when empty), applies
// RECPLAY_* environment overrides and validates the result. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		p, err := Path()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(envPrefix + "INPUT"); v != "" {
		cfg.Input = v
	}
	if v := os.Getenv(envPrefix + "OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv(envPrefix + "CHANNEL"); v != "" {
		ch, err := ParseChannel(v)
		if err != nil {
			return err
		}
		cfg.Channel = ch
	}
	if v := os.Getenv(envPrefix + "POLL_QUANTUM_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sPOLL_QUANTUM_MS=%q", ErrInvalid, envPrefix, v)
		}
		cfg.PollQuantumMS = n
	}
	if v := os.Getenv(envPrefix + "LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envPrefix + "DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sDEBUG=%q", ErrInvalid, envPrefix, v)
		}
		cfg.Debug = b
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(envPrefix + "PALETTE"); v != "" {
		cfg.UI.Palette = v
	}
	return nil
}

// ParseChannel parses an override channel 0-15. "off", "none" and "-1"
// mean no override.
func ParseChannel(s string) (*int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none", "-1":
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > 15 {
		return nil, fmt.Errorf("%w: channel %q (want 0-15 or off)", ErrInvalid, s)
	}
	return &n, nil
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	if c.Channel != nil && (*c.Channel < 0 || *c.Channel > 15) {
		return fmt.Errorf("%w: channel %d (want 0-15)", ErrInvalid, *c.Channel)
	}
	if c.PollQuantumMS <= 0 {
		return fmt.Errorf("%w: poll_quantum_ms must be positive, got %d", ErrInvalid, c.PollQuantumMS)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	if c.UI.NoticeLines < 0 {
		return fmt.Errorf("%w: ui.notice_lines must not be negative", ErrInvalid)
	}
	return nil
}

// Override returns the channel override in the engine's form
func (c *Config) Override() *uint8 {
	if c.Channel == nil {
		return nil
	}
	ch := uint8(*c.Channel)
	return &ch
}

// PollQuantum returns the playback polling quantum
func (c *Config) PollQuantum() time.Duration {
	return time.Duration(c.PollQuantumMS) * time.Millisecond
}

// Save writes the config to path (the default path when empty)
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
