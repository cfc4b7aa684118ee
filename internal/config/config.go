package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type CompanionConfig struct {
	PrimaryRoot   string   `toml:"primary_root"`
	FallbackRoots []string `toml:"fallback_roots"`
	Marker        string   `toml:"marker"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	StateDir             string          `toml:"state_dir"`
	DefaultMaxIterations int             `toml:"default_max_iterations"`
	Companion            CompanionConfig `toml:"companion"`
	Log                  LogConfig       `toml:"log"`
}

func Default() Config {
	return Config{
		StateDir:             ".claude",
		DefaultMaxIterations: 20,
		Companion: CompanionConfig{
			PrimaryRoot: "",
			FallbackRoots: []string{
				"~/.claude/plugins",
				"~/.claude/plugins/marketplaces",
				"~/.claude/plugins/cache",
			},
			Marker: "plugin-dev",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// DefaultPath is where the config file is looked up when no --config is given.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.toml")
}

// Load reads the TOML file at path over the defaults. A missing file is not an
// error: the defaults are returned and nothing is written.
func Load(path string) (Config, error) {
	config := Default()

	configData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return config, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(configData, &config); err != nil {
		return config, fmt.Errorf("parse config %s: %w", path, err)
	}

	config.StateDir = expandPath(strings.TrimSpace(config.StateDir))
	config.Companion.PrimaryRoot = expandPath(strings.TrimSpace(config.Companion.PrimaryRoot))
	config.Companion.Marker = strings.TrimSpace(config.Companion.Marker)

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("config %s: %w", path, err)
	}

	return config, nil
}

func (c Config) Validate() error {
	if c.StateDir == "" {
		return errors.New("state_dir is required")
	}
	if c.DefaultMaxIterations < 1 {
		return fmt.Errorf("default_max_iterations must be positive, got %d", c.DefaultMaxIterations)
	}
	if c.Companion.Marker == "" {
		return errors.New("companion.marker is required")
	}
	if strings.ContainsAny(c.Companion.Marker, `/\`) {
		return fmt.Errorf("companion.marker must be a directory name, got %q", c.Companion.Marker)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// CompanionRoots lists the install roots to probe, primary first, with
// duplicates and empty entries dropped.
func (c Config) CompanionRoots() []string {
	candidates := append([]string{c.Companion.PrimaryRoot}, c.Companion.FallbackRoots...)

	var roots []string
	seen := make(map[string]bool)
	for _, root := range candidates {
		root = expandPath(strings.TrimSpace(root))
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		if seen[root] {
			continue
		}
		seen[root] = true
		roots = append(roots, root)
	}
	return roots
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelWarn, fmt.Errorf("unknown log level %q", name)
}

func defaultDataDir() string {
	homeDir, _ := os.UserHomeDir()

	if homeDir == "" {
		return ".skill-improver"
	}

	return filepath.Join(homeDir, ".skill-improver")
}

func expandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		homeDir, _ := os.UserHomeDir()

		if homeDir != "" {
			trimmed := strings.TrimPrefix(path, "~")
			trimmed = strings.TrimPrefix(trimmed, string(os.PathSeparator))

			return filepath.Join(homeDir, trimmed)
		}
	}

	return path
}
