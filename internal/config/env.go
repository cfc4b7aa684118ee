package config

import (
	"os"
	"path/filepath"
	"strings"
)

// LoadFromEnv applies environment overrides on top of cfg.
//
// CLAUDE_PLUGIN_ROOT is set by the host runtime to the running plugin's own
// directory; its parent holds sibling plugins and becomes the primary
// companion root unless one is configured.
func LoadFromEnv(cfg Config) Config {
	if dir := strings.TrimSpace(os.Getenv("SKILL_IMPROVER_STATE_DIR")); dir != "" {
		cfg.StateDir = expandPath(dir)
	}
	if level := strings.TrimSpace(os.Getenv("SKILL_IMPROVER_LOG_LEVEL")); level != "" {
		cfg.Log.Level = level
	}

	if root := strings.TrimSpace(os.Getenv("SKILL_IMPROVER_PLUGIN_ROOT")); root != "" {
		cfg.Companion.PrimaryRoot = expandPath(root)
	} else if cfg.Companion.PrimaryRoot == "" {
		if pluginRoot := strings.TrimSpace(os.Getenv("CLAUDE_PLUGIN_ROOT")); pluginRoot != "" {
			cfg.Companion.PrimaryRoot = filepath.Dir(filepath.Clean(pluginRoot))
		}
	}

	return cfg
}
