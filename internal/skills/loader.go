package skills

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/erg0nix/skill-improver/internal/frontmatter"
)

var ErrNoMetadata = errors.New("skill metadata not found")

type skillFrontmatter struct {
	Name        string `toml:"name" yaml:"name"`
	Description string `toml:"description" yaml:"description"`
}

// Resolve never searches. A directory without SKILL.md is reported as
// ErrNoMetadata, and the resolved directory is still returned.
func Resolve(fsys afero.Fs, target string) (string, error) {
	dir, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", target, err)
	}

	if filepath.Base(dir) == MetadataFile {
		dir = filepath.Dir(dir)
	}

	stat, err := fsys.Stat(joinMetadata(dir))
	if err != nil || stat.IsDir() {
		return dir, fmt.Errorf("%w: %s", ErrNoMetadata, joinMetadata(dir))
	}

	return dir, nil
}

func Load(fsys afero.Fs, dir string) (*Skill, error) {
	skill := &Skill{Path: dir}

	data, err := afero.ReadFile(fsys, skill.MetadataPath())
	if err != nil {
		return nil, fmt.Errorf("read skill metadata: %w", err)
	}

	fm := parseMetadata(data)
	skill.Name = strings.TrimSpace(fm.Name)
	skill.Description = strings.TrimSpace(fm.Description)

	return skill, nil
}

func parseMetadata(data []byte) skillFrontmatter {
	block, ok := tomlFrontmatter(string(data))
	if !ok {
		return parseYAMLMetadata(data)
	}

	var fm skillFrontmatter
	if err := toml.Unmarshal([]byte(block), &fm); err != nil {
		slog.Debug("failed to parse skill frontmatter", "error", err)
		return skillFrontmatter{}
	}
	return fm
}

func parseYAMLMetadata(data []byte) skillFrontmatter {
	block, _, ok := frontmatter.Split(data)
	if !ok {
		return skillFrontmatter{}
	}

	var fm skillFrontmatter
	err := yaml.Unmarshal(block, &fm)
	if err == nil {
		return fm
	}
	slog.Debug("skill frontmatter is not valid yaml, extracting fields", "error", err)

	return skillFrontmatter{
		Name:        frontmatter.Extract(data, "name"),
		Description: frontmatter.Extract(data, "description"),
	}
}

func tomlFrontmatter(content string) (string, bool) {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))

	if !strings.HasPrefix(content, "+++") {
		return "", false
	}

	rest := strings.TrimPrefix(content, "+++")
	endIndex := strings.Index(rest, "\n+++")
	if endIndex == -1 {
		return "", false
	}

	return strings.TrimSpace(rest[:endIndex]), true
}

func joinMetadata(dir string) string {
	return filepath.Join(dir, MetadataFile)
}
