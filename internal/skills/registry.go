package skills

import (
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

func Discover(fsys afero.Fs, root string) []*Skill {
	var result []*Skill
	seen := make(map[string]bool)

	for _, dir := range []string{root, filepath.Join(root, "skills")} {
		entries, err := afero.ReadDir(fsys, dir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			skillDir := filepath.Join(dir, entry.Name())
			if seen[skillDir] {
				continue
			}

			stat, err := fsys.Stat(joinMetadata(skillDir))
			if err != nil || stat.IsDir() {
				continue
			}

			skill, err := Load(fsys, skillDir)
			if err != nil {
				continue
			}
			seen[skillDir] = true
			result = append(result, skill)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Path < result[j].Path
	})

	return result
}
