// Package companion checks that the plugin the improvement loop delegates
// reviews to is installed.
package companion

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotInstalled indicates the marker directory was found under no root.
var ErrNotInstalled = errors.New("companion plugin not installed")

// Locator probes an ordered list of install roots for a marker directory.
type Locator struct {
	Fs     afero.Fs
	Roots  []string
	Marker string
}

// Locate returns the first root/marker path that is a directory. The error
// wraps ErrNotInstalled and names every path checked.
func (l Locator) Locate() (string, error) {
	fsys := l.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	var checked []string
	for _, root := range l.Roots {
		candidate := filepath.Join(root, l.Marker)
		checked = append(checked, candidate)

		stat, err := fsys.Stat(candidate)
		if err != nil || !stat.IsDir() {
			continue
		}

		slog.Debug("found companion plugin", "path", candidate)
		return candidate, nil
	}

	if len(checked) == 0 {
		return "", fmt.Errorf("%w: %s (no install roots configured)", ErrNotInstalled, l.Marker)
	}
	return "", fmt.Errorf("%w: %s (checked %s)", ErrNotInstalled, l.Marker, strings.Join(checked, ", "))
}
