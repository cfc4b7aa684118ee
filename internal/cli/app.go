package cli

import (
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/erg0nix/skill-improver/internal/companion"
	"github.com/erg0nix/skill-improver/internal/config"
	"github.com/erg0nix/skill-improver/internal/core"
	"github.com/erg0nix/skill-improver/internal/loop"
	"github.com/erg0nix/skill-improver/internal/session"
)

type App struct {
	Config     config.Config
	Store      *session.FileStore
	Initiator  *loop.Initiator
	Terminator *loop.Terminator
}

func newApp(cmd *cobra.Command) (*App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	stateDir := cfg.StateDir
	if !filepath.IsAbs(stateDir) {
		stateDir = filepath.Join(workingDir(), stateDir)
	}

	fsys := afero.NewOsFs()
	store := session.NewFileStore(fsys, stateDir)

	return &App{
		Config: cfg,
		Store:  store,
		Initiator: &loop.Initiator{
			Store: store,
			Fs:    fsys,
			Companion: companion.Locator{
				Fs:     fsys,
				Roots:  cfg.CompanionRoots(),
				Marker: cfg.Companion.Marker,
			},
			IDs:                  core.IDGenerator{},
			DefaultMaxIterations: cfg.DefaultMaxIterations,
		},
		Terminator: &loop.Terminator{Store: store},
	}, nil
}
