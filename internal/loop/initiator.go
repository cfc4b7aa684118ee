// Package loop starts and cancels improvement loop sessions. It owns the
// lifecycle decisions; persistence is delegated to a session.Store.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/erg0nix/skill-improver/internal/core"
	"github.com/erg0nix/skill-improver/internal/session"
	"github.com/erg0nix/skill-improver/internal/skills"
)

// IDSource allocates session identifiers.
type IDSource interface {
	NewSessionID() (core.SessionID, error)
}

// CompanionLocator reports where the companion plugin is installed.
type CompanionLocator interface {
	Locate() (string, error)
}

// Initiator validates a start request and commits the new session record.
type Initiator struct {
	Store     session.Store
	Fs        afero.Fs
	Companion CompanionLocator
	IDs       IDSource

	// DefaultMaxIterations applies when a request carries no cap.
	DefaultMaxIterations int
}

// StartRequest names the skill to improve. A zero MaxIterations selects the
// default cap.
type StartRequest struct {
	Target        string
	MaxIterations int
}

// StartResult describes the session that was created.
type StartResult struct {
	Record        session.Record
	Path          string
	CompanionPath string
}

// ValidateMaxIterations rejects caps below one.
func ValidateMaxIterations(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: max iterations must be a positive integer, got %d", ErrValidation, n)
	}
	return nil
}

// Start creates a session for the skill at req.Target. On any error no record
// is written.
func (in *Initiator) Start(ctx context.Context, req StartRequest) (StartResult, error) {
	maxIterations := req.MaxIterations
	if maxIterations == 0 {
		maxIterations = in.DefaultMaxIterations
	}
	if maxIterations == 0 {
		maxIterations = session.DefaultMaxIterations
	}
	if err := ValidateMaxIterations(maxIterations); err != nil {
		return StartResult{}, err
	}

	fsys := in.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	skillDir, err := skills.Resolve(fsys, req.Target)
	if err != nil {
		if errors.Is(err, skills.ErrNoMetadata) {
			return StartResult{}, &NotFoundError{
				Subject: fmt.Sprintf("%s in %s", skills.MetadataFile, skillDir),
				Skills:  skills.Discover(fsys, skillDir),
				Err:     err,
			}
		}
		return StartResult{}, err
	}

	if !utf8.ValidString(skillDir) {
		return StartResult{}, fmt.Errorf("%w: skill path %q is not valid UTF-8", ErrValidation, skillDir)
	}

	companionPath, err := in.Companion.Locate()
	if err != nil {
		return StartResult{}, fmt.Errorf("%w: %w", ErrMissingDependency, err)
	}

	name := session.UnknownSkillName
	if skill, err := skills.Load(fsys, skillDir); err != nil {
		slog.Warn("failed to read skill metadata", "path", skillDir, "error", err)
	} else if skill.Name != "" && utf8.ValidString(skill.Name) {
		name = skill.Name
	}

	id, err := in.IDs.NewSessionID()
	if err != nil {
		return StartResult{}, fmt.Errorf("allocate session id: %w", err)
	}

	record := session.Record{
		ID:            id,
		Iteration:     1,
		MaxIterations: maxIterations,
		SkillPath:     skillDir,
		SkillName:     name,
	}

	path, err := in.Store.Create(ctx, record)
	if err != nil {
		return StartResult{}, err
	}

	slog.Info("started session", "session_id", id, "skill", name, "max_iterations", maxIterations)

	return StartResult{
		Record:        record,
		Path:          path,
		CompanionPath: companionPath,
	}, nil
}
