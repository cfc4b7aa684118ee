package loop

import (
	"errors"

	"github.com/erg0nix/skill-improver/internal/session"
	"github.com/erg0nix/skill-improver/internal/skills"
)

var (
	// ErrValidation marks malformed caller input, detected before any
	// filesystem mutation.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing skill target or session.
	ErrNotFound = errors.New("not found")
	// ErrMissingDependency marks an absent companion plugin.
	ErrMissingDependency = errors.New("missing dependency")
)

// NotFoundError reports a missing target together with the alternatives a
// caller could pick instead.
type NotFoundError struct {
	// Subject names what was looked for.
	Subject string
	// Sessions lists active sessions when a session id did not match.
	Sessions []session.Info
	// Skills lists skills found near a target that had no SKILL.md.
	Skills []*skills.Skill
	Err    error
}

func (e *NotFoundError) Error() string {
	return e.Subject + " not found"
}

func (e *NotFoundError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNotFound}
	}
	return []error{ErrNotFound, e.Err}
}
