// Package session persists improvement loop session records, one file per
// session, in a shared state directory.
//
// The directory is written by several independent processes without locks:
// the CLI creates and cancels sessions, and an external driver rewrites the
// iteration line of a record as the loop advances and removes the record when
// the loop completes. Safety relies on unique identifiers, atomic
// write-then-rename creation, and single-file deletion.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/erg0nix/skill-improver/internal/core"
)

const DefaultMaxIterations = 20

const UnknownSkillName = "unknown"

var (
	ErrNotFound      = errors.New("session not found")
	ErrExists        = errors.New("session already exists")
	ErrInvalidID     = errors.New("invalid session id")
	ErrInvalidRecord = errors.New("invalid session record")
)

// Record is the persisted state of one session.
//
// Iteration is owned by the external driver: it starts at 1 and the driver
// advances it once per completed review cycle. All other fields are fixed
// at creation.
type Record struct {
	ID            core.SessionID
	Iteration     int
	MaxIterations int
	SkillPath     string
	SkillName     string
}

func (r Record) Validate() error {
	switch {
	case !core.ValidSessionID(string(r.ID)):
		return fmt.Errorf("%w: session_id %q", ErrInvalidRecord, r.ID)
	case r.Iteration < 1:
		return fmt.Errorf("%w: iteration must be positive, got %d", ErrInvalidRecord, r.Iteration)
	case r.MaxIterations < 1:
		return fmt.Errorf("%w: max_iterations must be positive, got %d", ErrInvalidRecord, r.MaxIterations)
	case !filepath.IsAbs(r.SkillPath):
		return fmt.Errorf("%w: skill_path must be absolute, got %q", ErrInvalidRecord, r.SkillPath)
	case r.SkillName == "":
		return fmt.Errorf("%w: skill_name is empty", ErrInvalidRecord)
	case !utf8.ValidString(r.SkillPath):
		return fmt.Errorf("%w: skill_path %q is not valid UTF-8", ErrInvalidRecord, r.SkillPath)
	case !utf8.ValidString(r.SkillName):
		return fmt.Errorf("%w: skill_name %q is not valid UTF-8", ErrInvalidRecord, r.SkillName)
	}
	return nil
}

type Info struct {
	Record
	Path       string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

func (i Info) CompletedIterations() int {
	return max(0, i.Iteration-1)
}

// Overdue reports whether the driver advanced past the cap without removing
// the record.
func (i Info) Overdue() bool {
	return i.MaxIterations > 0 && i.Iteration > i.MaxIterations
}

// Store is the state directory seen by the lifecycle commands.
type Store interface {
	Create(ctx context.Context, record Record) (string, error)
	List(ctx context.Context) ([]Info, error)
	Find(ctx context.Context, id core.SessionID) (Info, error)
	Delete(ctx context.Context, id core.SessionID) error
}
