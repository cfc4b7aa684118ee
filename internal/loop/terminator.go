package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/erg0nix/skill-improver/internal/core"
	"github.com/erg0nix/skill-improver/internal/session"
)

// Outcome is the non-error result of a cancel request.
type Outcome int

const (
	OutcomeNoSessions Outcome = iota
	OutcomeCancelled
	OutcomeAmbiguous
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoSessions:
		return "no-sessions"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeAmbiguous:
		return "ambiguous"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

type CancelResult struct {
	Outcome Outcome
	// Cancelled is the removed session when Outcome is OutcomeCancelled.
	Cancelled session.Info
	// Implicit is set when the sole active session was selected without an id.
	Implicit bool
	// Active lists the sessions the caller must choose from when Outcome is
	// OutcomeAmbiguous.
	Active []session.Info
}

type Terminator struct {
	Store session.Store
}

// Cancel removes the session named by id, or the only active session when id
// is empty. With several active sessions and no id it removes nothing, so one
// caller cannot silently cancel another's loop.
func (t *Terminator) Cancel(ctx context.Context, id string) (CancelResult, error) {
	if id != "" {
		if !core.ValidSessionID(id) {
			return CancelResult{}, fmt.Errorf("%w: invalid session id %q (expected YYYYMMDDHHMMSS-xxxxxxxx)", ErrValidation, id)
		}
		return t.cancelExplicit(ctx, core.SessionID(id))
	}

	active, err := t.Store.List(ctx)
	if err != nil {
		return CancelResult{}, err
	}

	switch len(active) {
	case 0:
		return CancelResult{Outcome: OutcomeNoSessions}, nil
	case 1:
		result, err := t.remove(ctx, active[0])
		if err != nil {
			return CancelResult{}, err
		}
		result.Implicit = true
		return result, nil
	default:
		return CancelResult{Outcome: OutcomeAmbiguous, Active: active}, nil
	}
}

func (t *Terminator) cancelExplicit(ctx context.Context, id core.SessionID) (CancelResult, error) {
	info, err := t.Store.Find(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return CancelResult{}, t.sessionNotFound(ctx, id)
		}
		return CancelResult{}, err
	}

	return t.remove(ctx, info)
}

func (t *Terminator) remove(ctx context.Context, info session.Info) (CancelResult, error) {
	if err := t.Store.Delete(ctx, info.ID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return CancelResult{}, t.sessionNotFound(ctx, info.ID)
		}
		return CancelResult{}, err
	}

	slog.Info("cancelled session", "session_id", info.ID, "skill", info.SkillName, "iteration", info.Iteration)

	return CancelResult{Outcome: OutcomeCancelled, Cancelled: info}, nil
}

func (t *Terminator) sessionNotFound(ctx context.Context, id core.SessionID) error {
	active, err := t.Store.List(ctx)
	if err != nil {
		slog.Warn("failed to list sessions for remediation", "error", err)
	}

	return &NotFoundError{
		Subject:  "session " + string(id),
		Sessions: active,
	}
}
