package cli

import (
	"errors"
	"fmt"

	"github.com/erg0nix/skill-improver/internal/core"
	"github.com/erg0nix/skill-improver/internal/loop"
)

// FormatError renders err as a styled diagnostic with remediation hints.
func FormatError(err error) string {
	if errors.Is(err, errAmbiguous) {
		return styledError("nothing was cancelled: "+err.Error(),
			"re-run with one of the session ids listed above",
			"skill-improver cancel <session-id>")
	}

	var notFound *loop.NotFoundError
	if errors.As(err, &notFound) {
		return styledError(err.Error(), notFoundHints(notFound)...)
	}

	switch {
	case errors.Is(err, loop.ErrMissingDependency):
		return styledError(err.Error(),
			"install the plugin-dev plugin in Claude Code, then run start again",
			"or point SKILL_IMPROVER_PLUGIN_ROOT at the directory that contains it")
	case errors.Is(err, loop.ErrValidation):
		return styledError(err.Error(), "see: skill-improver --help")
	case errors.Is(err, core.ErrEntropyUnavailable):
		return styledError(err.Error(), "no random source is available; nothing was written")
	}

	return styledError(err.Error())
}

func notFoundHints(err *loop.NotFoundError) []string {
	var hints []string

	if len(err.Sessions) > 0 {
		hints = append(hints, "active sessions:")
		for _, info := range err.Sessions {
			hints = append(hints, fmt.Sprintf("  %s  %s  %s", info.ID, info.SkillName, progress(info)))
		}
	} else if err.Err == nil {
		hints = append(hints, "no active sessions")
	}

	if len(err.Skills) > 0 {
		hints = append(hints, "skills found here:")
		for _, skill := range err.Skills {
			hint := "  " + skill.Path
			if skill.Description != "" {
				hint += ": " + skill.Description
			}
			hints = append(hints, hint)
		}
	} else if err.Err != nil {
		hints = append(hints, "pass a skill directory that contains SKILL.md")
	}

	return hints
}
