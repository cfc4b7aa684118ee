package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erg0nix/skill-improver/internal/loop"
)

// errAmbiguous makes the process exit non-zero after the session listing has
// been written to stdout.
var errAmbiguous = errors.New("multiple active sessions")

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [session-id]",
		Short: "Cancel an improvement loop",
		Long:  "Cancel the session with the given id, or the only active session when no id is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCancelCmd,
	}
}

func runCancelCmd(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}

	var id string
	if len(args) == 1 {
		id = args[0]
	}

	result, err := app.Terminator.Cancel(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	switch result.Outcome {
	case loop.OutcomeNoSessions:
		fmt.Fprintln(out, styleDim.Render("No active skill improvement sessions."))
	case loop.OutcomeCancelled:
		info := result.Cancelled
		fmt.Fprintln(out, styleSuccess.Render(fmt.Sprintf("Cancelled session %s (%s)", info.ID, info.SkillName)))
		fmt.Fprintln(out, kvLine("Completed iterations", fmt.Sprintf("%d", info.CompletedIterations())))
		if info.Overdue() {
			fmt.Fprintln(out, styleWarning.Render(fmt.Sprintf("  session was past its cap of %d iterations", info.MaxIterations)))
		}
	case loop.OutcomeAmbiguous:
		fmt.Fprintln(out, styleWarning.Render(fmt.Sprintf("%d active sessions; specify a session id:", len(result.Active))))
		fmt.Fprintln(out, sessionTable(result.Active).Render())
		fmt.Fprintln(out, styleDim.Render("cancel with: ")+styleCommand.Render("skill-improver cancel <session-id>"))
		return errAmbiguous
	}

	return nil
}
