package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erg0nix/skill-improver/internal/loop"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <skill-path>",
		Short: "Start an improvement loop for a skill",
		Args:  cobra.ExactArgs(1),
		RunE:  runStartCmd,
	}

	cmd.Flags().Int("max-iterations", 0, "iteration cap for the loop (default from config)")

	return cmd
}

func runStartCmd(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}

	req := loop.StartRequest{Target: args[0]}
	if cmd.Flags().Changed("max-iterations") {
		req.MaxIterations, _ = cmd.Flags().GetInt("max-iterations")
		if err := loop.ValidateMaxIterations(req.MaxIterations); err != nil {
			return err
		}
	}

	result, err := app.Initiator.Start(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	record := result.Record

	fmt.Fprintln(out, styleSuccess.Render("Started skill improvement session"))
	fmt.Fprintln(out, kvLine("session", styleID.Render(string(record.ID))))
	fmt.Fprintln(out, kvLine("skill", record.SkillName))
	fmt.Fprintln(out, kvLine("path", record.SkillPath))
	fmt.Fprintln(out, kvLine("iteration", fmt.Sprintf("1/%d", record.MaxIterations)))
	fmt.Fprintln(out, kvLine("record", result.Path))
	fmt.Fprintln(out, styleDim.Render("cancel with: ")+styleCommand.Render("skill-improver cancel "+string(record.ID)))

	return nil
}
