package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCancelCmd creates the "traject cancel" command.
func newCancelCmd() *cobra.Command {
	var flags courseFlags

	cmd := &cobra.Command{
		Use:   "cancel <doc-type>/<doc-id>",
		Short: "Cancel a workflow course",
		Long: `Move the addressed course to its cancel node. A splitting course cancels
its live branches first, recording termination levels: 0 for the addressed
course, 1 for branches directly below it, and so on. Cancelling a branch
notifies the parent split as if the branch had exited.`,
		Example: `  # Cancel the whole workflow (root course)
  traject cancel invoice/42 --user admin

  # Cancel only the foo branch
  traject cancel invoice/42 --course foo --user admin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCancel(cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.Course, "course", "", "Dotted branch path addressing the course (default: root)")

	return cmd
}

func init() {
	rootCmd.AddCommand(newCancelCmd())
}

// runCancel is the cancel command's RunE function.
func runCancel(cmd *cobra.Command, args []string, flags courseFlags) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	view, err := resolveCourse(cmd, rt, args[0], flags.Course)
	if err != nil {
		return err
	}
	if err := rt.engine.Cancel(cmd.Context(), view.Course.ID, actingUser()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "course cancelled\n")
	return nil
}
