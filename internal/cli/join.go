package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newJoinCmd creates the "traject join" command.
func newJoinCmd() *cobra.Command {
	var flags courseFlags

	cmd := &cobra.Command{
		Use:   "join <doc-type>/<doc-id>",
		Short: "Join a branch course",
		Long: `Move the addressed branch course to its joined node and notify the parent
split's joiner. Only branch courses that declare a joined node are joinable;
the root course never is.`,
		Example: `  # Join the bar branch
  traject join invoice/42 --course bar`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.Course, "course", "", "Dotted branch path addressing the course")

	return cmd
}

func init() {
	rootCmd.AddCommand(newJoinCmd())
}

// runJoin is the join command's RunE function.
func runJoin(cmd *cobra.Command, args []string, flags courseFlags) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	view, err := resolveCourse(cmd, rt, args[0], flags.Course)
	if err != nil {
		return err
	}
	if err := rt.engine.Join(cmd.Context(), view.Course.ID, actingUser()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "course joined\n")
	return nil
}
