package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/traject/internal/workflow"
)

// courseFlags holds the course-addressing flag shared by the advance, cancel,
// and join commands.
type courseFlags struct {
	Course string // --course: dotted branch path below the root course
}

// resolveCourse finds the addressed course instance of the document's
// workflow instance.
func resolveCourse(cmd *cobra.Command, rt *runtime, docRef, coursePath string) (*workflow.CourseView, error) {
	documentType, documentID, err := parseDocRef(docRef)
	if err != nil {
		return nil, err
	}
	wi, err := rt.engine.WorkflowByDocument(cmd.Context(), documentType, documentID)
	if err != nil {
		return nil, err
	}
	return rt.engine.FindCourse(cmd.Context(), wi.ID, coursePath)
}

// newAdvanceCmd creates the "traject advance" command.
func newAdvanceCmd() *cobra.Command {
	var flags courseFlags

	cmd := &cobra.Command{
		Use:   "advance <doc-type>/<doc-id> [action]",
		Short: "Advance a workflow course by a user action",
		Long: `Advance the addressed course of the document's workflow instance. A pending
course takes no action argument and fires its enter transition; a course
waiting at an input node takes one of the node's action names.

Courses are addressed by a dotted path of branch codes below the root
course: the empty path (default) is the root course, "foo.bar" the bar
branch below the foo branch.`,
		Example: `  # Fire the root course's enter transition
  traject advance invoice/42

  # Take the "approve" action as alice
  traject advance invoice/42 approve --user alice

  # Advance the foo branch
  traject advance invoice/42 done --course foo`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdvance(cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.Course, "course", "", "Dotted branch path addressing the course (default: root)")

	return cmd
}

func init() {
	rootCmd.AddCommand(newAdvanceCmd())
}

// runAdvance is the advance command's RunE function.
func runAdvance(cmd *cobra.Command, args []string, flags courseFlags) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	view, err := resolveCourse(cmd, rt, args[0], flags.Course)
	if err != nil {
		return err
	}

	action := ""
	if len(args) == 2 {
		action = args[1]
	}
	if err := rt.engine.Advance(cmd.Context(), view.Course.ID, action, actingUser()); err != nil {
		return err
	}

	// Report where the course came to rest.
	after, err := rt.engine.Course(cmd.Context(), view.Course.ID)
	if err != nil {
		return err
	}
	out := cmd.ErrOrStderr()
	if after.Node != nil {
		fmt.Fprintf(out, "course advanced to %s node %q (%s)\n", after.Node.Type, after.Node.Code, after.Status())
	} else {
		fmt.Fprintf(out, "course advanced (%s)\n", after.Status())
	}
	return nil
}
