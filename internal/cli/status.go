package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/traject/internal/workflow"
)

// statusFlags holds the flag values for the status command.
type statusFlags struct {
	JSON bool // --json for structured output
}

// statusCourseOutput is the JSON output type for a single course instance.
type statusCourseOutput struct {
	Path      string `json:"path"`
	Code      string `json:"code"`
	Status    string `json:"status"`
	Node      string `json:"node,omitempty"`
	ExitValue *int   `json:"exit_value,omitempty"`
	TermLevel *int   `json:"term_level,omitempty"`
}

// statusOutput is the top-level JSON output type for the status command.
type statusOutput struct {
	InstanceID   string               `json:"instance_id"`
	Workflow     string               `json:"workflow"`
	DocumentType string               `json:"document_type"`
	DocumentID   string               `json:"document_id"`
	Courses      []statusCourseOutput `json:"courses"`
}

// newStatusCmd creates the "traject status" command.
func newStatusCmd() *cobra.Command {
	var flags statusFlags

	cmd := &cobra.Command{
		Use:   "status <doc-type>/<doc-id>",
		Short: "Show the course tree of a document's workflow instance",
		Long: `Display the workflow instance attached to a document as a course tree:
every course with its current node, status, exit value, and termination
level. Use --json for structured output.`,
		Example: `  # Human-readable course tree
  traject status invoice/42

  # Structured JSON output
  traject status invoice/42 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatusCmd(cmd, args, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Output structured JSON to stdout")

	return cmd
}

func init() {
	rootCmd.AddCommand(newStatusCmd())
}

// courseNode is one node of the rendered course tree.
type courseNode struct {
	view     *workflow.CourseView
	path     string
	children []*courseNode
}

// runStatusCmd is the status command's RunE function.
func runStatusCmd(cmd *cobra.Command, args []string, flags statusFlags) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	documentType, documentID, err := parseDocRef(args[0])
	if err != nil {
		return err
	}
	wi, err := rt.engine.WorkflowByDocument(cmd.Context(), documentType, documentID)
	if err != nil {
		return err
	}
	views, err := rt.engine.Courses(cmd.Context(), wi.ID)
	if err != nil {
		return err
	}

	root, err := buildCourseTree(cmd, rt, views)
	if err != nil {
		return err
	}

	if flags.JSON {
		return renderStatusJSON(cmd.OutOrStdout(), wi, root)
	}
	renderStatusTree(cmd.ErrOrStderr(), wi, root)
	return nil
}

// buildCourseTree arranges the course views into their split hierarchy. Each
// non-root course references the node instance of its parent's SPLIT node;
// mapping node instance IDs back to owning courses recovers the edges.
func buildCourseTree(cmd *cobra.Command, rt *runtime, views []*workflow.CourseView) (*courseNode, error) {
	nodeOwner := make(map[string]string) // node instance ID -> course instance ID
	err := rt.store.Atomically(cmd.Context(), func(tx workflow.Tx) error {
		for _, view := range views {
			ni, err := tx.NodeInstanceByCourse(view.Course.ID)
			if err != nil {
				continue // pending course
			}
			nodeOwner[ni.ID] = view.Course.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*courseNode, len(views))
	var root *courseNode
	for _, view := range views {
		nodes[view.Course.ID] = &courseNode{view: view}
		if view.Course.ParentNodeID == "" {
			root = nodes[view.Course.ID]
		}
	}
	if root == nil {
		return nil, fmt.Errorf("workflow instance has no root course")
	}

	for _, view := range views {
		if view.Course.ParentNodeID == "" {
			continue
		}
		parentCourseID, ok := nodeOwner[view.Course.ParentNodeID]
		if !ok {
			// The parent split already moved on; attach under the root so the
			// terminated branch history still shows.
			root.children = append(root.children, nodes[view.Course.ID])
			continue
		}
		parent := nodes[parentCourseID]
		parent.children = append(parent.children, nodes[view.Course.ID])
	}

	assignPaths(root, "")
	return root, nil
}

// assignPaths derives each course's dotted branch path.
func assignPaths(node *courseNode, path string) {
	node.path = path
	for _, child := range node.children {
		childPath := child.view.Course.CourseCode
		if path != "" {
			childPath = path + "." + childPath
		}
		assignPaths(child, childPath)
	}
}

// renderStatusJSON serialises the course tree (flattened, depth-first) to w.
func renderStatusJSON(w io.Writer, wi *workflow.WorkflowInstance, root *courseNode) error {
	var courses []statusCourseOutput
	var walk func(n *courseNode)
	walk = func(n *courseNode) {
		out := statusCourseOutput{
			Path:      n.path,
			Code:      n.view.Course.CourseCode,
			Status:    string(n.view.Status()),
			TermLevel: n.view.Course.TermLevel,
		}
		if n.view.Node != nil {
			out.Node = n.view.Node.Code
			if n.view.Node.Type == workflow.NodeExit {
				out.ExitValue = n.view.Node.ExitValue
			}
		}
		courses = append(courses, out)
		for _, child := range n.children {
			walk(child)
		}
	}
	walk(root)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(statusOutput{
		InstanceID:   wi.ID,
		Workflow:     wi.SpecCode,
		DocumentType: wi.DocumentType,
		DocumentID:   wi.DocumentID,
		Courses:      courses,
	})
}

// renderStatusTree writes a human-readable course tree to w.
func renderStatusTree(w io.Writer, wi *workflow.WorkflowInstance, root *courseNode) {
	headerStyle := lipgloss.NewStyle().Bold(true)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Workflow %s on %s/%s", wi.SpecCode, wi.DocumentType, wi.DocumentID)))
	fmt.Fprintf(w, "Instance: %s\n", wi.ID)

	var walk func(n *courseNode, indent int)
	walk = func(n *courseNode, indent int) {
		fmt.Fprintln(w, strings.Repeat("  ", indent)+renderCourseLine(n))
		for _, child := range n.children {
			walk(child, indent+1)
		}
	}
	walk(root, 0)
}

// renderCourseLine formats one course with its status colored by kind.
func renderCourseLine(n *courseNode) string {
	endedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))    // green
	waitingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))  // yellow
	cancelledStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")) // red
	joinedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))    // dark gray

	label := n.view.Course.CourseCode
	if label == "" {
		label = "(root)"
	}

	status := n.view.Status()
	var statusLabel string
	switch status {
	case workflow.StatusEnded:
		statusLabel = endedStyle.Render(string(status))
	case workflow.StatusWaiting, workflow.StatusSplitting:
		statusLabel = waitingStyle.Render(string(status))
	case workflow.StatusCancelled:
		statusLabel = cancelledStyle.Render(string(status))
	case workflow.StatusJoined:
		statusLabel = joinedStyle.Render(string(status))
	default:
		statusLabel = string(status)
	}

	line := fmt.Sprintf("%s  %s", label, statusLabel)
	if n.view.Node != nil {
		line += fmt.Sprintf("  [node %s]", n.view.Node.Code)
		if n.view.Node.Type == workflow.NodeExit && n.view.Node.ExitValue != nil {
			line += fmt.Sprintf("  exit=%d", *n.view.Node.ExitValue)
		}
	}
	if n.view.Course.TermLevel != nil {
		line += fmt.Sprintf("  term_level=%d", *n.view.Course.TermLevel)
	}
	return line
}
