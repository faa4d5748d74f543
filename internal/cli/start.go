package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newStartCmd creates the "traject start" command.
func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <workflow-code> <doc-type>/<doc-id>",
		Short: "Start a workflow instance on a document",
		Long: `Create a workflow instance of an installed spec bound to a document. The
document must be declared in traject.toml, carry the spec's document type,
and not already have a workflow instance. The root course starts pending;
fire its first transition with "traject advance <doc> ''".`,
		Example: `  # Start the invoice workflow on invoice 42 as user alice
  traject start invoice-approval invoice/42 --user alice`,
		Args: cobra.ExactArgs(2),
		RunE: runStart,
	}
	return cmd
}

func init() {
	rootCmd.AddCommand(newStartCmd())
}

// runStart is the start command's RunE function.
func runStart(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	documentType, documentID, err := parseDocRef(args[1])
	if err != nil {
		return err
	}
	doc, err := newStaticResolver(rt.cfg.Documents).ResolveDocument(cmd.Context(), documentType, documentID)
	if err != nil {
		return err
	}

	wi, err := rt.engine.Start(cmd.Context(), args[0], doc, actingUser())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "started workflow %q on %s/%s (instance %s)\n",
		wi.SpecCode, wi.DocumentType, wi.DocumentID, wi.ID)
	return nil
}
