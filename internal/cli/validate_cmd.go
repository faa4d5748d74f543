package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/traject/internal/workflow"
)

// validateFlags holds the flag values for the validate command.
type validateFlags struct {
	JSON      bool // --json for structured output
	Callables bool // --callables also checks callable references against the registry
}

// validateOutput is the JSON output type for one validated document.
type validateOutput struct {
	Path     string                     `json:"path"`
	Workflow string                     `json:"workflow,omitempty"`
	Valid    bool                       `json:"valid"`
	Error    string                     `json:"error,omitempty"`
	Issues   []workflow.ValidationIssue `json:"issues,omitempty"`
}

// newValidateCmd creates the "traject validate" command.
func newValidateCmd() *cobra.Command {
	var flags validateFlags

	cmd := &cobra.Command{
		Use:   "validate <pattern>...",
		Short: "Validate workflow spec documents without installing them",
		Long: `Parse and validate workflow spec documents, reporting every structural
issue: the per-type node and transition field matrices, graph shape
(reachability, mandatory pauses, branch depths), and uniqueness rules.
Nothing is written to the store.

With --callables, landing handler, condition, and joiner references are also
checked against the callables the CLI registers from traject.toml.`,
		Example: `  # Validate one document
  traject validate specs/invoice.yaml

  # Validate a tree of documents with structured output
  traject validate "specs/**/*.yaml" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Output structured JSON to stdout")
	cmd.Flags().BoolVar(&flags.Callables, "callables", false, "Also check callable references against the registry")

	return cmd
}

func init() {
	rootCmd.AddCommand(newValidateCmd())
}

// runValidate is the validate command's RunE function.
func runValidate(cmd *cobra.Command, args []string, flags validateFlags) error {
	// Callable checks need the config-declared registry; pure structural
	// validation does not touch the store or config at all.
	var registry *workflow.Registry
	if flags.Callables {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.close()
		registry = rt.registry
	}

	paths, err := expandPatterns(args)
	if err != nil {
		return err
	}

	outputs := make([]validateOutput, 0, len(paths))
	invalid := 0
	for _, path := range paths {
		output := validateOutput{Path: path}

		sf, err := workflow.ParseSpecPath(path)
		if err != nil {
			output.Error = err.Error()
			invalid++
			outputs = append(outputs, output)
			continue
		}

		spec := sf.Build()
		output.Workflow = spec.Code
		result := spec.Validate(registry)
		output.Valid = result.IsValid()
		output.Issues = result.Issues
		if !output.Valid {
			invalid++
		}
		outputs = append(outputs, output)
	}

	if flags.JSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(outputs); err != nil {
			return err
		}
	} else {
		out := cmd.ErrOrStderr()
		for _, output := range outputs {
			switch {
			case output.Error != "":
				fmt.Fprintf(out, "%s: %s\n", output.Path, output.Error)
			case output.Valid:
				fmt.Fprintf(out, "%s: workflow %q is valid\n", output.Path, output.Workflow)
			default:
				fmt.Fprintf(out, "%s: workflow %q has %d issues\n", output.Path, output.Workflow, len(output.Issues))
				for _, issue := range output.Issues {
					fmt.Fprintf(out, "  %s\n", issue.String())
				}
			}
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d spec documents are invalid", invalid, len(paths))
	}
	return nil
}
