package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/traject/internal/workflow"
)

// installFlags holds the flag values for the install command.
type installFlags struct {
	SkipCallables bool // --skip-callables: install even when callables are unregistered
}

// newInstallCmd creates the "traject install" command.
func newInstallCmd() *cobra.Command {
	var flags installFlags

	cmd := &cobra.Command{
		Use:   "install <pattern>...",
		Short: "Validate and install workflow spec documents",
		Long: `Parse, validate, and install one or more workflow spec documents into the
store. Patterns are doublestar globs ("specs/**/*.yaml"); literal paths work
too. Each document is installed transactionally: an invalid document or a
code collision leaves nothing behind.

By default every landing handler, condition, and joiner a spec references
must be registered (the CLI registers the [conditions] expressions from
traject.toml). Use --skip-callables for specs whose callables are registered
by the application embedding the engine.`,
		Example: `  # Install a single spec
  traject install specs/invoice.yaml

  # Install every spec under a directory tree
  traject install "specs/**/*.{yaml,toml}"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, args, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.SkipCallables, "skip-callables", false, "Skip callable reference checks during validation")

	return cmd
}

// newUninstallCmd creates the "traject uninstall" command.
func newUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall <workflow-code>",
		Short: "Remove an installed workflow spec",
		Long: `Delete an installed workflow spec from the store. Fails while any workflow
instance still references the spec.`,
		Args: cobra.ExactArgs(1),
		RunE: runUninstall,
	}
	return cmd
}

// newSpecsCmd creates the "traject specs" command.
func newSpecsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "specs",
		Short: "List installed workflow specs",
		Args:  cobra.NoArgs,
		RunE:  runSpecs,
	}
	return cmd
}

func init() {
	rootCmd.AddCommand(newInstallCmd())
	rootCmd.AddCommand(newUninstallCmd())
	rootCmd.AddCommand(newSpecsCmd())
}

// expandPatterns resolves doublestar glob patterns against the working
// directory. A pattern with no metacharacters passes through as a literal
// path so missing files still produce a useful error from the parser.
func expandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			matches = []string{pattern}
		}
		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				paths = append(paths, match)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// runInstall is the install command's RunE function.
func runInstall(cmd *cobra.Command, args []string, flags installFlags) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	installer := rt.installer
	if flags.SkipCallables {
		installer = workflow.NewInstaller(rt.store, nil, nil)
	}

	paths, err := expandPatterns(args)
	if err != nil {
		return err
	}

	out := cmd.ErrOrStderr()
	failed := 0
	for _, path := range paths {
		spec, err := installer.InstallPath(cmd.Context(), path)
		if err != nil {
			failed++
			var verr *workflow.ValidationError
			if errors.As(err, &verr) {
				fmt.Fprintf(out, "%s: %s\n", path, verr.Error())
				continue
			}
			fmt.Fprintf(out, "%s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "%s: installed workflow %q (%d courses)\n", path, spec.Code, len(spec.Courses))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d spec documents failed to install", failed, len(paths))
	}
	return nil
}

// runUninstall is the uninstall command's RunE function.
func runUninstall(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	code := args[0]
	if err := rt.installer.Uninstall(cmd.Context(), code); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "uninstalled workflow %q\n", code)
	return nil
}

// runSpecs is the specs command's RunE function.
func runSpecs(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	var specs []*workflow.WorkflowSpec
	err = rt.store.Atomically(cmd.Context(), func(tx workflow.Tx) error {
		var err error
		specs, err = tx.ListWorkflowSpecs()
		return err
	})
	if err != nil {
		return err
	}

	out := cmd.ErrOrStderr()
	if len(specs) == 0 {
		fmt.Fprintln(out, "No workflow specs installed.")
		return nil
	}
	for _, spec := range specs {
		fmt.Fprintf(out, "%-24s  document type %-12s  %d courses  %s\n",
			spec.Code, spec.DocumentType, len(spec.Courses), spec.Name)
	}
	return nil
}
