package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// completionCmd generates shell completion scripts for traject.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for traject.

To install completions:

  Bash (Linux):
    traject completion bash | sudo tee /etc/bash_completion.d/traject > /dev/null

  Bash (macOS with Homebrew):
    traject completion bash > $(brew --prefix)/etc/bash_completion.d/traject

  Zsh:
    traject completion zsh > "${fpath[1]}/_traject"
    # or
    traject completion zsh > ~/.zsh/completions/_traject

  Fish:
    traject completion fish > ~/.config/fish/completions/traject.fish

  PowerShell:
    traject completion powershell > traject.ps1
    # Then add ". traject.ps1" to your PowerShell profile`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(os.Stdout, true)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
