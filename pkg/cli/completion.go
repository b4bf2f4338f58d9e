package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewCompletionCommand builds `omni completion {bash,zsh,fish,powershell}`
// (§6's SUPPLEMENT), the static half of shell completion. It generates
// scripts that shell out to the dynamic half via the `--complete` flag,
// which cobra's generated scripts already invoke through the binary
// itself — unlike the teacher's gh-aw, omni is a standalone binary, not
// a `gh` extension, so no script post-processing to rewrite `gh` into
// `gh aw` is needed here.
func NewCompletionCommand(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 "Generate the autocompletion script for the specified shell",
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		Hidden:                true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return root.GenBashCompletion(os.Stdout)
			case "zsh":
				return root.GenZshCompletion(os.Stdout)
			case "fish":
				return root.GenFishCompletion(os.Stdout, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
}
