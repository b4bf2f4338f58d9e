package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/omnicli/omni/pkg/cli"
	"github.com/omnicli/omni/pkg/console"
	"github.com/omnicli/omni/pkg/constants"
	"github.com/omnicli/omni/pkg/omnierr"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     constants.CLIName,
	Short:   "Omni is a developer workstation orchestrator",
	Version: version,
	Long: `Omni resolves the command you meant, clones and organises your
repositories, and installs and activates each one's declared dependencies.

Common Tasks:
  omni clone owner/repo   # Clone a repository to its canonical path
  omni up                 # Install and activate this repo's environment
  omni down               # Deactivate this repo's environment
  omni tidy               # Canonicalise cloned repository paths

For detailed help on any command, use:
  omni help [command]`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return cli.Dispatch(args)
	},
}

func init() {
	rootCmd.SetOut(os.Stderr)
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s\n", console.FormatInfoMessage(constants.CLIName+" version {{.Version}}")))

	originalHelpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		for _, sub := range cmd.Commands() {
			if sub.Name() == "completion" {
				sub.Hidden = true
			}
		}
		originalHelpFunc(cmd, args)
	})

	customHelpCmd := &cobra.Command{
		Use:   "help [command]",
		Short: "Help about any command",
		Long: `Help provides help for any command in the application.
Simply type omni help [path to command] for full details.`,
		Run: func(c *cobra.Command, args []string) {
			cmd, _, err := rootCmd.Find(args)
			if cmd == nil || err != nil {
				fmt.Fprintf(os.Stderr, "Unknown help topic %#q\n", args)
				_ = rootCmd.Usage()
				return
			}
			cmd.InitDefaultHelpFlag()
			_ = cmd.Help()
		},
	}
	rootCmd.SetHelpCommand(customHelpCmd)

	rootCmd.AddCommand(
		cli.NewStatusCommand(),
		cli.NewHookCommand(),
		cli.NewConfigCommand(),
		cli.NewCdCommand(),
		cli.NewCloneCommand(),
		cli.NewUpCommand(),
		cli.NewDownCommand(),
		cli.NewTidyCommand(),
		cli.NewScopeCommand(),
		cli.NewCompletionCommand(rootCmd),
	)
}

// interceptComplete handles `--complete` (§6: "offered via a --complete
// flag on any command") ahead of cobra's own flag parsing, since the
// tokens that follow it are the in-progress command line being
// completed, not flags/args for omni itself.
func interceptComplete(argv []string) (tokens []string, ok bool) {
	for i, a := range argv {
		if a == "--complete" {
			return append(append([]string{}, argv[:i]...), argv[i+1:]...), true
		}
	}
	return nil, false
}

func main() {
	if tokens, ok := interceptComplete(os.Args[1:]); ok {
		candidates, err := cli.Complete(tokens)
		if err != nil {
			fmt.Fprintln(os.Stderr, console.FormatErrorMessage(constants.CLIName+": "+err.Error()))
			os.Exit(omnierr.ExitCode(err))
		}
		for _, c := range candidates {
			fmt.Println(c)
		}
		return
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(constants.CLIName+": "+err.Error()))
		os.Exit(omnierr.ExitCode(err))
	}
}
