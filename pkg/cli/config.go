package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omnicli/omni/pkg/console"
	"github.com/omnicli/omni/pkg/repoutil"
)

// NewConfigCommand builds `omni config (check|bootstrap|path switch|reshim
// |trust|untrust)` (§6).
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage Omni's own configuration",
	}
	cmd.AddCommand(
		newConfigCheckCommand(),
		newConfigBootstrapCommand(),
		newConfigPathCommand(),
		newConfigReshimCommand(),
		newConfigTrustCommand(),
		newConfigUntrustCommand(),
	)
	return cmd
}

// newConfigCheckCommand validates the merged configuration tree, exiting
// non-zero on any malformed layer (§6: "non-zero values for validation
// failures from config check").
func newConfigCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration file stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadContext(); err != nil {
				return fmt.Errorf("%w", err)
			}
			fmt.Println(console.FormatSuccessMessage("configuration is valid"))
			return nil
		},
	}
}

// newConfigBootstrapCommand creates the user's global configuration file
// if it doesn't already exist, seeded with the resolved worktree root.
func newConfigBootstrapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the global configuration file if it doesn't exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadContext()
			if err != nil {
				return err
			}
			path, err := globalConfigPath()
			if err != nil {
				return err
			}
			existing, err := readYAMLFile(path)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				fmt.Println(console.FormatInfoMessage(path + " already exists, leaving it untouched"))
				return nil
			}
			seed := map[string]any{"worktree": worktreeRoot(app.Config)}
			if err := writeYAMLFile(path, seed); err != nil {
				return err
			}
			fmt.Println(console.FormatSuccessMessage("created " + path))
			return nil
		},
	}
}

// newConfigPathCommand builds `config path switch <dir>`, which prepends
// dir to $OMNIPATH for the calling shell (§4.2's omnipath is assembled
// from path.prepend/path.append plus anything the shell has already
// exported, so switching is just a prepend through the same channel `cd`
// uses).
func newConfigPathCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "path", Short: "Manage the active omnipath"}
	cmd.AddCommand(&cobra.Command{
		Use:   "switch <dir>",
		Short: "Prepend a directory to the active omnipath",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := emitShellEffect("export OMNIPATH=" + shellQuoteSingle(args[0]) + ":\"$OMNIPATH\""); err != nil {
				return err
			}
			fmt.Println(console.FormatSuccessMessage("switched omnipath to " + args[0]))
			return nil
		},
	})
	return cmd
}

// newConfigReshimCommand invalidates the cached version listings so the
// next `up` refetches them. Omni activates tools via a per-workdir PATH
// prepend rather than asdf-style global shims, so there is no shim
// directory to regenerate; reshim's useful effect here is clearing the
// listing cache.
func newConfigReshimCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reshim",
		Short: "Clear cached version listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadContext()
			if err != nil {
				return err
			}
			keys, err := app.Cache.Keys()
			if err != nil {
				return err
			}
			cleared := 0
			for _, k := range keys {
				if strings.HasPrefix(k, "asdf_operation.") {
					if err := app.Cache.Delete(k); err == nil {
						cleared++
					}
				}
			}
			fmt.Println(console.FormatSuccessMessage(fmt.Sprintf("cleared %d cached version listing(s)", cleared)))
			return nil
		},
	}
}

func newConfigTrustCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "trust [repo]",
		Short: "Mark a repository (or the current workdir) as trusted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadContext()
			if err != nil {
				return err
			}
			id, err := trustTargetID(app, args)
			if err != nil {
				return err
			}
			if err := app.Trust.Trust(id); err != nil {
				return err
			}
			fmt.Println(console.FormatSuccessMessage("trusted " + id.String()))
			return nil
		},
	}
}

func newConfigUntrustCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "untrust [repo]",
		Short: "Remove a repository (or the current workdir) from the trust cache",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadContext()
			if err != nil {
				return err
			}
			id, err := trustTargetID(app, args)
			if err != nil {
				return err
			}
			if err := app.Trust.Untrust(id); err != nil {
				return err
			}
			fmt.Println(console.FormatSuccessMessage("untrusted " + id.String()))
			return nil
		},
	}
}

func trustTargetID(app *appContext, args []string) (repoutil.Identity, error) {
	if len(args) == 1 {
		return repoutil.ParseShortForm(args[0], defaultHost(app.Config))
	}
	if err := app.requireGitRepo(); err != nil {
		return repoutil.Identity{}, err
	}
	return *app.Workdir.Repo, nil
}
