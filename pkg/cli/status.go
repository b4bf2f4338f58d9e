package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omnicli/omni/pkg/console"
	"github.com/omnicli/omni/pkg/constants"
	"github.com/omnicli/omni/pkg/shellenv"
)

// NewStatusCommand builds `omni status`, rendering the resolved work
// directory, configuration layers, cache contents and omnipath for
// diagnosis (§6, §7: "status renders the current configuration and cache").
func NewStatusCommand() *cobra.Command {
	var (
		showConfig      bool
		showConfigFiles bool
		showWorktree    bool
		showOrgs        bool
		showPath        bool
		shellIntegration bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show Omni's resolved configuration and state for the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := loadContext()
			if err != nil {
				return err
			}

			if shellIntegration {
				id, _, ok, err := (&shellenv.Store{DataHome: dataHome()}).NearestPointer(ctx.Workdir.Dir)
				if err != nil {
					return err
				}
				if ok {
					fmt.Println(console.FormatInfoMessage("active snapshot: " + id))
				} else {
					fmt.Println(console.FormatInfoMessage("no active snapshot for this directory"))
				}
				return nil
			}

			rows := [][]string{
				{"work directory", ctx.Workdir.Dir},
				{"canonical root", ctx.Workdir.Root},
			}
			if ctx.Workdir.InGitRepo() {
				rows = append(rows, []string{"repository", ctx.Workdir.Repo.String()})
			} else {
				rows = append(rows, []string{"repository", "(not inside a git repository)"})
			}
			fmt.Println(console.RenderTable(console.TableConfig{
				Title:   constants.CLIName + " status",
				Headers: []string{"field", "value"},
				Rows:    rows,
			}))

			if showConfigFiles || showConfig {
				keys := ctx.Config.Keys()
				lines := make([]string, len(keys))
				for i, k := range keys {
					lines[i] = k
					if showConfig {
						lines[i] += " = " + fmt.Sprint(ctx.Config.Get(k))
					}
					if l, ok := ctx.Config.Label(k); ok && showConfigFiles {
						lines[i] += " (" + l.SourcePath + ")"
					}
				}
				fmt.Println(console.FormatListHeader("configuration keys"))
				fmt.Println(console.RenderList(lines, "•"))
			}

			if showPath {
				omnipath := omnipathDirs(ctx.Config)
				fmt.Println(console.FormatListHeader("omnipath"))
				fmt.Println(console.RenderList(omnipath, "•"))
			}

			if showOrgs {
				fmt.Println(console.FormatInfoMessage("trusted orgs: " + ctx.Config.GetString("org.trusted")))
			}

			if showWorktree {
				fmt.Println(console.FormatInfoMessage("worktree: " + worktreeRoot(ctx.Config)))
				fmt.Println(console.FormatInfoMessage("data home: " + dataHome()))
				fmt.Println(console.FormatInfoMessage("cache file: " + cacheFilePath()))
			}

			keys, err := ctx.Cache.Keys()
			if err != nil {
				return fmt.Errorf("%s: status: %w", constants.CLIName, err)
			}
			fmt.Println(console.FormatListHeader(fmt.Sprintf("cache entries (%d)", len(keys))))
			fmt.Println(console.RenderList(keys, "•"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&shellIntegration, "shell-integration", false, "show the snapshot currently active for this directory")
	cmd.Flags().BoolVar(&showConfig, "config", false, "show the merged configuration")
	cmd.Flags().BoolVar(&showConfigFiles, "config-files", false, "show configuration keys and their source files")
	cmd.Flags().BoolVar(&showWorktree, "worktree", false, "show the worktree and state directories")
	cmd.Flags().BoolVar(&showOrgs, "orgs", false, "show the trusted organisations")
	cmd.Flags().BoolVar(&showPath, "path", false, "show the omnipath")
	return cmd
}
