package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/omnicli/omni/pkg/console"
	"github.com/omnicli/omni/pkg/envops"
	"github.com/omnicli/omni/pkg/omnierr"
	"github.com/omnicli/omni/pkg/shellenv"
	"github.com/omnicli/omni/pkg/trust"
	"github.com/omnicli/omni/pkg/tty"
	"github.com/omnicli/omni/pkg/updater"
	"github.com/omnicli/omni/pkg/upengine"
)

// upFlags carries the modifiers §4.3/§4.7 name for both `up` and `down`.
type upFlags struct {
	noCache          bool
	bootstrap        bool
	trustMode        string
	upgrade          bool
	cloneSuggested   string
	updateRepository bool
	updateUserConfig string
}

func bindUpFlags(cmd *cobra.Command, f *upFlags) {
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "ignore is_met shortcuts and force every operation to run")
	cmd.Flags().BoolVar(&f.bootstrap, "bootstrap", false, "answer every interactive prompt with the non-destructive default")
	cmd.Flags().StringVar(&f.trustMode, "trust", "", "trust decision for this workdir: always, yes, or no")
	cmd.Flags().Lookup("trust").NoOptDefVal = "yes"
	cmd.Flags().BoolVar(&f.upgrade, "upgrade", false, "reselect the highest matching version for every language tool")
	cmd.Flags().StringVar(&f.cloneSuggested, "clone-suggested", "ask", "clone repositories named in suggest_clone: yes, ask, or no")
	cmd.Flags().BoolVar(&f.updateRepository, "update-repository", false, "run the repo update pass for this workdir before up")
	cmd.Flags().StringVar(&f.updateUserConfig, "update-user-config", "no", "offer suggest_config keys for inclusion in the global config: yes, ask, or no")
}

// NewUpCommand builds `omni up`: the full lifecycle described in §4.3 —
// load config, require trust, build and run the workdir's `up:` entries,
// and commit the resulting Environment Snapshot.
func NewUpCommand() *cobra.Command {
	f := &upFlags{}
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Install this workdir's declared dependencies and activate its environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd.Context(), f)
		},
	}
	bindUpFlags(cmd, f)
	return cmd
}

// NewDownCommand builds `omni down`: replays the last committed snapshot's
// operations in reverse, best-effort, and clears the pointer.
func NewDownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Tear down this workdir's activated environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDown(cmd.Context())
		},
	}
	return cmd
}

func runUp(ctx context.Context, f *upFlags) error {
	app, err := loadContext()
	if err != nil {
		return err
	}
	if err := app.requireGitRepo(); err != nil {
		return err
	}
	id := app.Workdir.Repo

	trusted, err := app.Trust.IsTrusted(*id)
	if err != nil {
		return err
	}
	if !trusted {
		decision, err := resolveTrustDecision(f.trustMode, f.bootstrap, *id)
		if err != nil {
			return err
		}
		proceed, err := app.Trust.Resolve(*id, decision)
		if err != nil {
			return err
		}
		if !proceed {
			return fmt.Errorf("%w: %s", omnierr.ErrNotTrusted, id)
		}
	}

	if f.updateRepository {
		if err := updateThisRepo(ctx, app); err != nil {
			fmt.Println(console.FormatWarningMessage("repo update: " + err.Error()))
		}
	}

	entries, err := upEntries(app)
	if err != nil {
		return err
	}

	engine, err := buildEngine(app)
	if err != nil {
		return err
	}
	upengine.SetVersionManager(app.VM)
	upengine.SetForceUpgrade(f.upgrade)

	instances, err := engine.Build(entries)
	if err != nil {
		return err
	}

	snapshot, upErr := upengine.Up(ctx, instances, upengine.NewSpinnerReporter(), f.noCache)
	if upErr != nil {
		return upErr
	}

	operations := make([]string, len(instances))
	for i, inst := range instances {
		operations[i] = inst.Kind
	}
	compositeState := upengine.ExportState(instances)
	snap, err := shellenv.NewSnapshot(app.Workdir.Root, operations, snapshot, compositeState)
	if err != nil {
		return err
	}
	store := &shellenv.Store{DataHome: dataHome()}
	if err := store.Save(snap); err != nil {
		return err
	}
	if err := store.SetPointer(app.Workdir.Root, snap.ID); err != nil {
		return err
	}

	if err := applyCloneSuggestions(app, f.cloneSuggested); err != nil {
		fmt.Println(console.FormatWarningMessage("clone-suggested: " + err.Error()))
	}
	if err := applyUserConfigSuggestions(app, f.updateUserConfig); err != nil {
		fmt.Println(console.FormatWarningMessage("update-user-config: " + err.Error()))
	}

	fmt.Println(console.FormatSuccessMessage(fmt.Sprintf("up to date (%d operations)", len(instances))))
	return nil
}

// updateThisRepo runs the repo-update pass (§4.7) for just this workdir,
// honoring path_repo_updates.tag_pattern from config and bypassing the
// cache-backed interval gate since the user explicitly asked for it.
func updateThisRepo(ctx context.Context, app *appContext) error {
	tagPattern := app.Config.GetString("path_repo_updates.tag_pattern")
	_, err := updater.Advance(ctx, app.Workdir.Root, tagPattern)
	return err
}

func runDown(ctx context.Context) error {
	app, err := loadContext()
	if err != nil {
		return err
	}
	if err := app.requireGitRepo(); err != nil {
		return err
	}

	store := &shellenv.Store{DataHome: dataHome()}
	id, _, ok, err := store.NearestPointer(app.Workdir.Root)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println(console.FormatInfoMessage("nothing to tear down"))
		return nil
	}
	snap, err := store.Load(id)
	if err != nil {
		return err
	}

	downFrag, err := runOperationsDown(ctx, app, snap)
	if err != nil {
		fmt.Println(console.FormatWarningMessage("down: " + err.Error()))
	}

	shell, err := parseShell(os.Getenv("SHELL"))
	if err != nil {
		shell = shellenv.Bash
	}
	undo, _ := shellenv.Diff(snap, shellenv.Snapshot{})
	undo = append(undo, downFrag...)
	script, err := shellenv.Emit(shell, undo)
	if err != nil {
		return err
	}
	if err := emitShellEffect(script); err != nil {
		return err
	}

	if err := store.SetPointer(app.Workdir.Root, ""); err != nil {
		return err
	}
	fmt.Println(console.FormatSuccessMessage("environment deactivated"))
	return nil
}

// runOperationsDown rebuilds this workdir's up: entries into Instances
// exactly as runUp did, replays the composite branch-selection state the
// matching Up recorded in snap, and runs each Instance's real Down — the
// custom operation's unmeet script most importantly (§4.3) — best-effort
// in reverse order. It returns whatever env-ops those Down calls
// contribute (e.g. an unmeet script's own $OMNI_ENV directives), which
// the caller folds into the generic snapshot-diff undo script.
func runOperationsDown(ctx context.Context, app *appContext, snap shellenv.Snapshot) (envops.Fragment, error) {
	entries, err := upEntries(app)
	if err != nil {
		return nil, err
	}
	engine, err := buildEngine(app)
	if err != nil {
		return nil, err
	}
	upengine.SetVersionManager(app.VM)

	instances, err := engine.Build(entries)
	if err != nil {
		return nil, err
	}
	if err := upengine.ImportState(instances, snap.CompositeState); err != nil {
		return nil, err
	}
	return upengine.Down(ctx, instances), nil
}

func upEntries(app *appContext) ([]map[string]any, error) {
	var entries []map[string]any
	if err := app.Config.Unmarshal("up", &entries); err != nil {
		return nil, fmt.Errorf("%w: up: %v", omnierr.ErrConfigInvalid, err)
	}
	return entries, nil
}

func buildEngine(app *appContext) (*upengine.Engine, error) {
	var preferred []string
	_ = app.Config.Unmarshal("up_command.preferred_tools", &preferred)
	var allowed, sources []string
	_ = app.Config.Unmarshal("up_command.operations.allowed", &allowed)
	_ = app.Config.Unmarshal("up_command.operations.sources", &sources)
	gobin, err := goInstallGobinDir(app.Workdir.Root)
	if err != nil {
		return nil, err
	}
	return &upengine.Engine{
		Preferred: preferred,
		Kinds:     upengine.NewAllowlist(allowed),
		Sources:   upengine.NewAllowlist(sources),
		GobinDir:  gobin,
	}, nil
}

// goInstallGobinDir content-addresses workdir to a stable directory under
// the data home, mirroring the asdf-backed tools' per-workdir activation
// directories (§4.3's go-install supplement).
func goInstallGobinDir(workdir string) (string, error) {
	id, err := shellenv.ComputeID([]string{"go-install-gobin:" + workdir}, nil)
	if err != nil {
		return "", fmt.Errorf("%w: go-install: %v", omnierr.ErrOperationFailed, err)
	}
	return filepath.Join(dataHome(), "go-install", id, "bin"), nil
}

func resolveTrustDecision(mode string, bootstrap bool, id interface{ String() string }) (trust.Decision, error) {
	switch mode {
	case "always":
		return trust.DecisionAlways, nil
	case "yes":
		return trust.DecisionYes, nil
	case "no":
		return trust.DecisionNo, nil
	}
	if bootstrap || !tty.IsStdinTerminal() {
		return trust.DecisionNo, nil
	}
	ok, err := console.ConfirmAction(
		fmt.Sprintf("Trust %s to run its up operations?", id.String()),
		"Yes", "No",
	)
	if err != nil {
		return trust.DecisionNo, err
	}
	if ok {
		return trust.DecisionYes, nil
	}
	return trust.DecisionNo, nil
}
