package cli

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/omnicli/omni/pkg/config"
	"github.com/omnicli/omni/pkg/constants"
	"github.com/omnicli/omni/pkg/omnierr"
	"github.com/omnicli/omni/pkg/resolver"
)

// Dispatch resolves args against the Command Resolver's index (§4.2: config
// commands, Makefile targets and omnipath executables) and runs the
// matched command. cmd/omni falls back to this when the first token isn't
// one of the built-in subcommands.
func Dispatch(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%s: no command given", constants.CLIName)
	}

	app, err := loadContext()
	if err != nil {
		return err
	}

	idx := buildResolverIndex(app)
	rec, argv, ok := idx.Dispatch(args)
	if !ok {
		return fmt.Errorf("%w: %s: no such command", omnierr.ErrConfigInvalid, args[0])
	}

	return runRecord(rec, argv)
}

func buildResolverIndex(app *appContext) *resolver.Index {
	var splitDash, splitSlash bool
	_ = app.Config.Unmarshal("config_commands.split_on_dash", &splitDash)
	_ = app.Config.Unmarshal("config_commands.split_on_slash", &splitSlash)
	var ignoreGlobs []string
	_ = app.Config.Unmarshal("config_commands.ignore", &ignoreGlobs)

	var rawCommands map[string]struct {
		Run string `yaml:"run"`
	}
	_ = app.Config.Unmarshal("commands", &rawCommands)
	configCommands := make([]resolver.ConfigCommand, 0, len(rawCommands))
	for name, c := range rawCommands {
		configCommands = append(configCommands, resolver.ConfigCommand{
			NamePath: strings.Fields(name),
			Run:      c.Run,
		})
	}

	home, _ := os.UserHomeDir()
	return resolver.Build(resolver.BuildOptions{
		ConfigCommands: configCommands,
		WorkdirRoot:    app.Workdir.Dir,
		RepoRoot:       app.Workdir.Root,
		HomeDir:        home,
		Omnipath:       omnipathDirs(app.Config),
		IgnoreGlobs:    ignoreGlobs,
		SplitOnDash:    splitDash,
		SplitOnSlash:   splitSlash,
	})
}

// omnipathDirs assembles the omnipath in this order: the config's
// path.prepend list, then $OMNIPATH, then the config's path.append list
// (§4.1, §4.2).
func omnipathDirs(tree *config.Tree) []string {
	var dirs []string
	var prepend, appended []string
	_ = tree.Unmarshal("path.prepend", &prepend)
	_ = tree.Unmarshal("path.append", &appended)

	dirs = append(dirs, prepend...)
	if v := os.Getenv(constants.EnvOmniPath); v != "" {
		dirs = append(dirs, strings.Split(v, ":")...)
	}
	dirs = append(dirs, appended...)
	return dirs
}

// runRecord executes the matched command, emitting the environment
// variables §6 documents: OMNI_SUBCOMMAND, OMNI_RUN_FROM, OMNI_UUID, and an
// OMNI_ARG_<NAME>_VALUE/_TYPE pair per declared argument, zipped
// positionally against argv (declared argument types aren't tracked by the
// header-comment metadata today, so every argument is reported as "str").
func runRecord(rec resolver.Record, argv []string) error {
	runFrom, err := os.Getwd()
	if err != nil {
		runFrom = ""
	}

	env := append(os.Environ(),
		constants.EnvOutSubcommand+"="+rec.Name(),
		constants.EnvOutRunFrom+"="+runFrom,
		constants.EnvOutUUID+"="+uuid.NewString(),
	)

	argNames := make([]string, 0, len(rec.Metadata.Args))
	for name := range rec.Metadata.Args {
		argNames = append(argNames, name)
	}
	sort.Strings(argNames)
	for i, name := range argNames {
		if i >= len(argv) {
			break
		}
		upper := strings.ToUpper(name)
		env = append(env,
			fmt.Sprintf("OMNI_ARG_%s_VALUE=%s", upper, argv[i]),
			fmt.Sprintf("OMNI_ARG_%s_TYPE=str", upper),
		)
	}

	var c *exec.Cmd
	if rec.Source == resolver.SourcePathExecutable {
		c = exec.Command(rec.Run, argv...)
	} else {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		line := rec.Run
		if len(argv) > 0 {
			line += " " + strings.Join(argv, " ")
		}
		c = exec.Command(shell, "-c", line)
	}
	c.Env = env
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr

	if err := c.Run(); err != nil {
		return fmt.Errorf("%w: %s: %v", omnierr.ErrOperationFailed, rec.Name(), err)
	}
	return nil
}
