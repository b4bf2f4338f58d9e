package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/omnicli/omni/pkg/cache"
	"github.com/omnicli/omni/pkg/config"
	"github.com/omnicli/omni/pkg/constants"
	"github.com/omnicli/omni/pkg/omnierr"
	"github.com/omnicli/omni/pkg/trust"
	"github.com/omnicli/omni/pkg/versionmanager"
	"github.com/omnicli/omni/pkg/workdir"
)

// appContext bundles the components every command needs: the resolved
// Work Directory identity, the merged configuration tree, the shared cache
// store and the trust store built on top of it.
type appContext struct {
	Workdir workdir.Identity
	Config  *config.Tree
	Cache   *cache.Store
	Trust   *trust.Store
	VM      *versionmanager.Manager
}

// loadContext resolves the work directory, loads the configuration layers
// and opens the shared cache, the pieces almost every subcommand needs.
func loadContext() (*appContext, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("%s: resolving working directory: %w", constants.CLIName, err)
	}

	id, err := workdir.Resolve(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", constants.CLIName, err)
	}

	layers := config.DiscoverLayers(id.Root, id.InGitRepo())
	tree, err := config.Load(layers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", constants.CLIName, err)
	}

	store, err := cache.Open(cacheFilePath())
	if err != nil {
		return nil, fmt.Errorf("%s: opening cache: %w", constants.CLIName, err)
	}

	trustedOrgs := strings.FieldsFunc(tree.GetString("org.trusted"), func(r rune) bool { return r == ',' })
	trustStore := trust.NewStore(store, trustedOrgs)

	vm := versionmanager.New(dataHome(), store)

	return &appContext{Workdir: id, Config: tree, Cache: store, Trust: trustStore, VM: vm}, nil
}

// requireGitRepo fails fast for commands that only make sense inside a
// Work Directory with a resolvable Git repository.
func (c *appContext) requireGitRepo() error {
	if !c.Workdir.InGitRepo() {
		return fmt.Errorf("%w: %s", omnierr.ErrNotInGitRepo, c.Workdir.Dir)
	}
	return nil
}
