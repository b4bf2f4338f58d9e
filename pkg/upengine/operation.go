// Package upengine implements the up/down lifecycle that installs and tears
// down a workdir's declared dependencies (operation contract, composite
// operations, language-tool delegation to the version manager, the custom
// operation's $OMNI_ENV directive grammar, OS-package operations, and the
// supply-chain allow/deny controls on operation kinds and sources).
package upengine

import (
	"context"
	"fmt"

	"github.com/omnicli/omni/pkg/envops"
	"github.com/omnicli/omni/pkg/logger"
)

var log = logger.New("upengine:operation")

// OpResult is what one operation's Up or Down contributes: a success flag
// and the environment fragment it adds (empty for a no-op or a failure).
type OpResult struct {
	Success bool
	Env     envops.Fragment
}

// Operation is the contract every kind implements (spec §4.3: "validate,
// is_met, up, down").
type Operation interface {
	// Validate checks the decoded parameters before any instance runs,
	// so a bad config entry fails fast with its index rather than mid-run.
	Validate() error
	// IsMet reports whether Up would be a no-op given the current workdir
	// and environment. Up may skip the work entirely when this is true.
	IsMet(ctx context.Context, workdir string, env map[string]string) (bool, error)
	Up(ctx context.Context) (OpResult, error)
	Down(ctx context.Context) (OpResult, error)
}

// Factory decodes a raw operation map into an Operation. Factories whose
// kind has a JSON Schema validate the map against it first.
type Factory func(raw map[string]any) (Operation, error)

var registry = map[string]Factory{}

// Register adds a kind to the registry. Called from each kind's init.
func Register(kind string, factory Factory) {
	if _, exists := registry[kind]; exists {
		panic(fmt.Sprintf("upengine: operation kind %q already registered", kind))
	}
	registry[kind] = factory
}

// Lookup returns the factory for kind, or false if it isn't registered.
func Lookup(kind string) (Factory, bool) {
	f, ok := registry[kind]
	return f, ok
}

// Kinds returns every registered operation kind name, for allow/deny
// diagnostics and completion.
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	return kinds
}
