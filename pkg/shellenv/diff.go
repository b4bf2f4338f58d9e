package shellenv

import (
	"github.com/omnicli/omni/pkg/envops"
)

// Diff computes what must change to move the shell from loaded to target:
// undo, the inverted ops of everything loaded contributed that target
// doesn't; and apply, the ops target contributes that loaded didn't
// already apply. Per §4.5, list-valued variables are diffed precisely so
// concurrent contributors to the same PATH-like variable compose, rather
// than the shell doing a blanket reset between snapshots.
func Diff(loaded, target Snapshot) (undo, apply envops.Fragment) {
	loadedSeen := indexOps(loaded.Env)
	targetSeen := indexOps(target.Env)

	var toUndo envops.Fragment
	for _, op := range loaded.Env {
		if !targetSeen[opKey(op)] {
			toUndo = append(toUndo, op)
		}
	}
	undo = envops.Invert(toUndo, nil)

	for _, op := range target.Env {
		if !loadedSeen[opKey(op)] {
			apply = append(apply, op)
		}
	}
	return undo, apply
}

func indexOps(ops envops.Fragment) map[string]bool {
	seen := make(map[string]bool, len(ops))
	for _, op := range ops {
		seen[opKey(op)] = true
	}
	return seen
}

func opKey(op envops.Op) string {
	return string(op.Kind) + "\x00" + op.Var + "\x00" + op.Value + "\x00" + op.Separator
}
