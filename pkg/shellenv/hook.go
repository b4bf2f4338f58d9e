package shellenv

import (
	"context"
	"time"

	"github.com/omnicli/omni/pkg/logger"
)

var log = logger.New("shellenv:hook")

// HookTimeout bounds how long `omni hook env` may take before the shell
// gives up waiting on it (§4.5: "the integration uses a bounded wait and
// silently skips on timeout").
const HookTimeout = 500 * time.Millisecond

// Hook answers the shell prompt hook's question: given the currently
// loaded snapshot id and the working directory, what shell code moves the
// environment to the target snapshot for that directory?
type Hook struct {
	Store *Store
	Shell Shell
}

// Run implements the three steps of §4.5's shell hook protocol. loadedID
// is read by the caller from the well-known env var
// (constants.EnvOmniLoadedSnapshot) before calling Run; Run never reads
// the process environment itself; it returns the shell script to eval and
// the target snapshot id so the caller can record it as newly loaded.
func (h *Hook) Run(ctx context.Context, loadedID, workdir string) (script string, targetID string, err error) {
	ctx, cancel := context.WithTimeout(ctx, HookTimeout)
	defer cancel()

	targetID, _, found, err := h.Store.NearestPointer(workdir)
	if err != nil {
		return "", "", err
	}

	var loaded, target Snapshot
	if loadedID != "" {
		loaded, err = h.Store.Load(loadedID)
		if err != nil {
			log.Printf("loaded snapshot %s unreadable, treating as empty: %v", loadedID, err)
			loaded = Snapshot{}
		}
	}
	if found {
		target, err = h.Store.Load(targetID)
		if err != nil {
			return "", "", err
		}
	}

	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	undo, apply := Diff(loaded, target)
	script, err = Emit(h.Shell, append(undo, apply...))
	if err != nil {
		return "", "", err
	}
	return script, target.ID, nil
}
