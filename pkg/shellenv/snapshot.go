// Package shellenv implements the Dynamic Environment channel (§4.5): it
// content-addresses Environment Snapshots, stores them per workdir, and
// renders the diff between the shell's currently-loaded snapshot and the
// target snapshot as shell-specific code.
package shellenv

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/omnicli/omni/pkg/envops"
)

// Snapshot is the committed result of one `omni up` run for a workdir:
// the ordered operation kinds that ran, the combined env-ops fragment
// they contributed, and enough composite-operation bookkeeping
// (CompositeState) for a later `down` invocation in a fresh process to
// know which or/any branch actually ran (§4.3: any's down-tracking "is
// tracked in the snapshot"). CompositeState is opaque here; only
// upengine's Engine.ExportState/ImportState interpret it.
type Snapshot struct {
	ID             string          `json:"id"`
	Workdir        string          `json:"workdir"`
	Operations     []string        `json:"operations"`
	Env            envops.Fragment `json:"env"`
	CompositeState map[string]any  `json:"composite_state,omitempty"`
}

// canonicalPayload is hashed to produce a Snapshot's ID: just the parts
// that determine its effect, not the id or workdir themselves.
type canonicalPayload struct {
	Operations []string        `json:"operations"`
	Env        envops.Fragment `json:"env"`
}

// ComputeID content-addresses a snapshot from its operations and env-ops
// fragment using blake2b-256 over their canonical JSON encoding.
// encoding/json already sorts map keys on marshal, so canonicalization
// here is limited to using a fixed field order and slice order, not a
// deep structural canonicalizer.
func ComputeID(operations []string, env envops.Fragment) (string, error) {
	ops := append([]string(nil), operations...)
	sort.Strings(ops)

	payload, err := json.Marshal(canonicalPayload{Operations: ops, Env: env})
	if err != nil {
		return "", fmt.Errorf("shellenv: encoding snapshot for hashing: %w", err)
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// NewSnapshot builds a Snapshot for workdir from the operations that ran,
// the env-ops fragment they produced, and the composite branch-selection
// state to replay before a later Down call, computing its content-address.
// compositeState isn't part of the hashed payload: it's bookkeeping about
// how the effect was produced, not part of the effect itself, so two runs
// that reach the same env-ops by a different `any` branch still share a
// snapshot id.
func NewSnapshot(workdir string, operations []string, env envops.Fragment, compositeState map[string]any) (Snapshot, error) {
	id, err := ComputeID(operations, env)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{ID: id, Workdir: workdir, Operations: operations, Env: env, CompositeState: compositeState}, nil
}
