package upengine

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/omnicli/omni/pkg/envops"
)

// StateCarrier is implemented by operations whose Down behavior depends on
// which of several enclosed alternatives actually ran during Up (or, any,
// and any and/or/any nested beneath them). Engine.Build constructs a fresh,
// zero-state Instance tree on every CLI invocation, so a `down` run in a
// later process has no memory of what a prior `up` run chose; the engine
// persists ExportState's result into the Environment Snapshot and replays
// it via ImportState before calling Down (spec §4.3: any's down-tracking
// "is tracked in the snapshot").
type StateCarrier interface {
	ExportState() any
	ImportState(state any) error
}

// andOp fails if any child fails; it runs the children's Up in declared
// order and stops at the first child that fails.
type andOp struct {
	children []Operation
}

func newAnd(children []Operation) *andOp { return &andOp{children: children} }

func (o *andOp) Validate() error {
	for i, c := range o.children {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("and[%d]: %w", i, err)
		}
	}
	return nil
}

func (o *andOp) IsMet(ctx context.Context, workdir string, env map[string]string) (bool, error) {
	for _, c := range o.children {
		met, err := c.IsMet(ctx, workdir, env)
		if err != nil || !met {
			return false, err
		}
	}
	return true, nil
}

func (o *andOp) Up(ctx context.Context) (OpResult, error) {
	var frag envops.Fragment
	for _, c := range o.children {
		res, err := c.Up(ctx)
		frag = append(frag, res.Env...)
		if err != nil || !res.Success {
			return OpResult{Success: false, Env: frag}, err
		}
	}
	return OpResult{Success: true, Env: frag}, nil
}

// ExportState recurses into children so a nested or/any under an and:
// still has its branch selection captured; andOp itself always runs every
// child's Down, so it carries no selection state of its own.
func (o *andOp) ExportState() any {
	children := exportChildren(o.children)
	if len(children) == 0 {
		return nil
	}
	return map[string]any{"children": children}
}

func (o *andOp) ImportState(state any) error {
	m, _ := state.(map[string]any)
	if m == nil {
		return nil
	}
	children, _ := m["children"].(map[string]any)
	return importChildren(o.children, children)
}

func (o *andOp) Down(ctx context.Context) (OpResult, error) {
	var frag envops.Fragment
	ok := true
	for i := len(o.children) - 1; i >= 0; i-- {
		res, err := o.children[i].Down(ctx)
		frag = append(frag, res.Env...)
		if err != nil || !res.Success {
			ok = false
			log.Printf("and: child %d down failed, continuing best-effort: %v", i, err)
		}
	}
	return OpResult{Success: ok, Env: frag}, nil
}

// orOp tries children in order until one succeeds.
type orOp struct {
	children []Operation
	// ranSucceeded records which child index succeeded during Up, so Down
	// knows which (and only which) child to unwind.
	ranSucceeded int
}

func newOr(children []Operation) *orOp { return &orOp{children: children, ranSucceeded: -1} }

func (o *orOp) Validate() error {
	for i, c := range o.children {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("or[%d]: %w", i, err)
		}
	}
	return nil
}

func (o *orOp) IsMet(ctx context.Context, workdir string, env map[string]string) (bool, error) {
	for _, c := range o.children {
		met, err := c.IsMet(ctx, workdir, env)
		if err == nil && met {
			return true, nil
		}
	}
	return false, nil
}

func (o *orOp) Up(ctx context.Context) (OpResult, error) {
	var lastErr error
	for i, c := range o.children {
		res, err := c.Up(ctx)
		if err == nil && res.Success {
			o.ranSucceeded = i
			return res, nil
		}
		lastErr = err
	}
	return OpResult{Success: false}, fmt.Errorf("or: no child succeeded: %w", lastErr)
}

func (o *orOp) Down(ctx context.Context) (OpResult, error) {
	if o.ranSucceeded < 0 {
		return OpResult{Success: true}, nil
	}
	return o.children[o.ranSucceeded].Down(ctx)
}

// ExportState records which child succeeded, plus that child's own state
// if it is itself a StateCarrier (a nested composite).
func (o *orOp) ExportState() any {
	state := map[string]any{"ran": o.ranSucceeded}
	if o.ranSucceeded >= 0 {
		if sc, ok := o.children[o.ranSucceeded].(StateCarrier); ok {
			state["child"] = sc.ExportState()
		}
	}
	return state
}

func (o *orOp) ImportState(state any) error {
	m, ok := state.(map[string]any)
	if !ok {
		return fmt.Errorf("or: invalid state %T", state)
	}
	ran, ok := asInt(m["ran"])
	if !ok || ran < 0 || ran >= len(o.children) {
		o.ranSucceeded = -1
		return nil
	}
	o.ranSucceeded = ran
	if childState, ok := m["child"]; ok {
		if sc, ok := o.children[ran].(StateCarrier); ok {
			return sc.ImportState(childState)
		}
	}
	return nil
}

// namedChild pairs a child operation with the kind name it was built from,
// so `any` can reorder by up_command.preferred_tools without Operation
// itself needing to expose its kind.
type namedChild struct {
	kind string
	op   Operation
}

// anyOp reorders children by the configured preferred-tool list, then
// behaves as orOp for Up, but on Down applies to every child that actually
// ran during Up (tracked here), not just the first success — a later `up`
// invocation may have run additional children after a prior one stopped
// being met.
type anyOp struct {
	children []Operation
	ran      []int
}

func newAny(children []namedChild, preferred []string) *anyOp {
	ordered := reorderByPreference(children, preferred)
	ops := make([]Operation, len(ordered))
	for i, c := range ordered {
		ops[i] = c.op
	}
	return &anyOp{children: ops}
}

// reorderByPreference stable-sorts children so any named in preferred come
// first, in the order preferred lists them; unnamed/unlisted children keep
// their relative order after.
func reorderByPreference(children []namedChild, preferred []string) []namedChild {
	rank := make(map[string]int, len(preferred))
	for i, name := range preferred {
		rank[name] = i
	}
	ordered := append([]namedChild(nil), children...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, iok := rank[ordered[i].kind]
		rj, jok := rank[ordered[j].kind]
		if iok && jok {
			return ri < rj
		}
		return iok && !jok
	})
	return ordered
}

func (o *anyOp) Validate() error {
	for i, c := range o.children {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("any[%d]: %w", i, err)
		}
	}
	return nil
}

func (o *anyOp) IsMet(ctx context.Context, workdir string, env map[string]string) (bool, error) {
	for _, c := range o.children {
		met, err := c.IsMet(ctx, workdir, env)
		if err == nil && met {
			return true, nil
		}
	}
	return false, nil
}

func (o *anyOp) Up(ctx context.Context) (OpResult, error) {
	var lastErr error
	for i, c := range o.children {
		res, err := c.Up(ctx)
		if err == nil && res.Success {
			o.ran = append(o.ran, i)
			return res, nil
		}
		lastErr = err
	}
	return OpResult{Success: false}, fmt.Errorf("any: no child succeeded: %w", lastErr)
}

func (o *anyOp) Down(ctx context.Context) (OpResult, error) {
	var frag envops.Fragment
	ok := true
	for i := len(o.ran) - 1; i >= 0; i-- {
		res, err := o.children[o.ran[i]].Down(ctx)
		frag = append(frag, res.Env...)
		if err != nil || !res.Success {
			ok = false
			log.Printf("any: child %d down failed, continuing best-effort: %v", o.ran[i], err)
		}
	}
	return OpResult{Success: ok, Env: frag}, nil
}

// ExportState records every child index that ran (not just the first
// success), since a later `up` may have run additional children after an
// earlier one stopped being met.
func (o *anyOp) ExportState() any {
	ran := make([]int, len(o.ran))
	copy(ran, o.ran)
	children := map[string]any{}
	for _, i := range ran {
		if sc, ok := o.children[i].(StateCarrier); ok {
			children[strconv.Itoa(i)] = sc.ExportState()
		}
	}
	return map[string]any{"ran": ran, "children": children}
}

func (o *anyOp) ImportState(state any) error {
	m, ok := state.(map[string]any)
	if !ok {
		return fmt.Errorf("any: invalid state %T", state)
	}
	// ExportState's own []int arrives unchanged when state is handed over
	// in-process; after a JSON round trip it is a []any of float64.
	var rawRan []any
	switch r := m["ran"].(type) {
	case []any:
		rawRan = r
	case []int:
		for _, v := range r {
			rawRan = append(rawRan, v)
		}
	}
	ran := make([]int, 0, len(rawRan))
	for _, v := range rawRan {
		idx, ok := asInt(v)
		if ok && idx >= 0 && idx < len(o.children) {
			ran = append(ran, idx)
		}
	}
	o.ran = ran
	children, _ := m["children"].(map[string]any)
	return importChildren(o.children, children)
}

// exportChildren captures every child's state keyed by its index, for a
// composite operation (and) that has no selection of its own to record.
func exportChildren(children []Operation) map[string]any {
	out := map[string]any{}
	for i, c := range children {
		if sc, ok := c.(StateCarrier); ok {
			if s := sc.ExportState(); s != nil {
				out[strconv.Itoa(i)] = s
			}
		}
	}
	return out
}

func importChildren(children []Operation, state map[string]any) error {
	for k, s := range state {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 || idx >= len(children) {
			continue
		}
		if sc, ok := children[idx].(StateCarrier); ok {
			if err := sc.ImportState(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// asInt extracts an int from a decoded JSON value, which may arrive as a
// float64 (json.Unmarshal into interface{}) or, in tests that build state
// maps by hand, as a plain int.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
