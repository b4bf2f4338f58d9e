package upengine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/omnicli/omni/pkg/envops"
	"github.com/omnicli/omni/pkg/omnierr"
)

// Engine runs the up/down lifecycle (spec §4.3) over one workdir's `up:`
// entries.
type Engine struct {
	Preferred []string  // up_command.preferred_tools, used to reorder `any` children
	Kinds     Allowlist // up_command.operations.allowed
	Sources   Allowlist // up_command.operations.sources
	GobinDir  string    // per-workdir activation directory for go-install's GOBIN
}

// Instance pairs a built Operation with the declared index of its top-level
// `up:` entry, so a validation failure can be reported against that index.
type Instance struct {
	Index int
	Kind  string
	Op    Operation
}

// Build validates and decodes every `up:` entry into an Instance, reordering
// `any` children by e.Preferred. It fails fast, naming the offending index.
func (e *Engine) Build(entries []map[string]any) ([]Instance, error) {
	instances := make([]Instance, 0, len(entries))
	for i, raw := range entries {
		kind, op, err := e.buildOperation(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: up[%d] (%s): %v", omnierr.ErrConfigInvalid, i, kind, err)
		}
		if err := op.Validate(); err != nil {
			return nil, fmt.Errorf("%w: up[%d] (%s): %v", omnierr.ErrConfigInvalid, i, kind, err)
		}
		instances = append(instances, Instance{Index: i, Kind: kind, Op: op})
	}
	return instances, nil
}

// buildOperation decodes one `{kind: params}` entry, recursing into and/or/
// any's list-of-entries children.
func (e *Engine) buildOperation(raw map[string]any) (kind string, op Operation, err error) {
	if len(raw) != 1 {
		return "", nil, fmt.Errorf("operation entry must have exactly one key, got %d", len(raw))
	}
	for k, v := range raw {
		kind = k
		switch k {
		case "and", "or", "any":
			children, cerr := e.buildChildren(v)
			if cerr != nil {
				return kind, nil, cerr
			}
			switch k {
			case "and":
				op = newAnd(namedOps(children))
			case "or":
				op = newOr(namedOps(children))
			case "any":
				op = newAny(children, e.Preferred)
			}
			return kind, op, nil
		default:
			if kerr := e.Kinds.CheckKind(k); kerr != nil {
				return kind, nil, kerr
			}
			factory, ok := Lookup(k)
			if !ok {
				return kind, nil, fmt.Errorf("unknown operation kind %q", k)
			}
			params, ok := v.(map[string]any)
			if !ok {
				return kind, nil, fmt.Errorf("%s: params must be a map", k)
			}
			built, ferr := factory(params)
			if ferr != nil {
				return kind, nil, ferr
			}
			if goOp, ok := built.(*goInstallOp); ok {
				goOp.WithSources(e.Sources).WithGobin(e.GobinDir)
			}
			op = built
			return kind, op, nil
		}
	}
	return "", nil, fmt.Errorf("unreachable")
}

func (e *Engine) buildChildren(v any) ([]namedChild, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("composite operation value must be a list")
	}
	children := make([]namedChild, 0, len(list))
	for i, item := range list {
		raw, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("child[%d]: must be a map", i)
		}
		kind, op, err := e.buildOperation(raw)
		if err != nil {
			return nil, fmt.Errorf("child[%d]: %w", i, err)
		}
		children = append(children, namedChild{kind: kind, op: op})
	}
	return children, nil
}

func namedOps(children []namedChild) []Operation {
	ops := make([]Operation, len(children))
	for i, c := range children {
		ops[i] = c.op
	}
	return ops
}

// Reporter observes each instance's Up as it runs, for progress display.
// StepStart/StepDone are called even when IsMet lets Up be skipped.
type Reporter interface {
	StepStart(inst Instance)
	StepDone(inst Instance, skipped bool, err error)
}

// Up executes instances in declared order, stopping at the first failure,
// and returns the combined Environment Snapshot fragment. is_met is
// consulted first so an already-satisfied operation's Up can be skipped
// (spec §4.3: "is_met is an optimisation; when true, up may be skipped"),
// unless noCache forces every operation to run regardless (the --no-cache
// flag).
func Up(ctx context.Context, instances []Instance, reporter Reporter, noCache bool) (envops.Fragment, error) {
	var snapshot envops.Fragment
	for _, inst := range instances {
		if reporter != nil {
			reporter.StepStart(inst)
		}
		skip, merr := inst.Op.IsMet(ctx, "", nil)
		if !noCache && merr == nil && skip {
			if reporter != nil {
				reporter.StepDone(inst, true, nil)
			}
			continue
		}
		res, err := inst.Op.Up(ctx)
		snapshot = append(snapshot, res.Env...)
		if reporter != nil {
			reporter.StepDone(inst, false, err)
		}
		if err != nil {
			return snapshot, fmt.Errorf("up[%d] (%s): %w", inst.Index, inst.Kind, err)
		}
		if !res.Success {
			return snapshot, fmt.Errorf("%w: up[%d] (%s)", omnierr.ErrOperationFailed, inst.Index, inst.Kind)
		}
	}
	return snapshot, nil
}

// ExportState captures, per top-level Instance, the composite
// branch-selection state (which or/any child ran) needed to replay the
// right Down later, keyed by Instance.Index since a fresh Engine.Build in
// a later process re-creates Instances with the same indices from the
// same `up:` config.
func ExportState(instances []Instance) map[string]any {
	state := map[string]any{}
	for _, inst := range instances {
		if sc, ok := inst.Op.(StateCarrier); ok {
			if s := sc.ExportState(); s != nil {
				state[strconv.Itoa(inst.Index)] = s
			}
		}
	}
	return state
}

// ImportState replays state captured by ExportState into freshly built
// instances, so calling Down afterward sees the same branch selections
// the original Up made.
func ImportState(instances []Instance, state map[string]any) error {
	for _, inst := range instances {
		s, ok := state[strconv.Itoa(inst.Index)]
		if !ok {
			continue
		}
		sc, ok := inst.Op.(StateCarrier)
		if !ok {
			continue
		}
		if err := sc.ImportState(s); err != nil {
			return fmt.Errorf("up[%d] (%s): restoring down state: %w", inst.Index, inst.Kind, err)
		}
	}
	return nil
}

// Down executes instances in reverse declared order with best-effort
// continuation, returning the combined undo fragment.
func Down(ctx context.Context, instances []Instance) envops.Fragment {
	var snapshot envops.Fragment
	for i := len(instances) - 1; i >= 0; i-- {
		inst := instances[i]
		res, err := inst.Op.Down(ctx)
		snapshot = append(snapshot, res.Env...)
		if err != nil || !res.Success {
			log.Printf("down[%d] (%s) failed, continuing best-effort: %v", inst.Index, inst.Kind, err)
		}
	}
	return snapshot
}
