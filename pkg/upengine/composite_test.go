package upengine

import (
	"context"
	"errors"
	"testing"

	"github.com/omnicli/omni/pkg/envops"
)

type fakeOp struct {
	name       string
	met        bool
	upErr      error
	upSuccess  bool
	downErr    error
	upCalls    int
	downCalls  int
	envOnUp    envops.Fragment
}

func (f *fakeOp) Validate() error { return nil }
func (f *fakeOp) IsMet(ctx context.Context, workdir string, env map[string]string) (bool, error) {
	return f.met, nil
}
func (f *fakeOp) Up(ctx context.Context) (OpResult, error) {
	f.upCalls++
	return OpResult{Success: f.upSuccess, Env: f.envOnUp}, f.upErr
}
func (f *fakeOp) Down(ctx context.Context) (OpResult, error) {
	f.downCalls++
	return OpResult{Success: f.downErr == nil}, f.downErr
}

func TestAndOp_FailsIfAnyChildFails(t *testing.T) {
	a := &fakeOp{upSuccess: true}
	b := &fakeOp{upSuccess: false, upErr: errors.New("boom")}
	c := &fakeOp{upSuccess: true}

	op := newAnd([]Operation{a, b, c})
	res, err := op.Up(context.Background())
	if err == nil || res.Success {
		t.Fatalf("expected and to fail, got res=%+v err=%v", res, err)
	}
	if c.upCalls != 0 {
		t.Error("and should stop at the first failing child")
	}
}

func TestOrOp_TriesUntilOneSucceeds(t *testing.T) {
	a := &fakeOp{upSuccess: false, upErr: errors.New("nope")}
	b := &fakeOp{upSuccess: true}
	c := &fakeOp{upSuccess: true}

	op := newOr([]Operation{a, b, c})
	res, err := op.Up(context.Background())
	if err != nil || !res.Success {
		t.Fatalf("expected or to succeed, got res=%+v err=%v", res, err)
	}
	if c.upCalls != 0 {
		t.Error("or should stop once a child succeeds")
	}

	dres, derr := op.Down(context.Background())
	if derr != nil || !dres.Success || b.downCalls != 1 {
		t.Errorf("or.Down should undo only the child that ran: b.downCalls=%d", b.downCalls)
	}
	if a.downCalls != 0 || c.downCalls != 0 {
		t.Error("or.Down should not touch children that never ran")
	}
}

func TestAnyOp_ReordersByPreferredTools(t *testing.T) {
	homebrew := &fakeOp{upSuccess: true}
	nix := &fakeOp{upSuccess: true}

	children := []namedChild{
		{kind: "homebrew", op: homebrew},
		{kind: "nix", op: nix},
	}
	op := newAny(children, []string{"nix", "homebrew"})
	res, err := op.Up(context.Background())
	if err != nil || !res.Success {
		t.Fatalf("any.Up failed: res=%+v err=%v", res, err)
	}
	if nix.upCalls != 1 || homebrew.upCalls != 0 {
		t.Error("any should try nix first per preferred_tools")
	}
}

func TestOrOp_StateRoundTripsAcrossFreshInstance(t *testing.T) {
	a := &fakeOp{upSuccess: false, upErr: errors.New("nope")}
	b := &fakeOp{upSuccess: true}

	up := newOr([]Operation{a, b})
	if _, err := up.Up(context.Background()); err != nil {
		t.Fatalf("or.Up: %v", err)
	}
	state := up.ExportState()

	// A freshly built Instance, as Engine.Build constructs on the next CLI
	// invocation, starts with no memory of which branch ran.
	a2 := &fakeOp{}
	b2 := &fakeOp{}
	down := newOr([]Operation{a2, b2})
	if err := down.ImportState(state); err != nil {
		t.Fatalf("ImportState: %v", err)
	}
	if _, err := down.Down(context.Background()); err != nil {
		t.Fatalf("or.Down: %v", err)
	}
	if b2.downCalls != 1 {
		t.Errorf("expected the restored succeeded child to be undone, got b2.downCalls=%d", b2.downCalls)
	}
	if a2.downCalls != 0 {
		t.Error("a child that never ran during up should not be undone after state import")
	}
}

func TestAnyOp_StateRoundTripsAcrossFreshInstance(t *testing.T) {
	first := &fakeOp{upSuccess: false, upErr: errors.New("unavailable")}
	second := &fakeOp{upSuccess: true}
	children := []namedChild{{kind: "a", op: first}, {kind: "b", op: second}}
	up := newAny(children, nil)
	if _, err := up.Up(context.Background()); err != nil {
		t.Fatalf("any.Up: %v", err)
	}
	state := up.ExportState()

	first2 := &fakeOp{}
	second2 := &fakeOp{}
	down := newAny([]namedChild{{kind: "a", op: first2}, {kind: "b", op: second2}}, nil)
	if err := down.ImportState(state); err != nil {
		t.Fatalf("ImportState: %v", err)
	}
	if _, err := down.Down(context.Background()); err != nil {
		t.Fatalf("any.Down: %v", err)
	}
	if second2.downCalls != 1 {
		t.Errorf("expected the restored succeeded child to be undone, got second2.downCalls=%d", second2.downCalls)
	}
	if first2.downCalls != 0 {
		t.Error("a child that never ran during up should not be undone after state import")
	}
}

func TestOrOp_ImportStateZeroValueSkipsDown(t *testing.T) {
	a := &fakeOp{}
	b := &fakeOp{}
	op := newOr([]Operation{a, b})
	if err := op.ImportState(map[string]any{"ran": -1}); err != nil {
		t.Fatalf("ImportState: %v", err)
	}
	if _, err := op.Down(context.Background()); err != nil {
		t.Fatalf("or.Down: %v", err)
	}
	if a.downCalls != 0 || b.downCalls != 0 {
		t.Error("no child should be undone when no branch succeeded")
	}
}

func TestAnyOp_DownUndoesEveryChildThatRan(t *testing.T) {
	first := &fakeOp{upSuccess: false, upErr: errors.New("unavailable")}
	second := &fakeOp{upSuccess: true}

	children := []namedChild{{kind: "a", op: first}, {kind: "b", op: second}}
	op := newAny(children, nil)
	if _, err := op.Up(context.Background()); err != nil {
		t.Fatalf("any.Up: %v", err)
	}
	if _, err := op.Down(context.Background()); err != nil {
		t.Fatalf("any.Down: %v", err)
	}
	if second.downCalls != 1 {
		t.Errorf("expected the succeeded child to be undone once, got %d", second.downCalls)
	}
	if first.downCalls != 0 {
		t.Error("a child that never ran during up should not be undone")
	}
}
