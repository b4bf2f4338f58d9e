package upengine

import "testing"

func TestSplitVersion(t *testing.T) {
	cases := []struct {
		in, wantMod, wantVersion string
	}{
		{"golang.org/x/tools/cmd/stringer@v0.1.0", "golang.org/x/tools/cmd/stringer", "v0.1.0"},
		{"golang.org/x/tools/cmd/stringer", "golang.org/x/tools/cmd/stringer", "latest"},
	}
	for _, c := range cases {
		mod, version := splitVersion(c.in)
		if mod != c.wantMod || version != c.wantVersion {
			t.Errorf("splitVersion(%q) = (%q, %q), want (%q, %q)", c.in, mod, version, c.wantMod, c.wantVersion)
		}
	}
}

func TestGoInstallOp_ValidateChecksSources(t *testing.T) {
	op, err := newGoInstall(map[string]any{"packages": []any{"example.com/bad/cmd/tool@latest"}})
	if err != nil {
		t.Fatalf("newGoInstall: %v", err)
	}
	goOp := op.(*goInstallOp)
	goOp.WithSources(NewAllowlist([]string{"!example.com/bad/cmd/tool"}))
	if err := goOp.Validate(); err == nil {
		t.Fatal("expected Validate to deny the configured source")
	}
}
