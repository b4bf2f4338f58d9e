package upengine

import "testing"

func TestAllowlist_EmptyListPermitsEverything(t *testing.T) {
	al := NewAllowlist(nil)
	if err := al.CheckKind("homebrew"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestAllowlist_DenyPrefixBlocks(t *testing.T) {
	al := NewAllowlist([]string{"!apt"})
	if err := al.CheckKind("apt"); err == nil {
		t.Error("expected apt to be denied")
	}
	if err := al.CheckKind("homebrew"); err != nil {
		t.Errorf("expected homebrew to remain allowed, got %v", err)
	}
}

func TestAllowlist_PositiveListIsExclusive(t *testing.T) {
	al := NewAllowlist([]string{"homebrew", "go"})
	if err := al.CheckKind("homebrew"); err != nil {
		t.Errorf("expected homebrew to be allowed, got %v", err)
	}
	if err := al.CheckKind("apt"); err == nil {
		t.Error("expected apt to be denied when not in the positive list")
	}
}

func TestAllowlist_CheckSourceMessage(t *testing.T) {
	al := NewAllowlist([]string{"!example.com/bad"})
	err := al.CheckSource("go-install", "example.com/bad")
	if err == nil {
		t.Fatal("expected source to be denied")
	}
	if want := "go-install source not allowed: example.com/bad"; err.Error() != want {
		t.Errorf("err = %q, want %q", err.Error(), want)
	}
}

func TestAllowlist_DenyGlobMatchesSchemelessSource(t *testing.T) {
	al := NewAllowlist([]string{"!https://example.com/test/*"})
	if err := al.CheckSource("go-install", "example.com/test/tool"); err == nil {
		t.Fatal("expected example.com/test/tool to be denied by the https://example.com/test/* pattern")
	}
	if err := al.CheckSource("go-install", "example.com/other/tool"); err != nil {
		t.Errorf("expected example.com/other/tool to remain allowed, got %v", err)
	}
}

func TestAllowlist_AllowGlobPattern(t *testing.T) {
	al := NewAllowlist([]string{"github.com/*/*"})
	if err := al.CheckSource("go-install", "github.com/example/tool"); err != nil {
		t.Errorf("expected github.com/example/tool to be allowed, got %v", err)
	}
	if err := al.CheckSource("go-install", "gitlab.com/example/tool"); err == nil {
		t.Error("expected gitlab.com/example/tool to be denied: not in the positive glob list")
	}
}
