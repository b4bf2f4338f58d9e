package updater

import (
	"testing"
	"time"
)

func TestNextRun_EmptyIntervalUsesDefault(t *testing.T) {
	last := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next, err := NextRun(last, "")
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	if want := last.Add(DefaultInterval); !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextRun_DurationString(t *testing.T) {
	last := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next, err := NextRun(last, "1h")
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	if want := last.Add(time.Hour); !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextRun_CronExpression(t *testing.T) {
	last := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next, err := NextRun(last, "0 0 * * *")
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	if next.Before(last) || next.Equal(last) {
		t.Errorf("next = %v, want after %v", next, last)
	}
}

func TestNextRun_InvalidInterval(t *testing.T) {
	if _, err := NextRun(time.Now(), "not a duration or cron"); err == nil {
		t.Fatal("expected error for invalid interval")
	}
}

func TestIsDue_NeverRunIsAlwaysDue(t *testing.T) {
	due, err := IsDue(time.Time{}, "12h", time.Now())
	if err != nil {
		t.Fatalf("IsDue: %v", err)
	}
	if !due {
		t.Error("expected due=true for zero lastRun")
	}
}

func TestIsDue_NotYetDue(t *testing.T) {
	last := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := last.Add(time.Hour)
	due, err := IsDue(last, "12h", now)
	if err != nil {
		t.Fatalf("IsDue: %v", err)
	}
	if due {
		t.Error("expected due=false 1h into a 12h interval")
	}
}

func TestIsDue_PastDue(t *testing.T) {
	last := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := last.Add(13 * time.Hour)
	due, err := IsDue(last, "12h", now)
	if err != nil {
		t.Fatalf("IsDue: %v", err)
	}
	if !due {
		t.Error("expected due=true 13h into a 12h interval")
	}
}
