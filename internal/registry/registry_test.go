package registry

import (
	"testing"
	"time"
)

func TestRegisterAndGet(t *testing.T) {
	r := New()

	r.Register("sbx-1", "user-1", "proj-1", nil)

	entry, ok := r.Get("sbx-1")
	if !ok {
		t.Fatal("expected sbx-1 to be tracked")
	}
	if entry.UserID != "user-1" || entry.ProjectID != "proj-1" {
		t.Errorf("unexpected owner: %s/%s", entry.UserID, entry.ProjectID)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRemove(t *testing.T) {
	r := New()
	r.Register("sbx-1", "user-1", "proj-1", nil)

	r.Remove("sbx-1")

	if _, ok := r.Get("sbx-1"); ok {
		t.Error("expected sbx-1 to be gone after Remove")
	}

	// Removing twice is harmless
	r.Remove("sbx-1")
}

func TestTouchRefreshesLastActivity(t *testing.T) {
	r := New()
	r.Register("sbx-1", "user-1", "proj-1", nil)

	before, _ := r.Get("sbx-1")
	stale := before.LastActivity
	time.Sleep(5 * time.Millisecond)

	r.Touch("sbx-1")

	after, _ := r.Get("sbx-1")
	if !after.LastActivity.After(stale) {
		t.Error("expected Touch to advance LastActivity")
	}
}

func TestCountByUser(t *testing.T) {
	r := New()
	r.Register("sbx-1", "user-1", "proj-1", nil)
	r.Register("sbx-2", "user-1", "proj-2", nil)
	r.Register("sbx-3", "user-2", "proj-3", nil)

	if got := r.CountByUser("user-1"); got != 2 {
		t.Errorf("CountByUser(user-1) = %d, want 2", got)
	}
	if got := r.CountByUser("user-3"); got != 0 {
		t.Errorf("CountByUser(user-3) = %d, want 0", got)
	}
}

func TestOldestByUser(t *testing.T) {
	r := New()

	r.Register("sbx-1", "user-1", "proj-1", nil)
	time.Sleep(2 * time.Millisecond)
	r.Register("sbx-2", "user-1", "proj-2", nil)
	time.Sleep(2 * time.Millisecond)

	// sbx-1 is oldest until it is touched
	oldest, ok := r.OldestByUser("user-1")
	if !ok || oldest.SandboxID != "sbx-1" {
		t.Fatalf("OldestByUser = %v, want sbx-1", oldest.SandboxID)
	}

	r.Touch("sbx-1")

	oldest, ok = r.OldestByUser("user-1")
	if !ok || oldest.SandboxID != "sbx-2" {
		t.Errorf("OldestByUser after touch = %v, want sbx-2", oldest.SandboxID)
	}

	if _, ok := r.OldestByUser("nobody"); ok {
		t.Error("expected no oldest entry for unknown user")
	}
}
