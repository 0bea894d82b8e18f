package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/coderunner/coderunner/api/internal/sandbox"
)

func TestListActiveSandboxesDegradesToEmpty(t *testing.T) {
	env := setupService(t, Options{})
	env.provider.ListErr = errors.New("provider rejected")

	infos := env.svc.ListActiveSandboxes(context.Background())
	if infos == nil {
		t.Fatal("expected an empty slice, not nil")
	}
	if len(infos) != 0 {
		t.Errorf("len = %d, want 0", len(infos))
	}
}

func TestListActiveSandboxes(t *testing.T) {
	env := setupService(t, Options{})
	ctx := context.Background()

	env.provider.Create(ctx, "node-20", map[string]string{"userId": "user-1"})
	env.provider.Create(ctx, "python-3.12", map[string]string{"userId": "user-2"})

	infos := env.svc.ListActiveSandboxes(ctx)
	if len(infos) != 2 {
		t.Errorf("len = %d, want 2", len(infos))
	}
}

func TestConnectToSandboxRegistersWithMetadata(t *testing.T) {
	env := setupService(t, Options{})
	ctx := context.Background()

	h, _ := env.provider.Create(ctx, "node-20", map[string]string{
		sandbox.MetaUserID:    "user-1",
		sandbox.MetaProjectID: "proj-1",
	})

	handle := env.svc.ConnectToSandbox(ctx, h.ID())
	if handle == nil {
		t.Fatal("expected a handle")
	}

	entry, ok := env.registry.Get(h.ID())
	if !ok {
		t.Fatal("expected the sandbox to be registered")
	}
	if entry.UserID != "user-1" || entry.ProjectID != "proj-1" {
		t.Errorf("owner = %s/%s, want user-1/proj-1", entry.UserID, entry.ProjectID)
	}
}

func TestConnectToSandboxDefaultsMissingMetadata(t *testing.T) {
	env := setupService(t, Options{})
	ctx := context.Background()

	h, _ := env.provider.Create(ctx, "node-20", nil)

	if env.svc.ConnectToSandbox(ctx, h.ID()) == nil {
		t.Fatal("expected a handle")
	}
	entry, _ := env.registry.Get(h.ID())
	if entry.UserID != "unknown" {
		t.Errorf("userID = %s, want unknown", entry.UserID)
	}
}

func TestConnectToSandboxFailureReturnsNil(t *testing.T) {
	env := setupService(t, Options{})
	env.provider.ConnectErr = errors.New("gone")

	if env.svc.ConnectToSandbox(context.Background(), "sbx-1") != nil {
		t.Error("expected nil on connect failure")
	}
}

func TestFindUserSandbox(t *testing.T) {
	env := setupService(t, Options{})
	ctx := context.Background()

	env.provider.Create(ctx, "node-20", map[string]string{
		sandbox.MetaUserID:    "user-2",
		sandbox.MetaProjectID: "proj-a",
	})
	h, _ := env.provider.Create(ctx, "node-20", map[string]string{
		sandbox.MetaUserID:    "user-1",
		sandbox.MetaProjectID: "proj-b",
	})

	found := env.svc.FindUserSandbox(ctx, "user-1", "")
	if found == nil {
		t.Fatal("expected a match")
	}
	if found.SandboxID != h.ID() {
		t.Errorf("matched %s, want %s", found.SandboxID, h.ID())
	}

	// Project filter
	if env.svc.FindUserSandbox(ctx, "user-1", "proj-b") == nil {
		t.Error("expected a project-scoped match")
	}
	if env.svc.FindUserSandbox(ctx, "user-1", "proj-z") != nil {
		t.Error("expected no match for wrong project")
	}
}

func TestFindUserSandboxNoMatchReturnsNil(t *testing.T) {
	env := setupService(t, Options{})
	ctx := context.Background()

	env.provider.Create(ctx, "node-20", map[string]string{sandbox.MetaUserID: "someone-else"})

	if env.svc.FindUserSandbox(ctx, "user-1", "") != nil {
		t.Error("expected nil when nothing matches the user")
	}
}

func TestFindUserSandboxListFailureReturnsNil(t *testing.T) {
	env := setupService(t, Options{})
	env.provider.ListErr = errors.New("provider down")

	if env.svc.FindUserSandbox(context.Background(), "user-1", "") != nil {
		t.Error("expected nil on list failure")
	}
}
