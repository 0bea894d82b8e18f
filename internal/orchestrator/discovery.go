package orchestrator

import (
	"context"
	"log"

	"github.com/coderunner/coderunner/api/internal/sandbox"
)

// Discovery helpers are best-effort pre-steps to larger operations:
// they never propagate provider failures, they return empty or nil.

// ListActiveSandboxes returns the provider's sandbox inventory. On
// provider error it returns an empty list.
func (s *Service) ListActiveSandboxes(ctx context.Context) []sandbox.Info {
	infos, err := s.provider.List(ctx)
	if err != nil {
		log.Printf("[Orchestrator] failed to list sandboxes: %v", err)
		return []sandbox.Info{}
	}
	return infos
}

// ConnectToSandbox attaches to an existing sandbox by id and registers
// it, deriving the owner from the sandbox's own metadata. Returns nil
// on any failure.
func (s *Service) ConnectToSandbox(ctx context.Context, sandboxID string) sandbox.Handle {
	handle, err := s.provider.Connect(ctx, sandboxID)
	if err != nil {
		log.Printf("[Orchestrator] failed to connect to sandbox %s: %v", sandboxID, err)
		return nil
	}

	userID := "unknown"
	projectID := "unknown"
	if meta := handle.Metadata(); meta != nil {
		if v := meta[sandbox.MetaUserID]; v != "" {
			userID = v
		}
		if v := meta[sandbox.MetaProjectID]; v != "" {
			projectID = v
		}
	}
	s.registry.Register(handle.ID(), userID, projectID, handle)
	return handle
}

// UserSandbox is a discovery match
type UserSandbox struct {
	SandboxID string
	Handle    sandbox.Handle
}

// FindUserSandbox lists all sandboxes, filters by owner (and project
// when given) and connects to the first match. Returns nil when there
// is no match or when listing/connecting fails.
func (s *Service) FindUserSandbox(ctx context.Context, userID, projectID string) *UserSandbox {
	infos, err := s.provider.List(ctx)
	if err != nil {
		log.Printf("[Orchestrator] failed to list sandboxes for user %s: %v", userID, err)
		return nil
	}

	for _, info := range infos {
		if info.Metadata[sandbox.MetaUserID] != userID {
			continue
		}
		if projectID != "" && info.Metadata[sandbox.MetaProjectID] != projectID {
			continue
		}

		handle := s.ConnectToSandbox(ctx, info.SandboxID)
		if handle == nil {
			return nil
		}
		return &UserSandbox{SandboxID: info.SandboxID, Handle: handle}
	}
	return nil
}
