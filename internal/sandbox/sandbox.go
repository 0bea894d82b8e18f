package sandbox

import (
	"context"
	"time"
)

// Info describes a sandbox as reported by the provider inventory
type Info struct {
	SandboxID string            `json:"sandboxId"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	StartedAt time.Time         `json:"startedAt"`
	EndAt     *time.Time        `json:"endAt,omitempty"`
}

// ExecResult is the outcome of running a command inside a sandbox
type ExecResult struct {
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout"`
}

// Metadata keys the control plane stamps on sandboxes it owns
const (
	MetaUserID    = "userId"
	MetaProjectID = "projectId"
)

// Handle is a live connection to one sandbox. All calls are fallible;
// callers are expected to degrade rather than crash on provider errors.
type Handle interface {
	ID() string
	Metadata() map[string]string
	Write(ctx context.Context, path string, content []byte) error
	Run(ctx context.Context, command string) (*ExecResult, error)
	GetHost(ctx context.Context, port int) (string, error)
	Kill(ctx context.Context) error
}

// Provider provisions and discovers sandboxes on the external sandbox
// service
type Provider interface {
	Create(ctx context.Context, template string, metadata map[string]string) (Handle, error)
	List(ctx context.Context) ([]Info, error)
	Connect(ctx context.Context, sandboxID string) (Handle, error)
}
