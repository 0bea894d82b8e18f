package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockProvider implements the Provider interface for testing.
type MockProvider struct {
	mu        sync.Mutex
	Sandboxes map[string]*MockHandle
	counter   int

	CreateErr  error
	ListErr    error
	ConnectErr error
	ListFn     func(ctx context.Context) ([]Info, error)

	// HandleRunFn is copied onto every handle Create returns
	HandleRunFn func(ctx context.Context, command string) (*ExecResult, error)
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		Sandboxes: make(map[string]*MockHandle),
	}
}

func (m *MockProvider) Create(ctx context.Context, template string, metadata map[string]string) (Handle, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	h := &MockHandle{
		SandboxID: fmt.Sprintf("sbx-%d", m.counter),
		Meta:      metadata,
		Template:  template,
		Host:      fmt.Sprintf("sbx-%d.mock.dev", m.counter),
		StartedAt: time.Now(),
		Files:     make(map[string][]byte),
		RunFn:     m.HandleRunFn,
	}
	m.Sandboxes[h.SandboxID] = h
	return h, nil
}

func (m *MockProvider) List(ctx context.Context) ([]Info, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]Info, 0, len(m.Sandboxes))
	for _, h := range m.Sandboxes {
		if h.Killed {
			continue
		}
		infos = append(infos, Info{SandboxID: h.SandboxID, Metadata: h.Meta, StartedAt: h.StartedAt})
	}
	return infos, nil
}

func (m *MockProvider) Connect(ctx context.Context, sandboxID string) (Handle, error) {
	if m.ConnectErr != nil {
		return nil, m.ConnectErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.Sandboxes[sandboxID]
	if !ok || h.Killed {
		return nil, fmt.Errorf("sandbox %q not found", sandboxID)
	}
	return h, nil
}

// MockHandle implements the Handle interface for testing.
type MockHandle struct {
	mu        sync.Mutex
	SandboxID string
	Meta      map[string]string
	Template  string
	Host      string
	StartedAt time.Time
	Files     map[string][]byte
	Commands  []string
	Killed    bool

	WriteErr error
	RunFn    func(ctx context.Context, command string) (*ExecResult, error)
	HostErr  error
	KillErr  error
}

func (h *MockHandle) ID() string {
	return h.SandboxID
}

func (h *MockHandle) Metadata() map[string]string {
	return h.Meta
}

func (h *MockHandle) Write(ctx context.Context, path string, content []byte) error {
	if h.WriteErr != nil {
		return h.WriteErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Files[path] = content
	return nil
}

func (h *MockHandle) Run(ctx context.Context, command string) (*ExecResult, error) {
	if h.RunFn != nil {
		return h.RunFn(ctx, command)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Commands = append(h.Commands, command)
	return &ExecResult{ExitCode: 0, Stdout: ""}, nil
}

func (h *MockHandle) GetHost(ctx context.Context, port int) (string, error) {
	if h.HostErr != nil {
		return "", h.HostErr
	}
	return fmt.Sprintf("%d-%s", port, h.Host), nil
}

func (h *MockHandle) Kill(ctx context.Context) error {
	if h.KillErr != nil {
		return h.KillErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Killed = true
	return nil
}
