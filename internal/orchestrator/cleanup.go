package orchestrator

import (
	"context"
	"log"
	"time"
)

// CleanupOptions select which tracked sandboxes are retired
type CleanupOptions struct {
	MaxAge  time.Duration
	MaxIdle time.Duration
	Force   bool
}

// CleanupDetail records the outcome for one sandbox in a pass
type CleanupDetail struct {
	SandboxID string `json:"sandboxId"`
	UserID    string `json:"userId"`
	Reason    string `json:"reason"`
	Error     string `json:"error,omitempty"`
}

// CleanupResult summarizes one cleanup pass
type CleanupResult struct {
	Cleaned int             `json:"cleaned"`
	Errors  int             `json:"errors"`
	Details []CleanupDetail `json:"details"`
}

// CleanupSandboxes walks the registry and retires every eligible entry.
// Eligibility is force OR age beyond MaxAge OR idle beyond MaxIdle.
// Failures to kill an individual sandbox are collected, never abort the
// pass.
func (s *Service) CleanupSandboxes(ctx context.Context, opts CleanupOptions) *CleanupResult {
	result := &CleanupResult{Details: []CleanupDetail{}}
	now := time.Now()

	for _, entry := range s.registry.List() {
		age := now.Sub(entry.CreatedAt)
		idle := now.Sub(entry.LastActivity)

		var reason string
		switch {
		case opts.Force:
			reason = "forced"
		case opts.MaxAge > 0 && age > opts.MaxAge:
			reason = "max age exceeded"
		case opts.MaxIdle > 0 && idle > opts.MaxIdle:
			reason = "max idle exceeded"
		default:
			continue
		}

		detail := CleanupDetail{SandboxID: entry.SandboxID, UserID: entry.UserID, Reason: reason}

		if entry.Handle != nil {
			if err := entry.Handle.Kill(ctx); err != nil {
				detail.Error = err.Error()
				result.Errors++
				result.Details = append(result.Details, detail)
				continue
			}
		}

		s.registry.Remove(entry.SandboxID)
		result.Cleaned++
		result.Details = append(result.Details, detail)
	}

	if result.Cleaned > 0 || result.Errors > 0 {
		log.Printf("[Cleanup] pass done: cleaned=%d errors=%d tracked=%d", result.Cleaned, result.Errors, s.registry.Len())
		s.notifier.Emit("cleanup", "cleanup_summary", result)
	}
	return result
}

// StartCleanup arms the periodic cleanup loop. Ticks are non-reentrant:
// a pass still running when the next tick fires is skipped, never
// overlapped.
func (s *Service) StartCleanup(ctx context.Context) {
	if s.opts.CleanupInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.opts.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.cleanupStop:
				return
			case <-ticker.C:
				select {
				case s.cleanupRunning <- struct{}{}:
					s.CleanupSandboxes(ctx, CleanupOptions{
						MaxAge:  s.opts.SandboxMaxAge,
						MaxIdle: s.opts.SandboxMaxIdle,
					})
					<-s.cleanupRunning
				default:
					log.Printf("[Cleanup] previous pass still running, skipping tick")
				}
			}
		}
	}()
}

// StopCleanup disarms the cleanup loop. Safe to call multiple times.
func (s *Service) StopCleanup() {
	select {
	case <-s.cleanupStop:
	default:
		close(s.cleanupStop)
	}
}
