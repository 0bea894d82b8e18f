package autoscaler

import (
	"context"
	"fmt"
	"log"

	"github.com/coderunner/coderunner/api/internal/models"
	"github.com/coderunner/coderunner/api/internal/utils"
	"github.com/google/uuid"
)

// ManualScale forces a deployment to an exact instance count,
// bypassing policy evaluation and cooldown. Returns true when the
// change was applied or the target already matches, false when the
// target is out of range or the executor rejected it. A manual change
// does not stamp the cooldown: the next evaluation tick may scale
// again immediately.
func (s *Service) ManualScale(ctx context.Context, deploymentID string, targetInstances int, reason string) bool {
	if targetInstances < 1 || targetInstances > s.opts.MaxInstancesCap {
		log.Printf("[AutoScaler] manual scale rejected for %s: target %d out of range", deploymentID, targetInstances)
		return false
	}

	lock := s.lockFor(deploymentID)
	lock.Lock()
	defer lock.Unlock()

	current := s.CurrentInstances(deploymentID)
	if targetInstances == current {
		return true
	}

	if s.executor != nil {
		if err := s.executor.Scale(ctx, deploymentID, targetInstances); err != nil {
			log.Printf("[AutoScaler] manual scale failed for %s: %v", deploymentID, err)
			return false
		}
	}

	s.mu.Lock()
	s.instances[deploymentID] = targetInstances
	s.mu.Unlock()

	var policyID *string
	if cached := s.cachedPolicyFor(deploymentID); cached != nil {
		policyID = utils.Ptr(cached.policy.ID)
	}
	event := &models.ScalingEvent{
		ID:            uuid.NewString(),
		DeploymentID:  deploymentID,
		PolicyID:      policyID,
		EventType:     models.ScalingEventManualOverride,
		FromInstances: current,
		ToInstances:   targetInstances,
		Reason:        fmt.Sprintf("Manual scaling: %s", reason),
	}
	if err := s.events.Append(ctx, event); err != nil {
		log.Printf("[AutoScaler] failed to persist manual scaling event for %s: %v", deploymentID, err)
	}

	if s.notifier != nil {
		s.notifier.Emit(deploymentID, "scaling_decision", map[string]interface{}{
			"deploymentId":    deploymentID,
			"action":          models.ScalingEventManualOverride,
			"targetInstances": targetInstances,
			"reason":          event.Reason,
		})
	}
	return true
}
