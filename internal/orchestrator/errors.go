package orchestrator

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/coderunner/coderunner/api/internal/models"
)

// ErrDeploymentNotFound is the only error the read paths surface: it
// means the deployment record itself is absent, not that a probe or a
// provider call failed.
var ErrDeploymentNotFound = errors.New("Deployment not found")

// ErrSandboxLimit indicates the per-user cap could not be enforced
var ErrSandboxLimit = errors.New("failed to enforce sandbox limit")

// ErrorContext carries the retry bookkeeping for HandleErrors
type ErrorContext struct {
	Stage      string
	RetryCount int
	MaxRetries int
}

// Recovery is the decision HandleErrors returns. The caller performs
// the actual retry; this is a pure classification.
type Recovery struct {
	Recovered bool                  `json:"recovered"`
	Action    models.RecoveryAction `json:"action"`
	Reason    string                `json:"reason"`
}

// HandleErrors classifies an error from a deployment stage and decides
// between retry, fallback and abort
func (s *Service) HandleErrors(deploymentID string, err error, ectx ErrorContext) Recovery {
	switch classify(err) {
	case errorTransient:
		if ectx.RetryCount < ectx.MaxRetries {
			return Recovery{Recovered: true, Action: models.RecoveryRetry,
				Reason: "transient error, retrying " + ectx.Stage}
		}
		return Recovery{Recovered: false, Action: models.RecoveryAbort,
			Reason: "retries exhausted at " + ectx.Stage}
	case errorResource:
		return Recovery{Recovered: true, Action: models.RecoveryFallback,
			Reason: "resource exhaustion, degrading " + ectx.Stage}
	default:
		return Recovery{Recovered: false, Action: models.RecoveryAbort,
			Reason: "unrecoverable error at " + ectx.Stage}
	}
}

type errorClass int

const (
	errorUnknown errorClass = iota
	errorTransient
	errorResource
)

func classify(err error) errorClass {
	if err == nil {
		return errorUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errorTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errorTransient
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "temporarily unavailable"),
		strings.Contains(msg, "econnreset"),
		strings.Contains(msg, "network"):
		return errorTransient
	case strings.Contains(msg, "out of memory"),
		strings.Contains(msg, "no space left"),
		strings.Contains(msg, "resource exhausted"),
		strings.Contains(msg, "quota exceeded"),
		strings.Contains(msg, "too many"):
		return errorResource
	}
	return errorUnknown
}
