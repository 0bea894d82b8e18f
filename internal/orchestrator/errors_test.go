package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/coderunner/coderunner/api/internal/models"
)

func TestHandleErrorsRetryOnTransient(t *testing.T) {
	svc := setupService(t, Options{}).svc

	cases := []error{
		errors.New("connection refused"),
		errors.New("request timed out"),
		errors.New("network unreachable"),
		context.DeadlineExceeded,
	}
	for _, err := range cases {
		r := svc.HandleErrors("dep-1", err, ErrorContext{Stage: "create", RetryCount: 0, MaxRetries: 3})
		if r.Action != models.RecoveryRetry {
			t.Errorf("%v: action = %s, want retry", err, r.Action)
		}
		if !r.Recovered {
			t.Errorf("%v: expected recovered=true", err)
		}
	}
}

func TestHandleErrorsAbortsWhenRetriesExhausted(t *testing.T) {
	svc := setupService(t, Options{}).svc

	r := svc.HandleErrors("dep-1", errors.New("timeout"), ErrorContext{Stage: "create", RetryCount: 3, MaxRetries: 3})
	if r.Action != models.RecoveryAbort {
		t.Errorf("action = %s, want abort", r.Action)
	}
}

func TestHandleErrorsFallbackOnResourceExhaustion(t *testing.T) {
	svc := setupService(t, Options{}).svc

	for _, msg := range []string{"out of memory", "no space left on device", "quota exceeded"} {
		r := svc.HandleErrors("dep-1", errors.New(msg), ErrorContext{Stage: "provision", MaxRetries: 3})
		if r.Action != models.RecoveryFallback {
			t.Errorf("%q: action = %s, want fallback", msg, r.Action)
		}
	}
}

func TestHandleErrorsAbortOnUnknown(t *testing.T) {
	svc := setupService(t, Options{}).svc

	r := svc.HandleErrors("dep-1", errors.New("segmentation fault"), ErrorContext{Stage: "start", MaxRetries: 3})
	if r.Action != models.RecoveryAbort {
		t.Errorf("action = %s, want abort", r.Action)
	}
	if r.Recovered {
		t.Error("expected recovered=false for unknown errors")
	}
}
