package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
)

func transientErr(msg string) error {
	return errors.New(errors.CodeTransient, msg, nil)
}

func TestRetrySuccessAfterTransientFailures(t *testing.T) {
	attempts := 0
	config := DefaultRetryConfig().WithInitialDelay(time.Millisecond)
	err := config.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return transientErr("updateFile 503")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected success, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	config := DefaultRetryConfig().WithMaxAttempts(2).WithInitialDelay(time.Millisecond)
	err := config.Do(context.Background(), func() error {
		attempts++
		return transientErr("always fails")
	})

	if err == nil {
		t.Errorf("expected error after max attempts")
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryFailsFastOnNonRecoverable(t *testing.T) {
	attempts := 0
	config := DefaultRetryConfig().WithInitialDelay(time.Millisecond)
	err := config.Do(context.Background(), func() error {
		attempts++
		return errors.New(errors.CodeNotFound, "no such file", nil)
	})

	if err == nil {
		t.Errorf("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt for a non-recoverable error, got %d", attempts)
	}
}

func TestRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	config := DefaultRetryConfig().WithInitialDelay(time.Millisecond)
	attempts := 0
	err := config.Do(ctx, func() error {
		attempts++
		return transientErr("boom")
	})

	if err == nil {
		t.Errorf("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected the backoff wait before attempt 2 to observe the canceled context, got %d attempts", attempts)
	}
}
