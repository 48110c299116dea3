package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
)

// RetryConfig controls retry behavior with exponential backoff.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	IsRecoverable func(error) bool
	Jitter        float64
}

// DefaultRetryConfig is tuned for GasApi calls: a handful of quick
// attempts, since the caller (Core) is usually itself inside a
// lock-held critical section and shouldn't stall it for long.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		Multiplier:    2.0,
		Jitter:        0.1,
		IsRecoverable: isRecoverableDefault,
	}
}

func (rc RetryConfig) WithMaxAttempts(max int) RetryConfig {
	rc.MaxAttempts = max
	return rc
}

func (rc RetryConfig) WithInitialDelay(d time.Duration) RetryConfig {
	rc.InitialDelay = d
	return rc
}

// Do executes fn with retry logic, returning the last error if every
// attempt fails or the first non-recoverable error encountered.
func (rc RetryConfig) Do(ctx context.Context, fn func() error) error {
	if rc.MaxAttempts < 1 {
		rc.MaxAttempts = 1
	}
	if rc.IsRecoverable == nil {
		rc.IsRecoverable = isRecoverableDefault
	}

	var lastErr error
	for attempt := 0; attempt < rc.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt, rc)
			select {
			case <-ctx.Done():
				return errors.New(errors.CodeTransient, "context canceled during retry", ctx.Err()).
					WithContext("attempt", attempt).
					WithContext("max_attempts", rc.MaxAttempts)
			case <-time.After(delay):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if !rc.IsRecoverable(err) {
			return err
		}
	}

	return lastErr
}

func calculateBackoff(attempt int, rc RetryConfig) time.Duration {
	if rc.Multiplier == 0 {
		rc.Multiplier = 2.0
	}

	delay := time.Duration(float64(rc.InitialDelay) * math.Pow(rc.Multiplier, float64(attempt)))
	if delay > rc.MaxDelay {
		delay = rc.MaxDelay
	}

	if rc.Jitter > 0 {
		jitterAmount := delay.Seconds() * rc.Jitter
		jitterRange := 2 * jitterAmount * (rand.Float64() - 0.5)
		delay = time.Duration(float64(delay) + jitterRange*1e9)
		if delay < 0 {
			delay = 0
		}
	}

	return delay
}

// isRecoverableDefault retries only a *errors.GasMCPError (returned
// directly, not wrapped) whose Recoverable flag is set: CodeTransient and
// CodeLockTimeout by default, plus errors a caller marked recoverable, such
// as gasapi's rate-limit errors. Everything else (validation, not-found,
// permission, plain errors) fails fast.
func isRecoverableDefault(err error) bool {
	if err == nil {
		return false
	}
	if ge, ok := err.(*errors.GasMCPError); ok {
		return ge.Recoverable
	}
	return false
}
