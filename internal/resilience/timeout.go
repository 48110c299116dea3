package resilience

import (
	"context"
	"time"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
)

// TimeoutConfig bounds a single operation's wall-clock time.
type TimeoutConfig struct {
	Duration time.Duration
}

// WithTimeout executes fn with a deadline. gasapi.ResilientClient uses it
// to bound each GasApi HTTP call; git subprocesses are not run through it.
func WithTimeout(ctx context.Context, config TimeoutConfig, fn func() error) error {
	if config.Duration == 0 {
		return fn()
	}

	ctx, cancel := context.WithTimeout(ctx, config.Duration)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case <-ctx.Done():
		return errors.New(errors.CodeTransient, "operation exceeded timeout", ctx.Err()).
			WithContext("timeout", config.Duration.String())
	case err := <-done:
		return err
	}
}
