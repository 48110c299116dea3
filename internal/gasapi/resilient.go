package gasapi

import (
	"context"
	"time"

	"github.com/gas-mcp/gas-mcp-server/internal/resilience"
)

// ResilientClient wraps a Client with retry, a circuit breaker, and a
// per-call timeout, so GitOperationManager and the strategies never see
// a raw transient failure: rate limiting/retry tuning is layered here
// rather than hardcoded into any one caller.
type ResilientClient struct {
	inner   Client
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	timeout time.Duration
}

// NewResilientClient wraps inner. maxAttempts and circuitFailureMax of 0
// fall back to resilience's own defaults; requestTimeout of 0 disables
// the per-call timeout.
func NewResilientClient(inner Client, maxAttempts, circuitFailureMax int, requestTimeout time.Duration) *ResilientClient {
	retry := resilience.DefaultRetryConfig()
	if maxAttempts > 0 {
		retry = retry.WithMaxAttempts(maxAttempts)
	}
	breakerCfg := resilience.CircuitBreakerConfig{}
	if circuitFailureMax > 0 {
		breakerCfg.FailureThreshold = circuitFailureMax
	}
	return &ResilientClient{
		inner:   inner,
		retry:   retry,
		breaker: resilience.NewCircuitBreaker(breakerCfg),
		timeout: requestTimeout,
	}
}

func (c *ResilientClient) call(ctx context.Context, fn func(context.Context) error) error {
	return c.breaker.Call(ctx, func() error {
		return c.retry.Do(ctx, func() error {
			if c.timeout <= 0 {
				return fn(ctx)
			}
			return resilience.WithTimeout(ctx, resilience.TimeoutConfig{Duration: c.timeout}, func() error {
				return fn(ctx)
			})
		})
	})
}

func (c *ResilientClient) ListContent(ctx context.Context, scriptID string) ([]File, error) {
	var out []File
	err := c.call(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = c.inner.ListContent(ctx, scriptID)
		return callErr
	})
	return out, err
}

func (c *ResilientClient) GetMetadata(ctx context.Context, scriptID string) ([]File, error) {
	var out []File
	err := c.call(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = c.inner.GetMetadata(ctx, scriptID)
		return callErr
	})
	return out, err
}

func (c *ResilientClient) UpdateFile(ctx context.Context, scriptID string, file File, position int) ([]File, error) {
	var out []File
	err := c.call(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = c.inner.UpdateFile(ctx, scriptID, file, position)
		return callErr
	})
	return out, err
}

func (c *ResilientClient) DeleteFile(ctx context.Context, scriptID, name string) error {
	return c.call(ctx, func(ctx context.Context) error {
		return c.inner.DeleteFile(ctx, scriptID, name)
	})
}

func (c *ResilientClient) Reorder(ctx context.Context, scriptID string, orderedNames []string) error {
	return c.call(ctx, func(ctx context.Context) error {
		return c.inner.Reorder(ctx, scriptID, orderedNames)
	})
}

func (c *ResilientClient) CreateVersion(ctx context.Context, scriptID, description string) (Version, error) {
	var out Version
	err := c.call(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = c.inner.CreateVersion(ctx, scriptID, description)
		return callErr
	})
	return out, err
}

func (c *ResilientClient) CreateDeployment(ctx context.Context, scriptID string, versionNum int64, description string) (Deployment, error) {
	var out Deployment
	err := c.call(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = c.inner.CreateDeployment(ctx, scriptID, versionNum, description)
		return callErr
	})
	return out, err
}

func (c *ResilientClient) UpdateDeployment(ctx context.Context, scriptID, deploymentID string, versionNum int64, description string) (Deployment, error) {
	var out Deployment
	err := c.call(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = c.inner.UpdateDeployment(ctx, scriptID, deploymentID, versionNum, description)
		return callErr
	})
	return out, err
}

func (c *ResilientClient) ListDeployments(ctx context.Context, scriptID string) ([]Deployment, error) {
	var out []Deployment
	err := c.call(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = c.inner.ListDeployments(ctx, scriptID)
		return callErr
	})
	return out, err
}

func (c *ResilientClient) FindHeadDeployment(ctx context.Context, scriptID string) (Deployment, error) {
	var out Deployment
	err := c.call(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = c.inner.FindHeadDeployment(ctx, scriptID)
		return callErr
	})
	return out, err
}

func (c *ResilientClient) Execute(ctx context.Context, scriptID, functionName string, parameters []interface{}) (ExecResult, error) {
	var out ExecResult
	err := c.call(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = c.inner.Execute(ctx, scriptID, functionName, parameters)
		return callErr
	})
	return out, err
}
