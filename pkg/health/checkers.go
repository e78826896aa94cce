package health

import (
	"context"
	"time"

	"github.com/nimburion/docspec/pkg/store/mongodb"
)

// DefaultTimeout bounds a check when no timeout is given.
const DefaultTimeout = 5 * time.Second

// Checkable is an interface for components that support health checks
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// AdapterChecker creates a health checker for any component that implements Checkable
type AdapterChecker struct {
	name     string
	adapter  Checkable
	timeout  time.Duration
	metadata func() map[string]any
}

// NewAdapterChecker creates a new health checker for an adapter
func NewAdapterChecker(name string, adapter Checkable, timeout time.Duration) *AdapterChecker {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &AdapterChecker{
		name:    name,
		adapter: adapter,
		timeout: timeout,
	}
}

// NewMongoDBChecker checks every client of registry. Results carry the registered aliases.
func NewMongoDBChecker(registry *mongodb.Registry, timeout time.Duration) *AdapterChecker {
	c := NewAdapterChecker("mongodb", registry, timeout)
	c.metadata = func() map[string]any {
		return map[string]any{"aliases": registry.Aliases()}
	}
	return c
}

// Check performs the health check on the adapter
func (c *AdapterChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.adapter.HealthCheck(checkCtx)
	result := CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Message:   "OK",
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = ""
		result.Error = err.Error()
	}
	if c.metadata != nil {
		result.Metadata = c.metadata()
	}
	return result
}

// Name returns the name of the health check
func (c *AdapterChecker) Name() string {
	return c.name
}
