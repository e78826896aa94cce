package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// CheckResult represents the result of a health check
type CheckResult struct {
	Name      string         `json:"name"`
	Status    Status         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Duration  time.Duration  `json:"duration"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Checker is the interface that health check implementations must satisfy
type Checker interface {
	// Check performs the health check and returns the result
	Check(ctx context.Context) CheckResult

	// Name returns the name of the health check
	Name() string
}

// Registry manages a collection of health checks
type Registry struct {
	checkers map[string]Checker
	mu       sync.RWMutex
}

// NewRegistry creates a new health check registry
func NewRegistry() *Registry {
	return &Registry{
		checkers: make(map[string]Checker),
	}
}

// Register adds a health check to the registry
// If a checker with the same name already exists, it will be replaced
func (r *Registry) Register(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[checker.Name()] = checker
}

// Check runs all registered health checks concurrently. Results are ordered by name.
// If any check fails, the overall status is unhealthy
func (r *Registry) Check(ctx context.Context) AggregatedResult {
	r.mu.RLock()
	checkers := make([]Checker, 0, len(r.checkers))
	for _, checker := range r.checkers {
		checkers = append(checkers, checker)
	}
	r.mu.RUnlock()

	start := time.Now()
	results := make([]CheckResult, len(checkers))
	var wg sync.WaitGroup
	for i, checker := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = checker.Check(ctx)
		}()
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	overallStatus := StatusHealthy
	for _, result := range results {
		if result.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
		} else if result.Status == StatusDegraded && overallStatus == StatusHealthy {
			overallStatus = StatusDegraded
		}
	}

	return AggregatedResult{
		Status:    overallStatus,
		Checks:    results,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}
}

// CheckOne runs a specific health check by name
func (r *Registry) CheckOne(ctx context.Context, name string) (CheckResult, error) {
	r.mu.RLock()
	checker, exists := r.checkers[name]
	r.mu.RUnlock()

	if !exists {
		return CheckResult{}, fmt.Errorf("health check not found: %s", name)
	}
	return checker.Check(ctx), nil
}

// List returns the sorted names of all registered health checks
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.checkers))
	for name := range r.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AggregatedResult represents the aggregated result of all health checks
type AggregatedResult struct {
	Status    Status        `json:"status"`
	Checks    []CheckResult `json:"checks"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// IsHealthy returns true if the overall status is healthy
func (r AggregatedResult) IsHealthy() bool {
	return r.Status == StatusHealthy
}
