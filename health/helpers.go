package health

import (
	"fmt"
	"time"

	"github.com/c360/nodegate/dispatch"
)

// NewHealthy creates a new healthy status
func NewHealthy(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   true,
		Status:    StatusHealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewUnhealthy creates a new unhealthy status
func NewUnhealthy(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   false,
		Status:    StatusUnhealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewDegraded creates a new degraded status
func NewDegraded(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   false,
		Status:    StatusDegraded,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Aggregate creates a status by aggregating sub-statuses
// The aggregation rules are:
// - If all sub-statuses are healthy, the aggregate is healthy
// - If any sub-status is unhealthy, the aggregate is unhealthy
// - If no sub-status is unhealthy but at least one is degraded, the aggregate is degraded
func Aggregate(component string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return NewHealthy(component, "No sub-components to aggregate")
	}

	hasUnhealthy := false
	hasDegraded := false

	for _, sub := range subStatuses {
		if sub.IsUnhealthy() {
			hasUnhealthy = true
		} else if sub.IsDegraded() {
			hasDegraded = true
		}
	}

	var status Status
	if hasUnhealthy {
		status = NewUnhealthy(component, "One or more sub-components are unhealthy")
	} else if hasDegraded {
		status = NewDegraded(component, "One or more sub-components are degraded")
	} else {
		status = NewHealthy(component, "All sub-components are healthy")
	}

	status.SubStatuses = make([]Status, len(subStatuses))
	copy(status.SubStatuses, subStatuses)

	return status
}

// FromModules aggregates module checks. Modules are redundant backends, so a
// partial outage is degraded rather than unhealthy:
// - all reachable (or no modules registered) → healthy
// - some reachable → degraded
// - none reachable → unhealthy
func FromModules(component string, results []dispatch.ModuleHealth) Status {
	subStatuses := make([]Status, 0, len(results))
	reachable := 0
	for _, mh := range results {
		if mh.Reachable {
			reachable++
		}
		subStatuses = append(subStatuses, FromModuleHealth(mh))
	}

	var status Status
	switch {
	case len(results) == 0:
		status = NewHealthy(component, "No modules registered")
	case reachable == len(results):
		status = NewHealthy(component, fmt.Sprintf("All %d modules reachable", reachable))
	case reachable > 0:
		status = NewDegraded(component, fmt.Sprintf("%d of %d modules reachable", reachable, len(results)))
	default:
		status = NewUnhealthy(component, "No modules reachable")
	}

	if len(subStatuses) > 0 {
		status.SubStatuses = subStatuses
	}
	return status
}
