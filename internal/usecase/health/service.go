package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	search SearchPinger
	server ServerChecker
}

// New creates a Service. server is nil when no local server is supervised.
func New(search SearchPinger, server ServerChecker) *Service {
	return &Service{search: search, server: server}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.search.Ping(ctx); err != nil {
		checks["search"] = CheckError
	} else {
		checks["search"] = CheckOK
	}

	if s.server != nil {
		if err := s.server.HealthCheck(ctx); err != nil {
			checks["server"] = CheckError
		} else {
			checks["server"] = CheckOK
		}
	}

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
