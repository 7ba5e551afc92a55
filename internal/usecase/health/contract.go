package health

import "context"

// SearchPinger checks search service availability.
type SearchPinger interface {
	Ping(ctx context.Context) error
}

// ServerChecker checks the locally supervised search server process.
type ServerChecker interface {
	HealthCheck(ctx context.Context) error
}
