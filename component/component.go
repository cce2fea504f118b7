package component

import "context"

type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health is one component's entry in /health and the startup summary.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a piece of infrastructure with a start/stop lifecycle.
// Name must be unique within a Registry.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is what a component reports about its configuration at
// startup, e.g. {Type: "database", Details: "sqlite:app.db pool=25/5"}.
// Secrets must not appear in it.
type Description struct {
	Name    string
	Type    string
	Details string
	Port    int
}

// Describable components appear under Infrastructure in the startup summary.
type Describable interface {
	Describe() Description
}

// Route is one HTTP route as listed in the startup summary.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider components list their routes in the startup summary.
type RouteProvider interface {
	Routes() []Route
}
