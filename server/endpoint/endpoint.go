package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/usersvc/component"
	"github.com/kbukum/usersvc/version"
)

// HealthChecker reports the health of every registered component.
// component.Registry.HealthAll satisfies it.
type HealthChecker func(ctx context.Context) []component.Health

var started = time.Now()

func now() string { return time.Now().UTC().Format(time.RFC3339) }

// rollup folds component statuses into one: any unhealthy component wins,
// then any degraded one.
func rollup(ctx context.Context, checker HealthChecker) (component.HealthStatus, []component.Health) {
	if checker == nil {
		return component.StatusHealthy, nil
	}
	components := checker(ctx)
	overall := component.StatusHealthy
	for _, h := range components {
		switch h.Status {
		case component.StatusUnhealthy:
			return component.StatusUnhealthy, components
		case component.StatusDegraded:
			overall = component.StatusDegraded
		}
	}
	return overall, components
}

// Health reports the overall status plus each component's. It answers 503
// when a component is unhealthy.
func Health(service string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, components := rollup(c.Request.Context(), checker)
		code := http.StatusOK
		if status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":     status,
			"service":    service,
			"timestamp":  now(),
			"components": components,
		})
	}
}

// Liveness answers 200 while the process can serve HTTP at all.
func Liveness(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive", "service": service, "timestamp": now()})
	}
}

// Readiness answers 503 "not_ready" while any component is unhealthy.
// A degraded component still counts as ready.
func Readiness(service string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, _ := rollup(c.Request.Context(), checker)
		if status == component.StatusUnhealthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "service": service, "timestamp": now()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "service": service, "timestamp": now()})
	}
}

// Info reports build metadata and uptime.
func Info(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := version.Get()
		c.JSON(http.StatusOK, gin.H{
			"service":    service,
			"version":    v.Version,
			"commit":     v.Commit,
			"build_time": v.BuildTime,
			"go_version": v.GoVersion,
			"release":    v.Release(),
			"uptime":     time.Since(started).Round(time.Second).String(),
			"timestamp":  now(),
		})
	}
}
