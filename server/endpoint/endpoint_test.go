package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/usersvc/component"
)

func checker(statuses ...component.HealthStatus) HealthChecker {
	return func(context.Context) []component.Health {
		out := make([]component.Health, len(statuses))
		for i, s := range statuses {
			out[i] = component.Health{Name: string(s), Status: s}
		}
		return out
	}
}

func serve(h gin.HandlerFunc) (int, map[string]any) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", h)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	var body map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	return rr.Code, body
}

func TestHealthRollup(t *testing.T) {
	tests := []struct {
		name      string
		checker   HealthChecker
		code      int
		status    string
		readiness string
	}{
		{"no checker", nil, http.StatusOK, "healthy", "ready"},
		{"all healthy", checker(component.StatusHealthy), http.StatusOK, "healthy", "ready"},
		{"degraded", checker(component.StatusHealthy, component.StatusDegraded), http.StatusOK, "degraded", "ready"},
		{"unhealthy wins", checker(component.StatusDegraded, component.StatusUnhealthy), http.StatusServiceUnavailable, "unhealthy", "not_ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := serve(Health("usersvc", tt.checker))
			if code != tt.code || body["status"] != tt.status {
				t.Errorf("health = %d %v, want %d %s", code, body["status"], tt.code, tt.status)
			}
			code, body = serve(Readiness("usersvc", tt.checker))
			if code != tt.code || body["status"] != tt.readiness {
				t.Errorf("readiness = %d %v, want %d %s", code, body["status"], tt.code, tt.readiness)
			}
		})
	}
}

func TestLivenessAndInfo(t *testing.T) {
	if code, body := serve(Liveness("usersvc")); code != http.StatusOK || body["status"] != "alive" {
		t.Errorf("liveness = %d %v", code, body)
	}
	code, body := serve(Info("usersvc"))
	if code != http.StatusOK || body["service"] != "usersvc" || body["version"] == "" {
		t.Errorf("info = %d %v", code, body)
	}
}
