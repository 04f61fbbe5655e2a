package handler

import (
	"context"
	"net/http"

	"github.com/Rrens/sqlgate/internal/api/response"
)

// Pinger is anything whose connectivity gates readiness
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status including store connectivity
func ReadyCheck(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for name, dep := range deps {
			if err := dep.Ping(r.Context()); err != nil {
				response.Error(w, http.StatusServiceUnavailable, name+" not ready")
				return
			}
		}

		response.OK(w, map[string]string{
			"status": "ready",
		})
	}
}
