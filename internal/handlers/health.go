package handlers

import (
	"context"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/spendwise/pkg/http"
)

// Dependency is a backing service reported by the health check
type Dependency struct {
	Name  string
	Check func(ctx context.Context) error
}

const healthCheckTimeout = 2 * time.Second

// HealthHandler reports whether the database and session store respond
type HealthHandler struct {
	deps []Dependency
}

func NewHealthHandler(deps ...Dependency) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := map[string]string{"status": "healthy"}
	code := http.StatusOK
	for _, dep := range h.deps {
		if err := dep.Check(ctx); err != nil {
			status[dep.Name] = "down"
			status["status"] = "unhealthy"
			code = http.StatusServiceUnavailable
			continue
		}
		status[dep.Name] = "up"
	}

	pkghttp.WriteJSON(w, code, status)
}
