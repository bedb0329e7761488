package api

import "net/http"

// HealthHandler reports whether the dive binary and Docker engine are
// reachable. Degraded dependencies return 200 with per-dependency
// detail so operators can tell which side is down.
func (s *ApiService) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.InspectManager.Health(r.Context())
	writeJSON(w, r, http.StatusOK, health)
}
