package api

import (
	"encoding/json"
	"net/http"

	"github.com/aurablacklight/docker-dive-web-ui/cmd/api/config"
	"github.com/aurablacklight/docker-dive-web-ui/lib/inspect"
	"github.com/aurablacklight/docker-dive-web-ui/lib/logger"
)

// ApiService holds the handlers for the inspection API.
type ApiService struct {
	Config         *config.Config
	InspectManager inspect.Manager
}

// New creates a new ApiService
func New(config *config.Config, inspectManager inspect.Manager) *ApiService {
	return &ApiService{
		Config:         config,
		InspectManager: inspectManager,
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log := logger.FromContext(r.Context())
		log.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, r, status, apiError{Code: code, Message: message})
}
