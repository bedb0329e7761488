package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/aurablacklight/docker-dive-web-ui/lib/dive"
	"github.com/aurablacklight/docker-dive-web-ui/lib/inspect"
	"github.com/aurablacklight/docker-dive-web-ui/lib/logger"
)

// imageParam extracts and decodes the image reference path parameter.
// References like "library/nginx:latest" arrive percent-encoded.
func imageParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "imageName")
	return url.PathUnescape(raw)
}

// InspectHandler starts (or joins) an inspection and blocks until it
// completes. ?refresh=1 bypasses the result cache.
func (s *ApiService) InspectHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	image, err := imageParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_reference", "malformed image name encoding")
		return
	}

	refresh := r.URL.Query().Get("refresh") == "1" || r.URL.Query().Get("refresh") == "true"

	result, err := s.InspectManager.Inspect(ctx, image, refresh)
	if err != nil {
		s.writeInspectError(w, r, image, err)
		return
	}

	log.InfoContext(ctx, "inspection served", "image", result.Image, "cached", result.Cached)
	writeJSON(w, r, http.StatusOK, result)
}

// StatusHandler returns the current progress record for an image.
func (s *ApiService) StatusHandler(w http.ResponseWriter, r *http.Request) {
	image, err := imageParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_reference", "malformed image name encoding")
		return
	}

	progress, err := s.InspectManager.Progress(image)
	if err != nil {
		switch {
		case errors.Is(err, inspect.ErrInvalidReference):
			writeError(w, r, http.StatusBadRequest, "invalid_reference", err.Error())
		case errors.Is(err, inspect.ErrNoProgress):
			writeError(w, r, http.StatusNotFound, "not_found", "no inspection in progress for image")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to read progress")
		}
		return
	}

	writeJSON(w, r, http.StatusOK, progress)
}

func (s *ApiService) writeInspectError(w http.ResponseWriter, r *http.Request, image string, err error) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	switch {
	case errors.Is(err, inspect.ErrInvalidReference):
		writeError(w, r, http.StatusBadRequest, "invalid_reference", err.Error())
	case errors.Is(err, inspect.ErrImageNotFound):
		writeError(w, r, http.StatusNotFound, "image_not_found", "image not found locally or in registry")
	case errors.Is(err, dive.ErrToolNotFound):
		writeError(w, r, http.StatusUnprocessableEntity, "tool_not_found", "dive binary is not available")
	case errors.Is(err, dive.ErrTimeout):
		writeError(w, r, http.StatusGatewayTimeout, "analysis_timeout", "analysis exceeded the configured timeout")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		log.ErrorContext(ctx, "inspection failed", "image", image, "error", err)
		writeError(w, r, http.StatusInternalServerError, "analysis_failed", err.Error())
	}
}
