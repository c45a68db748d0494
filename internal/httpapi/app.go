// Package httpapi exposes the generation pipeline, the shared job queue and
// the local history over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"videogen/internal/domain"
	"videogen/internal/history"
	"videogen/internal/infra"
	"videogen/internal/jobstore"
	"videogen/internal/orchestrator"
	"videogen/internal/storage"
)

// App bundles the handler dependencies.
type App struct {
	Logger  *infra.Logger
	Session *orchestrator.Session
	Jobs    jobstore.Store
	Sink    history.EventSink

	History *history.Store
	Search  *history.SearchStore
	CSV     *history.CSVStore
	Queue   *history.CloudQueue
	Videos  *storage.VideoStore
}

func (a *App) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.Logger.Error().Err(err).Msg("httpapi: encode response failed")
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// respondError maps domain errors onto distinct status codes so clients can
// tell a bad request from a saturated or unreachable backend.
func (a *App) respondError(w http.ResponseWriter, err error) {
	var status int
	var kind string
	switch {
	case errors.Is(err, domain.ErrInvalidPrompt):
		status, kind = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrRegenerateExhausted):
		status, kind = http.StatusTooManyRequests, "regenerate_exhausted"
	case errors.Is(err, domain.ErrUnavailable):
		status, kind = http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, domain.ErrMissingCredentials), errors.Is(err, domain.ErrUnsupportedModel):
		status, kind = http.StatusServiceUnavailable, "misconfigured"
	case errors.Is(err, domain.ErrProviderFailure):
		status, kind = http.StatusBadGateway, "provider_failure"
	default:
		status, kind = http.StatusInternalServerError, "internal"
	}

	if status >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).Msg("httpapi: request failed")
	}
	a.respondJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func (a *App) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		a.respondJSON(w, http.StatusBadRequest, errorResponse{
			Error: "invalid json body: " + err.Error(),
			Kind:  "invalid_request",
		})
		return false
	}
	return true
}
