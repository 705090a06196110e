package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/skaul-dev/billextract/internal/common"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("http.respond.encode_failed", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, common.ErrUnavailable):
		status = http.StatusBadGateway
	}

	if status >= 500 {
		s.logger.Error("http.request.failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Warn("http.request.rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	s.respondJSON(w, status, errorResponse{Error: err.Error()})
}
