package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/logger"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.WarnWith("failed to encode response", err, nil)
	}
}

// writeError answers with the status mapped from the error kind and logs the
// failure on the request logger.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	msg := err.Error()
	var e *errs.Error
	if errors.As(err, &e) {
		msg = e.Message
	}
	status := statusOf(kind)

	log := logger.FromContext(r.Context())
	fields := map[string]interface{}{"kind": kind.String(), "status": status}
	if status >= http.StatusInternalServerError {
		log.ErrorWith("request failed", err, fields)
	} else {
		log.WarnWith("request rejected", err, fields)
	}
	s.writeJSON(w, status, errorBody{Error: kind.String(), Message: msg})
}

func statusOf(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindSketchMismatch:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
