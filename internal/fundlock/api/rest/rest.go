// Package rest exposes the fundlock manager over a JSON HTTP API.
//
// Every mutating endpoint authenticates the caller with a bearer token; the
// token subject is the on-ledger address the operation acts as.
package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	apperrors "github.com/topstarwebking/fundlock/internal/errors"
	"github.com/topstarwebking/fundlock/internal/fundlock/auth"
	"github.com/topstarwebking/fundlock/internal/fundlock/service"
)

// Handler serves the fundlock HTTP API.
type Handler struct {
	manager  *service.Manager
	verifier auth.VerifierConfig
	now      func() time.Time
}

// New creates an API handler over the given manager.
func New(manager *service.Manager, verifier auth.VerifierConfig) (*Handler, error) {
	if manager == nil {
		return nil, errors.New("manager is required")
	}
	return &Handler{manager: manager, verifier: verifier, now: time.Now}, nil
}

// WithClock overrides the handler's time source. Intended for tests.
func (h *Handler) WithClock(clock func() time.Time) *Handler {
	if clock != nil {
		h.now = clock
	}
	return h
}

type errorResponse struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, errorResponse{Error: code, ErrorDescription: description})
}

// writeError maps an application error onto the HTTP surface. Unknown errors
// are logged and surfaced as a generic 500 so internals do not leak.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		status := appErr.Code.HTTPStatus()
		if status == http.StatusInternalServerError {
			log.Printf("rest: internal error: %v", err)
			writeJSONError(w, status, string(apperrors.CodeUnknown), "internal error")
			return
		}
		writeJSON(w, status, errorResponse{
			Error:            string(appErr.Code),
			ErrorDescription: appErr.Message,
			Metadata:         appErr.Metadata,
		})
		return
	}
	log.Printf("rest: internal error: %v", err)
	writeJSONError(w, http.StatusInternalServerError, string(apperrors.CodeUnknown), "internal error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeJSONError(w, http.StatusBadRequest, string(apperrors.CodeInvalidInput), "invalid request body")
		return false
	}
	return true
}
