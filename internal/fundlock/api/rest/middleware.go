package rest

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/topstarwebking/fundlock/internal/errors"
	"github.com/topstarwebking/fundlock/internal/fundlock/auth"
	"github.com/topstarwebking/fundlock/internal/fundlock/domain"
)

// requestIDHeader carries the per-request correlation id.
const requestIDHeader = "X-Request-Id"

// withRequestID assigns a correlation id to every request that lacks one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the bearer token into a caller address.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		writeJSONError(w, http.StatusUnauthorized, string(apperrors.CodeUnauthorized), "bearer token is required")
		return "", false
	}
	caller, err := auth.Verify(token, h.verifier)
	if err != nil {
		writeError(w, err)
		return "", false
	}
	return caller.Address, true
}
