package rest

import "net/http"

// Routes mounts every API endpoint on mux and returns the wrapped handler.
func (h *Handler) Routes(mux *http.ServeMux) http.Handler {
	mux.HandleFunc("POST /v1/tokens/register", h.handleRegisterToken)
	mux.HandleFunc("GET /v1/tokens", h.handleListTokens)
	mux.HandleFunc("POST /v1/plans/native", h.handleLockNative)
	mux.HandleFunc("POST /v1/plans/token", h.handleLockToken)
	mux.HandleFunc("POST /v1/plans/{id}/claim", h.handleClaim)
	mux.HandleFunc("GET /v1/plans/unclaimed", h.handleUnclaimedPlans)
	mux.HandleFunc("GET /v1/plans/count", h.handlePlanCount)
	mux.HandleFunc("GET /v1/plans/{id}", h.handleGetPlan)
	mux.HandleFunc("GET /v1/plans", h.handleListPlans)
	mux.HandleFunc("GET /v1/owner", h.handleOwner)
	mux.HandleFunc("GET /v1/reconciliation", h.handleReconciliation)
	mux.HandleFunc("POST /v1/accounts/fund", h.handleFundAccount)
	mux.HandleFunc("GET /v1/accounts/{account}/balance", h.handleBalance)
	return withRequestID(mux)
}
