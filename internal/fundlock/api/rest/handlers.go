package rest

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/topstarwebking/fundlock/internal/errors"
	"github.com/topstarwebking/fundlock/internal/fundlock/domain"
	"github.com/topstarwebking/fundlock/internal/fundlock/service"
)

type lockNativeRequest struct {
	Unlocker            string `json:"unlocker"`
	Amount              int64  `json:"amount"`
	LockDurationSeconds int64  `json:"lock_duration_seconds"`
	ConvertToSettlement bool   `json:"convert_to_settlement"`
}

type lockTokenRequest struct {
	Asset               string `json:"asset"`
	Amount              int64  `json:"amount"`
	Unlocker            string `json:"unlocker"`
	LockDurationSeconds int64  `json:"lock_duration_seconds"`
	Convert             bool   `json:"convert"`
	ConvertTo           string `json:"convert_to,omitempty"`
}

type registerTokenRequest struct {
	Asset string `json:"asset"`
}

type fundAccountRequest struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  int64  `json:"amount"`
}

func (h *Handler) handleLockNative(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	var req lockNativeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	plan, err := h.manager.LockNative(r.Context(), caller, service.LockNativeInput{
		Unlocker:            domain.NormalizeAddress(req.Unlocker),
		Amount:              req.Amount,
		LockDuration:        time.Duration(req.LockDurationSeconds) * time.Second,
		ConvertToSettlement: req.ConvertToSettlement,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanView(plan, h.now()))
}

func (h *Handler) handleLockToken(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	var req lockTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	plan, err := h.manager.LockToken(r.Context(), caller, service.LockTokenInput{
		Asset:        domain.NormalizeAsset(req.Asset),
		Amount:       req.Amount,
		Unlocker:     domain.NormalizeAddress(req.Unlocker),
		LockDuration: time.Duration(req.LockDurationSeconds) * time.Second,
		Convert:      req.Convert,
		ConvertTo:    service.ConvertTarget(req.ConvertTo),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanView(plan, h.now()))
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := planID(w, r)
	if !ok {
		return
	}
	plan, err := h.manager.Claim(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanView(plan, h.now()))
}

func (h *Handler) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := planID(w, r)
	if !ok {
		return
	}
	plan, err := h.manager.GetPlan(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanView(plan, h.now()))
}

func (h *Handler) handleListPlans(w http.ResponseWriter, r *http.Request) {
	owner := domain.NormalizeAddress(r.URL.Query().Get("owner"))
	unlocker := domain.NormalizeAddress(r.URL.Query().Get("unlocker"))
	switch {
	case owner != "" && unlocker != "":
		writeJSONError(w, http.StatusBadRequest, string(apperrors.CodeInvalidInput), "owner and unlocker filters are exclusive")
	case owner != "":
		plans, err := h.manager.PlansByOwner(r.Context(), owner)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPlanListView(plans, h.now()))
	case unlocker != "":
		plans, err := h.manager.PlansByUnlocker(r.Context(), unlocker)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPlanListView(plans, h.now()))
	default:
		writeJSONError(w, http.StatusBadRequest, string(apperrors.CodeInvalidInput), "owner or unlocker filter is required")
	}
}

func (h *Handler) handleUnclaimedPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.manager.UnclaimedPlans(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanListView(plans, h.now()))
}

func (h *Handler) handlePlanCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.manager.TotalPlanCount(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countView{Count: count})
}

func (h *Handler) handleOwner(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ownerView{
		Owner:           string(h.manager.Owner()),
		SettlementAsset: string(h.manager.SettlementAsset()),
	})
}

func (h *Handler) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	var req registerTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.manager.RegisterToken(r.Context(), caller, domain.NormalizeAsset(req.Asset)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"asset": strings.ToLower(strings.TrimSpace(req.Asset))})
}

func (h *Handler) handleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.manager.RegisteredTokens(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	view := tokenListView{Tokens: make([]string, 0, len(tokens))}
	for _, token := range tokens {
		view.Tokens = append(view.Tokens, string(token))
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleFundAccount(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	var req fundAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account := domain.NormalizeAddress(req.Account)
	asset := domain.NormalizeAsset(req.Asset)
	if err := h.manager.FundAccount(r.Context(), caller, account, asset, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	balance, err := h.manager.Balance(r.Context(), account, asset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceView{Account: string(account), Asset: string(asset), Balance: balance})
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	account := domain.NormalizeAddress(r.PathValue("account"))
	asset := domain.NormalizeAsset(r.URL.Query().Get("asset"))
	if account == "" || asset == "" {
		writeJSONError(w, http.StatusBadRequest, string(apperrors.CodeInvalidInput), "account and asset are required")
		return
	}
	balance, err := h.manager.Balance(r.Context(), account, asset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceView{Account: string(account), Asset: string(asset), Balance: balance})
}

func (h *Handler) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	report, err := h.manager.Reconcile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReconciliationView(report))
}

func planID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, string(apperrors.CodeInvalidInput), "plan id must be a positive integer")
		return 0, false
	}
	return id, true
}
