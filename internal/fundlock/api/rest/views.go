package rest

import (
	"time"

	"github.com/topstarwebking/fundlock/internal/fundlock/domain"
	"github.com/topstarwebking/fundlock/internal/fundlock/service"
)

type planView struct {
	ID        int64  `json:"id"`
	Owner     string `json:"owner"`
	Unlocker  string `json:"unlocker"`
	Asset     string `json:"asset"`
	Amount    int64  `json:"amount"`
	CreatedAt string `json:"created_at"`
	UnlockAt  string `json:"unlock_at"`
	ExpiresAt string `json:"expires_at"`
	Claimed   bool   `json:"claimed"`
	State     string `json:"state"`
}

type planListView struct {
	Plans []planView `json:"plans"`
}

type countView struct {
	Count int64 `json:"count"`
}

type ownerView struct {
	Owner           string `json:"owner"`
	SettlementAsset string `json:"settlement_asset"`
}

type balanceView struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Balance int64  `json:"balance"`
}

type tokenListView struct {
	Tokens []string `json:"tokens"`
}

type mismatchView struct {
	Asset string `json:"asset"`
	Held  int64  `json:"held"`
	Owed  int64  `json:"owed"`
}

type reconciliationView struct {
	Balanced   bool           `json:"balanced"`
	Mismatches []mismatchView `json:"mismatches,omitempty"`
}

func toPlanView(plan domain.Plan, now time.Time) planView {
	return planView{
		ID:        plan.ID,
		Owner:     string(plan.Owner),
		Unlocker:  string(plan.Unlocker),
		Asset:     string(plan.Asset),
		Amount:    plan.Amount,
		CreatedAt: plan.CreatedAt.UTC().Format(time.RFC3339),
		UnlockAt:  plan.UnlockAt.UTC().Format(time.RFC3339),
		ExpiresAt: plan.ExpiresAt.UTC().Format(time.RFC3339),
		Claimed:   plan.Claimed,
		State:     string(plan.StateAt(now)),
	}
}

func toPlanListView(plans []domain.Plan, now time.Time) planListView {
	view := planListView{Plans: make([]planView, 0, len(plans))}
	for _, plan := range plans {
		view.Plans = append(view.Plans, toPlanView(plan, now))
	}
	return view
}

func toReconciliationView(report service.ReconciliationReport) reconciliationView {
	view := reconciliationView{Balanced: report.Balanced}
	for _, mismatch := range report.Mismatches {
		view.Mismatches = append(view.Mismatches, mismatchView{
			Asset: string(mismatch.Asset),
			Held:  mismatch.Held,
			Owed:  mismatch.Owed,
		})
	}
	return view
}
