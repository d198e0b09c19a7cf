package service

import (
	"context"
	"sort"

	apperrors "github.com/topstarwebking/fundlock/internal/errors"
	"github.com/topstarwebking/fundlock/internal/fundlock/domain"
)

// Mismatch is one asset whose treasury holding diverges from the sum of
// unclaimed plan amounts.
type Mismatch struct {
	Asset domain.Asset
	Held  int64
	Owed  int64
}

// ReconciliationReport compares treasury holdings against unclaimed plans.
type ReconciliationReport struct {
	Balanced   bool
	Mismatches []Mismatch
}

// Reconcile recomputes the custody invariant: for every asset, the treasury
// balance equals the sum of amounts over unclaimed plans holding that asset.
func (m *Manager) Reconcile(ctx context.Context) (ReconciliationReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	owed, err := m.store.UnclaimedTotals(ctx)
	if err != nil {
		return ReconciliationReport{}, apperrors.Wrap(apperrors.CodeUnknown, "unclaimed totals", err)
	}
	held, err := m.store.Balances(ctx, m.cfg.Treasury)
	if err != nil {
		return ReconciliationReport{}, apperrors.Wrap(apperrors.CodeUnknown, "treasury balances", err)
	}

	assets := make(map[domain.Asset]struct{}, len(owed)+len(held))
	for asset := range owed {
		assets[asset] = struct{}{}
	}
	for asset := range held {
		assets[asset] = struct{}{}
	}

	report := ReconciliationReport{Balanced: true}
	for asset := range assets {
		if held[asset] != owed[asset] {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Asset: asset,
				Held:  held[asset],
				Owed:  owed[asset],
			})
		}
	}
	if len(report.Mismatches) > 0 {
		report.Balanced = false
		sort.Slice(report.Mismatches, func(i, j int) bool {
			return report.Mismatches[i].Asset < report.Mismatches[j].Asset
		})
	}
	return report, nil
}
