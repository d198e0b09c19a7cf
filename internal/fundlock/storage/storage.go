// Package storage defines persistence contracts for fund-locking state.
package storage

import (
	"context"
	"errors"

	"github.com/topstarwebking/fundlock/internal/fundlock/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyClaimed indicates the plan's write-once claimed flag is already set.
	ErrAlreadyClaimed = errors.New("plan already claimed")
	// ErrInsufficientFunds indicates a balance movement would drive an account negative.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Entry is one signed balance movement. Movements passed alongside a plan
// mutation commit in the same transaction as the mutation, so custody and
// plan state can never diverge.
type Entry struct {
	Account domain.Address
	Asset   domain.Asset
	Delta   int64
}

// PlanStore persists plans and their custody movements.
type PlanStore interface {
	// AppendPlan inserts a new plan, applies movements, and returns the
	// assigned id. IDs are dense, strictly increasing, and never reused.
	AppendPlan(ctx context.Context, plan domain.Plan, movements []Entry) (int64, error)
	// GetPlan returns one plan by id, or ErrNotFound.
	GetPlan(ctx context.Context, id int64) (domain.Plan, error)
	// SettleClaim sets the claimed flag and applies the disbursement in one
	// transaction. The flag is set before any movement applies and the call
	// fails with ErrAlreadyClaimed when it was already set.
	SettleClaim(ctx context.Context, id int64, movements []Entry) error
	// ListPlansByOwner returns every plan created by owner, in creation order.
	ListPlansByOwner(ctx context.Context, owner domain.Address) ([]domain.Plan, error)
	// ListPlansByUnlocker returns every plan claimable by unlocker, in creation order.
	ListPlansByUnlocker(ctx context.Context, unlocker domain.Address) ([]domain.Plan, error)
	// ListUnclaimedPlans returns every plan with claimed == false, in creation
	// order, regardless of timing.
	ListUnclaimedPlans(ctx context.Context) ([]domain.Plan, error)
	// CountPlans returns the total number of plans ever created.
	CountPlans(ctx context.Context) (int64, error)
	// UnclaimedTotals returns the sum of unclaimed plan amounts per asset.
	UnclaimedTotals(ctx context.Context) (map[domain.Asset]int64, error)
}

// TokenRegistry persists the set of admitted fungible-token assets.
type TokenRegistry interface {
	// RegisterToken admits an asset for deposits. Registering an already
	// admitted asset is a no-op.
	RegisterToken(ctx context.Context, asset domain.Asset) error
	// IsRegistered reports membership.
	IsRegistered(ctx context.Context, asset domain.Asset) (bool, error)
	// ListRegisteredTokens returns admitted assets in registration order.
	ListRegisteredTokens(ctx context.Context) ([]domain.Asset, error)
}

// Ledger tracks asset balances for external accounts and the treasury.
type Ledger interface {
	// Credit adds amount of asset to an account. Amount must be positive.
	Credit(ctx context.Context, account domain.Address, asset domain.Asset, amount int64) error
	// Balance returns the account's balance for one asset (zero when absent).
	Balance(ctx context.Context, account domain.Address, asset domain.Asset) (int64, error)
	// Balances returns every non-zero balance held by an account.
	Balances(ctx context.Context, account domain.Address) (map[domain.Asset]int64, error)
}

// Store combines the persistence contracts the plan manager depends on.
type Store interface {
	PlanStore
	TokenRegistry
	Ledger
}
