// Package domain holds the fund-locking entities and the plan state machine.
package domain

import (
	"time"

	apperrors "github.com/topstarwebking/fundlock/internal/errors"
)

// State classifies a plan at a point in time. Only Claimed is stored; the
// time-dependent states are derived from the plan's timestamps on read.
type State string

const (
	// StateCreated is an unclaimed plan before its unlock time.
	StateCreated State = "CREATED"
	// StateUnlockable is an unclaimed plan inside its claim window.
	StateUnlockable State = "UNLOCKABLE"
	// StateExpired is an unclaimed plan at or past its expiry time.
	StateExpired State = "EXPIRED"
	// StateClaimed is the terminal state.
	StateClaimed State = "CLAIMED"
)

// Plan is a single locked-deposit record. Every field except Claimed is
// immutable after creation; Claimed transitions false to true exactly once.
type Plan struct {
	ID        int64
	Owner     Address
	Unlocker  Address
	Asset     Asset
	Amount    int64
	CreatedAt time.Time
	UnlockAt  time.Time
	ExpiresAt time.Time
	Claimed   bool
}

// NewPlanInput describes a deposit that has already been converted (when
// requested), so Asset and Amount are the held values.
type NewPlanInput struct {
	Owner        Address
	Unlocker     Address
	Asset        Asset
	Amount       int64
	LockDuration time.Duration
	ClaimWindow  time.Duration
}

// NewPlan validates a deposit and builds the plan record. The store assigns
// the ID on append.
func NewPlan(input NewPlanInput, now func() time.Time) (Plan, error) {
	if now == nil {
		now = time.Now
	}
	if input.Owner == "" {
		return Plan{}, apperrors.New(apperrors.CodeInvalidInput, "plan owner is required")
	}
	if input.Unlocker == "" {
		return Plan{}, apperrors.New(apperrors.CodeInvalidInput, "plan unlocker is required")
	}
	if input.Asset == "" {
		return Plan{}, apperrors.New(apperrors.CodeInvalidInput, "plan asset is required")
	}
	if input.Amount <= 0 {
		return Plan{}, apperrors.New(apperrors.CodeZeroAmount, "deposit amount must be greater than zero")
	}
	if input.LockDuration < 0 {
		return Plan{}, apperrors.New(apperrors.CodeInvalidInput, "lock duration must not be negative")
	}
	if input.ClaimWindow <= 0 {
		return Plan{}, apperrors.New(apperrors.CodeInvalidInput, "claim window must be greater than zero")
	}

	createdAt := now().UTC()
	unlockAt := createdAt.Add(input.LockDuration)
	return Plan{
		Owner:     input.Owner,
		Unlocker:  input.Unlocker,
		Asset:     input.Asset,
		Amount:    input.Amount,
		CreatedAt: createdAt,
		UnlockAt:  unlockAt,
		ExpiresAt: unlockAt.Add(input.ClaimWindow),
	}, nil
}

// StateAt derives the plan state at the given instant.
func (p Plan) StateAt(now time.Time) State {
	if p.Claimed {
		return StateClaimed
	}
	if now.Before(p.UnlockAt) {
		return StateCreated
	}
	if now.Before(p.ExpiresAt) {
		return StateUnlockable
	}
	return StateExpired
}

// CheckClaim reports whether caller may claim the plan at the given instant.
// The order of checks fixes which error wins when several apply: identity,
// then claim state, then timing.
func (p Plan) CheckClaim(caller Address, now time.Time) error {
	if caller != p.Unlocker {
		return apperrors.New(apperrors.CodeUnauthorized, "caller is not the designated unlocker")
	}
	switch p.StateAt(now) {
	case StateClaimed:
		return apperrors.New(apperrors.CodeAlreadyClaimed, "fund already claimed")
	case StateCreated:
		return apperrors.New(apperrors.CodeNotYetUnlockable, "lock duration has not elapsed")
	case StateExpired:
		return apperrors.New(apperrors.CodeExpired, "claim window has closed")
	}
	return nil
}
