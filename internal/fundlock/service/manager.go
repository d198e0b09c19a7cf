// Package service implements the plan manager: deposit intake, optional
// conversion, and claim settlement over the fundlock store.
package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/topstarwebking/fundlock/internal/errors"
	"github.com/topstarwebking/fundlock/internal/fundlock/domain"
	"github.com/topstarwebking/fundlock/internal/fundlock/storage"
	"github.com/topstarwebking/fundlock/internal/fundlock/swap"
)

// DefaultTreasury is the ledger account that holds custody of locked assets.
const DefaultTreasury = domain.Address("treasury")

// ConvertTarget selects the output asset of a token-deposit conversion.
type ConvertTarget string

const (
	// ConvertToSettlement converts into the configured settlement asset.
	ConvertToSettlement ConvertTarget = "settlement"
	// ConvertToNative converts into the native currency.
	ConvertToNative ConvertTarget = "native"
)

// Config holds the construction-time manager parameters. SettlementAsset and
// Owner are fixed for the life of the manager.
type Config struct {
	Owner           domain.Address
	SettlementAsset domain.Asset
	Treasury        domain.Address
	ClaimWindow     time.Duration
}

// Manager is the only component allowed to move custody of held assets.
// Mutating operations are serialized; each one reads the clock once and
// commits its store mutation and balance movement as a single transaction.
type Manager struct {
	mu     sync.Mutex
	store  storage.Store
	conv   swap.Converter
	cfg    Config
	clock  func() time.Time
	tracer trace.Tracer
}

// New creates a plan manager over the given store and converter.
func New(store storage.Store, converter swap.Converter, cfg Config) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if converter == nil {
		return nil, errors.New("converter is required")
	}
	if cfg.Owner == "" {
		return nil, errors.New("owner address is required")
	}
	if cfg.SettlementAsset == "" || cfg.SettlementAsset.IsNative() {
		return nil, errors.New("settlement asset must be a token identifier")
	}
	if cfg.ClaimWindow <= 0 {
		return nil, errors.New("claim window must be greater than zero")
	}
	if cfg.Treasury == "" {
		cfg.Treasury = DefaultTreasury
	}
	return &Manager{
		store:  store,
		conv:   converter,
		cfg:    cfg,
		clock:  time.Now,
		tracer: otel.Tracer("fundlock/service"),
	}, nil
}

// WithClock overrides the manager's time source. Intended for tests.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	if clock != nil {
		m.clock = clock
	}
	return m
}

// Owner returns the admin address fixed at construction.
func (m *Manager) Owner() domain.Address {
	return m.cfg.Owner
}

// SettlementAsset returns the settlement asset fixed at construction.
func (m *Manager) SettlementAsset() domain.Asset {
	return m.cfg.SettlementAsset
}

// RegisterToken admits a fungible token for deposits. Admin only.
func (m *Manager) RegisterToken(ctx context.Context, caller domain.Address, asset domain.Asset) error {
	ctx, span := m.tracer.Start(ctx, "manager.RegisterToken")
	defer span.End()

	if caller != m.cfg.Owner {
		return apperrors.New(apperrors.CodeUnauthorized, "only the owner may register tokens")
	}
	if asset == "" || asset.IsNative() {
		return apperrors.New(apperrors.CodeInvalidInput, "asset must be a fungible token identifier")
	}
	if err := m.store.RegisterToken(ctx, asset); err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, "register token", err)
	}
	return nil
}

// IsRegistered reports whether an asset is admitted for deposits.
func (m *Manager) IsRegistered(ctx context.Context, asset domain.Asset) (bool, error) {
	return m.store.IsRegistered(ctx, asset)
}

// RegisteredTokens returns admitted assets in registration order.
func (m *Manager) RegisteredTokens(ctx context.Context) ([]domain.Asset, error) {
	return m.store.ListRegisteredTokens(ctx)
}

// FundAccount credits an external account so it can deposit. Admin only; the
// on-ramp that would back the credit is outside custody scope.
func (m *Manager) FundAccount(ctx context.Context, caller, account domain.Address, asset domain.Asset, amount int64) error {
	if caller != m.cfg.Owner {
		return apperrors.New(apperrors.CodeUnauthorized, "only the owner may fund accounts")
	}
	if account == "" || asset == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "account and asset are required")
	}
	if amount <= 0 {
		return apperrors.New(apperrors.CodeZeroAmount, "funding amount must be greater than zero")
	}
	if err := m.store.Credit(ctx, account, asset, amount); err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, "fund account", err)
	}
	return nil
}

// LockNativeInput describes a native-currency deposit.
type LockNativeInput struct {
	Unlocker            domain.Address
	Amount              int64
	LockDuration        time.Duration
	ConvertToSettlement bool
}

// LockNative accepts a native-currency deposit, optionally converts it into
// the settlement asset, and appends the resulting plan.
func (m *Manager) LockNative(ctx context.Context, caller domain.Address, input LockNativeInput) (domain.Plan, error) {
	ctx, span := m.tracer.Start(ctx, "manager.LockNative")
	defer span.End()

	if caller == "" {
		return domain.Plan{}, apperrors.New(apperrors.CodeInvalidInput, "caller address is required")
	}
	if input.Amount <= 0 {
		return domain.Plan{}, apperrors.New(apperrors.CodeZeroAmount, "deposit amount must be greater than zero")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	held := holding{asset: domain.AssetNative, amount: input.Amount}
	if input.ConvertToSettlement {
		converted, err := m.convert(ctx, domain.AssetNative, input.Amount, m.cfg.SettlementAsset)
		if err != nil {
			return domain.Plan{}, err
		}
		held = converted
	}

	return m.appendPlan(ctx, span, caller, input.Unlocker, input.LockDuration, domain.AssetNative, input.Amount, held)
}

// LockTokenInput describes a fungible-token deposit. When Convert is set,
// ConvertTo chooses the settlement asset or the native currency as output.
type LockTokenInput struct {
	Asset        domain.Asset
	Amount       int64
	Unlocker     domain.Address
	LockDuration time.Duration
	Convert      bool
	ConvertTo    ConvertTarget
}

// LockToken pulls a registered token from the caller's balance, optionally
// converts it, and appends the resulting plan.
func (m *Manager) LockToken(ctx context.Context, caller domain.Address, input LockTokenInput) (domain.Plan, error) {
	ctx, span := m.tracer.Start(ctx, "manager.LockToken")
	defer span.End()

	if caller == "" {
		return domain.Plan{}, apperrors.New(apperrors.CodeInvalidInput, "caller address is required")
	}
	if input.Asset == "" || input.Asset.IsNative() {
		return domain.Plan{}, apperrors.New(apperrors.CodeInvalidInput, "token deposits require a fungible token asset")
	}
	if input.Amount <= 0 {
		return domain.Plan{}, apperrors.New(apperrors.CodeZeroAmount, "deposit amount must be greater than zero")
	}
	registered, err := m.store.IsRegistered(ctx, input.Asset)
	if err != nil {
		return domain.Plan{}, apperrors.Wrap(apperrors.CodeUnknown, "check registry", err)
	}
	if !registered {
		return domain.Plan{}, apperrors.WithMetadata(
			apperrors.CodeUnregisteredAsset,
			"asset is not registered for deposits",
			map[string]string{"asset": string(input.Asset)},
		)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	held := holding{asset: input.Asset, amount: input.Amount}
	if input.Convert {
		output := m.cfg.SettlementAsset
		switch input.ConvertTo {
		case ConvertToSettlement, "":
		case ConvertToNative:
			output = domain.AssetNative
		default:
			return domain.Plan{}, apperrors.New(apperrors.CodeInvalidInput, "conversion target must be settlement or native")
		}
		converted, err := m.convert(ctx, input.Asset, input.Amount, output)
		if err != nil {
			return domain.Plan{}, err
		}
		held = converted
	}

	return m.appendPlan(ctx, span, caller, input.Unlocker, input.LockDuration, input.Asset, input.Amount, held)
}

// Claim settles one plan for its designated unlocker. The claimed flag
// commits before the disbursing movement within the same transaction.
func (m *Manager) Claim(ctx context.Context, caller domain.Address, id int64) (domain.Plan, error) {
	ctx, span := m.tracer.Start(ctx, "manager.Claim", trace.WithAttributes(attribute.Int64("plan.id", id)))
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	plan, err := m.store.GetPlan(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Plan{}, apperrors.WithMetadata(
				apperrors.CodeNotFound,
				"plan does not exist",
				map[string]string{"id": strconv.FormatInt(id, 10)},
			)
		}
		return domain.Plan{}, apperrors.Wrap(apperrors.CodeUnknown, "load plan", err)
	}

	now := m.clock().UTC()
	if err := plan.CheckClaim(caller, now); err != nil {
		return domain.Plan{}, err
	}

	err = m.store.SettleClaim(ctx, id, []storage.Entry{
		{Account: m.cfg.Treasury, Asset: plan.Asset, Delta: -plan.Amount},
		{Account: plan.Unlocker, Asset: plan.Asset, Delta: plan.Amount},
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyClaimed) {
			return domain.Plan{}, apperrors.New(apperrors.CodeAlreadyClaimed, "fund already claimed")
		}
		return domain.Plan{}, apperrors.Wrap(apperrors.CodeUnknown, "settle claim", err)
	}

	plan.Claimed = true
	return plan, nil
}

// GetPlan returns one plan by id.
func (m *Manager) GetPlan(ctx context.Context, id int64) (domain.Plan, error) {
	plan, err := m.store.GetPlan(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Plan{}, apperrors.New(apperrors.CodeNotFound, "plan does not exist")
		}
		return domain.Plan{}, apperrors.Wrap(apperrors.CodeUnknown, "load plan", err)
	}
	return plan, nil
}

// PlansByOwner returns every plan created by owner, in creation order.
func (m *Manager) PlansByOwner(ctx context.Context, owner domain.Address) ([]domain.Plan, error) {
	return m.store.ListPlansByOwner(ctx, owner)
}

// PlansByUnlocker returns every plan claimable by unlocker, in creation order.
func (m *Manager) PlansByUnlocker(ctx context.Context, unlocker domain.Address) ([]domain.Plan, error) {
	return m.store.ListPlansByUnlocker(ctx, unlocker)
}

// UnclaimedPlans returns every plan not yet disbursed, regardless of timing.
func (m *Manager) UnclaimedPlans(ctx context.Context) ([]domain.Plan, error) {
	return m.store.ListUnclaimedPlans(ctx)
}

// TotalPlanCount returns the number of plans ever created.
func (m *Manager) TotalPlanCount(ctx context.Context) (int64, error) {
	return m.store.CountPlans(ctx)
}

// Balance returns one account balance. Exposed for the query surface.
func (m *Manager) Balance(ctx context.Context, account domain.Address, asset domain.Asset) (int64, error) {
	return m.store.Balance(ctx, account, asset)
}

type holding struct {
	asset  domain.Asset
	amount int64
}

func (m *Manager) convert(ctx context.Context, input domain.Asset, amount int64, output domain.Asset) (holding, error) {
	out, err := m.conv.Convert(ctx, input, amount, output)
	if err != nil {
		return holding{}, apperrors.Wrap(apperrors.CodeConversionFailed, "conversion failed", err)
	}
	if out <= 0 {
		return holding{}, apperrors.New(apperrors.CodeConversionFailed, "conversion produced no output")
	}
	return holding{asset: output, amount: out}, nil
}

func (m *Manager) appendPlan(
	ctx context.Context,
	span trace.Span,
	caller, unlocker domain.Address,
	lockDuration time.Duration,
	depositAsset domain.Asset,
	depositAmount int64,
	held holding,
) (domain.Plan, error) {
	plan, err := domain.NewPlan(domain.NewPlanInput{
		Owner:        caller,
		Unlocker:     unlocker,
		Asset:        held.asset,
		Amount:       held.amount,
		LockDuration: lockDuration,
		ClaimWindow:  m.cfg.ClaimWindow,
	}, m.clock)
	if err != nil {
		return domain.Plan{}, err
	}

	id, err := m.store.AppendPlan(ctx, plan, []storage.Entry{
		{Account: caller, Asset: depositAsset, Delta: -depositAmount},
		{Account: m.cfg.Treasury, Asset: held.asset, Delta: held.amount},
	})
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientFunds) {
			return domain.Plan{}, apperrors.New(apperrors.CodeInsufficientFunds, "deposit transfer failed")
		}
		return domain.Plan{}, apperrors.Wrap(apperrors.CodeUnknown, "append plan", err)
	}
	plan.ID = id
	span.SetAttributes(attribute.Int64("plan.id", id), attribute.String("plan.asset", string(held.asset)))
	return plan, nil
}
