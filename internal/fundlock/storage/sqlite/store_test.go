package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/topstarwebking/fundlock/internal/fundlock/domain"
	"github.com/topstarwebking/fundlock/internal/fundlock/storage"
)

const treasury = domain.Address("treasury")

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "fundlock.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func testPlan(owner, unlocker domain.Address, asset domain.Asset, amount int64) domain.Plan {
	createdAt := time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)
	return domain.Plan{
		Owner:     owner,
		Unlocker:  unlocker,
		Asset:     asset,
		Amount:    amount,
		CreatedAt: createdAt,
		UnlockAt:  createdAt.Add(time.Hour),
		ExpiresAt: createdAt.Add(25 * time.Hour),
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open("  "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestAppendPlanAssignsDenseIncreasingIDs(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	var previous int64
	for i := 0; i < 3; i++ {
		id, err := store.AppendPlan(ctx, testPlan("owner-a", "unlocker-a", domain.AssetNative, 100), []storage.Entry{
			{Account: treasury, Asset: domain.AssetNative, Delta: 100},
		})
		if err != nil {
			t.Fatalf("append plan %d: %v", i, err)
		}
		if id != previous+1 {
			t.Fatalf("id = %d, want %d", id, previous+1)
		}
		previous = id
	}

	count, err := store.CountPlans(ctx)
	if err != nil {
		t.Fatalf("count plans: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestAppendPlanRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	input := testPlan("owner-a", "unlocker-a", domain.Asset("dai"), 2500)
	id, err := store.AppendPlan(ctx, input, nil)
	if err != nil {
		t.Fatalf("append plan: %v", err)
	}

	got, err := store.GetPlan(ctx, id)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if got.ID != id {
		t.Fatalf("id = %d, want %d", got.ID, id)
	}
	if got.Owner != input.Owner || got.Unlocker != input.Unlocker {
		t.Fatalf("parties = %q/%q, want %q/%q", got.Owner, got.Unlocker, input.Owner, input.Unlocker)
	}
	if got.Asset != input.Asset || got.Amount != input.Amount {
		t.Fatalf("holding = %s/%d, want %s/%d", got.Asset, got.Amount, input.Asset, input.Amount)
	}
	if !got.CreatedAt.Equal(input.CreatedAt) || !got.UnlockAt.Equal(input.UnlockAt) || !got.ExpiresAt.Equal(input.ExpiresAt) {
		t.Fatalf("timestamps = %v/%v/%v, want %v/%v/%v",
			got.CreatedAt, got.UnlockAt, got.ExpiresAt,
			input.CreatedAt, input.UnlockAt, input.ExpiresAt)
	}
	if got.Claimed {
		t.Fatal("new plan must be unclaimed")
	}
}

func TestGetPlanNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	_, err := store.GetPlan(context.Background(), 42)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestAppendPlanRejectsOverdraft(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	// Depositor has nothing; the debit must fail and no plan may appear.
	_, err := store.AppendPlan(ctx, testPlan("owner-a", "unlocker-a", domain.AssetNative, 100), []storage.Entry{
		{Account: "owner-a", Asset: domain.AssetNative, Delta: -100},
		{Account: treasury, Asset: domain.AssetNative, Delta: 100},
	})
	if !errors.Is(err, storage.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want %v", err, storage.ErrInsufficientFunds)
	}

	count, err := store.CountPlans(ctx)
	if err != nil {
		t.Fatalf("count plans: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0 after failed append", count)
	}
	balance, err := store.Balance(ctx, treasury, domain.AssetNative)
	if err != nil {
		t.Fatalf("treasury balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("treasury balance = %d, want 0 after rollback", balance)
	}
}

func TestSettleClaimIsWriteOnce(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	if err := store.Credit(ctx, "owner-a", domain.AssetNative, 100); err != nil {
		t.Fatalf("fund owner: %v", err)
	}
	id, err := store.AppendPlan(ctx, testPlan("owner-a", "unlocker-a", domain.AssetNative, 100), []storage.Entry{
		{Account: "owner-a", Asset: domain.AssetNative, Delta: -100},
		{Account: treasury, Asset: domain.AssetNative, Delta: 100},
	})
	if err != nil {
		t.Fatalf("append plan: %v", err)
	}

	disburse := []storage.Entry{
		{Account: treasury, Asset: domain.AssetNative, Delta: -100},
		{Account: "unlocker-a", Asset: domain.AssetNative, Delta: 100},
	}
	if err := store.SettleClaim(ctx, id, disburse); err != nil {
		t.Fatalf("settle claim: %v", err)
	}
	if err := store.SettleClaim(ctx, id, disburse); !errors.Is(err, storage.ErrAlreadyClaimed) {
		t.Fatalf("second settle err = %v, want %v", err, storage.ErrAlreadyClaimed)
	}

	balance, err := store.Balance(ctx, "unlocker-a", domain.AssetNative)
	if err != nil {
		t.Fatalf("unlocker balance: %v", err)
	}
	if balance != 100 {
		t.Fatalf("unlocker balance = %d, want 100", balance)
	}
	plan, err := store.GetPlan(ctx, id)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if !plan.Claimed {
		t.Fatal("plan must be claimed after settle")
	}
}

func TestSettleClaimUnknownPlan(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	err := store.SettleClaim(context.Background(), 99, nil)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestSettleClaimRollsBackMarkOnFailedMovement(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	id, err := store.AppendPlan(ctx, testPlan("owner-a", "unlocker-a", domain.AssetNative, 100), nil)
	if err != nil {
		t.Fatalf("append plan: %v", err)
	}
	// Treasury was never funded; the disbursement must fail and the claimed
	// flag must not stick.
	err = store.SettleClaim(ctx, id, []storage.Entry{
		{Account: treasury, Asset: domain.AssetNative, Delta: -100},
		{Account: "unlocker-a", Asset: domain.AssetNative, Delta: 100},
	})
	if !errors.Is(err, storage.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want %v", err, storage.ErrInsufficientFunds)
	}
	plan, err := store.GetPlan(ctx, id)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if plan.Claimed {
		t.Fatal("claimed flag must roll back with the failed disbursement")
	}
}

func TestListViewsPreserveCreationOrder(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	pairs := []struct {
		owner    domain.Address
		unlocker domain.Address
	}{
		{"owner-a", "unlocker-a"},
		{"owner-b", "unlocker-a"},
		{"owner-a", "unlocker-b"},
	}
	for _, pair := range pairs {
		if _, err := store.AppendPlan(ctx, testPlan(pair.owner, pair.unlocker, domain.AssetNative, 10), nil); err != nil {
			t.Fatalf("append plan: %v", err)
		}
	}

	byOwner, err := store.ListPlansByOwner(ctx, "owner-a")
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(byOwner) != 2 || byOwner[0].ID != 1 || byOwner[1].ID != 3 {
		t.Fatalf("owner-a plans = %+v, want ids [1 3]", byOwner)
	}

	byUnlocker, err := store.ListPlansByUnlocker(ctx, "unlocker-a")
	if err != nil {
		t.Fatalf("list by unlocker: %v", err)
	}
	if len(byUnlocker) != 2 || byUnlocker[0].ID != 1 || byUnlocker[1].ID != 2 {
		t.Fatalf("unlocker-a plans = %+v, want ids [1 2]", byUnlocker)
	}
}

func TestListUnclaimedIncludesAllUnclaimedRegardlessOfTiming(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := store.AppendPlan(ctx, testPlan("owner-a", "unlocker-a", domain.AssetNative, 10), nil); err != nil {
			t.Fatalf("append plan: %v", err)
		}
	}
	unclaimed, err := store.ListUnclaimedPlans(ctx)
	if err != nil {
		t.Fatalf("list unclaimed: %v", err)
	}
	if len(unclaimed) != 2 {
		t.Fatalf("unclaimed = %d, want 2", len(unclaimed))
	}

	if err := store.SettleClaim(ctx, unclaimed[0].ID, nil); err != nil {
		t.Fatalf("settle claim: %v", err)
	}
	unclaimed, err = store.ListUnclaimedPlans(ctx)
	if err != nil {
		t.Fatalf("list unclaimed after settle: %v", err)
	}
	if len(unclaimed) != 1 || unclaimed[0].ID != 2 {
		t.Fatalf("unclaimed after settle = %+v, want plan 2 only", unclaimed)
	}
}

func TestUnclaimedTotals(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	for _, plan := range []domain.Plan{
		testPlan("owner-a", "unlocker-a", domain.AssetNative, 100),
		testPlan("owner-a", "unlocker-a", domain.AssetNative, 50),
		testPlan("owner-a", "unlocker-a", domain.Asset("usdc"), 75),
	} {
		if _, err := store.AppendPlan(ctx, plan, nil); err != nil {
			t.Fatalf("append plan: %v", err)
		}
	}

	totals, err := store.UnclaimedTotals(ctx)
	if err != nil {
		t.Fatalf("unclaimed totals: %v", err)
	}
	if totals[domain.AssetNative] != 150 || totals[domain.Asset("usdc")] != 75 {
		t.Fatalf("totals = %v, want native=150 usdc=75", totals)
	}
}

func TestTokenRegistry(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	registered, err := store.IsRegistered(ctx, "dai")
	if err != nil {
		t.Fatalf("is registered: %v", err)
	}
	if registered {
		t.Fatal("dai must start unregistered")
	}

	if err := store.RegisterToken(ctx, "dai"); err != nil {
		t.Fatalf("register token: %v", err)
	}
	// Re-registration is a no-op.
	if err := store.RegisterToken(ctx, "dai"); err != nil {
		t.Fatalf("re-register token: %v", err)
	}
	if err := store.RegisterToken(ctx, "wbtc"); err != nil {
		t.Fatalf("register second token: %v", err)
	}

	registered, err = store.IsRegistered(ctx, "dai")
	if err != nil {
		t.Fatalf("is registered after register: %v", err)
	}
	if !registered {
		t.Fatal("dai must be registered")
	}

	assets, err := store.ListRegisteredTokens(ctx)
	if err != nil {
		t.Fatalf("list tokens: %v", err)
	}
	if len(assets) != 2 || assets[0] != "dai" || assets[1] != "wbtc" {
		t.Fatalf("tokens = %v, want [dai wbtc]", assets)
	}
}

func TestRegisterTokenUsesInjectedClock(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	registeredAt := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	store.WithClock(func() time.Time { return registeredAt })

	if err := store.RegisterToken(ctx, "dai"); err != nil {
		t.Fatalf("register token: %v", err)
	}

	var stored int64
	err := store.sqlDB.QueryRowContext(ctx, `SELECT registered_at FROM registered_tokens WHERE asset = ?`, "dai").Scan(&stored)
	if err != nil {
		t.Fatalf("read registered_at: %v", err)
	}
	if stored != toMillis(registeredAt) {
		t.Fatalf("registered_at = %d, want %d", stored, toMillis(registeredAt))
	}
}

func TestLedgerCreditAndBalances(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	if err := store.Credit(ctx, "owner-a", domain.AssetNative, 500); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := store.Credit(ctx, "owner-a", "dai", 250); err != nil {
		t.Fatalf("credit dai: %v", err)
	}
	if err := store.Credit(ctx, "owner-a", domain.AssetNative, -1); err == nil {
		t.Fatal("expected error for non-positive credit")
	}

	balance, err := store.Balance(ctx, "owner-a", domain.AssetNative)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 500 {
		t.Fatalf("balance = %d, want 500", balance)
	}
	balances, err := store.Balances(ctx, "owner-a")
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if len(balances) != 2 || balances[domain.AssetNative] != 500 || balances["dai"] != 250 {
		t.Fatalf("balances = %v, want native=500 dai=250", balances)
	}
}
