// Package sqlite provides the SQLite-backed fundlock storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/topstarwebking/fundlock/internal/fundlock/domain"
	"github.com/topstarwebking/fundlock/internal/fundlock/storage"
	"github.com/topstarwebking/fundlock/internal/fundlock/storage/sqlite/migrations"
	sqlitemigrate "github.com/topstarwebking/fundlock/internal/platform/storage/sqlitemigrate"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists fundlock state in SQLite. Plans, registry entries, and
// balances share one database so a plan mutation and its custody movement
// commit in a single transaction.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time
}

// WithClock overrides the store's time source. Intended for tests.
func (s *Store) WithClock(clock func() time.Time) *Store {
	if clock != nil {
		s.clock = clock
	}
	return s
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite fundlock store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, clock: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AppendPlan inserts one plan and applies its custody movements atomically.
func (s *Store) AppendPlan(ctx context.Context, plan domain.Plan, movements []storage.Entry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if plan.Amount <= 0 {
		return 0, fmt.Errorf("plan amount must be greater than zero")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append plan: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := applyMovements(ctx, tx, movements); err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(
		ctx,
		`INSERT INTO plans (owner, unlocker, asset, amount, created_at, unlock_at, expires_at, claimed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		string(plan.Owner),
		string(plan.Unlocker),
		string(plan.Asset),
		plan.Amount,
		toMillis(plan.CreatedAt),
		toMillis(plan.UnlockAt),
		toMillis(plan.ExpiresAt),
	)
	if err != nil {
		return 0, fmt.Errorf("append plan: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append plan id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append plan: %w", err)
	}
	return id, nil
}

// GetPlan returns one plan by id.
func (s *Store) GetPlan(ctx context.Context, id int64) (domain.Plan, error) {
	if err := ctx.Err(); err != nil {
		return domain.Plan{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Plan{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, owner, unlocker, asset, amount, created_at, unlock_at, expires_at, claimed
		   FROM plans
		  WHERE id = ?`,
		id,
	)
	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Plan{}, storage.ErrNotFound
		}
		return domain.Plan{}, fmt.Errorf("get plan: %w", err)
	}
	return plan, nil
}

// SettleClaim marks one plan claimed and applies the disbursement atomically.
// The claimed flag is the write-once guard: a plan can settle at most once.
func (s *Store) SettleClaim(ctx context.Context, id int64, movements []storage.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settle claim: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Mark first, move funds second. The conditional update is the
	// check-and-set that closes the double-claim window.
	result, err := tx.ExecContext(ctx, `UPDATE plans SET claimed = 1 WHERE id = ? AND claimed = 0`, id)
	if err != nil {
		return fmt.Errorf("mark claimed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark claimed rows: %w", err)
	}
	if affected == 0 {
		var claimed int
		err := tx.QueryRowContext(ctx, `SELECT claimed FROM plans WHERE id = ?`, id).Scan(&claimed)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check claim state: %w", err)
		}
		return storage.ErrAlreadyClaimed
	}

	if err := applyMovements(ctx, tx, movements); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settle claim: %w", err)
	}
	return nil
}

// ListPlansByOwner returns every plan created by owner in creation order.
func (s *Store) ListPlansByOwner(ctx context.Context, owner domain.Address) ([]domain.Plan, error) {
	return s.listPlans(ctx, `WHERE owner = ?`, string(owner))
}

// ListPlansByUnlocker returns every plan claimable by unlocker in creation order.
func (s *Store) ListPlansByUnlocker(ctx context.Context, unlocker domain.Address) ([]domain.Plan, error) {
	return s.listPlans(ctx, `WHERE unlocker = ?`, string(unlocker))
}

// ListUnclaimedPlans returns every unclaimed plan in creation order,
// including plans not yet unlockable and plans already expired.
func (s *Store) ListUnclaimedPlans(ctx context.Context) ([]domain.Plan, error) {
	return s.listPlans(ctx, `WHERE claimed = 0`)
}

func (s *Store) listPlans(ctx context.Context, where string, args ...any) ([]domain.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	query := `SELECT id, owner, unlocker, asset, amount, created_at, unlock_at, expires_at, claimed
		   FROM plans ` + where + ` ORDER BY id ASC`
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("list plans: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// CountPlans returns the total number of plans ever created.
func (s *Store) CountPlans(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var count int64
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM plans`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count plans: %w", err)
	}
	return count, nil
}

// UnclaimedTotals returns the sum of unclaimed plan amounts per asset.
func (s *Store) UnclaimedTotals(ctx context.Context) (map[domain.Asset]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT asset, SUM(amount) FROM plans WHERE claimed = 0 GROUP BY asset`)
	if err != nil {
		return nil, fmt.Errorf("unclaimed totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[domain.Asset]int64)
	for rows.Next() {
		var asset string
		var total int64
		if err := rows.Scan(&asset, &total); err != nil {
			return nil, fmt.Errorf("unclaimed totals: %w", err)
		}
		totals[domain.Asset(asset)] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unclaimed totals: %w", err)
	}
	return totals, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (domain.Plan, error) {
	var plan domain.Plan
	var owner, unlocker, asset string
	var createdAt, unlockAt, expiresAt int64
	var claimed int
	if err := row.Scan(
		&plan.ID,
		&owner,
		&unlocker,
		&asset,
		&plan.Amount,
		&createdAt,
		&unlockAt,
		&expiresAt,
		&claimed,
	); err != nil {
		return domain.Plan{}, err
	}
	plan.Owner = domain.Address(owner)
	plan.Unlocker = domain.Address(unlocker)
	plan.Asset = domain.Asset(asset)
	plan.CreatedAt = fromMillis(createdAt)
	plan.UnlockAt = fromMillis(unlockAt)
	plan.ExpiresAt = fromMillis(expiresAt)
	plan.Claimed = claimed != 0
	return plan, nil
}

func applyMovements(ctx context.Context, tx *sql.Tx, movements []storage.Entry) error {
	for _, movement := range movements {
		if movement.Account == "" || movement.Asset == "" {
			return fmt.Errorf("movement account and asset are required")
		}
		if movement.Delta == 0 {
			continue
		}
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO balances (account, asset, balance) VALUES (?, ?, ?)
			 ON CONFLICT (account, asset) DO UPDATE SET balance = balance + excluded.balance`,
			string(movement.Account),
			string(movement.Asset),
			movement.Delta,
		)
		if err != nil {
			if isBalanceCheckViolation(err) {
				return storage.ErrInsufficientFunds
			}
			return fmt.Errorf("apply movement: %w", err)
		}
	}
	return nil
}

func isBalanceCheckViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_CHECK {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "check constraint failed") &&
		strings.Contains(message, "balance")
}

var _ storage.Store = (*Store)(nil)
