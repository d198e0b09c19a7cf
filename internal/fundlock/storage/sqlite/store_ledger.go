package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/topstarwebking/fundlock/internal/fundlock/domain"
	"github.com/topstarwebking/fundlock/internal/fundlock/storage"
)

// Credit adds amount of asset to an account.
func (s *Store) Credit(ctx context.Context, account domain.Address, asset domain.Asset, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if account == "" || asset == "" {
		return fmt.Errorf("account and asset are required")
	}
	if amount <= 0 {
		return fmt.Errorf("credit amount must be greater than zero")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin credit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := applyMovements(ctx, tx, []storage.Entry{{Account: account, Asset: asset, Delta: amount}}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit credit: %w", err)
	}
	return nil
}

// Balance returns the account's balance for one asset, zero when absent.
func (s *Store) Balance(ctx context.Context, account domain.Address, asset domain.Asset) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var balance int64
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT balance FROM balances WHERE account = ? AND asset = ?`,
		string(account),
		string(asset),
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("balance: %w", err)
	}
	return balance, nil
}

// Balances returns every non-zero balance held by an account.
func (s *Store) Balances(ctx context.Context, account domain.Address) (map[domain.Asset]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT asset, balance FROM balances WHERE account = ? AND balance != 0`,
		string(account),
	)
	if err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}
	defer rows.Close()

	balances := make(map[domain.Asset]int64)
	for rows.Next() {
		var asset string
		var balance int64
		if err := rows.Scan(&asset, &balance); err != nil {
			return nil, fmt.Errorf("balances: %w", err)
		}
		balances[domain.Asset(asset)] = balance
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}
	return balances, nil
}
