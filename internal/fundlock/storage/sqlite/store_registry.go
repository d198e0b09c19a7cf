package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/topstarwebking/fundlock/internal/fundlock/domain"
)

// RegisterToken admits an asset for deposits. Re-registering is a no-op,
// mirroring the set semantics of the registry.
func (s *Store) RegisterToken(ctx context.Context, asset domain.Asset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if asset == "" {
		return fmt.Errorf("asset is required")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO registered_tokens (asset, registered_at) VALUES (?, ?)`,
		string(asset),
		toMillis(s.clock()),
	)
	if err != nil {
		return fmt.Errorf("register token: %w", err)
	}
	return nil
}

// IsRegistered reports whether the asset is admitted for deposits.
func (s *Store) IsRegistered(ctx context.Context, asset domain.Asset) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	var found int
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT 1 FROM registered_tokens WHERE asset = ?`,
		string(asset),
	).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("is registered: %w", err)
	}
	return true, nil
}

// ListRegisteredTokens returns admitted assets in registration order.
func (s *Store) ListRegisteredTokens(ctx context.Context) ([]domain.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT asset FROM registered_tokens ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("list registered tokens: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var asset string
		if err := rows.Scan(&asset); err != nil {
			return nil, fmt.Errorf("list registered tokens: %w", err)
		}
		assets = append(assets, domain.Asset(asset))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registered tokens: %w", err)
	}
	return assets, nil
}
