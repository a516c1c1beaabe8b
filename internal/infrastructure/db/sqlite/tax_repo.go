package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
)

const (
	selectTaxQuery     = `SELECT asset_type, asset_id, amount FROM tax WHERE asset_key = ?`
	selectAllTaxesQuery = `SELECT asset_type, asset_id, amount FROM tax ORDER BY asset_key ASC`
	upsertTaxQuery     = `
INSERT INTO tax (asset_key, asset_type, asset_id, amount) VALUES (?, ?, ?, ?)
ON CONFLICT(asset_key) DO UPDATE SET amount = excluded.amount`
	deleteTaxQuery = `DELETE FROM tax WHERE asset_key = ?`
)

type taxRepository struct {
	db *sql.DB
}

func NewTaxRepository(config ...interface{}) (domain.TaxRepository, error) {
	db, err := dbFromConfig(config...)
	if err != nil {
		return nil, fmt.Errorf("cannot open tax repository: %s", err)
	}
	return &taxRepository{db}, nil
}

func (r *taxRepository) Get(ctx context.Context, asset domain.Asset) (*domain.TaxAccrual, error) {
	row := querier(ctx, r.db).QueryRowContext(ctx, selectTaxQuery, asset.Key())
	accrual, err := scanTax(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get taxes for %s: %w", asset, err)
	}
	return accrual, nil
}

func (r *taxRepository) Upsert(
	ctx context.Context, asset domain.Asset, amount fixedpoint.Amount,
) error {
	if _, err := querier(ctx, r.db).ExecContext(
		ctx, upsertTaxQuery, asset.Key(), string(asset.Type), asset.Id, amount.String(),
	); err != nil {
		return fmt.Errorf("failed to upsert taxes for %s: %w", asset, err)
	}
	return nil
}

func (r *taxRepository) Remove(ctx context.Context, asset domain.Asset) error {
	if _, err := querier(ctx, r.db).ExecContext(ctx, deleteTaxQuery, asset.Key()); err != nil {
		return fmt.Errorf("failed to remove taxes for %s: %w", asset, err)
	}
	return nil
}

func (r *taxRepository) List(ctx context.Context) ([]domain.TaxAccrual, error) {
	rows, err := querier(ctx, r.db).QueryContext(ctx, selectAllTaxesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list taxes: %w", err)
	}
	// nolint:all
	defer rows.Close()

	accruals := make([]domain.TaxAccrual, 0)
	for rows.Next() {
		accrual, err := scanTax(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to list taxes: %w", err)
		}
		accruals = append(accruals, *accrual)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list taxes: %w", err)
	}
	return accruals, nil
}

func (r *taxRepository) Close() {
	// nolint:all
	r.db.Close()
}

func scanTax(row scanner) (*domain.TaxAccrual, error) {
	var assetType, assetId, amount string
	if err := row.Scan(&assetType, &assetId, &amount); err != nil {
		return nil, err
	}
	a, err := fixedpoint.ParseAmount(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupted tax amount: %w", err)
	}
	return &domain.TaxAccrual{
		Asset:  domain.Asset{Type: domain.AssetType(assetType), Id: assetId},
		Amount: a,
	}, nil
}
