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
	insertComponentQuery = `
INSERT INTO component (asset_key, asset_type, asset_id, weight, withdrawal_tax)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(asset_key) DO NOTHING`
	selectComponentQuery = `
SELECT asset_type, asset_id, weight, withdrawal_tax FROM component WHERE asset_key = ?`
	selectAllComponentsQuery = `
SELECT asset_type, asset_id, weight, withdrawal_tax FROM component ORDER BY asset_key ASC`
)

type componentRepository struct {
	db *sql.DB
}

func NewComponentRepository(config ...interface{}) (domain.ComponentRepository, error) {
	db, err := dbFromConfig(config...)
	if err != nil {
		return nil, fmt.Errorf("cannot open component repository: %s", err)
	}
	return &componentRepository{db}, nil
}

func (r *componentRepository) Add(ctx context.Context, component domain.Component) error {
	res, err := querier(ctx, r.db).ExecContext(
		ctx, insertComponentQuery,
		component.Key(), string(component.Token.Type), component.Token.Id,
		component.Weight.String(), component.WithdrawalTaxBps,
	)
	if err != nil {
		return fmt.Errorf("failed to add component %s: %w", component.Key(), err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to add component %s: %w", component.Key(), err)
	}
	if count == 0 {
		return domain.ErrComponentExists
	}
	return nil
}

func (r *componentRepository) Get(ctx context.Context, key string) (*domain.Component, error) {
	row := querier(ctx, r.db).QueryRowContext(ctx, selectComponentQuery, key)
	component, err := scanComponent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get component %s: %w", key, err)
	}
	return component, nil
}

func (r *componentRepository) List(ctx context.Context) ([]domain.Component, error) {
	rows, err := querier(ctx, r.db).QueryContext(ctx, selectAllComponentsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	// nolint:all
	defer rows.Close()

	components := make([]domain.Component, 0)
	for rows.Next() {
		component, err := scanComponent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to list components: %w", err)
		}
		components = append(components, *component)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	return components, nil
}

func (r *componentRepository) Close() {
	// nolint:all
	r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanComponent(row scanner) (*domain.Component, error) {
	var (
		assetType, assetId, weight string
		tax                        uint32
	)
	if err := row.Scan(&assetType, &assetId, &weight, &tax); err != nil {
		return nil, err
	}
	w, err := fixedpoint.ParseDecimal(weight)
	if err != nil {
		return nil, fmt.Errorf("corrupted weight: %w", err)
	}
	return &domain.Component{
		Token:            domain.Asset{Type: domain.AssetType(assetType), Id: assetId},
		Weight:           w,
		WithdrawalTaxBps: tax,
	}, nil
}
