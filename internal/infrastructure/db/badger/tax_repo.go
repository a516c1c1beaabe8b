package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
	"github.com/timshannon/badgerhold/v4"
)

type taxDTO struct {
	Key       string
	AssetType string
	AssetId   string
	Amount    string
}

type taxRepository struct {
	store *badgerhold.Store
}

func NewTaxRepository(config ...interface{}) (domain.TaxRepository, error) {
	store, err := storeFromConfig(config...)
	if err != nil {
		return nil, fmt.Errorf("cannot open tax repository: %s", err)
	}
	return &taxRepository{store}, nil
}

func (r *taxRepository) Get(
	ctx context.Context, asset domain.Asset,
) (*domain.TaxAccrual, error) {
	var dto taxDTO
	err := get(ctx, r.store, asset.Key(), &dto)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get taxes for %s: %w", asset, err)
	}
	return dto.toAccrual()
}

func (r *taxRepository) Upsert(
	ctx context.Context, asset domain.Asset, amount fixedpoint.Amount,
) error {
	dto := taxDTO{
		Key:       asset.Key(),
		AssetType: string(asset.Type),
		AssetId:   asset.Id,
		Amount:    amount.String(),
	}
	if err := upsert(ctx, r.store, dto.Key, dto); err != nil {
		return fmt.Errorf("failed to upsert taxes for %s: %w", asset, err)
	}
	return nil
}

func (r *taxRepository) Remove(ctx context.Context, asset domain.Asset) error {
	if err := remove(ctx, r.store, asset.Key(), taxDTO{}); err != nil {
		return fmt.Errorf("failed to remove taxes for %s: %w", asset, err)
	}
	return nil
}

func (r *taxRepository) List(ctx context.Context) ([]domain.TaxAccrual, error) {
	dtos := make([]taxDTO, 0)
	if err := find(ctx, r.store, &dtos, nil); err != nil {
		return nil, fmt.Errorf("failed to list taxes: %w", err)
	}
	sort.Slice(dtos, func(i, j int) bool {
		return dtos[i].Key < dtos[j].Key
	})

	accruals := make([]domain.TaxAccrual, 0, len(dtos))
	for _, dto := range dtos {
		accrual, err := dto.toAccrual()
		if err != nil {
			return nil, err
		}
		accruals = append(accruals, *accrual)
	}
	return accruals, nil
}

func (r *taxRepository) Close() {}

func (d taxDTO) toAccrual() (*domain.TaxAccrual, error) {
	amount, err := fixedpoint.ParseAmount(d.Amount)
	if err != nil {
		return nil, fmt.Errorf("corrupted tax amount for %s: %w", d.Key, err)
	}
	return &domain.TaxAccrual{
		Asset:  domain.Asset{Type: domain.AssetType(d.AssetType), Id: d.AssetId},
		Amount: amount,
	}, nil
}
