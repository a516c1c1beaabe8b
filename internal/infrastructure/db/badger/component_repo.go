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

type componentDTO struct {
	Key           string
	AssetType     string
	AssetId       string
	Weight        string
	WithdrawalTax uint32
}

type componentRepository struct {
	store *badgerhold.Store
}

func NewComponentRepository(config ...interface{}) (domain.ComponentRepository, error) {
	store, err := storeFromConfig(config...)
	if err != nil {
		return nil, fmt.Errorf("cannot open component repository: %s", err)
	}
	return &componentRepository{store}, nil
}

func (r *componentRepository) Add(ctx context.Context, component domain.Component) error {
	dto := componentDTO{
		Key:           component.Key(),
		AssetType:     string(component.Token.Type),
		AssetId:       component.Token.Id,
		Weight:        component.Weight.String(),
		WithdrawalTax: component.WithdrawalTaxBps,
	}
	err := insert(ctx, r.store, dto.Key, dto)
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return domain.ErrComponentExists
	}
	if err != nil {
		return fmt.Errorf("failed to add component %s: %w", dto.Key, err)
	}
	return nil
}

func (r *componentRepository) Get(
	ctx context.Context, key string,
) (*domain.Component, error) {
	var dto componentDTO
	err := get(ctx, r.store, key, &dto)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get component %s: %w", key, err)
	}
	return dto.toComponent()
}

func (r *componentRepository) List(ctx context.Context) ([]domain.Component, error) {
	dtos := make([]componentDTO, 0)
	if err := find(ctx, r.store, &dtos, nil); err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	sort.Slice(dtos, func(i, j int) bool {
		return dtos[i].Key < dtos[j].Key
	})

	components := make([]domain.Component, 0, len(dtos))
	for _, dto := range dtos {
		component, err := dto.toComponent()
		if err != nil {
			return nil, err
		}
		components = append(components, *component)
	}
	return components, nil
}

func (r *componentRepository) Close() {}

func (d componentDTO) toComponent() (*domain.Component, error) {
	weight, err := fixedpoint.ParseDecimal(d.Weight)
	if err != nil {
		return nil, fmt.Errorf("corrupted weight for component %s: %w", d.Key, err)
	}
	return &domain.Component{
		Token:            domain.Asset{Type: domain.AssetType(d.AssetType), Id: d.AssetId},
		Weight:           weight,
		WithdrawalTaxBps: d.WithdrawalTax,
	}, nil
}
