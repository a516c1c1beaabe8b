package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
)

const (
	selectStateQuery = `SELECT admin, contract_name, contract_version FROM state WHERE id = 1`
	upsertStateQuery = `
INSERT INTO state (id, admin, contract_name, contract_version) VALUES (1, $1, $2, $3)
ON CONFLICT(id) DO UPDATE SET
    admin = excluded.admin,
    contract_name = excluded.contract_name,
    contract_version = excluded.contract_version`
)

type stateRepository struct {
	db *sql.DB
}

func NewStateRepository(config ...interface{}) (domain.StateRepository, error) {
	db, err := dbFromConfig(config...)
	if err != nil {
		return nil, fmt.Errorf("cannot open state repository: %s", err)
	}
	return &stateRepository{db}, nil
}

func (r *stateRepository) Get(ctx context.Context) (*domain.State, error) {
	var state domain.State
	err := querier(ctx, r.db).QueryRowContext(ctx, selectStateQuery).Scan(
		&state.Admin, &state.ContractName, &state.ContractVersion,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	return &state, nil
}

func (r *stateRepository) Upsert(ctx context.Context, state domain.State) error {
	if _, err := querier(ctx, r.db).ExecContext(
		ctx, upsertStateQuery, state.Admin, state.ContractName, state.ContractVersion,
	); err != nil {
		return fmt.Errorf("failed to upsert state: %w", err)
	}
	return nil
}

func (r *stateRepository) Close() {
	// nolint:all
	r.db.Close()
}
