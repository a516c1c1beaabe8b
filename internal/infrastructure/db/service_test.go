package db_test

import (
	"context"
	"fmt"
	"os"
	"slices"
	"testing"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/internal/core/ports"
	"github.com/amalgam-labs/amalgamd/internal/infrastructure/db"
	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const pgDsnEnv = "AMALGAMD_TEST_PG_DSN"

var (
	atom = domain.Component{
		Token:            domain.NativeAsset("uatom"),
		Weight:           fixedpoint.MustParseDecimal("0.01"),
		WithdrawalTaxBps: 1000,
	}
	osmo = domain.Component{
		Token:            domain.NativeAsset("uosmo"),
		Weight:           fixedpoint.MustParseDecimal("2.5"),
		WithdrawalTaxBps: 0,
	}
	token = domain.Component{
		Token:            domain.Cw20Asset("osmo1token"),
		Weight:           fixedpoint.MustParseDecimal("0.000000000000000001"),
		WithdrawalTaxBps: 10000,
	}
)

func TestService(t *testing.T) {
	tests := []struct {
		name   string
		config db.ServiceConfig
	}{
		{
			name: "repo_manager_with_badger_in_memory",
			config: db.ServiceConfig{
				DataStoreType:   "badger",
				DataStoreConfig: []interface{}{"", nil},
			},
		},
		{
			name: "repo_manager_with_badger_on_disk",
			config: db.ServiceConfig{
				DataStoreType:   "badger",
				DataStoreConfig: []interface{}{t.TempDir(), nil},
			},
		},
		{
			name: "repo_manager_with_sqlite_stores",
			config: db.ServiceConfig{
				DataStoreType:   "sqlite",
				DataStoreConfig: []interface{}{t.TempDir()},
			},
		},
	}
	if dsn := os.Getenv(pgDsnEnv); dsn != "" {
		tests = append(tests, struct {
			name   string
			config db.ServiceConfig
		}{
			name: "repo_manager_with_postgres_stores",
			config: db.ServiceConfig{
				DataStoreType:   "postgres",
				DataStoreConfig: []interface{}{dsn, true},
			},
		})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := db.NewService(tt.config)
			require.NoError(t, err)
			defer svc.Close()

			testStateRepository(t, svc)
			testComponentRepository(t, svc)
			testTaxRepository(t, svc)
			testKeyOrdering(t, svc)
			testRunInTx(t, svc)
		})
	}
}

func TestInvalidConfig(t *testing.T) {
	_, err := db.NewService(db.ServiceConfig{DataStoreType: "mongo"})
	require.Error(t, err)

	_, err = db.NewService(db.ServiceConfig{
		DataStoreType:   "badger",
		DataStoreConfig: []interface{}{""},
	})
	require.Error(t, err)

	_, err = db.NewService(db.ServiceConfig{
		DataStoreType:   "sqlite",
		DataStoreConfig: []interface{}{1},
	})
	require.Error(t, err)

	_, err = db.NewService(db.ServiceConfig{
		DataStoreType:   "postgres",
		DataStoreConfig: []interface{}{"postgres://localhost/db"},
	})
	require.Error(t, err)
}

func testStateRepository(t *testing.T, svc ports.RepoManager) {
	t.Run("test_state_repository", func(t *testing.T) {
		ctx := context.Background()
		repo := svc.State()

		state, err := repo.Get(ctx)
		require.NoError(t, err)
		require.Nil(t, state)

		expected := domain.State{
			Admin:           "osmo1admin",
			ContractName:    "amalgam",
			ContractVersion: "0.1.0",
		}
		require.NoError(t, repo.Upsert(ctx, expected))

		state, err = repo.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, state)
		require.Equal(t, expected, *state)

		expected.Admin = "osmo1newadmin"
		require.NoError(t, repo.Upsert(ctx, expected))

		state, err = repo.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, expected, *state)
	})
}

func testComponentRepository(t *testing.T, svc ports.RepoManager) {
	t.Run("test_component_repository", func(t *testing.T) {
		ctx := context.Background()
		repo := svc.Components()

		components, err := repo.List(ctx)
		require.NoError(t, err)
		require.Empty(t, components)

		component, err := repo.Get(ctx, atom.Key())
		require.NoError(t, err)
		require.Nil(t, component)

		for _, c := range []domain.Component{osmo, token, atom} {
			require.NoError(t, repo.Add(ctx, c))
		}

		err = repo.Add(ctx, domain.Component{
			Token:            atom.Token,
			Weight:           fixedpoint.One(),
			WithdrawalTaxBps: 5,
		})
		require.ErrorIs(t, err, domain.ErrComponentExists)

		component, err = repo.Get(ctx, atom.Key())
		require.NoError(t, err)
		require.NotNil(t, component)
		requireComponentEqual(t, atom, *component)

		components, err = repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, components, 3)
		// cw20:... sorts before native:...
		requireComponentEqual(t, token, components[0])
		requireComponentEqual(t, atom, components[1])
		requireComponentEqual(t, osmo, components[2])
	})
}

func testTaxRepository(t *testing.T, svc ports.RepoManager) {
	t.Run("test_tax_repository", func(t *testing.T) {
		ctx := context.Background()
		repo := svc.Taxes()

		accrual, err := repo.Get(ctx, atom.Token)
		require.NoError(t, err)
		require.Nil(t, accrual)

		big := fixedpoint.MustParseAmount("340282366920938463463374607431768211456")
		require.NoError(t, repo.Upsert(ctx, osmo.Token, fixedpoint.NewAmount(7)))
		require.NoError(t, repo.Upsert(ctx, atom.Token, fixedpoint.NewAmount(10)))
		require.NoError(t, repo.Upsert(ctx, atom.Token, big))

		accrual, err = repo.Get(ctx, atom.Token)
		require.NoError(t, err)
		require.NotNil(t, accrual)
		require.Equal(t, atom.Token, accrual.Asset)
		require.Equal(t, big.String(), accrual.Amount.String())

		accruals, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, accruals, 2)
		require.Equal(t, atom.Token, accruals[0].Asset)
		require.Equal(t, osmo.Token, accruals[1].Asset)
		require.Equal(t, "7", accruals[1].Amount.String())

		require.NoError(t, repo.Remove(ctx, atom.Token))
		require.NoError(t, repo.Remove(ctx, atom.Token))

		accrual, err = repo.Get(ctx, atom.Token)
		require.NoError(t, err)
		require.Nil(t, accrual)

		require.NoError(t, repo.Remove(ctx, osmo.Token))
		accruals, err = repo.List(ctx)
		require.NoError(t, err)
		require.Empty(t, accruals)
	})
}

// testKeyOrdering checks that assets are listed in byte order of their keys
// whatever the collation of the store.
func testKeyOrdering(t *testing.T, svc ports.RepoManager) {
	t.Run("test_key_ordering", func(t *testing.T) {
		ctx := context.Background()
		assets := []domain.Asset{
			domain.NativeAsset("factoryb"),
			domain.NativeAsset("Zeta"),
			domain.NativeAsset("factory/x"),
			domain.Cw20Asset("osmo1-a"),
			domain.NativeAsset("ibc/27394FB092D2ECCD"),
		}

		for _, asset := range assets {
			require.NoError(t, svc.Taxes().Upsert(ctx, asset, fixedpoint.NewAmount(1)))
			require.NoError(t, svc.Components().Add(ctx, domain.Component{
				Token:  asset,
				Weight: fixedpoint.One(),
			}))
		}

		accruals, err := svc.Taxes().List(ctx)
		require.NoError(t, err)
		taxKeys := make([]string, 0, len(accruals))
		for _, accrual := range accruals {
			taxKeys = append(taxKeys, accrual.Asset.Key())
		}

		components, err := svc.Components().List(ctx)
		require.NoError(t, err)
		componentKeys := make([]string, 0, len(components))
		for _, component := range components {
			componentKeys = append(componentKeys, component.Key())
		}

		require.Equal(t, []string{
			"cw20:osmo1-a",
			"native:Zeta",
			"native:factory/x",
			"native:factoryb",
			"native:ibc/27394FB092D2ECCD",
		}, taxKeys)
		require.True(t, slices.IsSorted(componentKeys))
		for _, key := range taxKeys {
			require.Contains(t, componentKeys, key)
		}

		for _, asset := range assets {
			require.NoError(t, svc.Taxes().Remove(ctx, asset))
		}
	})
}

func testRunInTx(t *testing.T, svc ports.RepoManager) {
	t.Run("test_run_in_tx", func(t *testing.T) {
		ctx := context.Background()
		asset := domain.NativeAsset(fmt.Sprintf("u%s", uuid.New().String()[:8]))

		t.Run("commit", func(t *testing.T) {
			err := svc.RunInTx(ctx, func(ctx context.Context) error {
				if err := svc.Taxes().Upsert(ctx, asset, fixedpoint.NewAmount(5)); err != nil {
					return err
				}
				// writes are visible inside the transaction
				accrual, err := svc.Taxes().Get(ctx, asset)
				if err != nil {
					return err
				}
				require.NotNil(t, accrual)
				require.Equal(t, "5", accrual.Amount.String())
				return nil
			})
			require.NoError(t, err)

			accrual, err := svc.Taxes().Get(ctx, asset)
			require.NoError(t, err)
			require.NotNil(t, accrual)
			require.Equal(t, "5", accrual.Amount.String())
		})

		t.Run("rollback", func(t *testing.T) {
			failure := fmt.Errorf("ledger rejected the instructions")
			component := domain.Component{
				Token:            asset,
				Weight:           fixedpoint.One(),
				WithdrawalTaxBps: 1,
			}

			err := svc.RunInTx(ctx, func(ctx context.Context) error {
				if err := svc.Taxes().Upsert(ctx, asset, fixedpoint.NewAmount(100)); err != nil {
					return err
				}
				if err := svc.Components().Add(ctx, component); err != nil {
					return err
				}
				return failure
			})
			require.ErrorIs(t, err, failure)

			accrual, err := svc.Taxes().Get(ctx, asset)
			require.NoError(t, err)
			require.NotNil(t, accrual)
			require.Equal(t, "5", accrual.Amount.String())

			got, err := svc.Components().Get(ctx, asset.Key())
			require.NoError(t, err)
			require.Nil(t, got)
		})
	})
}

func requireComponentEqual(t *testing.T, expected, got domain.Component) {
	t.Helper()
	require.Equal(t, expected.Token, got.Token)
	require.True(t, expected.Weight.Equal(got.Weight), "weight %s != %s", expected.Weight, got.Weight)
	require.Equal(t, expected.WithdrawalTaxBps, got.WithdrawalTaxBps)
}
