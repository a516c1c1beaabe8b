package redisledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/internal/core/ports"
	"github.com/amalgam-labs/amalgamd/internal/infrastructure/ledger"
	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	versionKey       = "ledger:version"
	balancesKeyBase  = "ledger:balances"
	suppliesKey      = "ledger:supplies"
	denomsKey        = "ledger:denoms"
	defaultRetryWait = 10 * time.Millisecond
)

type redisLedger struct {
	rdb          *redis.Client
	numOfRetries int
	retryDelay   time.Duration
}

// NewLedger returns a ledger whose state lives in redis. Every write bumps a
// version key that is watched by concurrent writers, so an Apply racing with
// another one is retried up to numOfRetries times.
func NewLedger(rdb *redis.Client, numOfRetries int) ports.Ledger {
	if numOfRetries <= 0 {
		numOfRetries = 1
	}
	return &redisLedger{
		rdb:          rdb,
		numOfRetries: numOfRetries,
		retryDelay:   defaultRetryWait,
	}
}

// executionError marks failures of the tx itself, which are not retried.
type executionError struct {
	err error
}

func (e executionError) Error() string { return e.err.Error() }

func (l *redisLedger) Apply(ctx context.Context, tx ports.LedgerTx) error {
	err := l.update(ctx, func(rtx *redis.Tx) (*ledger.Changeset, error) {
		return ledger.Execute(ctx, view{rtx}, tx)
	})
	if err != nil {
		return err
	}
	log.Debugf(
		"ledger: applied %d transfers and %d instructions for %s",
		len(tx.Transfers), len(tx.Instructions), tx.Contract,
	)
	return nil
}

func (l *redisLedger) DenomMetadata(
	ctx context.Context, denom string,
) (*domain.DenomMetadata, error) {
	d, err := view{l.rdb}.Denom(ctx, denom)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ledger.ErrDenomNotFound
	}
	if d.Metadata == nil {
		return &domain.DenomMetadata{Base: denom}, nil
	}
	return d.Metadata, nil
}

func (l *redisLedger) Balance(
	ctx context.Context, asset domain.Asset, address string,
) (fixedpoint.Amount, error) {
	return view{l.rdb}.Balance(ctx, ledger.BalanceKey{Asset: asset.Key(), Address: address})
}

func (l *redisLedger) Supply(ctx context.Context, denom string) (fixedpoint.Amount, error) {
	return view{l.rdb}.Supply(ctx, denom)
}

func (l *redisLedger) Fund(
	ctx context.Context, asset domain.Asset, address string, amount fixedpoint.Amount,
) error {
	return l.update(ctx, func(rtx *redis.Tx) (*ledger.Changeset, error) {
		cs := ledger.NewChangeset(view{rtx})
		if err := cs.Credit(ctx, asset.Key(), address, amount); err != nil {
			return nil, err
		}
		return cs, nil
	})
}

func (l *redisLedger) Close() {
	// nolint:all
	l.rdb.Close()
}

func (l *redisLedger) update(
	ctx context.Context, stage func(rtx *redis.Tx) (*ledger.Changeset, error),
) error {
	var err error
	for range l.numOfRetries {
		if err = l.rdb.Watch(ctx, func(rtx *redis.Tx) error {
			cs, err := stage(rtx)
			if err != nil {
				return executionError{err}
			}
			writes, err := serialize(cs)
			if err != nil {
				return executionError{err}
			}
			_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for key, fields := range writes {
					pipe.HSet(ctx, key, fields)
				}
				pipe.Incr(ctx, versionKey)
				return nil
			})
			return err
		}, versionKey); err == nil {
			return nil
		}

		var execErr executionError
		if errors.As(err, &execErr) {
			return execErr.err
		}
		time.Sleep(l.retryDelay)
	}
	return fmt.Errorf("failed to update ledger after max number of retries: %v", err)
}

// serialize groups the changeset writes by redis hash key.
func serialize(cs *ledger.Changeset) (map[string]map[string]any, error) {
	writes := make(map[string]map[string]any)
	set := func(key, field string, value any) {
		if _, ok := writes[key]; !ok {
			writes[key] = make(map[string]any)
		}
		writes[key][field] = value
	}

	for key, balance := range cs.Balances {
		set(balancesKey(key.Asset), key.Address, balance.String())
	}
	for denom, supply := range cs.Supplies {
		set(suppliesKey, denom, supply.String())
	}
	for denom, d := range cs.Denoms {
		buf, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize denom %s: %w", denom, err)
		}
		set(denomsKey, denom, string(buf))
	}
	return writes, nil
}

func balancesKey(asset string) string {
	return fmt.Sprintf("%s:%s", balancesKeyBase, asset)
}

type hashReader interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

// view reads through either the client or the watched connection of a tx.
type view struct {
	rdb hashReader
}

func (v view) Balance(ctx context.Context, key ledger.BalanceKey) (fixedpoint.Amount, error) {
	return v.amount(ctx, balancesKey(key.Asset), key.Address)
}

func (v view) Supply(ctx context.Context, denom string) (fixedpoint.Amount, error) {
	return v.amount(ctx, suppliesKey, denom)
}

func (v view) Denom(ctx context.Context, denom string) (*ledger.Denom, error) {
	buf, err := v.rdb.HGet(ctx, denomsKey, denom).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get denom %s: %w", denom, err)
	}
	var d ledger.Denom
	if err := json.Unmarshal([]byte(buf), &d); err != nil {
		return nil, fmt.Errorf("failed to parse denom %s: %w", denom, err)
	}
	return &d, nil
}

func (v view) amount(ctx context.Context, key, field string) (fixedpoint.Amount, error) {
	value, err := v.rdb.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return fixedpoint.Amount{}, nil
	}
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("failed to get %s %s: %w", key, field, err)
	}
	return fixedpoint.ParseAmount(value)
}
