package inmemoryledger

import (
	"context"
	"sync"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/internal/core/ports"
	"github.com/amalgam-labs/amalgamd/internal/infrastructure/ledger"
	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
	log "github.com/sirupsen/logrus"
)

type inmemoryLedger struct {
	lock     *sync.RWMutex
	balances map[ledger.BalanceKey]fixedpoint.Amount
	supplies map[string]fixedpoint.Amount
	denoms   map[string]ledger.Denom
}

func NewLedger() ports.Ledger {
	return &inmemoryLedger{
		lock:     &sync.RWMutex{},
		balances: make(map[ledger.BalanceKey]fixedpoint.Amount),
		supplies: make(map[string]fixedpoint.Amount),
		denoms:   make(map[string]ledger.Denom),
	}
}

func (l *inmemoryLedger) Apply(ctx context.Context, tx ports.LedgerTx) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	cs, err := ledger.Execute(ctx, view{l}, tx)
	if err != nil {
		return err
	}
	l.commit(cs)

	log.Debugf(
		"ledger: applied %d transfers and %d instructions for %s",
		len(tx.Transfers), len(tx.Instructions), tx.Contract,
	)
	return nil
}

func (l *inmemoryLedger) DenomMetadata(
	_ context.Context, denom string,
) (*domain.DenomMetadata, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	d, ok := l.denoms[denom]
	if !ok {
		return nil, ledger.ErrDenomNotFound
	}
	if d.Metadata == nil {
		return &domain.DenomMetadata{Base: denom}, nil
	}
	md := d.Metadata.Apply(domain.MetadataUpdate{})
	return &md, nil
}

func (l *inmemoryLedger) Balance(
	_ context.Context, asset domain.Asset, address string,
) (fixedpoint.Amount, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return l.balances[ledger.BalanceKey{Asset: asset.Key(), Address: address}], nil
}

func (l *inmemoryLedger) Supply(_ context.Context, denom string) (fixedpoint.Amount, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return l.supplies[denom], nil
}

func (l *inmemoryLedger) Fund(
	ctx context.Context, asset domain.Asset, address string, amount fixedpoint.Amount,
) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	cs := ledger.NewChangeset(view{l})
	if err := cs.Credit(ctx, asset.Key(), address, amount); err != nil {
		return err
	}
	l.commit(cs)
	return nil
}

func (l *inmemoryLedger) Close() {}

func (l *inmemoryLedger) commit(cs *ledger.Changeset) {
	for key, balance := range cs.Balances {
		l.balances[key] = balance
	}
	for denom, supply := range cs.Supplies {
		l.supplies[denom] = supply
	}
	for denom, d := range cs.Denoms {
		l.denoms[denom] = d
	}
}

// view reads the maps directly, the caller holds the lock.
type view struct {
	l *inmemoryLedger
}

func (v view) Balance(_ context.Context, key ledger.BalanceKey) (fixedpoint.Amount, error) {
	return v.l.balances[key], nil
}

func (v view) Supply(_ context.Context, denom string) (fixedpoint.Amount, error) {
	return v.l.supplies[denom], nil
}

func (v view) Denom(_ context.Context, denom string) (*ledger.Denom, error) {
	d, ok := v.l.denoms[denom]
	if !ok {
		return nil, nil
	}
	return &d, nil
}
