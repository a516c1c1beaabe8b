package application

import (
	"context"

	"github.com/amalgam-labs/amalgamd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// audit logs the contract reserves against the accrued taxes. A reserve lower
// than its accrual means the ledger and the store diverged, and is reported
// to the alerts manager if any.
func (s *service) audit() {
	ctx := context.Background()

	shortfalls := s.auditReserves(ctx)
	if s.alerts == nil {
		return
	}
	for _, shortfall := range shortfalls {
		if err := s.alerts.Publish(ctx, ports.ReserveShortfall, shortfall); err != nil {
			log.WithError(err).Warn("audit: failed to publish reserve shortfall alert")
		}
	}
}

func (s *service) auditReserves(ctx context.Context) []ports.ReserveShortfallAlert {
	s.lock.Lock()
	defer s.lock.Unlock()

	state, err := s.repoManager.State().Get(ctx)
	if err != nil {
		log.WithError(err).Warn("audit: failed to get state")
		return nil
	}
	if state == nil {
		log.Debug("audit: basket not instantiated yet, skipping")
		return nil
	}

	resp, rErr := s.reserves(ctx)
	if rErr != nil {
		rErr.Log().WithError(rErr).Warn("audit: failed to get reserves")
		return nil
	}

	log.WithField("supply", resp.Supply.String()).Info("audit: basket supply")
	shortfalls := make([]ports.ReserveShortfallAlert, 0)
	for _, reserve := range resp.Reserves {
		entry := log.WithFields(log.Fields{
			"asset":   reserve.Asset.Key(),
			"balance": reserve.Balance.String(),
			"taxes":   reserve.Taxes.String(),
		})
		if reserve.Balance.Cmp(reserve.Taxes) < 0 {
			entry.Error("audit: reserve lower than accrued taxes")
			shortfalls = append(shortfalls, ports.ReserveShortfallAlert{
				Contract: s.contract,
				Asset:    reserve.Asset.Key(),
				Balance:  reserve.Balance.String(),
				Taxes:    reserve.Taxes.String(),
				Supply:   resp.Supply.String(),
			})
			continue
		}
		entry.Info("audit: reserve")
	}
	return shortfalls
}
