package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/internal/core/ports"
	"github.com/amalgam-labs/amalgamd/pkg/errors"
	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type service struct {
	contract      string
	repoManager   ports.RepoManager
	ledger        ports.Ledger
	issuer        ports.TokenIssuer
	publisher     ports.EventPublisher
	scheduler     ports.SchedulerService
	alerts        ports.Alerts
	auditInterval time.Duration
	allowFaucet   bool

	// lock serializes state transitions, one operation runs at a time.
	lock *sync.Mutex
}

func NewService(
	contract string,
	repoManager ports.RepoManager,
	ledger ports.Ledger,
	issuer ports.TokenIssuer,
	publisher ports.EventPublisher,
	scheduler ports.SchedulerService,
	alerts ports.Alerts,
	auditInterval time.Duration,
	allowFaucet bool,
) (Service, error) {
	if contract == "" {
		return nil, fmt.Errorf("missing contract address")
	}
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if ledger == nil {
		return nil, fmt.Errorf("missing ledger")
	}
	if issuer == nil {
		return nil, fmt.Errorf("missing token issuer")
	}
	if publisher == nil {
		return nil, fmt.Errorf("missing event publisher")
	}
	if auditInterval > 0 && scheduler == nil {
		return nil, fmt.Errorf("missing scheduler for reserve audit")
	}

	return &service{
		contract:      contract,
		repoManager:   repoManager,
		ledger:        ledger,
		issuer:        issuer,
		publisher:     publisher,
		scheduler:     scheduler,
		alerts:        alerts,
		auditInterval: auditInterval,
		allowFaucet:   allowFaucet,
		lock:          &sync.Mutex{},
	}, nil
}

func (s *service) Start() error {
	if s.auditInterval <= 0 {
		log.Debug("reserve audit disabled")
		return nil
	}

	log.Debugf("scheduling reserve audit every %s...", s.auditInterval)
	if err := s.scheduler.ScheduleRecurring(s.auditInterval, s.audit); err != nil {
		return err
	}
	s.scheduler.Start()
	return nil
}

func (s *service) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
		log.Debug("stopped scheduler")
	}
	s.publisher.Close()
	log.Debug("closed event publisher")
	s.ledger.Close()
	log.Debug("closed connection to ledger")
	s.repoManager.Close()
	log.Debug("closed connection to db")
}

func (s *service) Instantiate(
	ctx context.Context, info MessageInfo, msg InstantiateMsg,
) (*Response, errors.Error) {
	if info.Sender == "" {
		return nil, errors.INVALID_REQUEST.New("missing sender")
	}

	denom := s.issuer.Denom()
	metadata := msg.Metadata
	if metadata.Base == "" {
		metadata.Base = denom
	}
	if metadata.Base != denom {
		return nil, errors.INVALID_REQUEST.New(
			"metadata base %s must match basket denom %s", metadata.Base, denom,
		)
	}

	return s.execute(ctx, info, domain.EventTypeInstantiated, func(
		ctx context.Context,
	) (*operation, errors.Error) {
		state, err := s.repoManager.State().Get(ctx)
		if err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to get state: %w", err))
		}
		if state != nil {
			return nil, errors.ALREADY_INSTANTIATED.New("basket already instantiated")
		}

		admin := msg.Admin
		if admin == "" {
			admin = info.Sender
		}
		if err := s.repoManager.State().Upsert(ctx, domain.State{
			Admin:           admin,
			ContractName:    ContractName,
			ContractVersion: ContractVersion,
		}); err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to save state: %w", err))
		}

		create, err := s.issuer.Create()
		if err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(err)
		}
		setMetadata, err := s.issuer.SetMetadata(metadata)
		if err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(err)
		}

		return &operation{
			instructions: append(create, setMetadata...),
			attributes: []Attribute{
				{"method", "instantiate"},
				{"admin", admin},
				{"denom", denom},
			},
		}, nil
	})
}

func (s *service) Execute(
	ctx context.Context, info MessageInfo, msg ExecuteMsg,
) (*Response, errors.Error) {
	variant, err := msg.variant()
	if err != nil {
		return nil, errors.INVALID_REQUEST.Wrap(err)
	}

	switch variant {
	case "add_component":
		return s.AddComponent(ctx, info, *msg.AddComponent)
	case "deposit":
		return s.Deposit(ctx, info)
	case "withdraw":
		return s.Withdraw(ctx, info, msg.Withdraw.Asset)
	case "receive":
		return s.Receive(ctx, info, *msg.Receive)
	case "collect_taxes":
		return s.CollectTaxes(ctx, info, msg.CollectTaxes.Asset)
	case "update_metadata":
		return s.UpdateMetadata(ctx, info, *msg.UpdateMetadata)
	default:
		return s.UpdateAdmin(ctx, info, msg.UpdateAdmin.Admin)
	}
}

func (s *service) AddComponent(
	ctx context.Context, info MessageInfo, component domain.Component,
) (*Response, errors.Error) {
	return s.execute(ctx, info, domain.EventTypeComponentAdded, func(
		ctx context.Context,
	) (*operation, errors.Error) {
		if _, err := s.assertAdmin(ctx, info.Sender); err != nil {
			return nil, err
		}
		assetMetadata := errors.AssetMetadata{Asset: component.Key()}
		existing, err := s.repoManager.Components().Get(ctx, component.Key())
		if err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(
				fmt.Errorf("failed to get component %s: %w", component.Key(), err),
			)
		}
		if existing != nil {
			return nil, errors.DUPLICATE_COMPONENT.New(
				"component %s already registered", component.Key(),
			).WithMetadata(assetMetadata)
		}
		if err := component.Validate(); err != nil {
			switch {
			case stderrors.Is(err, domain.ErrInvalidWithdrawalFee):
				return nil, errors.INVALID_WITHDRAWAL_FEE.Wrap(err).
					WithMetadata(errors.WithdrawalFeeMetadata{
						Fee:    component.WithdrawalTaxBps,
						MaxFee: domain.MaxWithdrawalTaxBps,
					})
			case stderrors.Is(err, domain.ErrInvalidWeight):
				return nil, errors.INVALID_WEIGHT.Wrap(err).
					WithMetadata(errors.WeightMetadata{
						Asset:  component.Key(),
						Weight: component.Weight.String(),
					})
			default:
				return nil, errors.INVALID_REQUEST.Wrap(err)
			}
		}

		if err := s.repoManager.Components().Add(ctx, component); err != nil {
			if stderrors.Is(err, domain.ErrComponentExists) {
				return nil, errors.DUPLICATE_COMPONENT.Wrap(err).WithMetadata(assetMetadata)
			}
			return nil, errors.INTERNAL_ERROR.Wrap(
				fmt.Errorf("failed to add component %s: %w", component.Key(), err),
			)
		}

		return &operation{
			attributes: []Attribute{
				{"action", "add_component"},
				{"asset", component.Key()},
				{"weight", component.Weight.String()},
				{"withdrawal_tax", fmt.Sprintf("%d", component.WithdrawalTaxBps)},
			},
		}, nil
	})
}

func (s *service) Deposit(ctx context.Context, info MessageInfo) (*Response, errors.Error) {
	return s.execute(ctx, info, domain.EventTypeDeposited, func(
		ctx context.Context,
	) (*operation, errors.Error) {
		if _, err := s.loadState(ctx); err != nil {
			return nil, err
		}
		if len(info.Funds) != 1 {
			return nil, errors.INVALID_FUNDS.New(
				"expected exactly one coin, got %d", len(info.Funds),
			).WithMetadata(errors.FundsMetadata{Funds: domain.Coins(info.Funds).Strings()})
		}

		fund := info.Funds[0]
		return s.deposit(ctx, domain.NativeAsset(fund.Denom), fund.Amount, info.Sender)
	})
}

func (s *service) Receive(
	ctx context.Context, info MessageInfo, msg Cw20ReceiveMsg,
) (*Response, errors.Error) {
	if msg.Sender == "" {
		return nil, errors.INVALID_REQUEST.New("missing cw20 sender")
	}
	if _, err := parseCw20HookMsg(msg.Msg); err != nil {
		return nil, errors.INVALID_PAYLOAD.Wrap(err).WithMetadata(errors.PayloadMetadata{
			Payload: string(msg.Msg),
		})
	}

	// The notifying contract is the token being deposited.
	token := domain.Cw20Asset(info.Sender)
	return s.execute(ctx, info, domain.EventTypeDeposited, func(
		ctx context.Context,
	) (*operation, errors.Error) {
		if _, err := s.loadState(ctx); err != nil {
			return nil, err
		}

		op, err := s.deposit(ctx, token, msg.Amount, msg.Sender)
		if err != nil {
			return nil, err
		}
		op.transfers = append(op.transfers, ports.Transfer{
			Asset:  token,
			From:   msg.Sender,
			To:     s.contract,
			Amount: msg.Amount,
		})
		return op, nil
	})
}

func (s *service) deposit(
	ctx context.Context, asset domain.Asset, amount fixedpoint.Amount, recipient string,
) (*operation, errors.Error) {
	component, err := s.getComponent(ctx, asset)
	if err != nil {
		return nil, err
	}

	mintAmount, mErr := component.MintAmount(amount)
	if mErr != nil {
		return nil, errors.ARITHMETIC_ERROR.Wrap(mErr).WithMetadata(errors.ArithmeticMetadata{
			Operation: "mint",
		})
	}
	mint, mErr := s.issuer.Mint(mintAmount, recipient)
	if mErr != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(mErr)
	}

	return &operation{
		instructions: mint,
		attributes: []Attribute{
			{"action", "deposit"},
			{"asset", asset.Key()},
			{"amount", amount.String()},
			{"mint_amount", mintAmount.String()},
			{"recipient", recipient},
		},
	}, nil
}

func (s *service) Withdraw(
	ctx context.Context, info MessageInfo, asset domain.Asset,
) (*Response, errors.Error) {
	return s.execute(ctx, info, domain.EventTypeWithdrawn, func(
		ctx context.Context,
	) (*operation, errors.Error) {
		if _, err := s.loadState(ctx); err != nil {
			return nil, err
		}

		denom := s.issuer.Denom()
		if len(info.Funds) != 1 || info.Funds[0].Denom != denom {
			return nil, errors.INVALID_FUNDS.New(
				"expected exactly one coin of %s", denom,
			).WithMetadata(errors.FundsMetadata{
				ExpectedDenom: denom,
				Funds:         domain.Coins(info.Funds).Strings(),
			})
		}
		fund := info.Funds[0]

		component, err := s.getComponent(ctx, asset)
		if err != nil {
			return nil, err
		}

		redemption, rErr := component.Redeem(fund.Amount)
		if rErr != nil {
			return nil, errors.ARITHMETIC_ERROR.Wrap(rErr).WithMetadata(
				errors.ArithmeticMetadata{Operation: "redeem"},
			)
		}

		if !redemption.Tax.IsZero() {
			if err := s.accrueTax(ctx, asset, redemption.Tax); err != nil {
				return nil, err
			}
		}

		burn, bErr := s.issuer.Burn(fund.Amount, s.contract)
		if bErr != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(bErr)
		}
		send, sErr := asset.Send(redemption.Net, info.Sender)
		if sErr != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(sErr)
		}

		return &operation{
			instructions: append(burn, send),
			attributes: []Attribute{
				{"action", "withdraw"},
				{"asset", asset.Key()},
				{"burned", redemption.Burned.String()},
				{"amount", redemption.Net.String()},
				{"tax", redemption.Tax.String()},
			},
		}, nil
	})
}

func (s *service) accrueTax(
	ctx context.Context, asset domain.Asset, tax fixedpoint.Amount,
) errors.Error {
	accrual, err := s.repoManager.Taxes().Get(ctx, asset)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(
			fmt.Errorf("failed to get taxes for %s: %w", asset, err),
		)
	}
	total := tax
	if accrual != nil {
		if total, err = accrual.Amount.Add(tax); err != nil {
			return errors.ARITHMETIC_ERROR.Wrap(err).WithMetadata(errors.ArithmeticMetadata{
				Operation: "accrue_tax",
			})
		}
	}
	if err := s.repoManager.Taxes().Upsert(ctx, asset, total); err != nil {
		return errors.INTERNAL_ERROR.Wrap(
			fmt.Errorf("failed to save taxes for %s: %w", asset, err),
		)
	}
	return nil
}

func (s *service) CollectTaxes(
	ctx context.Context, info MessageInfo, asset domain.Asset,
) (*Response, errors.Error) {
	return s.execute(ctx, info, domain.EventTypeTaxesCollected, func(
		ctx context.Context,
	) (*operation, errors.Error) {
		state, err := s.assertAdmin(ctx, info.Sender)
		if err != nil {
			return nil, err
		}

		accrual, tErr := s.repoManager.Taxes().Get(ctx, asset)
		if tErr != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(
				fmt.Errorf("failed to get taxes for %s: %w", asset, tErr),
			)
		}
		if accrual == nil {
			return nil, errors.NO_TAXES.New(
				"no taxes accrued for %s", asset,
			).WithMetadata(errors.AssetMetadata{Asset: asset.Key()})
		}
		if err := s.repoManager.Taxes().Remove(ctx, asset); err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(
				fmt.Errorf("failed to remove taxes for %s: %w", asset, err),
			)
		}

		send, sErr := asset.Send(accrual.Amount, state.Admin)
		if sErr != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(sErr)
		}

		return &operation{
			instructions: []domain.Instruction{send},
			attributes: []Attribute{
				{"action", "collect_taxes"},
				{"asset", asset.Key()},
				{"amount", accrual.Amount.String()},
			},
		}, nil
	})
}

func (s *service) UpdateMetadata(
	ctx context.Context, info MessageInfo, update domain.MetadataUpdate,
) (*Response, errors.Error) {
	return s.execute(ctx, info, domain.EventTypeMetadataUpdated, func(
		ctx context.Context,
	) (*operation, errors.Error) {
		if _, err := s.assertAdmin(ctx, info.Sender); err != nil {
			return nil, err
		}

		current, err := s.ledger.DenomMetadata(ctx, s.issuer.Denom())
		if err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(
				fmt.Errorf("failed to get metadata of %s: %w", s.issuer.Denom(), err),
			)
		}
		setMetadata, err := s.issuer.SetMetadata(current.Apply(update))
		if err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(err)
		}

		return &operation{
			instructions: setMetadata,
			attributes:   []Attribute{{"action", "update_metadata"}},
		}, nil
	})
}

func (s *service) UpdateAdmin(
	ctx context.Context, info MessageInfo, admin string,
) (*Response, errors.Error) {
	if admin == "" {
		return nil, errors.INVALID_REQUEST.New("missing new admin")
	}

	return s.execute(ctx, info, domain.EventTypeAdminUpdated, func(
		ctx context.Context,
	) (*operation, errors.Error) {
		state, err := s.assertAdmin(ctx, info.Sender)
		if err != nil {
			return nil, err
		}

		state.Admin = admin
		if err := s.repoManager.State().Upsert(ctx, *state); err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to save state: %w", err))
		}

		return &operation{
			attributes: []Attribute{
				{"action", "update_admin"},
				{"new_admin", admin},
			},
		}, nil
	})
}

func (s *service) Query(ctx context.Context, msg QueryMsg) (any, errors.Error) {
	count := 0
	for _, set := range []bool{
		msg.Components != nil, msg.Taxes != nil, msg.Info != nil, msg.Reserves != nil,
	} {
		if set {
			count++
		}
	}
	if count != 1 {
		return nil, errors.INVALID_REQUEST.New("expected exactly one query variant, got %d", count)
	}

	switch {
	case msg.Components != nil:
		return s.Components(ctx)
	case msg.Taxes != nil:
		return s.Taxes(ctx)
	case msg.Info != nil:
		return s.Info(ctx)
	default:
		return s.Reserves(ctx)
	}
}

func (s *service) Components(ctx context.Context) (*ComponentsResponse, errors.Error) {
	components, err := s.repoManager.Components().List(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to list components: %w", err))
	}
	return &ComponentsResponse{Components: components}, nil
}

func (s *service) Taxes(ctx context.Context) (*TaxesResponse, errors.Error) {
	taxes, err := s.repoManager.Taxes().List(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to list taxes: %w", err))
	}
	return &TaxesResponse{Taxes: taxes}, nil
}

func (s *service) Info(ctx context.Context) (*InfoResponse, errors.Error) {
	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}
	return &InfoResponse{
		Admin:           state.Admin,
		Denom:           s.issuer.Denom(),
		Contract:        s.contract,
		ContractName:    state.ContractName,
		ContractVersion: state.ContractVersion,
	}, nil
}

func (s *service) Reserves(ctx context.Context) (*ReservesResponse, errors.Error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.reserves(ctx)
}

func (s *service) reserves(ctx context.Context) (*ReservesResponse, errors.Error) {
	components, err := s.repoManager.Components().List(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to list components: %w", err))
	}
	supply, err := s.ledger.Supply(ctx, s.issuer.Denom())
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to get basket supply: %w", err))
	}

	reserves := make([]Reserve, 0, len(components))
	for _, component := range components {
		balance, err := s.ledger.Balance(ctx, component.Token, s.contract)
		if err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(
				fmt.Errorf("failed to get balance of %s: %w", component.Token, err),
			)
		}
		reserve := Reserve{Asset: component.Token, Balance: balance}

		accrual, err := s.repoManager.Taxes().Get(ctx, component.Token)
		if err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(
				fmt.Errorf("failed to get taxes for %s: %w", component.Token, err),
			)
		}
		if accrual != nil {
			reserve.Taxes = accrual.Amount
		}
		reserves = append(reserves, reserve)
	}
	return &ReservesResponse{Supply: supply, Reserves: reserves}, nil
}

func (s *service) Fund(
	ctx context.Context, asset domain.Asset, address string, amount fixedpoint.Amount,
) errors.Error {
	if !s.allowFaucet {
		return errors.FAUCET_DISABLED.New("faucet is disabled")
	}
	if err := asset.Validate(); err != nil {
		return errors.INVALID_REQUEST.Wrap(err)
	}
	if address == "" {
		return errors.INVALID_REQUEST.New("missing address")
	}
	if amount.IsZero() {
		return errors.INVALID_REQUEST.New("amount must be greater than zero")
	}

	if err := s.ledger.Fund(ctx, asset, address, amount); err != nil {
		return errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to fund %s: %w", address, err))
	}
	log.WithFields(log.Fields{
		"asset":   asset.Key(),
		"address": address,
		"amount":  amount.String(),
	}).Info("funded account")
	return nil
}

func (s *service) GetEventsChannel(
	ctx context.Context,
) (<-chan domain.BasketEvent, errors.Error) {
	ch, err := s.publisher.Subscribe(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to subscribe to events: %w", err))
	}
	return ch, nil
}

// operation is what a state transition hands back to execute: the funds moved
// into the contract, the instructions for the ledger and the response attributes.
type operation struct {
	transfers    []ports.Transfer
	instructions []domain.Instruction
	attributes   []Attribute
}

// execute runs fn and applies the resulting ledger tx within one store
// transaction. A rejected ledger tx discards every write made by fn. The event
// is published only after the transaction committed.
func (s *service) execute(
	ctx context.Context,
	info MessageInfo,
	eventType domain.EventType,
	fn func(ctx context.Context) (*operation, errors.Error),
) (*Response, errors.Error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var (
		op      *operation
		opErr   errors.Error
		applied bool
	)
	if err := s.repoManager.RunInTx(ctx, func(ctx context.Context) error {
		var err errors.Error
		if op, err = fn(ctx); err != nil {
			opErr = err
			return err
		}

		transfers := make([]ports.Transfer, 0, len(info.Funds)+len(op.transfers))
		for _, coin := range info.Funds {
			transfers = append(transfers, ports.Transfer{
				Asset:  domain.NativeAsset(coin.Denom),
				From:   info.Sender,
				To:     s.contract,
				Amount: coin.Amount,
			})
		}
		transfers = append(transfers, op.transfers...)

		if err := s.ledger.Apply(ctx, ports.LedgerTx{
			Contract:     s.contract,
			Transfers:    transfers,
			Instructions: op.instructions,
		}); err != nil {
			opErr = errors.LEDGER_REJECTED.Wrap(err)
			return err
		}
		applied = true
		return nil
	}); err != nil {
		if opErr != nil {
			return nil, opErr
		}
		if applied {
			log.WithError(err).Errorf(
				"%s applied on ledger but failed to commit state", eventType,
			)
		}
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	log.WithFields(log.Fields{
		"sender":       info.Sender,
		"instructions": len(op.instructions),
	}).Infof("executed %s", eventType)

	s.publish(ctx, eventType, info.Sender, op.attributes)

	messages := op.instructions
	if messages == nil {
		messages = make([]domain.Instruction, 0)
	}
	return &Response{Messages: messages, Attributes: op.attributes}, nil
}

func (s *service) publish(
	ctx context.Context, eventType domain.EventType, sender string, attributes []Attribute,
) {
	attrs := make(map[string]string, len(attributes))
	for _, attr := range attributes {
		attrs[attr.Key] = attr.Value
	}
	event := domain.BasketEvent{
		Id:         uuid.NewString(),
		Type:       eventType,
		Sender:     sender,
		Attributes: attrs,
		Timestamp:  time.Now().Unix(),
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		log.WithError(err).Warnf("failed to publish %s event", eventType)
	}
}

func (s *service) loadState(ctx context.Context) (*domain.State, errors.Error) {
	state, err := s.repoManager.State().Get(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to get state: %w", err))
	}
	if state == nil {
		return nil, errors.NOT_INSTANTIATED.New("basket not instantiated")
	}
	return state, nil
}

func (s *service) assertAdmin(ctx context.Context, sender string) (*domain.State, errors.Error) {
	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if !state.IsAdmin(sender) {
		return nil, errors.UNAUTHORIZED.New(
			"sender %s is not the admin", sender,
		).WithMetadata(errors.SenderMetadata{Sender: sender})
	}
	return state, nil
}

func (s *service) getComponent(
	ctx context.Context, asset domain.Asset,
) (*domain.Component, errors.Error) {
	component, err := s.repoManager.Components().Get(ctx, asset.Key())
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(
			fmt.Errorf("failed to get component %s: %w", asset.Key(), err),
		)
	}
	if component == nil {
		return nil, errors.UNKNOWN_ASSET.New(
			"asset %s is not a basket component", asset.Key(),
		).WithMetadata(errors.AssetMetadata{Asset: asset.Key()})
	}
	return component, nil
}
