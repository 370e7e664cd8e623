package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/proposal"
	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
	"github.com/tanakasan3/lana-bank-sub001/internal/platform/mlog"
)

// WalletLookup answers "which facility owns this custody wallet,"
// implemented by internal/adapters/postgres/walletindex.Store.
type WalletLookup interface {
	FacilityIDForWallet(ctx context.Context, walletID string) (string, bool, error)
}

// Commands is the subset of *services.Service the consumer drives,
// narrowed here so this adapter doesn't need the full Service surface.
type Commands interface {
	SetFacilityCollateralBalance(ctx context.Context, facilityID ids.CreditFacilityID, newBalance money.Satoshis) (eventlog.Outcome[money.Satoshis], error)
	RecordPayment(ctx context.Context, paymentID ids.PaymentID, facilityID ids.CreditFacilityID, amount money.UsdCents) (eventlog.Outcome[money.UsdCents], error)
	ConcludeProposal(ctx context.Context, id ids.CreditFacilityProposalID, conclusion proposal.Conclusion) (eventlog.Outcome[proposal.Conclusion], error)
}

// PricePublisher rebroadcasts an inbound price tick onto the ephemeral
// in-process channel the collateralization engine listens on —
// internal/adapters/redis.PriceTicker.Publish.
type PricePublisher interface {
	Publish(ctx context.Context, price events.PriceUpdated) error
}

// Consumer drains one rabbitmq queue of inbound events and dispatches
// each to the matching Service command, per spec.md §6. Unlike the
// outbox consumers (internal/adapters/postgres.NewOutboxConsumerRunner),
// these are external-system inputs with no durable sequence of their
// own — rabbitmq's own delivery ack/nack is the position to resume
// from, grounded on the teacher's ConsumerRabbitMQRepository.
type Consumer struct {
	Conn    *Connection
	Queue   string
	Wallets WalletLookup
	Cmds    Commands
	Prices  PricePublisher
	Logger  mlog.Logger
}

// Run consumes until ctx is canceled or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.Conn.GetChannel(ctx)
	if err != nil {
		return err
	}

	deliveries, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}

			if err := c.handle(ctx, d); err != nil {
				c.Logger.Errorf("rabbitmq: handling %s failed: %v", c.Queue, err)
				_ = d.Nack(false, true)

				continue
			}

			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) error {
	var ev events.Event

	if err := json.Unmarshal(d.Body, &ev); err != nil {
		return err
	}

	switch ev.Type {
	case events.TypeCustomerKycUpdated:
		// KYC policy enforcement is out of scope (spec.md Non-goals); the
		// credit core only needs to be aware a customer's record changed,
		// which currently requires no action of its own.
		var p events.CustomerKycUpdated
		if err := events.Decode(ev.Payload, &p); err != nil {
			return err
		}

		c.Logger.Infof("rabbitmq: customer %s kyc now %s", p.CustomerID, p.KycVerification)

		return nil

	case events.TypeWalletBalanceUpdated:
		var p events.WalletBalanceUpdated
		if err := events.Decode(ev.Payload, &p); err != nil {
			return err
		}

		facilityIDStr, ok, err := c.Wallets.FacilityIDForWallet(ctx, p.WalletID)
		if err != nil {
			return err
		}

		if !ok {
			c.Logger.Infof("rabbitmq: wallet %s has no facility mapping, ignoring balance update", p.WalletID)
			return nil
		}

		facilityID, err := ids.ParseCreditFacilityID(facilityIDStr)
		if err != nil {
			return err
		}

		_, err = c.Cmds.SetFacilityCollateralBalance(ctx, facilityID, p.BalanceSats)

		return err

	case events.TypePriceUpdated:
		var p events.PriceUpdated
		if err := events.Decode(ev.Payload, &p); err != nil {
			return err
		}

		return c.Prices.Publish(ctx, p)

	case events.TypeDepositRecorded:
		var p events.DepositRecorded
		if err := events.Decode(ev.Payload, &p); err != nil {
			return err
		}

		facilityID, err := ids.ParseCreditFacilityID(p.AccountID)
		if err != nil {
			return err
		}

		_, err = c.Cmds.RecordPayment(ctx, ids.NewPaymentID(), facilityID, p.Amount)

		return err

	case events.TypeApprovalProcessConcluded:
		var p events.ApprovalProcessConcluded
		if err := events.Decode(ev.Payload, &p); err != nil {
			return err
		}

		proposalID, err := ids.ParseCreditFacilityProposalID(p.ProcessID)
		if err != nil {
			return err
		}

		conclusion := proposal.Denied
		if p.Approved {
			conclusion = proposal.Approved
		}

		_, err = c.Cmds.ConcludeProposal(ctx, proposalID, conclusion)

		return err

	default:
		return nil
	}
}
