package jobhandlers

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/obligation"
	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
	"github.com/tanakasan3/lana-bank-sub001/internal/outbox"
)

// JobTypeCollateralizationEngine names the Unique job driving
// CollateralizationEngine.Dispatch.
const JobTypeCollateralizationEngine = "collateralization-engine"

// PendingMembership and FacilityMembership answer "is this id currently
// pending / currently active," backing the routing decision below —
// implemented by internal/adapters/postgres/pendingindex.Store.IsPending
// and internal/adapters/postgres/facilityindex.Store.IsActive.
type PendingMembership interface {
	IsPending(ctx context.Context, id string) (bool, error)
}

type FacilityMembership interface {
	IsActive(ctx context.Context, id string) (bool, error)
}

// FacilityEnumerator and PendingEnumerator back the price-tick fan-out,
// one page at a time ordered by collateralization ratio ascending (worst
// collateralized first) — implemented by
// facilityindex.Store.ActiveFacilityIDsPage and
// pendingindex.Store.NonCompletedPendingIDsPage.
type FacilityEnumerator interface {
	ActiveFacilityIDsPage(ctx context.Context, offset, limit int) ([]string, error)
}

type PendingEnumerator interface {
	NonCompletedPendingIDsPage(ctx context.Context, offset, limit int) ([]string, error)
}

// priceTickPageSize bounds how many facilities/pendings onPriceUpdated
// re-evaluates per page, per spec.md §4.8 "repeats the check batched
// (page size ~10)".
const priceTickPageSize = 10

// CollateralizationEngine re-evaluates collateralization state whenever
// a facility's collateral, outstanding balance, or the BTC price moves,
// per spec.md §3/§4.7-4.8. Durable triggers (FacilityCollateralUpdated,
// ObligationCreated, PaymentAllocated) re-evaluate the single facility
// they name; the ephemeral PriceUpdated trigger, carrying no facility
// id of its own, fans out to every currently active or pending
// facility.
//
// PriceUpdated arrives with outbox.Sequence 0 (internal/adapters/redis
// tags it as ephemeral) so the consumer runner never checkpoints past
// it — every restart re-applies the latest price tick, which is
// harmless since ReevaluateFacility/ReevaluatePending are idempotent
// no-ops when the state hasn't moved.
type CollateralizationEngine struct {
	Obligations *eventlog.Repo[*obligation.Obligation]

	PendingMembership PendingMembership
	FacilityIndex     FacilityMembership

	Facilities FacilityEnumerator
	Pendings   PendingEnumerator

	ReevaluateFacility func(ctx context.Context, facilityID ids.CreditFacilityID, price money.PriceOfOneBTC) error
	ReevaluatePending  func(ctx context.Context, id ids.PendingCreditFacilityID, price money.PriceOfOneBTC) error

	mu        sync.Mutex
	lastPrice money.PriceOfOneBTC
}

var _ outbox.Dispatch = (*CollateralizationEngine)(nil).Dispatch

// Dispatch implements outbox.Dispatch.
func (e *CollateralizationEngine) Dispatch(ctx context.Context, op outbox.UnitOfWork, sq outbox.Sequenced) error {
	switch sq.Event.Type {
	case events.TypePriceUpdated:
		return e.onPriceUpdated(ctx, sq)
	case events.TypeFacilityCollateralUpdated:
		var p events.FacilityCollateralUpdated
		if err := events.Decode(sq.Event.Payload, &p); err != nil {
			return errors.Wrap(err, "decode FacilityCollateralUpdated")
		}

		return e.reevaluateByID(ctx, p.FacilityID)
	case events.TypeObligationCreated:
		var p events.ObligationCreated
		if err := events.Decode(sq.Event.Payload, &p); err != nil {
			return errors.Wrap(err, "decode ObligationCreated")
		}

		return e.reevaluateByID(ctx, p.FacilityID)
	case events.TypePaymentAllocated:
		var p events.PaymentAllocated
		if err := events.Decode(sq.Event.Payload, &p); err != nil {
			return errors.Wrap(err, "decode PaymentAllocated")
		}

		o, err := e.Obligations.Load(ctx, p.ObligationID)
		if err != nil {
			return errors.Wrap(err, "load obligation for payment allocation")
		}

		return e.reevaluateByID(ctx, o.FacilityID().String())
	default:
		return nil
	}
}

func (e *CollateralizationEngine) onPriceUpdated(ctx context.Context, sq outbox.Sequenced) error {
	var p events.PriceUpdated
	if err := events.Decode(sq.Event.Payload, &p); err != nil {
		return errors.Wrap(err, "decode PriceUpdated")
	}

	e.mu.Lock()
	e.lastPrice = p.Price
	e.mu.Unlock()

	for offset := 0; ; offset += priceTickPageSize {
		page, err := e.Facilities.ActiveFacilityIDsPage(ctx, offset, priceTickPageSize)
		if err != nil {
			return errors.Wrap(err, "page active facilities")
		}

		for _, idStr := range page {
			facilityID, err := ids.ParseCreditFacilityID(idStr)
			if err != nil {
				return errors.Wrap(err, "parse active facility id")
			}

			if err := e.ReevaluateFacility(ctx, facilityID, p.Price); err != nil {
				return errors.Wrapf(err, "reevaluate facility %s", idStr)
			}
		}

		if len(page) < priceTickPageSize {
			break
		}
	}

	for offset := 0; ; offset += priceTickPageSize {
		page, err := e.Pendings.NonCompletedPendingIDsPage(ctx, offset, priceTickPageSize)
		if err != nil {
			return errors.Wrap(err, "page pending facilities")
		}

		for _, idStr := range page {
			pendingID, err := ids.ParsePendingCreditFacilityID(idStr)
			if err != nil {
				return errors.Wrap(err, "parse pending facility id")
			}

			if err := e.ReevaluatePending(ctx, pendingID, p.Price); err != nil {
				return errors.Wrapf(err, "reevaluate pending %s", idStr)
			}
		}

		if len(page) < priceTickPageSize {
			break
		}
	}

	return nil
}

// reevaluateByID routes a single facility/pending id to the right
// re-evaluation path using the last known price. Durable trigger events
// never carry a price of their own — the collateral/outstanding change
// they report is evaluated against whatever price the engine last saw.
func (e *CollateralizationEngine) reevaluateByID(ctx context.Context, idStr string) error {
	e.mu.Lock()
	price := e.lastPrice
	e.mu.Unlock()

	if price == 0 {
		// No price tick observed yet; nothing to evaluate against.
		return nil
	}

	isPending, err := e.PendingMembership.IsPending(ctx, idStr)
	if err != nil {
		return errors.Wrap(err, "check pending membership")
	}

	if isPending {
		pendingID, err := ids.ParsePendingCreditFacilityID(idStr)
		if err != nil {
			return errors.Wrap(err, "parse pending facility id")
		}

		return e.ReevaluatePending(ctx, pendingID, price)
	}

	isActive, err := e.FacilityIndex.IsActive(ctx, idStr)
	if err != nil {
		return errors.Wrap(err, "check facility membership")
	}

	if !isActive {
		return nil
	}

	facilityID, err := ids.ParseCreditFacilityID(idStr)
	if err != nil {
		return errors.Wrap(err, "parse active facility id")
	}

	return e.ReevaluateFacility(ctx, facilityID, price)
}
