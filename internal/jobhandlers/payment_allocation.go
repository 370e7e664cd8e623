package jobhandlers

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/outbox"
)

// JobTypePaymentAllocation names the outbox-consumer job that runs the
// allocation algorithm whenever a payment is recorded.
const JobTypePaymentAllocation = "payment-allocation"

// PaymentAllocator allocates one payment's unallocated remainder against
// open obligations — *services.Service.AllocatePayment, narrowed to
// avoid importing internal/services from this leaf package.
type PaymentAllocator struct {
	Allocate func(ctx context.Context, paymentID ids.PaymentID) error
}

var _ outbox.Dispatch = (*PaymentAllocator)(nil).Dispatch

// Dispatch implements outbox.Dispatch: every PaymentReceived triggers
// one allocation pass. AllocatePayment is itself idempotent on a
// payment's already-allocated remainder, so redelivery under
// at-least-once delivery is safe.
func (a *PaymentAllocator) Dispatch(ctx context.Context, op outbox.UnitOfWork, sq outbox.Sequenced) error {
	if sq.Event.Type != events.TypePaymentReceived {
		return nil
	}

	var p events.PaymentReceived
	if err := events.Decode(sq.Event.Payload, &p); err != nil {
		return errors.Wrap(err, "decode PaymentReceived")
	}

	paymentID, err := ids.ParsePaymentID(p.PaymentID)
	if err != nil {
		return errors.Wrap(err, "parse payment id")
	}

	return a.Allocate(ctx, paymentID)
}
