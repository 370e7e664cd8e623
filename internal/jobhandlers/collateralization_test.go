package jobhandlers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
	"github.com/tanakasan3/lana-bank-sub001/internal/outbox"
)

// fakeFacilityEnumerator/fakePendingEnumerator serve fixed id slices
// page by page, recording every (offset, limit) they were asked for so
// tests can assert on page size and page count.
type fakeFacilityEnumerator struct {
	ids   []string
	calls []int // offsets requested
}

func (f *fakeFacilityEnumerator) ActiveFacilityIDsPage(ctx context.Context, offset, limit int) ([]string, error) {
	f.calls = append(f.calls, offset)

	if offset >= len(f.ids) {
		return nil, nil
	}

	end := offset + limit
	if end > len(f.ids) {
		end = len(f.ids)
	}

	return f.ids[offset:end], nil
}

type fakePendingEnumerator struct {
	ids   []string
	calls []int
}

func (f *fakePendingEnumerator) NonCompletedPendingIDsPage(ctx context.Context, offset, limit int) ([]string, error) {
	f.calls = append(f.calls, offset)

	if offset >= len(f.ids) {
		return nil, nil
	}

	end := offset + limit
	if end > len(f.ids) {
		end = len(f.ids)
	}

	return f.ids[offset:end], nil
}

// TestCollateralizationEngine_OnPriceUpdated_PagesInOrder covers spec.md
// §4.8 "paginates by collateralization ratio ascending and repeats the
// check batched (page size ~10)": a PriceUpdated tick must re-evaluate
// every active facility and non-completed pending in the order the
// enumerator hands them back (the enumerator itself is responsible for
// the ratio-ascending ORDER BY; the engine just has to walk pages
// without skipping or re-fetching the whole set at once).
func TestCollateralizationEngine_OnPriceUpdated_PagesInOrder(t *testing.T) {
	facilityIDs := make([]string, 0, 23)
	for i := 0; i < 23; i++ {
		facilityIDs = append(facilityIDs, ids.CreditFacilityID(uuid.New()).String())
	}

	pendingIDs := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		pendingIDs = append(pendingIDs, ids.PendingCreditFacilityID(uuid.New()).String())
	}

	facilities := &fakeFacilityEnumerator{ids: facilityIDs}
	pendings := &fakePendingEnumerator{ids: pendingIDs}

	var reevaluatedFacilities []string
	var reevaluatedPendings []string

	engine := &CollateralizationEngine{
		Facilities: facilities,
		Pendings:   pendings,
		ReevaluateFacility: func(ctx context.Context, facilityID ids.CreditFacilityID, price money.PriceOfOneBTC) error {
			reevaluatedFacilities = append(reevaluatedFacilities, facilityID.String())
			return nil
		},
		ReevaluatePending: func(ctx context.Context, id ids.PendingCreditFacilityID, price money.PriceOfOneBTC) error {
			reevaluatedPendings = append(reevaluatedPendings, id.String())
			return nil
		},
	}

	err := engine.Dispatch(context.Background(), nil, outbox.Sequenced{
		Sequence: 0,
		Event:    events.New(events.TypePriceUpdated, time.Now(), events.PriceUpdated{Price: money.PriceOfOneBTC(100_000_00)}),
	})
	require.NoError(t, err)

	assert.Equal(t, facilityIDs, reevaluatedFacilities, "every active facility is visited, in the enumerator's order")
	assert.Equal(t, pendingIDs, reevaluatedPendings, "every non-completed pending is visited, in the enumerator's order")

	// 23 facilities at page size 10 is 3 pages (10, 10, 3); the third,
	// short page is what stops the loop.
	assert.Equal(t, []int{0, 10, 20}, facilities.calls)
	// 7 pendings fit in a single short page.
	assert.Equal(t, []int{0}, pendings.calls)
}
