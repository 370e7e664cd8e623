package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tanakasan3/lana-bank-sub001/internal/events"
)

func TestApply_ClassifiesAndOrdersNewestFirst(t *testing.T) {
	tl := NewTimeline()

	t0 := time.Now()
	tl.Apply(events.New(events.TypeFacilityProposalConcluded, t0, nil))
	tl.Apply(events.New(events.TypeDisbursalSettled, t0.Add(time.Minute), nil))
	tl.Apply(events.New(events.TypePaymentReceived, t0.Add(2*time.Minute), nil))

	entries := tl.Entries()
	assert.Len(t, entries, 3)
	assert.Equal(t, KindPayment, entries[0].Kind)
	assert.Equal(t, KindDisbursal, entries[1].Kind)
	assert.Equal(t, KindApproved, entries[2].Kind)
}

func TestApply_IgnoresUnrecognizedEventTypes(t *testing.T) {
	tl := NewTimeline()
	tl.Apply(events.New(events.TypeCustomerKycUpdated, time.Now(), nil))

	assert.Empty(t, tl.Entries())
}
