package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/facility"
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/obligation"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

func createTestFacilityAndObligation(t *testing.T, h *harness) (*facility.Facility, ids.ObligationID) {
	t.Helper()

	f := createTestFacility(t, h)

	obligationID := ids.NewObligationID()
	dueAt, overdueAt, defaultedAt := f.Terms().ObligationDates(h.now)

	o, err := obligation.Create(obligationID, f.ID(), obligation.KindDisbursal, money.UsdCents(50_000_00), dueAt, overdueAt, defaultedAt, h.now)
	require.NoError(t, err)
	require.NoError(t, h.obligations.Save(context.Background(), obligationID.String(), o, 1))

	return f, obligationID
}

func TestRecordObligationDue_PostsReclassificationAndIsIdempotent(t *testing.T) {
	h := newHarness()
	_, obligationID := createTestFacilityAndObligation(t, h)

	outcome, err := h.svc.RecordObligationDue(context.Background(), obligationID)
	require.NoError(t, err)
	assert.True(t, outcome.WasExecuted())

	txs := h.ledger.transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.TemplateRecordObligationDue, txs[0].Template)

	again, err := h.svc.RecordObligationDue(context.Background(), obligationID)
	require.NoError(t, err)
	assert.False(t, again.WasExecuted())
	assert.Len(t, h.ledger.transactions(), 1)

	assert.Equal(t, []string{"ObligationDue"}, h.outbox.types())
}

func TestRecordObligationOverdue(t *testing.T) {
	h := newHarness()
	_, obligationID := createTestFacilityAndObligation(t, h)

	_, err := h.svc.RecordObligationDue(context.Background(), obligationID)
	require.NoError(t, err)

	outcome, err := h.svc.RecordObligationOverdue(context.Background(), obligationID)
	require.NoError(t, err)
	assert.True(t, outcome.WasExecuted())
}

func TestRecordObligationDefaulted(t *testing.T) {
	h := newHarness()
	_, obligationID := createTestFacilityAndObligation(t, h)

	_, err := h.svc.RecordObligationDue(context.Background(), obligationID)
	require.NoError(t, err)
	_, err = h.svc.RecordObligationOverdue(context.Background(), obligationID)
	require.NoError(t, err)

	outcome, err := h.svc.RecordObligationDefaulted(context.Background(), obligationID)
	require.NoError(t, err)
	assert.True(t, outcome.WasExecuted())

	assert.Equal(t, []string{"ObligationDue", "ObligationOverdue", "ObligationDefaulted"}, h.outbox.types())
}
