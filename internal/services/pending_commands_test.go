package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/pending"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

func createTestPending(t *testing.T, h *harness, walletID string) *pending.Pending {
	t.Helper()

	proposalID := ids.NewCreditFacilityProposalID()
	customerID := ids.CustomerID(uuid.New())

	p, err := h.svc.CreatePendingFacility(context.Background(), proposalID, customerID, money.UsdCents(200_000_00), sampleTerms(), walletID)
	require.NoError(t, err)

	return p
}

func TestCreatePendingFacility_PostsCreateTemplate(t *testing.T) {
	h := newHarness()

	p := createTestPending(t, h, "")
	assert.Equal(t, []string{"PendingCreditFacilityCreated"}, h.outbox.types())

	txs := h.ledger.transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, "create-pending-facility:"+p.ID().String(), txs[0].TxID)
}

func TestUpdatePendingCollateral_RejectsOperatorSourceWithWallet(t *testing.T) {
	h := newHarness()
	p := createTestPending(t, h, "wallet-1")

	_, err := h.svc.UpdatePendingCollateral(context.Background(), p.ID(), pending.SourceOperator, money.Satoshis(1_000_000))
	assert.ErrorIs(t, err, pending.ErrCustodianPrecondition)
}

func TestUpdatePendingCollateral_AcceptsCustodianSourceWithWallet(t *testing.T) {
	h := newHarness()
	p := createTestPending(t, h, "wallet-1")

	outcome, err := h.svc.UpdatePendingCollateral(context.Background(), p.ID(), pending.SourceCustodianSync, money.Satoshis(1_000_000))
	require.NoError(t, err)
	require.True(t, outcome.WasExecuted())
	assert.Equal(t, money.Satoshis(1_000_000), outcome.Value())
}

func TestCompletePendingFacility_RequiresFullCollateralization(t *testing.T) {
	h := newHarness()
	p := createTestPending(t, h, "")

	_, err := h.svc.CompletePendingFacility(context.Background(), p.ID())
	assert.Error(t, err)
}

func TestCompletePendingFacility_ActivatesOnceFullyCollateralized(t *testing.T) {
	h := newHarness()
	p := createTestPending(t, h, "")

	// Fund 3 BTC of collateral against a $200,000 commitment at
	// $100,000/BTC: a 150% CVL, comfortably clearing MarginCallCVL plus
	// the upgrade buffer. The lattice only moves one rung per call, so
	// reaching FullyCollateralized from UnderLiquidationThreshold takes
	// two reevaluations.
	_, err := h.svc.UpdatePendingCollateral(context.Background(), p.ID(), pending.SourceOperator, money.Satoshis(300_000_000))
	require.NoError(t, err)

	price := money.PriceOfOneBTC(100_000_00)
	_, err = h.svc.ReevaluatePendingCollateralization(context.Background(), p.ID(), price)
	require.NoError(t, err)
	_, err = h.svc.ReevaluatePendingCollateralization(context.Background(), p.ID(), price)
	require.NoError(t, err)

	f, err := h.svc.CompletePendingFacility(context.Background(), p.ID())
	require.NoError(t, err)
	assert.Equal(t, p.ID().AsCreditFacilityID(), f.ID())

	again, err := h.svc.CompletePendingFacility(context.Background(), p.ID())
	require.NoError(t, err)
	assert.Equal(t, f.ID(), again.ID())
}
