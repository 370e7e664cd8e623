package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/proposal"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

func TestCreateProposal_PublishesCreatedEvent(t *testing.T) {
	h := newHarness()
	customerID := ids.CustomerID(uuid.New())

	p, err := h.svc.CreateProposal(context.Background(), customerID, money.UsdCents(500_000_00), sampleTerms())
	require.NoError(t, err)
	assert.Equal(t, customerID, p.CustomerID())
	assert.False(t, p.IsConcluded())
	assert.Equal(t, []string{"FacilityProposalCreated"}, h.outbox.types())
}

func TestConcludeProposal_ApproveIsIdempotent(t *testing.T) {
	h := newHarness()
	customerID := ids.CustomerID(uuid.New())

	p, err := h.svc.CreateProposal(context.Background(), customerID, money.UsdCents(500_000_00), sampleTerms())
	require.NoError(t, err)

	outcome, err := h.svc.ConcludeProposal(context.Background(), p.ID(), proposal.Approved)
	require.NoError(t, err)
	require.True(t, outcome.WasExecuted())
	assert.Equal(t, proposal.Approved, outcome.Value())

	again, err := h.svc.ConcludeProposal(context.Background(), p.ID(), proposal.Approved)
	require.NoError(t, err)
	assert.False(t, again.WasExecuted())

	assert.Equal(t, []string{"FacilityProposalCreated", "FacilityProposalConcluded"}, h.outbox.types())
}

func TestConcludeProposal_DenyAfterApproveIsNotReapplied(t *testing.T) {
	h := newHarness()
	customerID := ids.CustomerID(uuid.New())

	p, err := h.svc.CreateProposal(context.Background(), customerID, money.UsdCents(500_000_00), sampleTerms())
	require.NoError(t, err)

	_, err = h.svc.ConcludeProposal(context.Background(), p.ID(), proposal.Approved)
	require.NoError(t, err)

	// A once-concluded proposal is sealed: a later, different
	// conclusion is treated as AlreadyApplied rather than overwriting
	// the recorded outcome.
	outcome, err := h.svc.ConcludeProposal(context.Background(), p.ID(), proposal.Denied)
	require.NoError(t, err)
	assert.False(t, outcome.WasExecuted())
}
