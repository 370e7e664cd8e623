package services

import (
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/collateral"
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/facility"
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/liquidation"
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/obligation"
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/payment"
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/pending"
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/proposal"
	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
)

// ProposalRepo, etc. are the concrete generic Repo instantiations the
// Service depends on. One EventStore per aggregate kind backs each,
// wired in internal/bootstrap to a per-entity postgres adapter.
type (
	ProposalRepo    = eventlog.Repo[*proposal.Proposal]
	PendingRepo     = eventlog.Repo[*pending.Pending]
	FacilityRepo    = eventlog.Repo[*facility.Facility]
	ObligationRepo  = eventlog.Repo[*obligation.Obligation]
	PaymentRepo     = eventlog.Repo[*payment.Payment]
	CollateralRepo  = eventlog.Repo[*collateral.Collateral]
	LiquidationRepo = eventlog.Repo[*liquidation.Liquidation]
)

// NewProposalRepo wires a ProposalRepo over the given store.
func NewProposalRepo(store eventlog.EventStore) *ProposalRepo {
	return &ProposalRepo{Store: store, Hydrate: func(id string, evs []eventlog.Event) (*proposal.Proposal, error) {
		return proposal.Hydrate(parseProposalID(id), evs)
	}}
}

// NewPendingRepo wires a PendingRepo over the given store.
func NewPendingRepo(store eventlog.EventStore) *PendingRepo {
	return &PendingRepo{Store: store, Hydrate: func(id string, evs []eventlog.Event) (*pending.Pending, error) {
		return pending.Hydrate(parsePendingID(id), evs)
	}}
}

// NewFacilityRepo wires a FacilityRepo over the given store.
func NewFacilityRepo(store eventlog.EventStore) *FacilityRepo {
	return &FacilityRepo{Store: store, Hydrate: func(id string, evs []eventlog.Event) (*facility.Facility, error) {
		return facility.Hydrate(parseFacilityID(id), evs)
	}}
}

// NewObligationRepo wires an ObligationRepo over the given store.
func NewObligationRepo(store eventlog.EventStore) *ObligationRepo {
	return &ObligationRepo{Store: store, Hydrate: func(id string, evs []eventlog.Event) (*obligation.Obligation, error) {
		return obligation.Hydrate(parseObligationID(id), evs)
	}}
}

// NewPaymentRepo wires a PaymentRepo over the given store.
func NewPaymentRepo(store eventlog.EventStore) *PaymentRepo {
	return &PaymentRepo{Store: store, Hydrate: func(id string, evs []eventlog.Event) (*payment.Payment, error) {
		return payment.Hydrate(parsePaymentID(id), evs)
	}}
}

// NewCollateralRepo wires a CollateralRepo over the given store.
func NewCollateralRepo(store eventlog.EventStore) *CollateralRepo {
	return &CollateralRepo{Store: store, Hydrate: func(id string, evs []eventlog.Event) (*collateral.Collateral, error) {
		return collateral.Hydrate(parseCollateralID(id), evs)
	}}
}

// NewLiquidationRepo wires a LiquidationRepo over the given store.
func NewLiquidationRepo(store eventlog.EventStore) *LiquidationRepo {
	return &LiquidationRepo{Store: store, Hydrate: func(id string, evs []eventlog.Event) (*liquidation.Liquidation, error) {
		return liquidation.Hydrate(parseLiquidationID(id), evs)
	}}
}
