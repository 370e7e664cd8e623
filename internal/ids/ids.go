// Package ids defines the opaque 128-bit identifier types used across the
// credit core. Distinct entity kinds get distinct Go types so that
// cross-kind confusion (e.g. passing an ObligationID where a PaymentID is
// expected) is caught by the compiler, per spec.md §3 "Identifiers".
package ids

import "github.com/google/uuid"

// CreditFacilityProposalID identifies a facility proposal. It equals the
// CreditFacilityID of the facility it eventually produces.
type CreditFacilityProposalID uuid.UUID

// PendingCreditFacilityID identifies the transient pending-facility
// state. It is numerically equal to the CreditFacilityID across the
// pending -> active transition (same underlying commitment).
type PendingCreditFacilityID uuid.UUID

// CreditFacilityID identifies an active (or closed) credit facility.
type CreditFacilityID uuid.UUID

// DisbursalID identifies a single disbursal (draw) against a facility.
type DisbursalID uuid.UUID

// CollateralID identifies a collateral-tracking entity for a facility.
type CollateralID uuid.UUID

// LiquidationID identifies a single partial-liquidation workflow.
type LiquidationID uuid.UUID

// ObligationID identifies a single obligation (Disbursal or Interest).
type ObligationID uuid.UUID

// PaymentID identifies an external payment received from a payer.
type PaymentID uuid.UUID

// PaymentAllocationID identifies a single allocation of a payment against
// an obligation.
type PaymentAllocationID uuid.UUID

// CustomerID identifies the external customer owning a facility.
type CustomerID uuid.UUID

// New generators. Each returns a fresh random v4 id of its kind.

func NewCreditFacilityProposalID() CreditFacilityProposalID { return CreditFacilityProposalID(uuid.New()) }
func NewCollateralID() CollateralID                         { return CollateralID(uuid.New()) }
func NewLiquidationID() LiquidationID                       { return LiquidationID(uuid.New()) }
func NewDisbursalID() DisbursalID                           { return DisbursalID(uuid.New()) }
func NewObligationID() ObligationID                         { return ObligationID(uuid.New()) }
func NewPaymentID() PaymentID                               { return PaymentID(uuid.New()) }
func NewPaymentAllocationID() PaymentAllocationID           { return PaymentAllocationID(uuid.New()) }

// AsPendingCreditFacilityID reinterprets a proposal id as the pending
// facility id created on approval — the same 128-bit value, per spec.
func (id CreditFacilityProposalID) AsPendingCreditFacilityID() PendingCreditFacilityID {
	return PendingCreditFacilityID(id)
}

// AsCreditFacilityID reinterprets a pending facility id as the facility
// id it completes into — the same 128-bit value, per spec.
func (id PendingCreditFacilityID) AsCreditFacilityID() CreditFacilityID {
	return CreditFacilityID(id)
}

// AsCollateralID reinterprets a facility id as the id of the collateral
// tracker created alongside it at activation — the same 128-bit value.
// A facility owns exactly one collateral tracker for its lifetime, so no
// separate facility->collateral lookup is needed.
func (id CreditFacilityID) AsCollateralID() CollateralID {
	return CollateralID(id)
}

// Parse* helpers reconstruct a typed id from its string form (e.g. the
// entity id eventlog.Stream stores each event under).

func ParseCreditFacilityProposalID(s string) (CreditFacilityProposalID, error) {
	u, err := uuid.Parse(s)
	return CreditFacilityProposalID(u), err
}

func ParsePendingCreditFacilityID(s string) (PendingCreditFacilityID, error) {
	u, err := uuid.Parse(s)
	return PendingCreditFacilityID(u), err
}

func ParseCreditFacilityID(s string) (CreditFacilityID, error) {
	u, err := uuid.Parse(s)
	return CreditFacilityID(u), err
}

func ParseDisbursalID(s string) (DisbursalID, error) {
	u, err := uuid.Parse(s)
	return DisbursalID(u), err
}

func ParseCollateralID(s string) (CollateralID, error) {
	u, err := uuid.Parse(s)
	return CollateralID(u), err
}

func ParseLiquidationID(s string) (LiquidationID, error) {
	u, err := uuid.Parse(s)
	return LiquidationID(u), err
}

func ParseObligationID(s string) (ObligationID, error) {
	u, err := uuid.Parse(s)
	return ObligationID(u), err
}

func ParsePaymentID(s string) (PaymentID, error) {
	u, err := uuid.Parse(s)
	return PaymentID(u), err
}

func (id CreditFacilityProposalID) String() string { return uuid.UUID(id).String() }
func (id PendingCreditFacilityID) String() string  { return uuid.UUID(id).String() }
func (id CreditFacilityID) String() string         { return uuid.UUID(id).String() }
func (id DisbursalID) String() string              { return uuid.UUID(id).String() }
func (id CollateralID) String() string             { return uuid.UUID(id).String() }
func (id LiquidationID) String() string             { return uuid.UUID(id).String() }
func (id ObligationID) String() string              { return uuid.UUID(id).String() }
func (id PaymentID) String() string                 { return uuid.UUID(id).String() }
func (id PaymentAllocationID) String() string       { return uuid.UUID(id).String() }
func (id CustomerID) String() string                { return uuid.UUID(id).String() }
