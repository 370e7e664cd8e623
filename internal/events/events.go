// Package events defines the public, wire-stable domain events the
// credit core publishes and consumes, per spec.md §6. Every event is a
// tagged variant; wire format is self-describing JSON with a
// discriminator field ("type"), grounded on the teacher's outbox
// payload convention (components/transaction postgres/outbox tests).
package events

import (
	"encoding/json"
	"time"
)

// Type is the wire discriminator for a public event.
type Type string

const (
	// Outbound — published by the credit core.
	TypeFacilityProposalCreated                       Type = "FacilityProposalCreated"
	TypeFacilityProposalConcluded                      Type = "FacilityProposalConcluded"
	TypePendingCreditFacilityCreated                   Type = "PendingCreditFacilityCreated"
	TypePendingCreditFacilityCollateralizationChanged  Type = "PendingCreditFacilityCollateralizationChanged"
	TypePendingCreditFacilityCompleted                 Type = "PendingCreditFacilityCompleted"
	TypeFacilityActivated                              Type = "FacilityActivated"
	TypeFacilityCompleted                              Type = "FacilityCompleted"
	TypeFacilityCollateralUpdated                      Type = "FacilityCollateralUpdated"
	TypeFacilityCollateralizationChanged               Type = "FacilityCollateralizationChanged"
	TypeDisbursalSettled                               Type = "DisbursalSettled"
	TypeAccrualPosted                                  Type = "AccrualPosted"
	TypePartialLiquidationInitiated                    Type = "PartialLiquidationInitiated"
	TypePartialLiquidationCollateralSentOut             Type = "PartialLiquidationCollateralSentOut"
	TypePartialLiquidationProceedsReceived              Type = "PartialLiquidationProceedsReceived"
	TypePartialLiquidationCompleted                     Type = "PartialLiquidationCompleted"
	TypeObligationCreated                               Type = "ObligationCreated"
	TypeObligationDue                                   Type = "ObligationDue"
	TypeObligationOverdue                               Type = "ObligationOverdue"
	TypeObligationDefaulted                             Type = "ObligationDefaulted"
	TypeObligationCompleted                             Type = "ObligationCompleted"
	TypePaymentReceived                                 Type = "PaymentReceived"
	TypePaymentAllocated                                Type = "PaymentAllocated"

	// Inbound — consumed from upstream services.
	TypeCustomerKycUpdated          Type = "CustomerKycUpdated"
	TypeWalletBalanceUpdated        Type = "WalletBalanceUpdated"
	TypePriceUpdated                Type = "PriceUpdated"
	TypeDepositRecorded             Type = "DepositRecorded"
	TypeApprovalProcessConcluded    Type = "ApprovalProcessConcluded"
)

// Event is the envelope every public event is wrapped in before
// publication, carrying the discriminator alongside the payload.
type Event struct {
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// New wraps payload with its discriminator and timestamp.
func New(t Type, occurredAt time.Time, payload any) Event {
	return Event{Type: t, OccurredAt: occurredAt, Payload: payload}
}

// Decode re-marshals a generic Payload (as produced by unmarshaling an
// Event's wire JSON into the `any`-typed field) into a concrete payload
// struct. Consumers reading off the outbox need this since the envelope
// itself carries no static payload type.
func Decode(payload any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, out)
}
