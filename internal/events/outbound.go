package events

import (
	"time"

	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

// Outbound event payloads, one struct per Type constant in events.go.

type FacilityProposalCreated struct {
	ProposalID string `json:"proposalId"`
	CustomerID string `json:"customerId"`
	AmountUSD  money.UsdCents `json:"amountUsd"`
}

type ConclusionOutcome string

const (
	ConclusionApproved ConclusionOutcome = "Approved"
	ConclusionDenied   ConclusionOutcome = "Denied"
	ConclusionExpired  ConclusionOutcome = "Expired"
)

type FacilityProposalConcluded struct {
	ProposalID string            `json:"proposalId"`
	Outcome    ConclusionOutcome `json:"outcome"`
}

type PendingCreditFacilityCreated struct {
	PendingFacilityID string `json:"pendingFacilityId"`
	WalletID          string `json:"walletId,omitempty"`
}

type CollateralizationState string

const (
	StateFullyCollateralized       CollateralizationState = "FullyCollateralized"
	StateUnderMarginCallThreshold  CollateralizationState = "UnderMarginCallThreshold"
	StateUnderLiquidationThreshold CollateralizationState = "UnderLiquidationThreshold"
)

type PendingCreditFacilityCollateralizationChanged struct {
	PendingFacilityID string                 `json:"pendingFacilityId"`
	State             CollateralizationState `json:"state"`
	Ratio             money.CVLPct           `json:"ratio"`
}

type PendingCreditFacilityCompleted struct {
	PendingFacilityID string `json:"pendingFacilityId"`
	FacilityID        string `json:"facilityId"`
}

type FacilityActivated struct {
	FacilityID string `json:"facilityId"`
}

type FacilityCompleted struct {
	FacilityID string `json:"facilityId"`
}

type FacilityCollateralUpdated struct {
	FacilityID     string         `json:"facilityId"`
	CollateralID   string         `json:"collateralId"`
	NewBalanceSats money.Satoshis `json:"newBalanceSats"`
}

type FacilityCollateralizationChanged struct {
	FacilityID string                 `json:"facilityId"`
	State      CollateralizationState `json:"state"`
	Ratio      money.CVLPct           `json:"ratio"`
}

type DisbursalSettled struct {
	FacilityID  string         `json:"facilityId"`
	DisbursalID string         `json:"disbursalId"`
	Amount      money.UsdCents `json:"amount"`
}

type AccrualPosted struct {
	FacilityID  string         `json:"facilityId"`
	ObligationID string        `json:"obligationId"`
	Amount      money.UsdCents `json:"amount"`
}

type PartialLiquidationInitiated struct {
	FacilityID                        string         `json:"facilityId"`
	LiquidationID                      string         `json:"liquidationId"`
	TriggerPrice                       money.PriceOfOneBTC `json:"triggerPrice"`
	InitiallyExpectedToReceive         money.UsdCents `json:"initiallyExpectedToReceive"`
	InitiallyEstimatedToLiquidateSats  money.Satoshis `json:"initiallyEstimatedToLiquidateSats"`
}

type PartialLiquidationCollateralSentOut struct {
	LiquidationID string         `json:"liquidationId"`
	AmountSats    money.Satoshis `json:"amountSats"`
}

type PartialLiquidationProceedsReceived struct {
	LiquidationID string         `json:"liquidationId"`
	ProceedsUSD   money.UsdCents `json:"proceedsUsd"`
}

type PartialLiquidationCompleted struct {
	LiquidationID string `json:"liquidationId"`
}

type ObligationKind string

const (
	ObligationDisbursal ObligationKind = "Disbursal"
	ObligationInterest  ObligationKind = "Interest"
)

type ObligationCreated struct {
	ObligationID  string         `json:"obligationId"`
	FacilityID    string         `json:"facilityId"`
	Kind          ObligationKind `json:"kind"`
	Amount        money.UsdCents `json:"amount"`
	DueAt         time.Time      `json:"dueAt"`
}

type ObligationDue struct {
	ObligationID string `json:"obligationId"`
}

type ObligationOverdue struct {
	ObligationID string `json:"obligationId"`
}

type ObligationDefaulted struct {
	ObligationID string `json:"obligationId"`
}

type ObligationCompleted struct {
	ObligationID string `json:"obligationId"`
}

type PaymentReceived struct {
	PaymentID  string         `json:"paymentId"`
	FacilityID string         `json:"facilityId"`
	Amount     money.UsdCents `json:"amount"`
}

type PaymentAllocated struct {
	AllocationID string         `json:"allocationId"`
	PaymentID    string         `json:"paymentId"`
	ObligationID string         `json:"obligationId"`
	Amount       money.UsdCents `json:"amount"`
}
