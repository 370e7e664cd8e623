package ledger

import "github.com/tanakasan3/lana-bank-sub001/internal/money"

// Builders turn a template's business parameters into a balanced
// Transaction. Each mirrors one entry in spec.md §4.2's template list.

func BuildAddCollateral(txID string, accts AccountSet, omni Omnibus, amount money.Satoshis, by InitiatedBy, meta Metadata) Transaction {
	return Transaction{
		TxID: txID, Template: TemplateAddCollateral, InitiatedBy: by, Metadata: meta,
		Legs: twoLegBTC(omni.CollateralOmnibus, accts.Collateral, amount),
	}
}

func BuildRemoveCollateral(txID string, accts AccountSet, omni Omnibus, amount money.Satoshis, by InitiatedBy, meta Metadata) Transaction {
	return Transaction{
		TxID: txID, Template: TemplateRemoveCollateral, InitiatedBy: by, Metadata: meta,
		Legs: twoLegBTC(accts.Collateral, omni.CollateralOmnibus, amount),
	}
}

func BuildSendCollateralToLiquidation(txID string, accts AccountSet, amount money.Satoshis, by InitiatedBy, meta Metadata) Transaction {
	return Transaction{
		TxID: txID, Template: TemplateSendCollateralToLiquidation, InitiatedBy: by, Metadata: meta,
		Legs: twoLegBTC(accts.Collateral, accts.CollateralInLiquidation, amount),
	}
}

// BuildReceiveProceedsFromLiquidation posts the 4-leg transaction from
// spec.md §8 scenario 6: USD omnibus->proceeds, BTC in-liquidation->liquidated.
func BuildReceiveProceedsFromLiquidation(txID string, accts AccountSet, omni Omnibus, usdProceeds money.UsdCents, btcLiquidated money.Satoshis, by InitiatedBy, meta Metadata) Transaction {
	legs := append(
		twoLegUSD(omni.LiquidationProceedsOmnibus, accts.ProceedsFromLiquidation, usdProceeds),
		twoLegBTC(accts.CollateralInLiquidation, accts.LiquidatedCollateral, btcLiquidated)...,
	)

	return Transaction{TxID: txID, Template: TemplateReceiveProceedsFromLiquidation, InitiatedBy: by, Metadata: meta, Legs: legs}
}

func BuildDisbursalSettled(txID string, accts AccountSet, amount money.UsdCents, by InitiatedBy, meta Metadata) Transaction {
	return Transaction{
		TxID: txID, Template: TemplateDisbursalSettled, InitiatedBy: by, Metadata: meta,
		Legs: twoLegUSD(accts.DisbursedReceivableNotYetDue, accts.Facility, amount),
	}
}

func BuildInterestAccrualPosted(txID string, accts AccountSet, amount money.UsdCents, by InitiatedBy, meta Metadata) Transaction {
	return Transaction{
		TxID: txID, Template: TemplateInterestAccrualPosted, InitiatedBy: by, Metadata: meta,
		Legs: twoLegUSD(accts.InterestReceivableNotYetDue, accts.InterestIncome, amount),
	}
}

// ReceivableBucket identifies which receivable ladder (disbursed vs
// interest) an obligation reclassification moves within.
type ReceivableBucket int

const (
	BucketDisbursed ReceivableBucket = iota
	BucketInterest
)

// BuildRecordDue reclassifies not-yet-due -> due for the given bucket.
func BuildRecordDue(txID string, accts AccountSet, bucket ReceivableBucket, amount money.UsdCents, by InitiatedBy, meta Metadata) Transaction {
	var from, to AccountID

	if bucket == BucketDisbursed {
		from, to = accts.DisbursedReceivableNotYetDue, accts.DisbursedReceivableDue
	} else {
		from, to = accts.InterestReceivableNotYetDue, accts.InterestReceivableDue
	}

	return Transaction{TxID: txID, Template: TemplateRecordObligationDue, InitiatedBy: by, Metadata: meta, Legs: twoLegUSD(to, from, amount)}
}

// BuildRecordOverdue reclassifies due -> overdue for the given bucket.
func BuildRecordOverdue(txID string, accts AccountSet, bucket ReceivableBucket, amount money.UsdCents, by InitiatedBy, meta Metadata) Transaction {
	var from, to AccountID

	if bucket == BucketDisbursed {
		from, to = accts.DisbursedReceivableDue, accts.DisbursedReceivableOverdue
	} else {
		from, to = accts.InterestReceivableDue, accts.InterestReceivableOverdue
	}

	return Transaction{TxID: txID, Template: TemplateRecordObligationOverdue, InitiatedBy: by, Metadata: meta, Legs: twoLegUSD(to, from, amount)}
}

// BuildRecordDefaulted reclassifies overdue -> defaulted for the given bucket.
func BuildRecordDefaulted(txID string, accts AccountSet, bucket ReceivableBucket, amount money.UsdCents, by InitiatedBy, meta Metadata) Transaction {
	var from, to AccountID

	if bucket == BucketDisbursed {
		from, to = accts.DisbursedReceivableOverdue, accts.DisbursedDefaulted
	} else {
		from, to = accts.InterestReceivableOverdue, accts.InterestDefaulted
	}

	return Transaction{TxID: txID, Template: TemplateRecordObligationDefaulted, InitiatedBy: by, Metadata: meta, Legs: twoLegUSD(to, from, amount)}
}

// BuildRecordPayment posts an incoming payment into the facility's
// payment-holding account pending allocation.
func BuildRecordPayment(txID string, accts AccountSet, omni Omnibus, amount money.UsdCents, by InitiatedBy, meta Metadata) Transaction {
	return Transaction{
		TxID: txID, Template: TemplateRecordPayment, InitiatedBy: by, Metadata: meta,
		Legs: twoLegUSD(omni.PaymentsMadeOmnibus, accts.PaymentHolding, amount),
	}
}

// AllocationLeg is one obligation's share of a payment allocation.
type AllocationLeg struct {
	Account ReceivableBucketAccount
	Amount  money.UsdCents
}

// ReceivableBucketAccount names the specific receivable account an
// allocation leg clears, since allocation can hit any rung of either
// ladder (not-yet-due is never allocated against directly, but due,
// overdue, and defaulted all are).
type ReceivableBucketAccount int

const (
	AccountDisbursedDue ReceivableBucketAccount = iota
	AccountDisbursedOverdue
	AccountDisbursedDefaulted
	AccountInterestDue
	AccountInterestOverdue
	AccountInterestDefaulted
)

func resolve(accts AccountSet, a ReceivableBucketAccount) AccountID {
	switch a {
	case AccountDisbursedDue:
		return accts.DisbursedReceivableDue
	case AccountDisbursedOverdue:
		return accts.DisbursedReceivableOverdue
	case AccountDisbursedDefaulted:
		return accts.DisbursedDefaulted
	case AccountInterestDue:
		return accts.InterestReceivableDue
	case AccountInterestOverdue:
		return accts.InterestReceivableOverdue
	default:
		return accts.InterestDefaulted
	}
}

// BuildAllocatePayment posts one ALLOCATE_PAYMENT transaction carrying
// all legs for a single payment's allocation pass (spec.md §4.6 step 4:
// "post one ALLOCATE_PAYMENT ledger transaction carrying all legs").
func BuildAllocatePayment(txID string, accts AccountSet, legs []AllocationLeg, by InitiatedBy, meta Metadata) Transaction {
	out := make([]Leg, 0, len(legs)*2)

	for _, l := range legs {
		out = append(out, twoLegUSD(accts.PaymentHolding, resolve(accts, l.Account), l.Amount)...)
	}

	return Transaction{TxID: txID, Template: TemplateAllocatePayment, InitiatedBy: by, Metadata: meta, Legs: out}
}

// BuildCreatePendingFacility is a structural no-value posting marking
// the pending facility's two accounts were opened; kept as a balanced
// zero-amount transaction so the template still appears in the ledger's
// audit trail even though it moves no money.
func BuildCreatePendingFacility(txID string, accts AccountSet, by InitiatedBy, meta Metadata) Transaction {
	return Transaction{TxID: txID, Template: TemplateCreatePendingFacility, InitiatedBy: by, Metadata: meta, Legs: nil}
}

// BuildActivateFacility posts the one-time structuring fee, if any, from
// the facility account into fee income.
func BuildActivateFacility(txID string, accts AccountSet, feeAmount money.UsdCents, by InitiatedBy, meta Metadata) Transaction {
	if feeAmount.IsZero() {
		return Transaction{TxID: txID, Template: TemplateActivateFacility, InitiatedBy: by, Metadata: meta}
	}

	return Transaction{
		TxID: txID, Template: TemplateActivateFacility, InitiatedBy: by, Metadata: meta,
		Legs: twoLegUSD(accts.Facility, accts.FeeIncome, feeAmount),
	}
}

// BuildCompleteFacility is a structural zero-amount closing marker.
func BuildCompleteFacility(txID string, accts AccountSet, by InitiatedBy, meta Metadata) Transaction {
	return Transaction{TxID: txID, Template: TemplateCompleteFacility, InitiatedBy: by, Metadata: meta}
}
