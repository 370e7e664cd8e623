// Package ledger is the double-entry ledger adapter: every monetary state
// change posts a balanced transaction through a named template against a
// parameterized account set, grounded on the teacher's squirrel-built
// postgres adapters (e.g. components/ledger/internal/adapters/postgres)
// generalized from chart-of-accounts CRUD to balanced template posting.
package ledger

// AccountID is a ledger account identifier (opaque to the core; the
// ledger owns account numbering).
type AccountID string

// AccountSet is the tuple of per-facility account ids named in spec.md §6
// "Ledger account sets".
type AccountSet struct {
	Facility                  AccountID
	Collateral                AccountID
	CollateralInLiquidation   AccountID
	LiquidatedCollateral      AccountID
	ProceedsFromLiquidation   AccountID
	InterestReceivableNotYetDue AccountID
	InterestReceivableDue      AccountID
	InterestReceivableOverdue  AccountID
	DisbursedReceivableNotYetDue AccountID
	DisbursedReceivableDue       AccountID
	DisbursedReceivableOverdue   AccountID
	DisbursedDefaulted           AccountID
	InterestDefaulted            AccountID
	InterestIncome               AccountID
	FeeIncome                    AccountID
	PaymentHolding               AccountID
	UncoveredOutstanding         AccountID
}

// Omnibus holds the process-wide pooled accounts shared across all
// facilities.
type Omnibus struct {
	CollateralOmnibus        AccountID
	LiquidationProceedsOmnibus AccountID
	PaymentsMadeOmnibus        AccountID
}

// NewAccountSet derives a deterministic per-facility account set from the
// facility id, the way the teacher derives deterministic aliases
// (`alias_accounts`) from an entity id rather than allocating a row per
// concern.
func NewAccountSet(facilityID string) AccountSet {
	p := "facility:" + facilityID + ":"

	return AccountSet{
		Facility:                     AccountID(p + "facility"),
		Collateral:                   AccountID(p + "collateral"),
		CollateralInLiquidation:      AccountID(p + "collateral-in-liquidation"),
		LiquidatedCollateral:         AccountID(p + "liquidated-collateral"),
		ProceedsFromLiquidation:      AccountID(p + "proceeds-from-liquidation"),
		InterestReceivableNotYetDue:  AccountID(p + "interest-receivable-not-yet-due"),
		InterestReceivableDue:        AccountID(p + "interest-receivable-due"),
		InterestReceivableOverdue:    AccountID(p + "interest-receivable-overdue"),
		DisbursedReceivableNotYetDue: AccountID(p + "disbursed-receivable-not-yet-due"),
		DisbursedReceivableDue:       AccountID(p + "disbursed-receivable-due"),
		DisbursedReceivableOverdue:   AccountID(p + "disbursed-receivable-overdue"),
		DisbursedDefaulted:           AccountID(p + "disbursed-defaulted"),
		InterestDefaulted:            AccountID(p + "interest-defaulted"),
		InterestIncome:               AccountID(p + "interest-income"),
		FeeIncome:                    AccountID(p + "fee-income"),
		PaymentHolding:               AccountID(p + "payment-holding"),
		UncoveredOutstanding:         AccountID(p + "uncovered-outstanding"),
	}
}

// DefaultOmnibus returns the well-known process-wide omnibus account ids.
func DefaultOmnibus() Omnibus {
	return Omnibus{
		CollateralOmnibus:          AccountID("omnibus:collateral"),
		LiquidationProceedsOmnibus: AccountID("omnibus:liquidation-proceeds"),
		PaymentsMadeOmnibus:        AccountID("omnibus:payments-made"),
	}
}
