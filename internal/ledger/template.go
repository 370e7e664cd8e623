package ledger

import "github.com/tanakasan3/lana-bank-sub001/internal/money"

// TemplateCode names a balanced posting template, per spec.md §4.2.
type TemplateCode string

const (
	TemplateAddCollateral                  TemplateCode = "ADD_COLLATERAL"
	TemplateRemoveCollateral               TemplateCode = "REMOVE_COLLATERAL"
	TemplateSendCollateralToLiquidation     TemplateCode = "SEND_COLLATERAL_TO_LIQUIDATION"
	TemplateReceiveProceedsFromLiquidation  TemplateCode = "RECEIVE_PROCEEDS_FROM_LIQUIDATION"
	TemplateDisbursalSettled                TemplateCode = "DISBURSAL_SETTLED"
	TemplateInterestAccrualPosted           TemplateCode = "INTEREST_ACCRUAL_POSTED"
	TemplateRecordObligationDue             TemplateCode = "RECORD_OBLIGATION_DUE"
	TemplateRecordObligationOverdue         TemplateCode = "RECORD_OBLIGATION_OVERDUE"
	TemplateRecordObligationDefaulted       TemplateCode = "RECORD_OBLIGATION_DEFAULTED"
	TemplateRecordPayment                   TemplateCode = "RECORD_PAYMENT"
	TemplateAllocatePayment                 TemplateCode = "ALLOCATE_PAYMENT"
	TemplateCreatePendingFacility            TemplateCode = "CREATE_PENDING_FACILITY"
	TemplateActivateFacility                 TemplateCode = "ACTIVATE_FACILITY"
	TemplateCompleteFacility                 TemplateCode = "COMPLETE_FACILITY"
)

// Currency is a ledger currency code, e.g. "USD" or "BTC".
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyBTC Currency = "BTC"
)

// Layer is the accounting layer a leg posts into. The core only ever
// posts to SETTLED, per spec.md §4.2, but the type exists so a future
// PENDING layer is not a breaking change.
type Layer string

const LayerSettled Layer = "SETTLED"

// Direction is DEBIT or CREDIT.
type Direction string

const (
	Debit  Direction = "DEBIT"
	Credit Direction = "CREDIT"
)

// Leg is one entry of a balanced posting.
type Leg struct {
	Account   AccountID
	Currency  Currency
	Layer     Layer
	Direction Direction
	Amount    uint64
}

// InitiatedBy tags who caused the posting, per spec.md §4.2.
type InitiatedBy string

// SystemInitiated is the tag used for scheduler/engine-driven postings.
const SystemInitiated InitiatedBy = "System"

// UserInitiated tags a posting caused by an interactive operator.
func UserInitiated(userID string) InitiatedBy { return InitiatedBy("User" + userID) }

// Metadata is the arbitrary JSON payload attached to every transaction.
type Metadata map[string]any

// Transaction is a fully-built, balanced set of legs ready to post.
type Transaction struct {
	TxID         string
	Template     TemplateCode
	Legs         []Leg
	InitiatedBy  InitiatedBy
	Metadata     Metadata
}

// Balance verifies debits equal credits per currency per layer — the
// bit-exact accounting invariant from spec.md §8.
func (t Transaction) Balance() error {
	type key struct {
		Currency Currency
		Layer    Layer
	}

	sums := map[key]int64{}

	for _, leg := range t.Legs {
		k := key{Currency: leg.Currency, Layer: leg.Layer}

		switch leg.Direction {
		case Debit:
			sums[k] += int64(leg.Amount)
		case Credit:
			sums[k] -= int64(leg.Amount)
		}
	}

	for k, sum := range sums {
		if sum != 0 {
			return &ErrUnbalancedTransaction{Currency: k.Currency, Layer: k.Layer, Imbalance: sum}
		}
	}

	return nil
}

// ErrUnbalancedTransaction is raised by Balance when debits != credits.
type ErrUnbalancedTransaction struct {
	Currency  Currency
	Layer     Layer
	Imbalance int64
}

func (e *ErrUnbalancedTransaction) Error() string {
	return "ledger: unbalanced transaction for " + string(e.Currency) + "/" + string(e.Layer)
}

// twoLegUSD is a small helper most templates are built from: one debit,
// one credit, same currency, same amount.
func twoLegUSD(debit, credit AccountID, amount money.UsdCents) []Leg {
	return []Leg{
		{Account: debit, Currency: CurrencyUSD, Layer: LayerSettled, Direction: Debit, Amount: uint64(amount)},
		{Account: credit, Currency: CurrencyUSD, Layer: LayerSettled, Direction: Credit, Amount: uint64(amount)},
	}
}

func twoLegBTC(debit, credit AccountID, amount money.Satoshis) []Leg {
	return []Leg{
		{Account: debit, Currency: CurrencyBTC, Layer: LayerSettled, Direction: Debit, Amount: uint64(amount)},
		{Account: credit, Currency: CurrencyBTC, Layer: LayerSettled, Direction: Credit, Amount: uint64(amount)},
	}
}
