package ledger

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/tanakasan3/lana-bank-sub001/internal/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

// GetCreditFacilityBalance builds the structured Balances view by
// reading the running per-account balances table for every account in
// the facility's account set.
func (a *Adapter) GetCreditFacilityBalance(ctx context.Context, accts ledger.AccountSet) (ledger.Balances, error) {
	accountIDs := []ledger.AccountID{
		accts.DisbursedReceivableNotYetDue, accts.DisbursedReceivableDue, accts.DisbursedReceivableOverdue, accts.DisbursedDefaulted,
		accts.InterestReceivableNotYetDue, accts.InterestReceivableDue, accts.InterestReceivableOverdue, accts.InterestDefaulted,
		accts.Collateral, accts.UncoveredOutstanding, accts.PaymentHolding,
	}

	ids := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		ids[i] = string(id)
	}

	query := sq.Select("account_id", "currency", "balance").
		From("ledger_account_balances").
		Where(sq.Eq{"account_id": ids}).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return ledger.Balances{}, err
	}

	rows, err := a.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return ledger.Balances{}, err
	}
	defer rows.Close()

	raw := map[ledger.AccountID]int64{}

	for rows.Next() {
		var accountID, currency string

		var balance int64

		if err := rows.Scan(&accountID, &currency, &balance); err != nil {
			return ledger.Balances{}, err
		}

		raw[ledger.AccountID(accountID)] = balance
	}

	if err := rows.Err(); err != nil {
		return ledger.Balances{}, err
	}

	nonNeg := func(id ledger.AccountID) money.UsdCents {
		v := raw[id]
		if v < 0 {
			return money.ZeroUsdCents
		}

		return money.UsdCents(v)
	}

	sats := func(id ledger.AccountID) money.Satoshis {
		v := raw[id]
		if v < 0 {
			return money.ZeroSatoshis
		}

		return money.Satoshis(v)
	}

	return ledger.Balances{
		DisbursedNotYetDue:   nonNeg(accts.DisbursedReceivableNotYetDue),
		DisbursedDue:         nonNeg(accts.DisbursedReceivableDue),
		DisbursedOverdue:     nonNeg(accts.DisbursedReceivableOverdue),
		DisbursedDefaulted:   nonNeg(accts.DisbursedDefaulted),
		InterestNotYetDue:    nonNeg(accts.InterestReceivableNotYetDue),
		InterestDue:          nonNeg(accts.InterestReceivableDue),
		InterestOverdue:      nonNeg(accts.InterestReceivableOverdue),
		InterestDefaulted:    nonNeg(accts.InterestDefaulted),
		Collateral:           sats(accts.Collateral),
		UncoveredOutstanding: nonNeg(accts.UncoveredOutstanding),
		PaymentHolding:       nonNeg(accts.PaymentHolding),
	}, nil
}
