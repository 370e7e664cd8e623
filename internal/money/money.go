// Package money implements the checked monetary primitives shared across
// the credit core: UsdCents, Satoshis, PriceOfOneBTC, and CVLPct.
//
// Arithmetic here is total over non-negative results. A subtraction that
// would go negative is a programming bug — it means some invariant
// upstream (outstanding >= 0, allocation <= obligation amount, ...) was
// already violated, so these functions panic rather than wrap around.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// UsdCents is a non-negative amount of US cents.
type UsdCents uint64

// Satoshis is a non-negative amount of satoshis (1 BTC = 100_000_000 sats).
type Satoshis uint64

// PriceOfOneBTC is the USD-cents price of one whole BTC.
type PriceOfOneBTC UsdCents

const satsPerBTC = 100_000_000

// ZeroUsdCents is the zero value, named for readability at call sites.
const ZeroUsdCents UsdCents = 0

// ZeroSatoshis is the zero value, named for readability at call sites.
const ZeroSatoshis Satoshis = 0

// Add returns a + b. Unsigned overflow here would require sums near
// 2^64 cents, which is outside any realistic facility; not guarded.
func (a UsdCents) Add(b UsdCents) UsdCents { return a + b }

// Sub returns a - b. Panics if b > a.
func (a UsdCents) Sub(b UsdCents) UsdCents {
	if b > a {
		panic(fmt.Sprintf("money: UsdCents underflow: %d - %d", a, b))
	}

	return a - b
}

// IsZero reports whether the amount is exactly zero.
func (a UsdCents) IsZero() bool { return a == 0 }

// LessThan reports whether a < b.
func (a UsdCents) LessThan(b UsdCents) bool { return a < b }

// GreaterThan reports whether a > b.
func (a UsdCents) GreaterThan(b UsdCents) bool { return a > b }

// Min returns the smaller of a and b.
func (a UsdCents) Min(b UsdCents) UsdCents {
	if a < b {
		return a
	}

	return b
}

// String renders cents as a decimal dollar string, e.g. "1234.56".
func (a UsdCents) String() string {
	return decimal.NewFromInt(int64(a)).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// Add returns a + b.
func (a Satoshis) Add(b Satoshis) Satoshis { return a + b }

// Sub returns a - b. Panics if b > a.
func (a Satoshis) Sub(b Satoshis) Satoshis {
	if b > a {
		panic(fmt.Sprintf("money: Satoshis underflow: %d - %d", a, b))
	}

	return a - b
}

// IsZero reports whether the amount is exactly zero.
func (a Satoshis) IsZero() bool { return a == 0 }

// GreaterThan reports whether a > b.
func (a Satoshis) GreaterThan(b Satoshis) bool { return a > b }

// ValuationUSD converts a satoshi balance to its USD-cents value at the
// given price, using floor(sats * price_cents_per_btc / 100_000_000) —
// the single explicit BTC<->USD conversion point in the system. All
// other code must go through this helper rather than compute ad hoc.
func (a Satoshis) ValuationUSD(price PriceOfOneBTC) UsdCents {
	return UsdCents((uint64(a) * uint64(price)) / satsPerBTC)
}

// ToSatoshis converts a USD-cents amount to the satoshi quantity worth
// that much at price, the inverse of ValuationUSD — used to estimate
// how much collateral a liquidation needs to cover a USD shortfall.
// Returns zero if price is zero.
func (a UsdCents) ToSatoshis(price PriceOfOneBTC) Satoshis {
	if price == 0 {
		return 0
	}

	return Satoshis((uint64(a) * satsPerBTC) / uint64(price))
}

// CVLPct is a fixed-point collateralization-value-ratio percentage,
// e.g. 140.00 means collateral is worth 140% of outstanding.
type CVLPct struct {
	d decimal.Decimal
}

// UpgradeBufferDefault is the global damping buffer applied when a
// collateralization state attempts to improve (upgrade), so a ratio
// hovering exactly at a threshold does not oscillate. Spec §9 Open
// Questions: left global rather than per-facility/per-terms-template,
// see DESIGN.md.
var UpgradeBufferDefault = NewCVLPct(5, 0)

// NewCVLPct builds a percentage from whole and fractional-hundredths
// parts, e.g. NewCVLPct(140, 50) == 140.50%.
func NewCVLPct(whole int64, hundredths int64) CVLPct {
	return CVLPct{d: decimal.NewFromInt(whole).Add(decimal.NewFromInt(hundredths).Div(decimal.NewFromInt(100)))}
}

// CVLPctFromRatio computes collateral_value / outstanding * 100 as a
// CVLPct. Returns the maximum representable ratio if outstanding is
// zero and collateral is non-zero (fully collateralized by definition);
// returns zero if both are zero (nothing owed, nothing at risk).
func CVLPctFromRatio(collateralValue, outstanding UsdCents) CVLPct {
	if outstanding.IsZero() {
		if collateralValue.IsZero() {
			return CVLPct{d: decimal.Zero}
		}

		return CVLPct{d: decimal.NewFromInt(1_000_000)}
	}

	ratio := decimal.NewFromInt(int64(collateralValue)).
		Div(decimal.NewFromInt(int64(outstanding))).
		Mul(decimal.NewFromInt(100))

	return CVLPct{d: ratio}
}

// GreaterThanOrEqual reports whether c >= other.
func (c CVLPct) GreaterThanOrEqual(other CVLPct) bool { return c.d.GreaterThanOrEqual(other.d) }

// LessThan reports whether c < other.
func (c CVLPct) LessThan(other CVLPct) bool { return c.d.LessThan(other.d) }

// Add returns c + other, used to apply the upgrade buffer to a threshold.
func (c CVLPct) Add(other CVLPct) CVLPct { return CVLPct{d: c.d.Add(other.d)} }

// String renders the percentage, e.g. "140.50".
func (c CVLPct) String() string { return c.d.StringFixed(2) }

// MarshalJSON delegates to the underlying decimal, so CVLPct serializes
// the same way in event payloads as any other decimal-backed field.
func (c CVLPct) MarshalJSON() ([]byte, error) { return c.d.MarshalJSON() }

// UnmarshalJSON delegates to the underlying decimal.
func (c *CVLPct) UnmarshalJSON(b []byte) error { return c.d.UnmarshalJSON(b) }

// Hundredths renders the ratio as a fixed-point integer at 1/100th of a
// percentage point, e.g. 140.50% -> 14050 — the form the facility/
// pending index tables store so Postgres can ORDER BY it directly.
func (c CVLPct) Hundredths() int64 { return c.d.Mul(decimal.NewFromInt(100)).IntPart() }

// ApplyFloor returns floor(amount * c / 100) as a uint64 cents value,
// e.g. a 12% rate applied to 100_000 cents yields 12_000.
func (c CVLPct) ApplyFloor(amount UsdCents) uint64 {
	v := decimal.NewFromInt(int64(amount)).Mul(c.d).Div(decimal.NewFromInt(100))
	return uint64(v.IntPart())
}
