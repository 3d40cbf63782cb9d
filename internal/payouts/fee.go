package payouts

import "github.com/shopspring/decimal"

// DefaultFeeRate is the platform's share of each vendor subtotal.
var DefaultFeeRate = decimal.RequireFromString("0.05")

// CalculateFee splits a vendor subtotal into the platform fee and the vendor's net
// amount. The fee is rounded half-up to the nearest minor unit, so fee + net always
// equals subtotal.
func CalculateFee(subtotal int64, rate decimal.Decimal) (fee, net int64) {
	if subtotal <= 0 || !rate.IsPositive() {
		return 0, subtotal
	}
	fee = decimal.NewFromInt(subtotal).Mul(rate).Round(0).IntPart()
	if fee > subtotal {
		fee = subtotal
	}
	return fee, subtotal - fee
}
