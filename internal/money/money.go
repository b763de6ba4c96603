package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds to cents, half-up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ComputeAmounts computes the money taken off and the amount due for a
// discount percentage. The discount is rounded to cents exactly once; the
// final amount is derived from the original and the rounded discount so the
// two always sum back to the original.
func ComputeAmounts(amount, appliedPercent decimal.Decimal) (discountAmount, finalAmount decimal.Decimal) {
	discountAmount = Round2(amount.Mul(appliedPercent).Div(hundred))
	finalAmount = Round2(amount.Sub(discountAmount))
	return discountAmount, finalAmount
}

// ClampDiscount applies a tier's discount cap. Unlimited tiers take the
// offered discount as-is; every other tier is clamped to its cap.
func ClampDiscount(offered, cap decimal.Decimal, unlimited bool) decimal.Decimal {
	if unlimited {
		return offered
	}
	return decimal.Min(offered, cap)
}
