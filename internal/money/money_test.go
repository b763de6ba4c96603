package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeAmounts(t *testing.T) {
	cases := []struct {
		amount   string
		percent  string
		discount string
		final    string
	}{
		{"100.00", "33", "33.00", "67.00"},
		{"10.00", "15", "1.50", "8.50"},
		{"50.00", "20", "10.00", "40.00"},
		{"9.99", "10", "1.00", "8.99"},
		{"0.01", "50", "0.01", "0.00"},
		{"19.95", "7", "1.40", "18.55"},
	}
	for _, tc := range cases {
		amount := decimal.RequireFromString(tc.amount)
		percent := decimal.RequireFromString(tc.percent)
		discount, final := ComputeAmounts(amount, percent)
		if discount.StringFixed(2) != tc.discount {
			t.Fatalf("ComputeAmounts(%s, %s): discount %s, want %s", tc.amount, tc.percent, discount.StringFixed(2), tc.discount)
		}
		if final.StringFixed(2) != tc.final {
			t.Fatalf("ComputeAmounts(%s, %s): final %s, want %s", tc.amount, tc.percent, final.StringFixed(2), tc.final)
		}
	}
}

func TestComputeAmountsSumsToOriginal(t *testing.T) {
	amount := decimal.RequireFromString("123.45")
	percent := decimal.RequireFromString("17")
	discount, final := ComputeAmounts(amount, percent)
	if !discount.Add(final).Equal(amount) {
		t.Fatalf("discount %s + final %s != original %s", discount, final, amount)
	}
}

func TestClampDiscount(t *testing.T) {
	offered := decimal.NewFromInt(50)
	cap := decimal.NewFromInt(10)

	if got := ClampDiscount(offered, cap, true); !got.Equal(offered) {
		t.Fatalf("unlimited tier: got %s, want %s", got, offered)
	}
	if got := ClampDiscount(offered, cap, false); !got.Equal(cap) {
		t.Fatalf("capped tier: got %s, want %s", got, cap)
	}
	if got := ClampDiscount(decimal.NewFromInt(5), cap, false); !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("offer under cap: got %s, want 5", got)
	}
}
