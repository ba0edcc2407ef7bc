package pricing

import (
	"errors"
	"testing"

	"github.com/kadxy/wallet/types"
)

func TestPriceTiers(t *testing.T) {
	e := Default()

	tests := []struct {
		name       string
		quota      string
		wantRate   string
		wantAmount string
	}{
		{"baseline", "5", "8", "40.00"},
		{"tier 10", "10", "7.2", "72.00"},
		{"just below 100", "99.99", "6.8", "679.94"},
		{"tier 100", "100", "6.5", "650.00"},
		{"tier 200", "250", "6", "1500.00"},
		{"tier 500", "999", "5.5", "5494.50"},
		{"tier 1000", "1000", "5", "5000.00"},
		{"tier 2000", "2500", "4.8", "12000.00"},
		{"tier 3000", "4999.99", "4.5", "22499.96"},
		{"top tier", "5000", "4", "20000.00"},
		{"max quota", "100000", "4", "400000.00"},
		{"min quota", "0.01", "8", "0.08"},
		{"rounds up", "0.03", "8", "0.24"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := e.Price(tt.quota)
			if err != nil {
				t.Fatalf("Price(%q) error: %v", tt.quota, err)
			}
			if !q.Rate.Equal(types.MustAmount(tt.wantRate)) {
				t.Errorf("rate = %s, want %s", q.Rate, tt.wantRate)
			}
			if got := types.FormatAmount(q.Amount); got != tt.wantAmount {
				t.Errorf("amount = %s, want %s", got, tt.wantAmount)
			}
		})
	}
}

func TestPriceBounds(t *testing.T) {
	e := Default()

	for _, quota := range []string{"0.001", "0", "-1", "100001", "100000.01", "nonsense", ""} {
		if _, err := e.Price(quota); !errors.Is(err, ErrInvalidQuantity) {
			t.Errorf("Price(%q) = %v, want ErrInvalidQuantity", quota, err)
		}
	}
}

func TestPriceDeterministic(t *testing.T) {
	e := Default()

	first, err := e.Price("123.45")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := e.Price("123.45")
		if err != nil {
			t.Fatal(err)
		}
		if !again.Amount.Equal(first.Amount) || !again.Rate.Equal(first.Rate) {
			t.Fatalf("pricing not deterministic: %+v vs %+v", again, first)
		}
	}
}

func TestRoundUpNeverDown(t *testing.T) {
	e := Default()

	// 6.8 * 99.99 = 679.932, owed amount must round to 679.94 not 679.93.
	q, err := e.Price("99.99")
	if err != nil {
		t.Fatal(err)
	}
	if got := types.FormatAmount(q.Amount); got != "679.94" {
		t.Fatalf("amount = %s, want 679.94", got)
	}
}

func TestCustomTiers(t *testing.T) {
	e := New([]Tier{
		{MinQuota: types.MustAmount("10"), Rate: types.MustAmount("1.5")},
		{MinQuota: types.MustAmount("100"), Rate: types.MustAmount("1.2")},
	}, types.MustAmount("2"))

	for _, tt := range []struct{ quota, wantRate string }{
		{"5", "2"},
		{"10", "1.5"},
		{"100", "1.2"},
	} {
		q, err := e.Price(tt.quota)
		if err != nil {
			t.Fatal(err)
		}
		if !q.Rate.Equal(types.MustAmount(tt.wantRate)) {
			t.Errorf("Price(%s) rate = %s, want %s", tt.quota, q.Rate, tt.wantRate)
		}
	}
}
