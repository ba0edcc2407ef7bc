// Package pricing computes top-up amounts from requested quotas using a
// tiered volume-discount rate table. The engine is a pure function of its
// configuration and inputs.
package pricing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kadxy/wallet/types"
)

// ErrInvalidQuantity rejects quotas outside the engine's bounds. Re-exported
// from the root package as wallet.ErrInvalidQuantity.
var ErrInvalidQuantity = errors.New("wallet: invalid quantity")

// Tier maps a minimum quota (inclusive) to the exchange rate applied when a
// requested quota clears the threshold.
type Tier struct {
	MinQuota decimal.Decimal
	Rate     decimal.Decimal
}

// Engine prices quotas against a descending tier table. The zero value is
// not usable; construct with New or Default.
type Engine struct {
	tiers    []Tier // sorted by MinQuota descending
	baseRate decimal.Decimal
	minQuota decimal.Decimal
	maxQuota decimal.Decimal
}

// Quote is the outcome of pricing one quota.
type Quote struct {
	Quota  decimal.Decimal
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// New builds an engine from an explicit tier table and baseline rate.
// Tiers may be given in any order.
func New(tiers []Tier, baseRate decimal.Decimal) *Engine {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinQuota.GreaterThan(sorted[j].MinQuota)
	})
	return &Engine{
		tiers:    sorted,
		baseRate: baseRate,
		minQuota: decimal.RequireFromString("0.01"),
		maxQuota: decimal.RequireFromString("100000"),
	}
}

// Default returns the engine with the standard volume-discount table.
func Default() *Engine {
	rate := func(min, r string) Tier {
		return Tier{MinQuota: types.MustAmount(min), Rate: types.MustAmount(r)}
	}
	return New([]Tier{
		rate("5000", "4.0"),
		rate("3000", "4.5"),
		rate("2000", "4.8"),
		rate("1000", "5.0"),
		rate("500", "5.5"),
		rate("200", "6.0"),
		rate("100", "6.5"),
		rate("50", "6.8"),
		rate("10", "7.2"),
	}, types.MustAmount("8.0"))
}

// RateFor returns the exchange rate for a quota without bounds checking.
func (e *Engine) RateFor(quota decimal.Decimal) decimal.Decimal {
	for _, t := range e.tiers {
		if quota.GreaterThanOrEqual(t.MinQuota) {
			return t.Rate
		}
	}
	return e.baseRate
}

// Price computes the amount owed for a quota string. The quota must fall in
// [0.01, 100000]; anything else is rejected before any pricing happens. The
// amount is rate*quota rounded up to two decimal places; money owed by the
// customer never rounds down.
func (e *Engine) Price(quota string) (Quote, error) {
	q, err := types.ParseAmount(quota)
	if err != nil {
		return Quote{}, fmt.Errorf("pricing: unparseable quota %q: %w", quota, ErrInvalidQuantity)
	}
	return e.PriceDecimal(q)
}

// PriceDecimal is Price for an already-parsed quota.
func (e *Engine) PriceDecimal(q decimal.Decimal) (Quote, error) {
	if q.LessThan(e.minQuota) || q.GreaterThan(e.maxQuota) {
		return Quote{}, fmt.Errorf("pricing: quota %s out of range [%s, %s]: %w",
			q, e.minQuota, e.maxQuota, ErrInvalidQuantity)
	}
	rate := e.RateFor(q)
	return Quote{
		Quota:  q,
		Rate:   rate,
		Amount: types.RoundUpAmount(rate.Mul(q)),
	}, nil
}
