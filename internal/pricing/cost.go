package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TokenCounts are the five counters reported per message or bucket
type TokenCounts struct {
	Input      int64
	Output     int64
	CacheRead  int64
	CacheWrite int64
	Reasoning  int64
}

// Add accumulates another set of counts
func (t *TokenCounts) Add(other TokenCounts) {
	t.Input += other.Input
	t.Output += other.Output
	t.CacheRead += other.CacheRead
	t.CacheWrite += other.CacheWrite
	t.Reasoning += other.Reasoning
}

// Total returns the sum of all five counters
func (t TokenCounts) Total() int64 {
	return t.Input + t.Output + t.CacheRead + t.CacheWrite + t.Reasoning
}

// Validate rejects negative counters
func (t TokenCounts) Validate() error {
	if t.Input < 0 || t.Output < 0 || t.CacheRead < 0 || t.CacheWrite < 0 || t.Reasoning < 0 {
		return fmt.Errorf("token counts must be non-negative: %+v", t)
	}
	return nil
}

// ComputeCost prices a set of token counts against a resolved entry.
// Reasoning tokens are priced at the output rate. The result is rounded
// half-even to 4 fractional digits.
func ComputeCost(counts TokenCounts, entry Entry) (decimal.Decimal, error) {
	if err := counts.Validate(); err != nil {
		return decimal.Zero, err
	}

	cost := decimal.NewFromInt(counts.Input).Mul(entry.Input).
		Add(decimal.NewFromInt(counts.Output).Mul(entry.Output)).
		Add(decimal.NewFromInt(counts.CacheRead).Mul(entry.CacheRead)).
		Add(decimal.NewFromInt(counts.CacheWrite).Mul(entry.CacheWrite)).
		Add(decimal.NewFromInt(counts.Reasoning).Mul(entry.Output))

	return cost.RoundBank(4), nil
}

// CacheEfficiency returns cache_read / (cache_read + input) * 100 rounded
// to 2 fractional digits, 0 when the denominator is 0.
func CacheEfficiency(cacheRead, input int64) float64 {
	denom := cacheRead + input
	if denom == 0 {
		return 0
	}
	ratio := decimal.NewFromInt(cacheRead).
		Div(decimal.NewFromInt(denom)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	f, _ := ratio.Float64()
	return f
}
