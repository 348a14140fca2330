package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	DefaultDeltaRate = 4.0
	DefaultFixedFee  = 750.0
)

// Limits of the stored price columns.
const (
	MinBaselineUSD  = 0.0001
	MaxBaselineUSD  = 9_999_999_999.9999
	MaxRateSnapshot = 99_999_999.999999
	MaxStoredLocal  = 999_999_999_999

	baselineScale = 4
	rateScale     = 6
)

var (
	baseCommission   = decimal.RequireFromString("0.03")
	commissionPerUSD = decimal.RequireFromString("0.001")
	ten              = decimal.NewFromInt(10)
	maxInt64         = decimal.NewFromInt(math.MaxInt64)
	minInt64         = decimal.NewFromInt(math.MinInt64)
)

// PriceParams are the markup knobs applied on top of the exchange rate.
type PriceParams struct {
	DeltaRate float64
	FixedFee  float64
}

func DefaultPriceParams() PriceParams {
	return PriceParams{DeltaRate: DefaultDeltaRate, FixedFee: DefaultFixedFee}
}

// PriceQuote is the ephemeral record of one conversion.
type PriceQuote struct {
	BaselineUSD float64
	Rate        float64
	DeltaRate   float64
	FixedFee    float64
	ResultLocal int64
}

// Valid is false when the inputs could not produce a price.
func (q PriceQuote) Valid() bool { return q.ResultLocal > 0 }

// Storable is Valid with the result inside the stored price range.
func (q PriceQuote) Storable() bool { return q.Valid() && q.ResultLocal <= MaxStoredLocal }

// StorableBaselineUSD rounds v to stored precision and reports whether the
// rounded value fits the baseline columns.
func StorableBaselineUSD(v float64) (float64, bool) {
	if !UsableRate(v) {
		return 0, false
	}
	r := decimal.NewFromFloat(v).Round(baselineScale).InexactFloat64()
	return r, r >= MinBaselineUSD && r <= MaxBaselineUSD
}

// StorableRate rounds v to snapshot precision and reports whether it fits.
func StorableRate(v float64) (float64, bool) {
	if !UsableRate(v) {
		return 0, false
	}
	r := decimal.NewFromFloat(v).Round(rateScale).InexactFloat64()
	return r, r > 0 && r <= MaxRateSnapshot
}

func (p PriceParams) Quote(baselineUSD, rate float64) PriceQuote {
	return PriceQuote{
		BaselineUSD: baselineUSD,
		Rate:        rate,
		DeltaRate:   p.DeltaRate,
		FixedFee:    p.FixedFee,
		ResultLocal: CalculatePrice(baselineUSD, rate, p),
	}
}

// CalculatePrice converts a USD baseline into a local price rounded up to a
// multiple of ten:
//
//	commission = 0.03 + 0.001*baseline
//	final      = baseline*(rate+delta)*(1+commission) + fee
//
// Inputs are not validated. Non-finite inputs and results outside the int64
// range yield 0, which is never a valid price.
func CalculatePrice(baselineUSD, rate float64, p PriceParams) int64 {
	for _, v := range []float64{baselineUSD, rate, p.DeltaRate, p.FixedFee} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
	}
	baseline := decimal.NewFromFloat(baselineUSD)
	commission := baseCommission.Add(commissionPerUSD.Mul(baseline))
	base := baseline.Mul(decimal.NewFromFloat(rate).Add(decimal.NewFromFloat(p.DeltaRate)))
	final := base.Mul(decimal.NewFromInt(1).Add(commission)).Add(decimal.NewFromFloat(p.FixedFee))
	rounded := final.Div(ten).Ceil().Mul(ten)
	if rounded.GreaterThan(maxInt64) || rounded.LessThan(minInt64) {
		return 0
	}
	return rounded.IntPart()
}
