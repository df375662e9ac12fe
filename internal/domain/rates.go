package domain

import "time"

// ExchangeRates is an immutable snapshot of the three rates the quotation
// pipeline depends on. A zero field means the source has not produced a
// value yet; callers must check before dividing.
type ExchangeRates struct {
	UsdtKrw   float64
	UsdtRub   float64
	RubKrw    float64
	FetchedAt time.Time
}

func (r ExchangeRates) HasUsdtKrw() bool { return r.UsdtKrw > 0 }
func (r ExchangeRates) HasUsdtRub() bool { return r.UsdtRub > 0 }
func (r ExchangeRates) HasRubKrw() bool  { return r.RubKrw > 0 }
