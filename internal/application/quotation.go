package application

import (
	"context"
	"fmt"
	"math"

	"carcost-bot/internal/domain"
)

// PricingConfig carries the fixed cost components of every quote.
type PricingConfig struct {
	FreightRub  int64
	BrokerRub   int64
	DeliveryRub int64 // destination surcharge; 0 disables the extended total
}

// QuoteInput is what the engine needs regardless of where it came from:
// a fetched listing or the manual-entry flow.
type QuoteInput struct {
	PriceKrw int64
	EngineCc int
	Age      domain.AgeBucket
	Engine   domain.EngineType
}

// InputFromListing derives engine input from a fetched listing. Engine type
// is fixed to gasoline; the listing API does not expose fuel reliably.
func InputFromListing(l domain.VehicleListing, c Clock) QuoteInput {
	return QuoteInput{
		PriceKrw: l.PriceKrw(),
		EngineCc: l.EngineCc,
		Age:      l.AgeBucket(c.Now()),
		Engine:   domain.EngineGasoline,
	}
}

// Quoter combines a rates snapshot, the customs calculator and the fixed
// cost components into a CostBreakdown. Quote is pure given its snapshot:
// identical inputs produce identical breakdowns.
type Quoter struct {
	customs CustomsCalculator
	cfg     PricingConfig
}

func NewQuoter(customs CustomsCalculator, cfg PricingConfig) *Quoter {
	return &Quoter{customs: customs, cfg: cfg}
}

func (q *Quoter) Quote(ctx context.Context, in QuoteInput, rates domain.ExchangeRates) (domain.CostBreakdown, error) {
	if in.PriceKrw < 0 {
		return domain.CostBreakdown{}, fmt.Errorf("%w: negative price", domain.ErrValidation)
	}
	if !rates.HasUsdtKrw() {
		return domain.CostBreakdown{}, fmt.Errorf("%w: usdt/krw", domain.ErrRateUnavailable)
	}
	if !rates.HasUsdtRub() {
		return domain.CostBreakdown{}, fmt.Errorf("%w: usdt/rub", domain.ErrRateUnavailable)
	}

	priceUsdt := float64(in.PriceKrw) / rates.UsdtKrw
	// The USDT intermediate is truncated to a whole number before
	// reconversion. Kept bug-for-bug with the published price rule.
	priceRub := math.Floor(priceUsdt) * rates.UsdtRub

	fees, err := q.customs.Calculate(ctx, in.EngineCc, in.PriceKrw, in.Age, in.Engine)
	if err != nil {
		return domain.CostBreakdown{}, fmt.Errorf("customs: %w", err)
	}

	fixedRub := float64(fees.TotalRub() + q.cfg.FreightRub + q.cfg.BrokerRub)

	out := domain.CostBreakdown{
		Age:         in.Age,
		Rates:       rates,
		PriceKrw:    in.PriceKrw,
		PriceUsdt:   priceUsdt,
		PriceRub:    priceRub,
		Customs:     fees,
		FreightRub:  q.cfg.FreightRub,
		BrokerRub:   q.cfg.BrokerRub,
		TotalRub:    priceRub + fixedRub,
		TotalUsdt:   priceUsdt + fixedRub/rates.UsdtRub,
		DeliveryRub: q.cfg.DeliveryRub,
	}
	// The bank conversion path is omitted, not zeroed, when the bank rate
	// is unavailable.
	if rates.HasRubKrw() {
		out.HasBankPrice = true
		out.PriceRubBank = float64(in.PriceKrw) / rates.RubKrw
		out.TotalRubBank = out.PriceRubBank + fixedRub
	}
	out.TotalWithDeliveryRub = out.TotalRub + float64(q.cfg.DeliveryRub)
	return out, nil
}
