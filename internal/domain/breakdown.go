package domain

// CostBreakdown is the landed-cost quotation. It is a derived value: built
// once per request from a rates snapshot and never mutated afterwards.
type CostBreakdown struct {
	Age   AgeBucket
	Rates ExchangeRates

	PriceKrw  int64
	PriceUsdt float64
	// PriceRub is the USDT conversion path: the USDT amount is truncated to
	// a whole number before reconversion, matching the published price rule.
	PriceRub float64
	// PriceRubBank is the direct bank-rate conversion; only meaningful when
	// HasBankPrice is set.
	PriceRubBank float64
	HasBankPrice bool

	Customs    CustomsFees
	FreightRub int64
	BrokerRub  int64

	TotalRub     float64
	TotalRubBank float64 // zero unless HasBankPrice
	TotalUsdt    float64

	// DeliveryRub is the optional fixed surcharge for delivery beyond the
	// port of entry; TotalWithDeliveryRub includes it.
	DeliveryRub          int64
	TotalWithDeliveryRub float64
}
