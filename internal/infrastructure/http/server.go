package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"carcost-bot/internal/application"
	"carcost-bot/internal/domain"
	"carcost-bot/internal/infrastructure/encar"
)

// Server exposes the quotation engine over HTTP for internal tooling and
// the landing-page widget. The Telegram bot does not go through it.
type Server struct {
	rates   *application.RateKeeper
	quoter  *application.Quoter
	fetcher application.ListingFetcher
	ping    func(ctx context.Context) error
}

func NewServer(rates *application.RateKeeper, quoter *application.Quoter, fetcher application.ListingFetcher) *Server {
	return &Server{rates: rates, quoter: quoter, fetcher: fetcher}
}

// WithPing adds a readiness dependency, usually the database pool.
func (s *Server) WithPing(ping func(ctx context.Context) error) *Server {
	s.ping = ping
	return s
}

type ratesResponse struct {
	UsdtKrw   float64   `json:"usdt_krw"`
	UsdtRub   float64   `json:"usdt_rub"`
	RubKrw    float64   `json:"rub_krw,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

func (s *Server) getRates(w http.ResponseWriter, r *http.Request) {
	snap := s.rates.Current()
	if !snap.HasUsdtKrw() || !snap.HasUsdtRub() {
		writeError(w, http.StatusServiceUnavailable, "rates unavailable")
		return
	}
	writeJSON(w, http.StatusOK, ratesResponse{
		UsdtKrw:   snap.UsdtKrw,
		UsdtRub:   snap.UsdtRub,
		RubKrw:    snap.RubKrw,
		FetchedAt: snap.FetchedAt,
	})
}

type quoteRequest struct {
	// Either a listing reference...
	ListingID  string `json:"listing_id,omitempty"`
	ListingURL string `json:"listing_url,omitempty"`
	// ...or manual parameters.
	PriceKrw int64  `json:"price_krw,omitempty"`
	EngineCc int    `json:"engine_cc,omitempty"`
	Age      string `json:"age,omitempty"`
	Engine   int    `json:"engine,omitempty"`
}

type quoteResponse struct {
	Age          string        `json:"age"`
	PriceKrw     int64         `json:"price_krw"`
	PriceUsdt    float64       `json:"price_usdt"`
	PriceRub     float64       `json:"price_rub"`
	PriceRubBank *float64      `json:"price_rub_bank,omitempty"`
	Customs      customsBlock  `json:"customs"`
	FreightRub   int64         `json:"freight_rub"`
	BrokerRub    int64         `json:"broker_rub"`
	TotalRub     float64       `json:"total_rub"`
	TotalRubBank *float64      `json:"total_rub_bank,omitempty"`
	TotalUsdt    float64       `json:"total_usdt"`
	Rates        ratesResponse `json:"rates"`
}

type customsBlock struct {
	ClearanceRub int64 `json:"clearance_rub"`
	DutyRub      int64 `json:"duty_rub"`
	RecyclingRub int64 `json:"recycling_rub"`
}

func (s *Server) postQuote(w http.ResponseWriter, r *http.Request) {
	var body quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	input, err := s.resolveInput(r.Context(), body)
	if err != nil {
		writeQuoteError(w, err)
		return
	}

	breakdown, err := s.quoter.Quote(r.Context(), input, s.rates.Fresh(r.Context()))
	if err != nil {
		writeQuoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(breakdown))
}

func (s *Server) resolveInput(ctx context.Context, body quoteRequest) (application.QuoteInput, error) {
	id := body.ListingID
	if id == "" && body.ListingURL != "" {
		parsed, err := encar.ParseListingURL(body.ListingURL)
		if err != nil {
			return application.QuoteInput{}, err
		}
		id = parsed
	}
	if id != "" {
		listing, err := s.fetcher.Fetch(ctx, id)
		if err != nil {
			return application.QuoteInput{}, err
		}
		return application.InputFromListing(listing, application.SystemClock()), nil
	}

	age := domain.AgeBucket(body.Age)
	switch age {
	case domain.AgeUnder3, domain.Age3To5, domain.Age5To7, domain.AgeOver7:
	default:
		return application.QuoteInput{}, errors.Join(domain.ErrValidation, errors.New("unknown age bucket"))
	}
	if body.PriceKrw <= 0 || body.EngineCc <= 0 {
		return application.QuoteInput{}, errors.Join(domain.ErrValidation, errors.New("price_krw and engine_cc are required"))
	}
	engine := domain.EngineType(body.Engine)
	if body.Engine == 0 {
		engine = domain.EngineGasoline
	}
	return application.QuoteInput{
		PriceKrw: body.PriceKrw,
		EngineCc: body.EngineCc,
		Age:      age,
		Engine:   engine,
	}, nil
}

func toQuoteResponse(b domain.CostBreakdown) quoteResponse {
	resp := quoteResponse{
		Age:       string(b.Age),
		PriceKrw:  b.PriceKrw,
		PriceUsdt: b.PriceUsdt,
		PriceRub:  b.PriceRub,
		Customs: customsBlock{
			ClearanceRub: b.Customs.ClearanceRub,
			DutyRub:      b.Customs.DutyRub,
			RecyclingRub: b.Customs.RecyclingRub,
		},
		FreightRub: b.FreightRub,
		BrokerRub:  b.BrokerRub,
		TotalRub:   b.TotalRub,
		TotalUsdt:  b.TotalUsdt,
		Rates: ratesResponse{
			UsdtKrw:   b.Rates.UsdtKrw,
			UsdtRub:   b.Rates.UsdtRub,
			RubKrw:    b.Rates.RubKrw,
			FetchedAt: b.Rates.FetchedAt,
		},
	}
	if b.HasBankPrice {
		resp.PriceRubBank = &b.PriceRubBank
		resp.TotalRubBank = &b.TotalRubBank
	}
	return resp
}

func writeQuoteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrListingUnavailable):
		writeError(w, http.StatusNotFound, "listing unavailable")
	case errors.Is(err, domain.ErrRateUnavailable):
		writeError(w, http.StatusServiceUnavailable, "rates unavailable")
	case errors.Is(err, domain.ErrTariffUnavailable):
		writeError(w, http.StatusServiceUnavailable, "tariff service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
