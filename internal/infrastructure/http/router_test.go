package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carcost-bot/internal/application"
	"carcost-bot/internal/domain"
	"carcost-bot/internal/infrastructure/rates"
)

type fakeCustoms struct {
	fees domain.CustomsFees
	err  error
}

func (f *fakeCustoms) Calculate(ctx context.Context, engineCc int, priceKrw int64, age domain.AgeBucket, engine domain.EngineType) (domain.CustomsFees, error) {
	return f.fees, f.err
}

type fakeFetcher struct {
	listing domain.VehicleListing
	err     error
}

func (f *fakeFetcher) Fetch(ctx context.Context, id string) (domain.VehicleListing, error) {
	return f.listing, f.err
}

type downSource struct{}

func (downSource) Rate(context.Context) (float64, error) { return 0, errors.New("source down") }

type countingSource struct {
	v     float64
	calls int
}

func (c *countingSource) Rate(context.Context) (float64, error) {
	c.calls++
	return c.v, nil
}

func newTestRouter(t *testing.T, refreshed bool) http.Handler {
	t.Helper()
	keeper := application.NewRateKeeper(downSource{}, downSource{}, nil, zap.NewNop())
	if refreshed {
		keeper = application.NewRateKeeper(rates.Fixed(1350), rates.Fixed(80), nil, zap.NewNop())
		require.NoError(t, keeper.Refresh(context.Background()))
	}
	quoter := application.NewQuoter(
		&fakeCustoms{fees: domain.CustomsFees{ClearanceRub: 20_000, DutyRub: 150_000, RecyclingRub: 5_200}},
		application.PricingConfig{FreightRub: 100_000, BrokerRub: 100_000},
	)
	fetcher := &fakeFetcher{err: domain.ErrListingUnavailable}
	return NewRouter(NewServer(keeper, quoter, fetcher))
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
}

func TestGetRates(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rates", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body ratesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1350.0, body.UsdtKrw)
	require.Equal(t, 80.0, body.UsdtRub)
}

func TestGetRates_UnavailableBeforeFirstRefresh(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t, false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rates", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPostQuote_Manual(t *testing.T) {
	payload := `{"price_krw":30000000,"engine_cc":2359,"age":"3-5"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(payload))
	newTestRouter(t, true).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body quoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(30_000_000), body.PriceKrw)
	require.Equal(t, 1_777_760.0, body.PriceRub)
	require.Equal(t, 2_152_960.0, body.TotalRub)
	require.Nil(t, body.TotalRubBank)
}

func TestPostQuote_BadAge(t *testing.T) {
	payload := `{"price_krw":30000000,"engine_cc":2359,"age":"1-2"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(payload))
	newTestRouter(t, true).ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostQuote_ListingUnavailable(t *testing.T) {
	payload := `{"listing_id":"38554515"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(payload))
	newTestRouter(t, true).ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostQuote_RefetchesRatesPerRequest(t *testing.T) {
	krw := &countingSource{v: 1350}
	rub := &countingSource{v: 80}
	keeper := application.NewRateKeeper(krw, rub, nil, zap.NewNop())
	quoter := application.NewQuoter(
		&fakeCustoms{fees: domain.CustomsFees{ClearanceRub: 20_000, DutyRub: 150_000, RecyclingRub: 5_200}},
		application.PricingConfig{FreightRub: 100_000, BrokerRub: 100_000},
	)
	router := NewRouter(NewServer(keeper, quoter, &fakeFetcher{err: domain.ErrListingUnavailable}))

	payload := `{"price_krw":30000000,"engine_cc":2359,"age":"3-5"}`
	for want := 1; want <= 2; want++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(payload)))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, want, krw.calls, "sources fetched once per quotation")
		require.Equal(t, want, rub.calls)
	}
}

func TestPostQuote_RatesUnavailable(t *testing.T) {
	payload := `{"price_krw":30000000,"engine_cc":2359,"age":"3-5"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(payload))
	newTestRouter(t, false).ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
