package rates

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"carcost-bot/internal/application"
	"carcost-bot/internal/infrastructure/httpx"
)

const spotPricePath = "/v2/prices/USDT-RUB/spot"

// SpotSource reads the USDT/RUB rate from a crypto spot-price API.
// Margin is added to the fetched value; it is the named replacement for the
// ad-hoc markup constants the business applies on top of exchange quotes.
type SpotSource struct {
	BaseURL string
	Margin  float64
	Client  *httpx.Client
}

var _ application.RateSource = (*SpotSource)(nil)

type spotResp struct {
	Data struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"data"`
}

func (s *SpotSource) Rate(ctx context.Context) (float64, error) {
	if s.BaseURL == "" {
		return 0, errors.New("spot: missing base url")
	}
	var body spotResp
	err := s.Client.DoJSON(ctx, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, s.BaseURL+spotPricePath, nil)
	}, &body)
	if err != nil {
		return 0, fmt.Errorf("spot: %w", err)
	}
	v, err := strconv.ParseFloat(body.Data.Amount, 64)
	if err != nil {
		return 0, fmt.Errorf("spot: parse amount %q: %w", body.Data.Amount, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("spot: non-positive rate %v", v)
	}
	return math.Round(v*100)/100 + s.Margin, nil
}
