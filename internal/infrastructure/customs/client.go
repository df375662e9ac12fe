package customs

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"carcost-bot/internal/application"
	"carcost-bot/internal/domain"
	"carcost-bot/internal/infrastructure/httpx"
)

// The tariff endpoint rate-limits aggressively; requests rotate through a
// small set of browser user agents.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/119.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
}

// Client talks to the external tariff calculator. Owner type is fixed to
// "private individual"; failures surface as ErrTariffUnavailable and are
// never replaced by a zero-filled result.
type Client struct {
	URL    string
	Client *httpx.Client
}

var _ application.CustomsCalculator = (*Client)(nil)

type tariffResp struct {
	Sbor string `json:"sbor"`
	Tax  string `json:"tax"`
	Util string `json:"util"`
}

func (c *Client) Calculate(ctx context.Context, engineCc int, priceKrw int64, age domain.AgeBucket, engine domain.EngineType) (domain.CustomsFees, error) {
	form := url.Values{}
	form.Set("owner", "1") // private individual
	form.Set("age", string(age))
	form.Set("engine", strconv.Itoa(int(engine)))
	form.Set("power", "1")
	form.Set("power_unit", "1")
	form.Set("value", strconv.Itoa(engineCc))
	form.Set("price", strconv.FormatInt(priceKrw, 10))
	form.Set("curr", "KRW")
	encoded := form.Encode()

	var body tariffResp
	err := c.Client.DoJSON(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.URL, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
		req.Header.Set("Referer", "https://calcus.ru/")
		req.Header.Set("Origin", "https://calcus.ru")
		return req, nil
	}, &body)
	if err != nil {
		return domain.CustomsFees{}, fmt.Errorf("%w: %v", domain.ErrTariffUnavailable, err)
	}

	fees := domain.CustomsFees{}
	for _, f := range []struct {
		name string
		raw  string
		dst  *int64
	}{
		{"sbor", body.Sbor, &fees.ClearanceRub},
		{"tax", body.Tax, &fees.DutyRub},
		{"util", body.Util, &fees.RecyclingRub},
	} {
		v, err := cleanNumber(f.raw)
		if err != nil {
			return domain.CustomsFees{}, fmt.Errorf("%w: field %s: %v", domain.ErrTariffUnavailable, f.name, err)
		}
		*f.dst = v
	}
	return fees, nil
}

var numberCleaner = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "")

// cleanNumber parses the locale-formatted numbers the tariff service emits:
// space or NBSP thousand separators, comma decimal marks.
func cleanNumber(raw string) (int64, error) {
	s := numberCleaner.Replace(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", raw, err)
	}
	return int64(f), nil
}
