package rates

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"carcost-bot/internal/application"
	"carcost-bot/internal/infrastructure/httpx"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// defaultSnippetRe matches the price element of the search-result page,
// e.g. <strong class="price"><em>1,350.20</em></strong>.
var defaultSnippetRe = regexp.MustCompile(`(?s)<strong[^>]*class="[^"]*price[^"]*"[^>]*>.*?<em[^>]*>\s*([\d,.]+)\s*</em>`)

// SnippetSource extracts one numeric rate from an HTML page. It serves both
// the USDT/KRW search snippet and the RUB/KRW bank quote page; the pages
// differ only in URL and extraction pattern. Margin is added to the scraped
// value (pass a negative margin for a subtracted markup).
type SnippetSource struct {
	URL     string
	Pattern *regexp.Regexp // nil means defaultSnippetRe
	Margin  float64
	Client  *httpx.Client
}

var _ application.RateSource = (*SnippetSource)(nil)

func (s *SnippetSource) Rate(ctx context.Context) (float64, error) {
	if s.URL == "" {
		return 0, errors.New("snippet: missing url")
	}
	body, err := s.Client.GetBody(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, s.URL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", browserUA)
		return req, nil
	})
	if err != nil {
		return 0, fmt.Errorf("snippet: %w", err)
	}

	re := s.Pattern
	if re == nil {
		re = defaultSnippetRe
	}
	m := re.FindSubmatch(body)
	if m == nil {
		return 0, fmt.Errorf("snippet: no rate element in %s", s.URL)
	}
	raw := strings.ReplaceAll(string(m[1]), ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("snippet: parse %q: %w", raw, err)
	}
	v += s.Margin
	if v <= 0 {
		return 0, fmt.Errorf("snippet: non-positive rate %v after margin", v)
	}
	return v, nil
}
