package rates_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"carcost-bot/internal/infrastructure/httpx"
	"carcost-bot/internal/infrastructure/rates"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r), nil }

func httpClient(resBody string, code int) *httpx.Client {
	return &httpx.Client{HTTP: &http.Client{
		Timeout: 2 * time.Second,
		Transport: roundTripFunc(func(r *http.Request) *http.Response {
			return &http.Response{
				StatusCode: code,
				Body:       io.NopCloser(strings.NewReader(resBody)),
				Header:     make(http.Header),
				Request:    r,
			}
		}),
	}}
}

func TestSpotSource_AppliesMargin(t *testing.T) {
	s := &rates.SpotSource{
		BaseURL: "https://api.coinbase.com",
		Margin:  2,
		Client:  httpClient(`{"data":{"amount":"80.724","currency":"RUB"}}`, 200),
	}
	v, err := s.Rate(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 82.72, v, 0.0001) // rounded to cents, then +2 margin
}

func TestSpotSource_BadAmount(t *testing.T) {
	s := &rates.SpotSource{
		BaseURL: "https://api.coinbase.com",
		Client:  httpClient(`{"data":{"amount":"","currency":"RUB"}}`, 200),
	}
	_, err := s.Rate(context.Background())
	require.Error(t, err)
}

const searchHTML = `<html><body>
<div class="rate_box"><strong class="price"><em>1,352.50</em></strong> KRW</div>
</body></html>`

func TestSnippetSource_ExtractsAndSubtractsMargin(t *testing.T) {
	s := &rates.SnippetSource{
		URL:    "https://search.example.com/?query=USDT",
		Margin: -10,
		Client: httpClient(searchHTML, 200),
	}
	v, err := s.Rate(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 1342.50, v, 0.0001)
}

func TestSnippetSource_NoElement(t *testing.T) {
	s := &rates.SnippetSource{
		URL:    "https://search.example.com/?query=USDT",
		Client: httpClient(`<html><body>nothing here</body></html>`, 200),
	}
	_, err := s.Rate(context.Background())
	require.Error(t, err)
}

func TestSnippetSource_UserAgentSet(t *testing.T) {
	var gotUA string
	client := &httpx.Client{HTTP: &http.Client{
		Transport: roundTripFunc(func(r *http.Request) *http.Response {
			gotUA = r.Header.Get("User-Agent")
			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(strings.NewReader(searchHTML)),
				Header:     make(http.Header),
				Request:    r,
			}
		}),
	}}
	s := &rates.SnippetSource{URL: "https://search.example.com/", Client: client}
	_, err := s.Rate(context.Background())
	require.NoError(t, err)
	require.Contains(t, gotUA, "Mozilla/5.0")
}
