package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client wraps an http.Client with bounded exponential retry. 5xx and
// transport errors are retried; 4xx are permanent.
type Client struct {
	HTTP *http.Client
}

func newBackoff(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 1 * time.Second
	exp.MaxElapsedTime = 5 * time.Second
	return backoff.WithContext(exp, ctx)
}

func (c *Client) client() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func (c *Client) do(ctx context.Context, build func() (*http.Request, error), handle func(*http.Response) error) error {
	op := func() error {
		req, err := build()
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.client().Do(req.WithContext(ctx))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}
		if err := handle(resp); err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	return backoff.Retry(op, newBackoff(ctx))
}

// DoJSON performs the built request and decodes a JSON response body.
// The request is rebuilt per attempt so bodies can be re-read.
func (c *Client) DoJSON(ctx context.Context, build func() (*http.Request, error), out any) error {
	return c.do(ctx, build, func(resp *http.Response) error {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

// GetBody fetches a URL and returns the raw response body, for the snippet
// scrapers that extract values from HTML.
func (c *Client) GetBody(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	var body []byte
	err := c.do(ctx, build, func(resp *http.Response) error {
		b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		body = b
		return nil
	})
	return body, err
}
