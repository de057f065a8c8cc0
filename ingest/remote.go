/*
remote.go - Partner-center rate-card fetch (stub)

The remote path authenticates and calls the rate-card endpoint, but the
response is intentionally never mapped into price records and the store
is never touched. It exists so the auth plumbing can be exercised and so
a future implementation has a contract to fill in: report success or
failure, mutate nothing.
*/
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/emtek/nce-pricing/pricing"
)

// TokenSource supplies a bearer token for the rate-card API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token, typically one stored
// encrypted in the config. An empty token is an auth failure.
type StaticTokenSource string

func (s StaticTokenSource) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("no access token configured")
	}
	return string(s), nil
}

// RateCardClient fetches pricing from the partner-center rate-card
// endpoint. It never writes to the store.
type RateCardClient struct {
	BaseURL string
	Tokens  TokenSource
	HTTP    *http.Client
	Log     zerolog.Logger
}

// NewRateCardClient creates a client against baseURL.
func NewRateCardClient(baseURL string, tokens TokenSource, log zerolog.Logger) *RateCardClient {
	return &RateCardClient{
		BaseURL: baseURL,
		Tokens:  tokens,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Log:     log.With().Str("component", "ratecard").Logger(),
	}
}

// Fetch acquires a token and calls the rate-card endpoint. A non-2xx
// status or token failure is reported as an error; a successful call
// only confirms the API is reachable. The response body is drained and
// discarded - CSV import remains the supported data path.
func (c *RateCardClient) Fetch(ctx context.Context) error {
	token, err := c.Tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", pricing.ErrAuthFailure, err)
	}

	url := c.BaseURL + "/ratecards/azure"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	c.Log.Info().Str("url", url).Msg("fetching rate card")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", pricing.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: rate card returned %d", pricing.ErrSourceUnavailable, resp.StatusCode)
	}

	c.Log.Warn().Msg("rate card fetch succeeded; CSV import remains the supported data path")
	return nil
}
