// Package fetch holds the REST collaborators the dashboard aggregates:
// OpenWeatherMap, CoinGecko and NewsData. These are thin request/response
// helpers; failures surface to the caller and are never retried here.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ErrMissingAPIKey marks an operation rejected because the provider key is
// absent from the environment. Callers should not retry automatically.
var ErrMissingAPIKey = errors.New("missing API key")

type Client struct {
	httpc  *http.Client
	logger *slog.Logger

	openWeatherURL string
	coinGeckoURL   string
	newsDataURL    string

	weatherKey string
	newsKey    string
}

func NewClient(openWeatherURL, coinGeckoURL, newsDataURL, weatherKey, newsKey string,
	timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpc:          &http.Client{Timeout: timeout},
		logger:         logger,
		openWeatherURL: openWeatherURL,
		coinGeckoURL:   coinGeckoURL,
		newsDataURL:    newsDataURL,
		weatherKey:     weatherKey,
		newsKey:        newsKey,
	}
}

// getJSON performs one GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch: status %d %s", resp.StatusCode, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
