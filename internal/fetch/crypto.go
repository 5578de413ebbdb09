package fetch

import (
	"context"
	"fmt"
	"net/url"
)

// CryptoListEntry is one row of the CoinGecko markets listing.
type CryptoListEntry struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	CurrentPrice             float64 `json:"current_price"`
	MarketCap                float64 `json:"market_cap"`
	MarketCapRank            int     `json:"market_cap_rank"`
	TotalVolume              float64 `json:"total_volume"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
}

type CryptoData struct {
	ID         string `json:"id"`
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	MarketData struct {
		CurrentPrice             map[string]float64 `json:"current_price"`
		MarketCap                map[string]float64 `json:"market_cap"`
		TotalVolume              map[string]float64 `json:"total_volume"`
		PriceChangePercentage24h float64            `json:"price_change_percentage_24h"`
		MarketCapRank            int                `json:"market_cap_rank"`
	} `json:"market_data"`
}

// CryptoHistoryData holds [timestamp ms, value] pairs.
type CryptoHistoryData struct {
	Prices       [][2]float64 `json:"prices"`
	MarketCaps   [][2]float64 `json:"market_caps"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// CryptoList fetches the top 100 coins by market cap. CoinGecko needs no key.
func (c *Client) CryptoList(ctx context.Context) ([]CryptoListEntry, error) {
	var out []CryptoListEntry
	u := c.coinGeckoURL + "/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=100&page=1&sparkline=false"
	err := c.getJSON(ctx, u, &out)
	return out, err
}

// CryptoDetail fetches market data for one coin.
func (c *Client) CryptoDetail(ctx context.Context, cryptoID string) (CryptoData, error) {
	var out CryptoData
	u := fmt.Sprintf("%s/coins/%s?localization=false&tickers=false&market_data=true&community_data=false&developer_data=false&sparkline=false",
		c.coinGeckoURL, url.PathEscape(cryptoID))
	err := c.getJSON(ctx, u, &out)
	return out, err
}

// CryptoHistory fetches a coin's market chart over the trailing days window.
func (c *Client) CryptoHistory(ctx context.Context, cryptoID string, days int) (CryptoHistoryData, error) {
	var out CryptoHistoryData
	if days <= 0 {
		days = 7
	}
	u := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%d",
		c.coinGeckoURL, url.PathEscape(cryptoID), days)
	err := c.getJSON(ctx, u, &out)
	return out, err
}
