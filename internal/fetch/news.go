package fetch

import (
	"context"
	"fmt"
	"net/url"
)

type NewsArticle struct {
	ArticleID   string `json:"article_id"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	SourceID    string `json:"source_id"`
	PubDate     string `json:"pubDate"`
	Description string `json:"description,omitempty"`
}

type NewsResponse struct {
	Status       string        `json:"status"`
	TotalResults int           `json:"totalResults"`
	Results      []NewsArticle `json:"results"`
}

// News fetches English business/technology headlines for a query, defaulting
// to "cryptocurrency".
func (c *Client) News(ctx context.Context, query string) (NewsResponse, error) {
	var out NewsResponse
	if c.newsKey == "" {
		return out, fmt.Errorf("news: %w", ErrMissingAPIKey)
	}
	if query == "" {
		query = "cryptocurrency"
	}
	u := fmt.Sprintf("%s/news?apikey=%s&q=%s&language=en&category=business,technology",
		c.newsDataURL, url.QueryEscape(c.newsKey), url.QueryEscape(query))
	err := c.getJSON(ctx, u, &out)
	return out, err
}
