package fetch

import (
	"context"
	"fmt"
	"net/url"
)

type WeatherData struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Name string `json:"name"`
}

// ForecastData is the 5-day/3-hour forecast, used as the stand-in for weather
// history (OpenWeatherMap historical endpoints need a paid plan).
type ForecastData struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
			Icon        string `json:"icon"`
		} `json:"weather"`
	} `json:"list"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
}

// CurrentWeather fetches current conditions for a city in metric units.
func (c *Client) CurrentWeather(ctx context.Context, city string) (WeatherData, error) {
	var out WeatherData
	if c.weatherKey == "" {
		return out, fmt.Errorf("current weather: %w", ErrMissingAPIKey)
	}
	u := fmt.Sprintf("%s/weather?q=%s&appid=%s&units=metric",
		c.openWeatherURL, url.QueryEscape(city), url.QueryEscape(c.weatherKey))
	err := c.getJSON(ctx, u, &out)
	return out, err
}

// Forecast fetches the 5-day forecast for a city in metric units.
func (c *Client) Forecast(ctx context.Context, city string) (ForecastData, error) {
	var out ForecastData
	if c.weatherKey == "" {
		return out, fmt.Errorf("forecast: %w", ErrMissingAPIKey)
	}
	u := fmt.Sprintf("%s/forecast?q=%s&appid=%s&units=metric",
		c.openWeatherURL, url.QueryEscape(city), url.QueryEscape(c.weatherKey))
	err := c.getJSON(ctx, u, &out)
	return out, err
}
