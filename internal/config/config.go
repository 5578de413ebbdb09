package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port                  int      `yaml:"port"`
	LogLevel              string   `yaml:"log_level"`
	Assets                []string `yaml:"assets"`
	PriceFeedURL          string   `yaml:"price_feed_url"`
	ThresholdPercent      float64  `yaml:"threshold_percent"`
	CooldownMs            int      `yaml:"cooldown_ms"`
	ReconnectDelayMs      int      `yaml:"reconnect_delay_ms"`
	NotificationCapacity  int      `yaml:"notification_capacity"`
	WeatherAlertIntervalS int      `yaml:"weather_alert_interval_seconds"`
	WeatherAlertChance    float64  `yaml:"weather_alert_chance"`
	WeatherAlertCities    []string `yaml:"weather_alert_cities"`
	FavoritesPath         string   `yaml:"favorites_path"`
	OpenWeatherURL        string   `yaml:"openweather_url"`
	CoinGeckoURL          string   `yaml:"coingecko_url"`
	NewsDataURL           string   `yaml:"newsdata_url"`
	FetchTimeoutSeconds   int      `yaml:"fetch_timeout_seconds"`
}

func defaults() Config {
	return Config{
		Port:                  8090,
		LogLevel:              "info",
		Assets:                []string{"bitcoin", "ethereum"},
		PriceFeedURL:          "wss://ws.coincap.io/prices",
		ThresholdPercent:      2.0,
		CooldownMs:            300_000,
		ReconnectDelayMs:      5_000,
		NotificationCapacity:  50,
		WeatherAlertIntervalS: 30,
		WeatherAlertChance:    0.1,
		WeatherAlertCities:    []string{"New York", "London", "Tokyo"},
		FavoritesPath:         "./data/favorites.json",
		OpenWeatherURL:        "https://api.openweathermap.org/data/2.5",
		CoinGeckoURL:          "https://api.coingecko.com/api/v3",
		NewsDataURL:           "https://newsdata.io/api/1",
		FetchTimeoutSeconds:   15,
	}
}

func Load(path string) (Config, error) {
	cfg := defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	// Validation & normalization
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, errors.New("invalid port")
	}
	if len(cfg.Assets) == 0 {
		return cfg, errors.New("assets must list at least one asset id")
	}
	for i, a := range cfg.Assets {
		cfg.Assets[i] = strings.ToLower(strings.TrimSpace(a))
		if cfg.Assets[i] == "" {
			return cfg, errors.New("assets must not contain empty ids")
		}
	}
	if cfg.ThresholdPercent <= 0 {
		return cfg, errors.New("threshold_percent must be > 0")
	}
	if cfg.CooldownMs < 0 {
		return cfg, errors.New("cooldown_ms must be >= 0")
	}
	if cfg.ReconnectDelayMs < 1 {
		return cfg, errors.New("reconnect_delay_ms must be >= 1")
	}
	if cfg.NotificationCapacity < 1 {
		return cfg, errors.New("notification_capacity must be >= 1")
	}
	if cfg.WeatherAlertChance < 0 || cfg.WeatherAlertChance > 1 {
		return cfg, errors.New("weather_alert_chance must be within [0,1]")
	}
	return cfg, nil
}

// FeedURL returns the price feed endpoint with the subscribed asset set encoded
// in the query, e.g. wss://ws.coincap.io/prices?assets=bitcoin,ethereum.
func (c Config) FeedURL() string {
	return c.PriceFeedURL + "?assets=" + strings.Join(c.Assets, ",")
}

func (c Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownMs) * time.Millisecond
}

func (c Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMs) * time.Millisecond
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c Config) WeatherAlertInterval() time.Duration {
	return time.Duration(c.WeatherAlertIntervalS) * time.Second
}

func NewLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}
