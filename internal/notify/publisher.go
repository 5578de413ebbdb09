package notify

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pulse-dashboard/internal/alert"
	"pulse-dashboard/internal/format"
)

// Toast is a transient surface notification. DedupeKey lets the presentation
// layer collapse repeat toasts for the same subject.
type Toast struct {
	Message   string `json:"message"`
	DedupeKey string `json:"dedupeKey"`
	Level     string `json:"level"` // "info" or "warn"
}

// Publisher turns admitted changes and simulated weather events into
// notification records and toasts. Delivery hooks are optional; the log is
// always appended to.
type Publisher struct {
	log     *Log
	logger  *slog.Logger
	OnAdded func(Notification)
	OnToast func(Toast)
}

func NewPublisher(log *Log, logger *slog.Logger) *Publisher {
	return &Publisher{log: log, logger: logger}
}

// PriceAlert publishes one admitted price change.
func (p *Publisher) PriceAlert(ch alert.Change) Notification {
	direction := "decreased"
	if ch.Increased {
		direction = "increased"
	}
	msg := fmt.Sprintf("%s price %s by %.2f%% to %s",
		strings.ToUpper(ch.Asset), direction, ch.Percent, format.Currency(ch.Price))
	n := p.log.Add(CategoryPriceAlert, msg, ch.Asset)
	p.logger.Info("price alert",
		slog.String("asset", ch.Asset),
		slog.Float64("percent", ch.Percent),
		slog.Float64("price", ch.Price),
	)
	p.deliver(n, Toast{
		Message:   msg,
		DedupeKey: ch.Asset + "-price-alert",
		Level:     "info",
	})
	return n
}

// WeatherAlert publishes one simulated weather alert.
func (p *Publisher) WeatherAlert(city, message string) Notification {
	n := p.log.Add(CategoryWeatherAlert, message, city)
	p.deliver(n, Toast{
		Message:   message,
		DedupeKey: fmt.Sprintf("%s-weather-alert-%d", city, time.Now().UnixMilli()),
		Level:     "warn",
	})
	return n
}

func (p *Publisher) deliver(n Notification, t Toast) {
	if p.OnAdded != nil {
		p.OnAdded(n)
	}
	if p.OnToast != nil {
		p.OnToast(t)
	}
}
