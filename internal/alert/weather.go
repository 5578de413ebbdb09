package alert

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// WeatherSimulator periodically fabricates weather alerts for a fixed city
// list. It is a stand-in for a genuine weather-alerting feed: the trigger is
// a random draw, not real meteorology. It shares the notification log and
// toast surface with the price pipeline but is otherwise independent of it.
type WeatherSimulator struct {
	interval time.Duration
	chance   float64
	cities   []string
	publish  func(city, message string)
	log      *slog.Logger

	// roll is swappable in tests to force or suppress a draw.
	roll func() float64
}

func NewWeatherSimulator(interval time.Duration, chance float64, cities []string,
	publish func(city, message string), logger *slog.Logger) *WeatherSimulator {
	return &WeatherSimulator{
		interval: interval,
		chance:   chance,
		cities:   cities,
		publish:  publish,
		log:      logger,
		roll:     rand.Float64,
	}
}

// Run fires on a fixed interval until ctx is done.
func (s *WeatherSimulator) Run(ctx context.Context) {
	if len(s.cities) == 0 || s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *WeatherSimulator) tick() {
	if s.roll() >= s.chance {
		return
	}
	city := s.cities[rand.Intn(len(s.cities))]
	msg := fmt.Sprintf("Simulated weather alert: Heavy rain expected in %s.", city)
	s.log.Debug("simulated weather alert", slog.String("city", city))
	s.publish(city, msg)
}
