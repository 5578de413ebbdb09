package alert

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger { return slog.Default() }

func TestWeatherSimulatorPublishesOnDraw(t *testing.T) {
	var gotCity, gotMsg string
	sim := NewWeatherSimulator(time.Second, 0.1, []string{"Tokyo"},
		func(city, msg string) { gotCity, gotMsg = city, msg }, testLogger())
	sim.roll = func() float64 { return 0.05 } // below chance: fires

	sim.tick()

	if gotCity != "Tokyo" {
		t.Fatalf("city got %q", gotCity)
	}
	if !strings.Contains(gotMsg, "Heavy rain expected in Tokyo") {
		t.Fatalf("message got %q", gotMsg)
	}
}

func TestWeatherSimulatorSuppressedDraw(t *testing.T) {
	called := false
	sim := NewWeatherSimulator(time.Second, 0.1, []string{"London"},
		func(string, string) { called = true }, testLogger())
	sim.roll = func() float64 { return 0.95 }

	sim.tick()

	if called {
		t.Fatal("draw above chance must not publish")
	}
}
