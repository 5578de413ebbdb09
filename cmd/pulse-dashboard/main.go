package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pulse-dashboard/internal/alert"
	"pulse-dashboard/internal/config"
	"pulse-dashboard/internal/favorites"
	"pulse-dashboard/internal/feed"
	"pulse-dashboard/internal/fetch"
	"pulse-dashboard/internal/notify"
	"pulse-dashboard/internal/pipeline"
	"pulse-dashboard/internal/server"
	"pulse-dashboard/internal/state"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load() // best-effort: .env is optional

	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config.yaml: %v\n", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.LogLevel)

	logger.Info("pulse-dashboard starting",
		slog.Int("port", cfg.Port),
		slog.Any("assets", cfg.Assets),
		slog.Float64("threshold_percent", cfg.ThresholdPercent),
	)

	// Shared state & notification log
	st := state.NewState()
	notifs := notify.NewLog(cfg.NotificationCapacity)
	publisher := notify.NewPublisher(notifs, logger)

	// Price pipeline
	engine := alert.NewEngine(cfg.ThresholdPercent, cfg.Cooldown())
	pf := feed.NewCoinCapFeed(cfg.FeedURL(), cfg.ReconnectDelay(), logger)

	// REST collaborators; keys come from the environment (.env supported)
	fetcher := fetch.NewClient(
		cfg.OpenWeatherURL, cfg.CoinGeckoURL, cfg.NewsDataURL,
		os.Getenv("OPENWEATHERMAP_API_KEY"), os.Getenv("NEWSDATA_API_KEY"),
		cfg.FetchTimeout(), logger,
	)

	favs := favorites.NewStore(cfg.FavoritesPath)

	// HTTP server + WS hub
	srv := server.NewHTTPServer(cfg, st, notifs, fetcher, favs, pf, logger)
	publisher.OnAdded = srv.BroadcastNotification
	publisher.OnToast = srv.BroadcastToast

	// Context & signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go pf.Run(ctx)
	pf.Connect()

	// Feed events → state sink + change detection → publisher.
	go pipeline.Run(pf.Events(), engine, st, publisher, srv, logger)

	// Simulated weather alerts share the notification log and toast surface.
	sim := alert.NewWeatherSimulator(
		cfg.WeatherAlertInterval(), cfg.WeatherAlertChance, cfg.WeatherAlertCities,
		func(city, msg string) { publisher.WeatherAlert(city, msg) },
		logger,
	)
	go sim.Run(ctx)

	// HTTP serving
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Router(),
	}

	done := make(chan struct{})
	go func() {
		logger.Info("HTTP server listening", slog.Int("port", cfg.Port))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("err", err.Error()))
			cancel()
		}
		close(done)
	}()

	// Graceful shutdown
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	logger.Info("shutting down...")
	shCtx, shCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shCancel()

	_ = httpSrv.Shutdown(shCtx)
	pf.Disconnect()
	cancel()
	<-done
	logger.Info("bye")
}
