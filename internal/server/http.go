package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"pulse-dashboard/internal/config"
	"pulse-dashboard/internal/favorites"
	"pulse-dashboard/internal/feed"
	"pulse-dashboard/internal/fetch"
	"pulse-dashboard/internal/notify"
	"pulse-dashboard/internal/state"
)

type HTTPServer struct {
	cfg     config.Config
	st      *state.State
	notifs  *notify.Log
	fetcher *fetch.Client
	favs    *favorites.Store
	feed    feed.PriceFeed
	hub     *hub
	log     *slog.Logger
	mux     *http.ServeMux
}

func NewHTTPServer(cfg config.Config, st *state.State, notifs *notify.Log, fetcher *fetch.Client,
	favs *favorites.Store, pf feed.PriceFeed, logger *slog.Logger) *HTTPServer {
	s := &HTTPServer{
		cfg:     cfg,
		st:      st,
		notifs:  notifs,
		fetcher: fetcher,
		favs:    favs,
		feed:    pf,
		hub:     newHub(logger),
		log:     logger,
		mux:     http.NewServeMux(),
	}
	s.hub.snapshot = s.joinSnapshot
	s.routes()
	go s.hub.run()
	return s
}

// joinSnapshot is pushed to each dashboard as it connects: feed status,
// the last known price per asset, then recent notifications (oldest first,
// so the client ends up newest-on-top like /api/notifications).
func (s *HTTPServer) joinSnapshot() [][]byte {
	frames := [][]byte{
		marshalFrame("status", map[string]any{"connected": s.st.Connected()}),
	}
	for asset, price := range s.st.Prices() {
		frames = append(frames, marshalFrame("price", map[string]any{
			"asset": asset,
			"price": price,
		}))
	}
	ns := s.notifs.List()
	for i := len(ns) - 1; i >= 0; i-- {
		frames = append(frames, marshalFrame("notification", ns[i]))
	}
	return frames
}

func (s *HTTPServer) Router() http.Handler { return s.mux }

// --------- WS broadcasts ----------

func (s *HTTPServer) BroadcastStatus() {
	s.hub.send("status", map[string]any{
		"connected": s.st.Connected(),
	})
}

func (s *HTTPServer) BroadcastPrice(asset string, price float64) {
	s.hub.send("price", map[string]any{
		"asset": asset,
		"price": price,
	})
}

func (s *HTTPServer) BroadcastNotification(n notify.Notification) {
	s.hub.send("notification", n)
}

func (s *HTTPServer) BroadcastToast(t notify.Toast) {
	s.hub.send("toast", t)
}

func (s *HTTPServer) BroadcastError(msg string) {
	s.hub.send("error", map[string]string{"message": msg})
}

// --------- Routes ----------

func (s *HTTPServer) routes() {
	// SPA
	s.mux.HandleFunc("/", s.serveIndex)
	s.mux.HandleFunc("/index.html", s.serveIndex)
	s.mux.HandleFunc("/app.js", s.serveAppJS)
	s.mux.HandleFunc("/styles.css", s.serveCSS)

	// WS
	s.mux.HandleFunc("/ws", s.hub.serveWS)

	// API
	s.mux.HandleFunc("/api/health", s.apiHealth)
	s.mux.HandleFunc("/api/config", s.apiConfig)
	s.mux.HandleFunc("/api/prices", s.apiPrices)
	s.mux.HandleFunc("/api/notifications", s.apiNotifications)
	s.mux.HandleFunc("/api/notifications/read", s.apiNotificationsRead)
	s.mux.HandleFunc("/api/notifications/clear", s.apiNotificationsClear)
	s.mux.HandleFunc("/api/notifications/clear-read", s.apiNotificationsClearRead)
	s.mux.HandleFunc("/api/weather", s.apiWeather)
	s.mux.HandleFunc("/api/forecast", s.apiForecast)
	s.mux.HandleFunc("/api/crypto", s.apiCryptoList)
	s.mux.HandleFunc("/api/crypto/", s.apiCrypto)
	s.mux.HandleFunc("/api/news", s.apiNews)
	s.mux.HandleFunc("/api/favorites", s.apiFavorites)
	s.mux.HandleFunc("/api/feed/connect", s.apiFeedConnect)
	s.mux.HandleFunc("/api/feed/disconnect", s.apiFeedDisconnect)
}

func (s *HTTPServer) serveIndex(w http.ResponseWriter, r *http.Request) {
	b, err := os.ReadFile("./web/index.html")
	if err != nil {
		http.Error(w, "index missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *HTTPServer) serveAppJS(w http.ResponseWriter, r *http.Request) {
	b, err := os.ReadFile("./web/app.js")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *HTTPServer) serveCSS(w http.ResponseWriter, r *http.Request) {
	b, err := os.ReadFile("./web/styles.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *HTTPServer) apiHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"ok":        true,
		"connected": s.st.Connected(),
	})
}

func (s *HTTPServer) apiConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"assets":               s.cfg.Assets,
		"thresholdPercent":     s.cfg.ThresholdPercent,
		"cooldownMs":           s.cfg.CooldownMs,
		"reconnectDelayMs":     s.cfg.ReconnectDelayMs,
		"notificationCapacity": s.cfg.NotificationCapacity,
	})
}

func (s *HTTPServer) apiPrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"connected": s.st.Connected(),
		"prices":    s.st.Prices(),
	})
}

func (s *HTTPServer) apiNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"notifications": s.notifs.List()})
}

func (s *HTTPServer) apiNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if !s.notifs.MarkRead(req.ID) {
		http.Error(w, "notification not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (s *HTTPServer) apiNotificationsClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	s.notifs.ClearAll()
	writeJSON(w, map[string]any{"ok": true})
}

func (s *HTTPServer) apiNotificationsClearRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	s.notifs.ClearRead()
	writeJSON(w, map[string]any{"ok": true})
}

func (s *HTTPServer) apiWeather(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		http.Error(w, "city required", http.StatusBadRequest)
		return
	}
	data, err := s.fetcher.CurrentWeather(r.Context(), city)
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	writeJSON(w, data)
}

func (s *HTTPServer) apiForecast(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		http.Error(w, "city required", http.StatusBadRequest)
		return
	}
	data, err := s.fetcher.Forecast(r.Context(), city)
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	writeJSON(w, data)
}

func (s *HTTPServer) apiCryptoList(w http.ResponseWriter, r *http.Request) {
	data, err := s.fetcher.CryptoList(r.Context())
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	writeJSON(w, data)
}

// apiCrypto handles /api/crypto/{id} and /api/crypto/{id}/history.
func (s *HTTPServer) apiCrypto(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/crypto/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	switch sub {
	case "":
		data, err := s.fetcher.CryptoDetail(r.Context(), id)
		if err != nil {
			s.upstreamError(w, err)
			return
		}
		writeJSON(w, data)
	case "history":
		days := 7
		if v := r.URL.Query().Get("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				http.Error(w, "days must be a positive integer", http.StatusBadRequest)
				return
			}
			days = n
		}
		data, err := s.fetcher.CryptoHistory(r.Context(), id, days)
		if err != nil {
			s.upstreamError(w, err)
			return
		}
		writeJSON(w, data)
	default:
		http.NotFound(w, r)
	}
}

func (s *HTTPServer) apiNews(w http.ResponseWriter, r *http.Request) {
	data, err := s.fetcher.News(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	writeJSON(w, data)
}

func (s *HTTPServer) apiFavorites(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]any{
			"city":   s.favs.List(favorites.KindCity),
			"crypto": s.favs.List(favorites.KindCrypto),
		})
	case http.MethodPost, http.MethodDelete:
		var req struct {
			Kind string `json:"kind"`
			ID   string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		kind, err := favorites.ParseKind(req.Kind)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.Method == http.MethodPost {
			err = s.favs.Add(kind, req.ID)
		} else {
			err = s.favs.Remove(kind, req.ID)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "favorites": s.favs.List(kind)})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *HTTPServer) apiFeedConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	s.feed.Connect()
	writeJSON(w, map[string]any{"ok": true, "phase": s.feed.Phase()})
}

func (s *HTTPServer) apiFeedDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	s.feed.Disconnect()
	writeJSON(w, map[string]any{"ok": true, "phase": s.feed.Phase()})
}

// upstreamError maps collaborator failures: a missing key is a rejected
// operation (503, not retried), everything else is a bad gateway.
func (s *HTTPServer) upstreamError(w http.ResponseWriter, err error) {
	s.log.Error("upstream fetch failed", slog.String("err", err.Error()))
	if errors.Is(err, fetch.ErrMissingAPIKey) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	http.Error(w, err.Error(), http.StatusBadGateway)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
