package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finsim/internal/config"
	"finsim/internal/fakestock"
	"finsim/internal/history"
	"finsim/internal/profile"
	"finsim/internal/sim"
	"finsim/internal/simapi"
	"finsim/internal/util"
)

func main() {
	// Load config; run on defaults when no file is present.
	cfgPath := "config/finsim.yaml"
	if p := os.Getenv("FINSIM_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("loading config: %v", err)
		}
		cfg = config.Default()
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	source, synthetic := buildSource(cfg, logger)

	manager := sim.NewManager(source, sim.Config{
		StartCash:    cfg.Sim.StartCash,
		Speed:        time.Duration(cfg.Sim.SpeedMs) * time.Millisecond,
		MinSpeed:     time.Duration(cfg.Sim.MinSpeedMs) * time.Millisecond,
		MaxSpeed:     time.Duration(cfg.Sim.MaxSpeedMs) * time.Millisecond,
		NewsInterval: time.Duration(cfg.Sim.NewsIntervalMs) * time.Millisecond,
	}, logger)

	mux := http.NewServeMux()
	simapi.NewServer(manager, logger).RegisterRoutes(mux)

	// The synthetic source also serves its series over HTTP, so an external
	// consumer (or an "http" sourced instance) can pull the same data.
	if synthetic != nil {
		fakestock.NewHandler(synthetic, logger).Register(mux)
	}

	if cfg.Storage.SQLitePath != "" {
		store, err := profile.NewStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("opening profile store: %v", err)
		}
		defer store.Close()
		profile.NewHandler(store, logger).Register(mux)
		logger.Info("profile store opened", "path", cfg.Storage.SQLitePath)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: corsHandler(mux),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("finsim server listening", "addr", httpServer.Addr, "source", source.Name())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	manager.CloseAll()
}

// buildSource picks the history source from config. The second return is
// non-nil only for the synthetic source, which doubles as an HTTP data
// endpoint.
func buildSource(cfg *config.Config, logger *slog.Logger) (history.Source, *fakestock.Source) {
	switch cfg.History.Source {
	case "alpaca":
		if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
			log.Fatal("alpaca source requires APCA_API_KEY_ID and APCA_API_SECRET_KEY")
		}
		return history.NewAlpacaSource(
			cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL,
			cfg.History.Days, cfg.Alpaca.RateLimitPerMin, logger), nil
	case "http":
		if cfg.History.Endpoint == "" {
			log.Fatal("http source requires history.endpoint")
		}
		return history.NewHTTPSource(
			cfg.History.Endpoint, cfg.History.Days, cfg.History.Interval,
			time.Duration(cfg.History.TimeoutSec)*time.Second, logger), nil
	default:
		s := fakestock.NewSource(cfg.History.Days, cfg.Storage.DataDir, logger)
		return s, s
	}
}

func corsHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
