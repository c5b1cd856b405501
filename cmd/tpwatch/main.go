package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/tpwatch/internal/api"
	"github.com/rickgao/tpwatch/internal/config"
	"github.com/rickgao/tpwatch/internal/model"
	"github.com/rickgao/tpwatch/internal/notify"
	"github.com/rickgao/tpwatch/internal/poller"
	"github.com/rickgao/tpwatch/internal/source"
	"github.com/rickgao/tpwatch/internal/store"
	"github.com/rickgao/tpwatch/internal/trigger"
	"github.com/rickgao/tpwatch/internal/version"
	"github.com/rickgao/tpwatch/internal/watcher"
)

func main() {
	configPath := flag.String("config", "configs/tpwatch.yaml", "path to config file")
	alert := flag.Bool("alert", false, "append findings to the JSON log instead of printing them")
	thresholds := flag.Bool("thresholds", false, "poll subscriber threshold watches from the store")
	logItems := flag.String("log-items", "", "comma-separated item IDs whose listing stats are logged every log_interval")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logIDs, err := parseIDs(*logItems)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-items: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	logger.Info("starting tpwatch",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open subscription store
	subs, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer subs.Close()

	// Create API client and shared data sources
	apiClient := api.NewClient(
		cfg.API.BaseURL,
		cfg.API.APIKey,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, cfg.API.RetryDelay),
		api.WithBatchSize(cfg.API.BatchSize),
		api.WithParallelism(cfg.API.Parallelism),
	)
	items := source.New[model.Item](apiClient.Items(), logger.With("source", "items"))
	listings := source.New[model.Listing](apiClient.Listings(), logger.With("source", "listings"))

	controller := watcher.New(watcher.Config{
		PollInterval: cfg.Watcher.PollInterval,
		Granularity:  cfg.Watcher.Granularity,
	}, items, listings, logger)

	builder := notify.NewBuilder(items)

	// Default callback: stdout or JSON log
	var local func(watch string) trigger.Callback
	if *alert {
		jl := notify.NewJSONLog(cfg.Notify.LogFile, builder, logger)
		local = jl.Callback
		logger.Info("alert mode", "log_file", jl.Path())
	} else {
		local = notify.NewConsole(os.Stdout, builder, logger).Callback
	}

	// Subscriber delivery
	var deliverer notify.Deliverer = notify.LogDeliverer(logger)
	var relayStatus relay
	if cfg.Notify.WebSocketURL != "" {
		pusher := notify.NewPusher(pusherConfig(cfg.Notify), logger)
		defer pusher.Close()
		if err := pusher.Connect(ctx); err != nil {
			// Deliveries redial on demand.
			logger.Warn("websocket relay unavailable", "url", cfg.Notify.WebSocketURL, "error", err)
		}
		deliverer = pusher
		relayStatus = pusher
	}
	fanout := notify.NewFanout(subs, builder, deliverer, logger)

	callbacks := func(category store.Category) []trigger.Callback {
		return []trigger.Callback{local(string(category)), fanout.Callback(category)}
	}

	// Start watchers
	if _, err := controller.WatchNewItems(ctx, callbacks(store.CategoryNewItems)...); err != nil {
		logger.Error("failed to start watcher", "watch", watcher.NewItems, "error", err)
		os.Exit(1)
	}
	if _, err := controller.WatchNewListings(ctx, callbacks(store.CategoryNewListings)...); err != nil {
		logger.Error("failed to start watcher", "watch", watcher.NewListings, "error", err)
		os.Exit(1)
	}
	if _, err := controller.WatchNewSecretListings(ctx, callbacks(store.CategoryNewSecretListings)...); err != nil {
		logger.Error("failed to start watcher", "watch", watcher.NewSecretListings, "error", err)
		os.Exit(1)
	}

	if *thresholds {
		if err := startThresholds(ctx, controller, subs, fanout, cfg.Watcher.ThresholdInterval, logger); err != nil {
			logger.Error("failed to start threshold watches", "error", err)
			os.Exit(1)
		}
	}

	if len(logIDs) > 0 {
		itemLog := notify.NewJSONLog(cfg.Notify.ItemLogFile, builder, logger)
		itemCallbacks := []trigger.Callback{
			notify.NewConsole(os.Stdout, builder, logger).Callback(itemDataWatch),
			itemLog.Callback(itemDataWatch),
		}
		if err := startItemLog(ctx, controller, logIDs, cfg.Watcher, itemCallbacks, logger); err != nil {
			logger.Error("failed to start item log", "error", err)
			os.Exit(1)
		}
		logger.Info("logging listing stats", "items", logIDs, "log_file", itemLog.Path())
	}

	// Start health server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(controller, subs, relayStatus),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("tpwatch running",
		"pollers", len(controller.Pollers()),
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Health.Port),
	)

	// Wait for shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	controller.HaltAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := controller.Wait(shutdownCtx); err != nil {
		logger.Warn("pollers still running at exit", "error", err)
	}
	healthServer.Shutdown(shutdownCtx)

	logger.Info("tpwatch stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.LoadAndValidate(path)
}

// pusherConfig maps the notify section onto the websocket relay settings.
func pusherConfig(cfg config.NotifyConfig) notify.PusherConfig {
	pc := notify.DefaultPusherConfig()
	pc.URL = cfg.WebSocketURL
	pc.APIKey = cfg.WebSocketAPIKey
	return pc
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// startThresholds runs every stored threshold watch on one poller.
func startThresholds(ctx context.Context, controller *watcher.Controller, subs store.Store, fanout *notify.Fanout, interval time.Duration, logger *slog.Logger) error {
	watches, err := subs.ListThresholds(ctx, "")
	if err != nil {
		return fmt.Errorf("list thresholds: %w", err)
	}
	if len(watches) == 0 {
		logger.Info("no threshold watches stored")
		return nil
	}

	batches, err := fanout.ThresholdBatches(watches)
	if err != nil {
		return err
	}

	if _, err := controller.CreatePoller(ctx, "thresholds", batches, watcher.WithInterval(interval)); err != nil {
		return err
	}
	logger.Info("threshold watches started", "count", len(watches), "interval", interval)
	return nil
}

// itemDataWatch labels listing stats records.
const itemDataWatch = "item_data"

// parseIDs parses a comma-separated ID list. An empty string yields no IDs.
func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("bad item id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// startItemLog reports fresh listings for ids once per cfg.LogInterval.
// The poller ticks at cfg.Granularity and the interval trigger decides when to report.
func startItemLog(ctx context.Context, controller *watcher.Controller, ids []int, cfg config.WatcherConfig, callbacks []trigger.Callback, logger *slog.Logger) error {
	t := trigger.NewInterval(ids, cfg.LogInterval,
		trigger.WithName("log_items"),
		trigger.WithFreshFetch(),
	)
	if _, err := controller.WatchThresholds(ctx, "log_items", []*trigger.Trigger{t}, callbacks, watcher.WithInterval(cfg.Granularity)); err != nil {
		return err
	}
	logger.Debug("item log started", "ids", len(ids), "every", cfg.LogInterval)
	return nil
}

// relay is the websocket push connection, when one is configured.
type relay interface {
	IsConnected() bool
}

// createHealthHandler creates the HTTP handler for health checks.
// A nil relay is left out of the report.
func createHealthHandler(controller *watcher.Controller, subs store.Store, push relay) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string                 `json:"status"`
			Version    string                 `json:"version"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Version:    version.String(),
			Components: make(map[string]interface{}),
		}

		// Check store
		if err := subs.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["store"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["store"] = "connected"
		}

		// Check relay; deliveries redial, so a drop only degrades
		if push != nil {
			if push.IsConnected() {
				health.Components["relay"] = "connected"
			} else {
				health.Components["relay"] = "disconnected"
				if health.Status == "healthy" {
					health.Status = "degraded"
				}
			}
		}

		// Check pollers
		pollers := make(map[string]interface{})
		for _, p := range controller.Pollers() {
			stats := p.Stats()
			pollers[p.Name()] = map[string]interface{}{
				"state":     p.State().String(),
				"ticks":     stats.Ticks,
				"fired":     stats.Fired,
				"last_tick": stats.LastTick,
			}
			if p.State() != poller.StateRunning && health.Status == "healthy" {
				health.Status = "degraded"
			}
		}
		health.Components["pollers"] = pollers
		if len(pollers) == 0 && health.Status == "healthy" {
			health.Status = "degraded"
		}

		// Set response
		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
