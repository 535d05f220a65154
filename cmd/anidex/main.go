package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"anidex/config"
	"anidex/discovery"
	"anidex/jikan"
	"anidex/server"
)

func main() {
	defaultCfg := config.DefaultConfig()

	listenDefault := defaultCfg.ListenAddr
	if value, ok := config.EnvString("ANIDEX_LISTEN_ADDR"); ok {
		listenDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("ANIDEX_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	baseURLDefault := defaultCfg.BaseURL
	if value, ok := config.EnvString("ANIDEX_BASE_URL"); ok {
		baseURLDefault = value
	}
	rateDefault := defaultCfg.RequestsPerSecond
	if value, ok, err := config.EnvFloat("ANIDEX_REQUESTS_PER_SECOND"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid ANIDEX_REQUESTS_PER_SECOND: %v\n", err)
		os.Exit(1)
	} else if ok {
		rateDefault = value
	}
	originDefault := defaultCfg.AllowedOrigin
	if value, ok := config.EnvString("ANIDEX_ALLOWED_ORIGIN"); ok {
		originDefault = value
	}
	cacheSizeDefault := defaultCfg.CacheSize
	if value, ok, err := config.EnvInt("ANIDEX_CACHE_SIZE"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid ANIDEX_CACHE_SIZE: %v\n", err)
		os.Exit(1)
	} else if ok {
		cacheSizeDefault = value
	}
	cacheTTLDefault := defaultCfg.CacheTTL
	if value, ok, err := config.EnvDuration("ANIDEX_CACHE_TTL"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid ANIDEX_CACHE_TTL: %v\n", err)
		os.Exit(1)
	} else if ok {
		cacheTTLDefault = value
	}

	listenAddr := flag.String("listen", listenDefault, "HTTP API listen address")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	baseURL := flag.String("base-url", baseURLDefault, "Upstream catalog API base URL")
	requestsPerSecond := flag.Float64("rps", rateDefault, "Maximum upstream requests per second")
	backoffBaseMs := flag.Int("backoff-base", 1000, "Throttle backoff base (milliseconds)")
	backoffMaxMs := flag.Int("backoff-max", 5000, "Throttle backoff cap (milliseconds)")
	timeoutS := flag.Int("timeout", 10, "Upstream request timeout (seconds)")
	allowedOrigin := flag.String("allowed-origin", originDefault, "CORS allowed origin for the browser UI")
	clientRateLimit := flag.Int("client-rate-limit", defaultCfg.ClientRateLimit, "Inbound requests per minute per client IP")
	cacheSize := flag.Int("cache-size", cacheSizeDefault, "Response cache entries (0 disables)")
	cacheTTL := flag.Duration("cache-ttl", cacheTTLDefault, "Response cache entry lifetime")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.ListenAddr = *listenAddr
	cfg.MetricsAddr = *metricsAddr
	cfg.BaseURL = *baseURL
	cfg.RequestsPerSecond = *requestsPerSecond
	cfg.BackoffBase = time.Duration(*backoffBaseMs) * time.Millisecond
	cfg.BackoffMax = time.Duration(*backoffMaxMs) * time.Millisecond
	cfg.Timeout = time.Duration(*timeoutS) * time.Second
	cfg.AllowedOrigin = *allowedOrigin
	cfg.ClientRateLimit = *clientRateLimit
	cfg.CacheSize = *cacheSize
	cfg.CacheTTL = *cacheTTL
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting anidex",
		slog.String("listen", cfg.ListenAddr),
		slog.String("upstream", cfg.BaseURL),
		slog.Float64("rps", cfg.RequestsPerSecond),
	)

	metrics := jikan.NewMetrics()
	scheduler := jikan.NewScheduler(cfg, metrics, logger)
	client := jikan.NewClient(cfg, scheduler, metrics, logger)
	service := discovery.NewService(client, cfg, logger)
	api := server.New(service, logger)

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	apiServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("api server shutdown failed", slog.Any("error", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
