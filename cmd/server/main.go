package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"wkd-tester/internal/platform/config"
	"wkd-tester/internal/platform/httpserver"
	"wkd-tester/internal/platform/logger"
	platformmetrics "wkd-tester/internal/platform/metrics"
	"wkd-tester/internal/platform/telemetry"
	"wkd-tester/internal/platform/version"
	httptransport "wkd-tester/internal/transport/http"
	"wkd-tester/internal/wkd/fetch"
	"wkd-tester/internal/wkd/handler"
	wkdmetrics "wkd-tester/internal/wkd/metrics"
	"wkd-tester/internal/wkd/service"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Lookup logic lives in internal/wkd.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: cfg.ServiceName,
		Version:     version.Version,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		log.Error("telemetry setup failed", "error", err)
		os.Exit(1)
	}

	deps := httptransport.Deps{Logger: log}
	var lookupMetrics *wkdmetrics.Metrics
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		lookupMetrics = wkdmetrics.New(reg)
		deps.HTTPMetrics = platformmetrics.New(reg)
		deps.Gatherer = reg
	}

	fetcher := fetch.NewClient(
		fetch.WithTimeout(cfg.FetchTimeout),
		fetch.WithMaxBodyBytes(cfg.MaxBodyBytes),
		fetch.WithUserAgent(cfg.UserAgent+"/"+version.Version),
		fetch.WithLogger(log),
	)
	svc := service.New(fetcher,
		service.WithLogger(log),
		service.WithMetrics(lookupMetrics),
		service.WithProbes(cfg.Probes),
	)
	deps.Handlers = append(deps.Handlers, handler.New(svc, log, handler.Site{
		BaseURL: cfg.BaseURL,
		Footer:  handler.Footer{HostURL: cfg.Footer.HostURL, HostName: cfg.Footer.HostName},
	}))

	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(deps), cfg.FetchTimeout)

	log.Info("starting wkd-tester", "addr", cfg.Addr, "version", version.Version, "probes", cfg.Probes)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("trace flush failed", "error", err)
	}
}
