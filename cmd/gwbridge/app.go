package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/kitbuilder587/negotiation-bridge/internal/cache"
	"github.com/kitbuilder587/negotiation-bridge/internal/cache/memory"
	"github.com/kitbuilder587/negotiation-bridge/internal/config"
	"github.com/kitbuilder587/negotiation-bridge/internal/metrics"
	"github.com/kitbuilder587/negotiation-bridge/internal/party"
	"github.com/kitbuilder587/negotiation-bridge/internal/repository"
	"github.com/kitbuilder587/negotiation-bridge/internal/repository/postgres"
	"github.com/kitbuilder587/negotiation-bridge/internal/service"
)

// app собирает зависимости одной команды и освобождает их в close
type app struct {
	svc      *service.NegotiationService
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	closers  []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	store := memory.NewWithContext[[]byte](ctx, memory.DefaultCleanupInterval)
	a.closers = append(a.closers, store.Stop)
	profiles := cache.NewProfileCache(store, cfg.Cache.TTL, a.metrics)

	var repo repository.SessionRepository
	if cfg.Database.URL != "" {
		db, err := postgres.New(ctx, cfg.Database.URL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			a.close()
			return nil, err
		}
		repo = postgres.NewSessionRepo(db)
	}

	a.svc = service.NewNegotiationService(party.Default(), profiles, repo, a.metrics, serviceConfig(cfg), logger)
	return a, nil
}

func serviceConfig(cfg *config.Config) service.Config {
	return service.Config{
		Steps:               cfg.Negotiation.Steps,
		TimeLimit:           cfg.Negotiation.TimeLimit,
		NegotiatorTimeLimit: cfg.Negotiation.NegotiatorTimeLimit,
		EndOnNoOffer:        cfg.Negotiation.EndOnNoOffer,
		BridgeOptions:       cfg.BridgeOptions(),
	}
}

// serveMetrics поднимает /metrics, если задан адрес; останавливается в close
func (a *app) serveMetrics(addr string, logger *zap.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.registry))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	logger.Info("metrics server started", zap.String("addr", addr))
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
