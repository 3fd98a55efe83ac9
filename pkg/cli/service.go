package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/protorules/pkg/cache"
	"github.com/platinummonkey/protorules/pkg/compiler"
	"github.com/platinummonkey/protorules/pkg/config"
	"github.com/platinummonkey/protorules/pkg/observability"
	"github.com/platinummonkey/protorules/pkg/store"
)

// service holds what the long-running commands share: logging, telemetry,
// metrics, the source store and the compiled schema cache
type service struct {
	log       *logrus.Entry
	logger    *observability.Logger
	registry  *prometheus.Registry
	metrics   *observability.Metrics
	telemetry *observability.Telemetry
	store     store.SourceStore
	cache     *cache.CompiledCache
}

func newService(ctx context.Context, cfg *config.Config, streams Streams) (*service, error) {
	opts, err := cfg.CompilerOptions()
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(streams.Err)
	if level, err := logrus.ParseLevel(cfg.Observability.LogLevel); err == nil {
		log.SetLevel(level)
	}

	s := &service{
		log:      log.WithField("session", uuid.NewString()),
		logger:   newLogger(cfg, streams.Err),
		registry: prometheus.NewRegistry(),
	}
	s.metrics = observability.NewMetrics(s.registry)

	s.telemetry, err = observability.StartTelemetry(ctx, cfg.TelemetryConfig(Version), s.logger)
	if err != nil {
		return nil, err
	}
	if s.telemetry != nil {
		otelMetrics, err := observability.NewOTelMetrics(s.telemetry.MeterProvider)
		if err != nil {
			s.close(ctx)
			return nil, err
		}
		s.metrics.WithOTel(otelMetrics)
	}

	storeCfg := cfg.StoreConfig()
	s.store, err = store.Open(ctx, storeCfg)
	if err != nil {
		s.close(ctx)
		return nil, fmt.Errorf("failed to open %s store: %w", storeCfg.Type, err)
	}
	cacheOpts := []cache.Option{cache.WithMetrics(s.metrics), cache.WithLogger(s.logger)}
	if s.store != nil {
		s.log.WithField("backend", storeCfg.Type).Info("Persisting schema sources")
		cacheOpts = append(cacheOpts, cache.WithStore(s.store))
	}

	opts = append(opts, compiler.WithLogger(s.logger), compiler.WithMetrics(s.metrics))
	s.cache, err = cache.New(cfg.CacheConfig(), compiler.New(opts...), cacheOpts...)
	if err != nil {
		s.close(ctx)
		return nil, err
	}
	return s, nil
}

// close releases the store and flushes telemetry, even when ctx is
// already cancelled
func (s *service) close(ctx context.Context) {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.WithError(err).Warn("Store close failed")
		}
		s.store = nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.telemetry.Shutdown(ctx); err != nil {
		s.log.WithError(err).Warn("Telemetry shutdown incomplete")
	}
}

// listen binds addr and serves handler in the background. Binding happens
// before returning so address conflicts surface as errors.
func (s *service) listen(addr, name string, handler http.Handler) (*http.Server, net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(handler, name),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		defer observability.RecoverPanic(s.logger, name+" server")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).WithField("addr", addr).Errorf("%s server failed", name)
		}
	}()
	return server, ln.Addr(), nil
}
