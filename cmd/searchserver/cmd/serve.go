package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/ingestion/consumer"
	eventshandler "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/resilience"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP search API",
		Long: `Run the HTTP search API.

The index starts from the configured corpus, if any, and follows the
document event topic when Kafka is enabled. Query results are cached
in process and, when Redis is enabled, in Redis as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides config)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting search server", "port", cfg.Server.Port, "workers", cfg.Search.Workers)

	m := metrics.New()

	var remote cache.Remote
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, shared cache disabled", "error", err)
		} else {
			defer client.Close()
			redisClient = client
			remote = cache.WithBreaker(client, resilience.NewCircuitBreaker("redis", resilience.BreakerConfig{}))
			slog.Info("shared cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	opts := []service.Option{service.WithMetrics(m)}
	if cfg.Search.CacheSize > 0 {
		queryCache, err := cache.New(cfg.Search.CacheSize, remote, cfg.Redis.CacheTTL)
		if err != nil {
			return fmt.Errorf("creating query cache: %w", err)
		}
		opts = append(opts, service.WithCache(queryCache))
	}

	svc, err := buildService(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	slog.Info("index ready", "documents", svc.Stats().Documents, "corpus", cfg.Search.CorpusFile)

	mux := http.NewServeMux()
	handler.New(svc).Register(mux)

	if cfg.Kafka.Enabled {
		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.Documents, consumer.HandleMessage(svc, m))
		ic := consumer.New(kc)
		defer ic.Close()
		go func() {
			if err := ic.Start(ctx); err != nil {
				slog.Error("document consumer error", "error", err)
			}
		}()

		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Documents)
		defer producer.Close()
		eventshandler.New(publisher.New(producer)).Register(mux)
		slog.Info("document stream enabled", "topic", cfg.Kafka.Topics.Documents, "brokers", cfg.Kafka.Brokers)
	}

	checker := newChecker(cfg, svc, redisClient)

	if cfg.Metrics.Enabled {
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()
		go func() {
			if err := m.Serve(metricsCtx, cfg.Metrics.Port, cfg.Server.ShutdownTimeout); err != nil {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mws := []func(http.Handler) http.Handler{middleware.RequestID, middleware.Metrics(m)}
	if len(cfg.Server.CORSOrigins) > 0 {
		mws = append(mws, middleware.CORS(cfg.Server.CORSOrigins))
	}
	if rl := cfg.Server.RateLimit; rl.Requests > 0 {
		limiter := ratelimit.New(rl.Requests, rl.Window)
		go limiter.RunPruner(ctx, rl.Window)
		mws = append(mws, middleware.RateLimit(limiter))
		slog.Info("rate limiting enabled", "requests", rl.Requests, "window", rl.Window)
	}
	mws = append(mws, middleware.Timeout(cfg.Server.RequestTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	slog.Info("search server stopped")
	return nil
}

// newChecker registers the index as critical and the optional backends as
// degradable.
func newChecker(cfg *config.Config, svc *service.Service, redisClient *pkgredis.Client) *health.Checker {
	checker := health.NewChecker(0)
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		st := svc.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d words", st.Documents, st.Words),
		}
	})
	if cfg.Redis.Enabled {
		checker.RegisterOptional("redis", func(ctx context.Context) health.ComponentHealth {
			if redisClient == nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: "not connected"}
			}
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}
	if cfg.Kafka.Enabled {
		checker.RegisterOptional("kafka", func(ctx context.Context) health.ComponentHealth {
			if err := kafka.Ping(ctx, cfg.Kafka.Brokers); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}
	return checker
}
