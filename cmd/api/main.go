package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/fitplan/internal/api"
	"example.com/fitplan/internal/auth"
	"example.com/fitplan/internal/cache"
	"example.com/fitplan/internal/catalog"
	"example.com/fitplan/internal/chat"
	"example.com/fitplan/internal/config"
	"example.com/fitplan/internal/domain"
	"example.com/fitplan/internal/generative"
	"example.com/fitplan/internal/interactions"
	"example.com/fitplan/internal/observability"
	httptransport "example.com/fitplan/internal/transport/http"
)

func main() {
	cfg := config.Load()

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("configuration rejected", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("failed to load exercise catalog", zap.Error(err))
	}
	logger.Info("exercise catalog loaded", zap.String("version", cat.Version), zap.Int("exercises", cat.Size()))

	tracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		SampleRate:  cfg.TraceSampleRate,
	})
	if err != nil {
		logger.Fatal("failed to initialise tracing", zap.Error(err))
	}

	planCache, closeCache := openCache(ctx, cfg, logger)
	defer closeCache()

	sink, history, closeSink := openSink(ctx, cfg, logger)
	defer closeSink()

	interactionLog := interactions.NewAsyncLog(sink,
		interactions.WithQueueSize(cfg.LogQueueSize),
		interactions.WithLogger(logger.Named("interactions")),
	)
	logCtx, stopLog := context.WithCancel(context.Background())
	go interactionLog.Start(logCtx)

	var generator domain.Generator
	if cfg.LLMBaseURL != "" {
		generator = generative.NewClient(generative.Config{
			BaseURL: cfg.LLMBaseURL,
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
			Breaker: generative.DefaultBreakerConfig(),
		}, generative.WithLogger(logger.Named("generative")))
	} else {
		logger.Warn("LLM_BASE_URL not set, every plan uses the rule-based selector")
	}

	service := domain.NewService(cat, generator, planCache, interactionLog,
		domain.WithLogger(logger.Named("engine")),
		domain.WithLimits(domain.Limits{MinDuration: cfg.MinDuration, MaxDuration: cfg.MaxDuration}),
		domain.WithPrimaryTimeout(cfg.PrimaryTimeout),
		domain.WithPlanTTL(cfg.PlanTTL),
		domain.WithPreferenceTTL(cfg.PreferenceTTL),
		domain.WithPredictor(domain.NewRandomPredictor(nil)),
		domain.WithTracer(tracing.Tracer()),
	)

	hub := chat.NewHub(logger.Named("chat"))
	chatServer := chat.NewServer(hub, service, chat.ServerConfig{
		MaxConnectionsPerUser: cfg.ChatMaxConnectionsPerUser,
		CheckOrigin:           originChecker(cfg.CORSOrigins),
	}, logger.Named("chat"))

	handlerOpts := []api.Option{api.WithPusher(hub), api.WithLogger(logger.Named("api"))}
	if history != nil {
		handlerOpts = append(handlerOpts, api.WithHistory(history))
	}
	handler := api.NewHandler(service, handlerOpts...)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/ws/chat", chatServer)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	corsMiddleware := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	server := httptransport.NewServer(
		httptransport.DefaultServerConfig(cfg.HTTPAddress, cfg.PrimaryTimeout),
		httptransport.Chain(mux,
			httptransport.Recoverer(logger),
			httptransport.Tracing(tracing.Tracer()),
			httptransport.RequestLogger(logger.Named("http")),
			corsMiddleware,
			authMiddleware.Wrap,
		),
	)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("fitplan api listening", zap.String("address", cfg.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-shutdownCh
	logger.Info("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}

	stopLog()
	interactionLog.Wait()

	if err := tracing.Shutdown(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown failed", zap.Error(err))
	}
}

func openCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (domain.PlanCache, func()) {
	if cfg.RedisURL == "" {
		logger.Info("plan cache: in-memory")
		return cache.NewMemoryStore(), func() {}
	}
	store, err := cache.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	logger.Info("plan cache: redis")
	return store, func() { _ = store.Close() }
}

// openSink returns the interaction sink and, when the sink can be queried,
// the reader behind GET /v1/interactions.
func openSink(ctx context.Context, cfg config.Config, logger *zap.Logger) (interactions.Sink, api.HistoryReader, func()) {
	logger.Info("interaction sink selected", zap.String("sink", cfg.InteractionSink))
	switch cfg.InteractionSink {
	case config.SinkPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		store := interactions.NewPostgresStore(pool)
		return store, store, pool.Close
	case config.SinkSQLite:
		store, err := interactions.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			logger.Fatal("failed to open sqlite", zap.Error(err))
		}
		return store, store, func() { _ = store.Close() }
	case config.SinkKafka:
		producer := interactions.NewKafkaProducer(cfg.KafkaBrokers)
		return interactions.NewKafkaPublisher(producer, cfg.InteractionsTopic), nil, func() { _ = producer.Close() }
	default:
		store := interactions.NewMemoryStore()
		return store, store, func() {}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}
