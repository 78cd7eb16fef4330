package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/campus-music/campus-music-sub001/internal/adapters/cache"
	eventadapter "github.com/campus-music/campus-music-sub001/internal/adapters/events"
	httpadapter "github.com/campus-music/campus-music-sub001/internal/adapters/http"
	"github.com/campus-music/campus-music-sub001/internal/adapters/payments"
	"github.com/campus-music/campus-music-sub001/internal/adapters/security"
	"github.com/campus-music/campus-music-sub001/internal/application"
	"github.com/campus-music/campus-music-sub001/internal/domain"
	"github.com/campus-music/campus-music-sub001/internal/ports"
	"github.com/redis/go-redis/v9"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	health     *health.Server
	outbox     *eventadapter.OutboxWorker
	cleanupFn  func(context.Context)
}

// NewRuntime wires the API process: HTTP routes, gRPC health and the outbox worker.
func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	return newRuntime(ctx, configPath, true)
}

// NewWorkerRuntime wires only what the outbox drain needs and binds no ports,
// so it can share a host with the API process.
func NewWorkerRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	return newRuntime(ctx, configPath, false)
}

func newRuntime(ctx context.Context, configPath string, serveAPI bool) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping support settlement service",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"ledger_driver", cfg.LedgerDriver,
		"serve_api", serveAPI,
	)
	if !serveAPI && cfg.LedgerDriver == LedgerDriverMemory {
		logger.Warn("memory ledger is process-local; this worker only drains its own empty outbox")
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	ledger, err := OpenLedger(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closers = append(closers, ledger.Close)
	if cfg.AutoMigrate {
		if err := ledger.Migrate(ctx); err != nil {
			cleanup()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	var (
		settled     ports.SettledTransactionCache
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		redisClient, err = cacheadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		settled = cacheadapter.NewRedisSettledTransactionCache(redisClient)
	} else {
		logger.Warn("REDIS_URL not set; settled-transaction cache disabled")
	}

	verifier, err := payments.NewStripeWebhookVerifier(cfg.StripeWebhookSecret, cfg.StripeWebhookTolerance)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("init webhook verifier: %w", err)
	}

	var checkout ports.CheckoutClient
	if cfg.StripeSecretKey != "" {
		client, err := payments.NewStripeCheckoutClient(payments.CheckoutClientConfig{
			SecretKey: cfg.StripeSecretKey,
			BaseURL:   cfg.StripeAPIBaseURL,
		})
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("init stripe checkout client: %w", err)
		}
		closers = append(closers, client.Close)
		checkout = client
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set; tip checkout disabled")
	}

	var tokens ports.TokenVerifier
	if cfg.JWTPublicKeyPEM != "" {
		verifierJWT, err := security.NewJWTVerifier(cfg.JWTPublicKeyPEM)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("init jwt verifier: %w", err)
		}
		tokens = verifierJWT
	} else {
		logger.Warn("JWT_PUBLIC_KEY_PEM not set; authenticated routes will reject all requests")
	}

	var publisher ports.EventPublisher = eventadapter.NewLoggingPublisher(logger)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, map[string]string{
			domain.EventSupportSettled: cfg.KafkaSettledTopic,
		})
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		closers = append(closers, func() { _ = kafkaPublisher.Close() })
		publisher = kafkaPublisher
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:            cfg.ServiceID,
			LedgerCurrency:         cfg.LedgerCurrency,
			CurrencyExponent:       &cfg.CurrencyExponent,
			SettledCacheTTL:        cfg.SettledCacheTTL,
			MinTipAmount:           cfg.MinTipAmount,
			MaxTipAmount:           cfg.MaxTipAmount,
			CheckoutSuccessURL:     cfg.CheckoutSuccessURL,
			CheckoutCancelURL:      cfg.CheckoutCancelURL,
			DefaultSupportPageSize: cfg.DefaultSupportPageSize,
			MaxSupportPageSize:     cfg.MaxSupportPageSize,
		},
		Verifier: verifier,
		Ledger:   ledger.Store,
		Settled:  settled,
		Checkout: checkout,
	})

	outbox := eventadapter.NewOutboxWorker(
		logger,
		ledger.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
	)
	rt := &Runtime{
		cfg:       cfg,
		logger:    logger,
		outbox:    outbox,
		cleanupFn: func(context.Context) { cleanup() },
	}
	if !serveAPI {
		return rt, nil
	}

	ready := func(ctx context.Context) error {
		if err := ledger.Ping(ctx); err != nil {
			return fmt.Errorf("ledger: %w", err)
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
	router := httpadapter.NewRouter(httpadapter.NewHandler(svc, tokens, ready))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	rt.httpServer = httpServer
	rt.grpcServer = grpcServer
	rt.grpcLis = lis
	rt.health = healthSrv
	return rt, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	if r.httpServer == nil {
		return errors.New("runtime was built without API listeners")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		r.logger.Error("server failure", "error", runErr)
	}

	r.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return runErr
}

// RunWorker drains the settlement outbox until the context is cancelled.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("outbox worker started")
	err := r.outbox.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
