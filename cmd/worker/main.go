package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"public-safety-incident-system/internal/evidence"
	"public-safety-incident-system/internal/queue"
	"public-safety-incident-system/internal/repos"
	"public-safety-incident-system/internal/service"
	"public-safety-incident-system/internal/worker"
	"public-safety-incident-system/shared/awsx"
	"public-safety-incident-system/shared/clockx"
	"public-safety-incident-system/shared/config"
	"public-safety-incident-system/shared/dbx"
	"public-safety-incident-system/shared/httpx"
	"public-safety-incident-system/shared/logx"
	"public-safety-incident-system/shared/metricsx"
	"public-safety-incident-system/shared/observability"
	"public-safety-incident-system/shared/redisx"
)

func main() {
	cfg, problems := config.Load("incident-worker", 8083)
	version := strings.TrimSpace(os.Getenv("VERSION"))
	logger := logx.New(cfg.ServiceName, cfg.Env, version, cfg.LogLevel)

	if len(problems) > 0 {
		logger.Error(context.Background(), "config_invalid", "invalid config",
			slog.String("error_code", "FAILED_PRECONDITION"),
			slog.Any("problems", problems),
		)
		os.Exit(1)
	}

	if cfg.OtelEnabled {
		if shutdown, err := observability.InitTracer(context.Background(), observability.TracerConfig{
			ServiceName: cfg.ServiceName,
			Env:         cfg.Env,
			Endpoint:    cfg.OtelEndpoint,
			Insecure:    cfg.OtelInsecure,
			SampleRatio: cfg.OtelSampleRatio,
		}); err == nil {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	metricsx.Register()
	clock := clockx.System{}
	readiness := map[string]httpx.ReadinessCheck{}

	awsNeeded := cfg.StorageProvider == config.StorageDynamoDB ||
		cfg.QueueProvider == config.QueueSQS ||
		cfg.EvidenceProvider == config.EvidenceS3
	var awsClients awsx.Clients
	if awsNeeded {
		awsCfg, err := awsx.LoadConfig(context.Background(), cfg)
		if err != nil {
			logger.Error(context.Background(), "aws_init_failed", "aws config init failed",
				slog.String("error_code", "FAILED_PRECONDITION"),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		awsClients = awsx.Clients{
			Dynamo: awsx.NewDynamoClient(awsCfg, cfg),
			SQS:    awsx.NewSQSClient(awsCfg, cfg),
			S3:     awsx.NewS3Client(awsCfg, cfg),
		}
	}

	var dbPool *pgxpool.Pool
	if cfg.StorageProvider == config.StoragePostgres {
		pool, err := dbx.NewPool(cfg)
		if err != nil {
			logger.Error(context.Background(), "db_init_failed", "db init failed",
				slog.String("error_code", "FAILED_PRECONDITION"),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		dbPool = pool
		defer dbPool.Close()
		readiness["postgres"] = func(ctx context.Context) error { return dbx.Ping(ctx, dbPool) }
	}

	var redisClient *redis.Client
	if cfg.QueueProvider == config.QueueRedis {
		client, err := redisx.New(cfg)
		if err != nil {
			logger.Error(context.Background(), "redis_init_failed", "redis init failed",
				slog.String("error_code", "FAILED_PRECONDITION"),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		redisClient = client
		defer func() { _ = redisClient.Close() }()
		readiness["redis"] = func(ctx context.Context) error { return redisx.Ping(ctx, redisClient) }
	}

	var repo repos.Repository
	switch cfg.StorageProvider {
	case config.StoragePostgres:
		repo = repos.NewPostgresRepository(dbPool)
	case config.StorageDynamoDB:
		repo = repos.NewDynamoRepository(awsClients.Dynamo, cfg.IncidentTableName)
	default:
		repo = repos.NewMemoryRepository()
	}

	var q interface {
		queue.Publisher
		queue.Consumer
	}
	switch cfg.QueueProvider {
	case config.QueueSQS:
		sqsQueue, err := queue.NewSQSQueue(awsClients.SQS, cfg.IncidentQueueURL)
		if err != nil {
			logger.Error(context.Background(), "queue_init_failed", "sqs queue init failed",
				slog.String("error_code", "FAILED_PRECONDITION"),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		q = sqsQueue
	case config.QueueRedis:
		q = queue.NewRedisQueue(redisClient, clock, cfg.RedisQueueKey, time.Duration(cfg.RedisVisibilitySec)*time.Second)
	default:
		q = queue.NewMemoryQueue()
	}

	var store evidence.Storage
	switch cfg.EvidenceProvider {
	case config.EvidenceS3:
		s3Store, err := evidence.NewS3Storage(awsClients.S3, clock, cfg.EvidenceBucket, cfg.EvidenceUploadExpiry)
		if err != nil {
			logger.Error(context.Background(), "evidence_init_failed", "s3 evidence init failed",
				slog.String("error_code", "FAILED_PRECONDITION"),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		store = s3Store
	default:
		store = evidence.NewLocalStorage(clock, cfg.EvidenceUploadExpiry)
	}

	publisher := queue.NewInstrumentedPublisher(q, cfg.QueueProvider)
	svc := service.New(repo, store, publisher, clock, logger)
	runner := worker.NewRunner(q, svc, logger, worker.Options{
		BatchSize: cfg.WorkerBatchSize,
		PollWait:  time.Duration(cfg.WorkerPollSec) * time.Second,
		Backoff:   time.Duration(cfg.WorkerBackoffSec) * time.Second,
		Provider:  cfg.QueueProvider,
	})

	mux := http.NewServeMux()
	mux.Handle("/healthz", httpx.LivenessHandler())
	mux.Handle("/readyz", httpx.ReadinessHandler(readiness))
	mux.Handle("/metrics", metricsx.Handler())
	opsServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           metricsx.Instrument(httpx.WithRecover(logger, mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "ops_listener_failed", "ops listener failed",
				slog.String("error_code", "INTERNAL_ERROR"),
				slog.String("error", err.Error()),
			)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- runner.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info(context.Background(), "shutdown_signal", "received signal", slog.String("signal", sig.String()))
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(context.Background(), "worker_failed", "worker failed",
				slog.String("error_code", "INTERNAL_ERROR"),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = opsServer.Shutdown(shutdownCtx)
}
