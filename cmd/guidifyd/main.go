package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/guidify/internal/activity"
	"github.com/joseph-ayodele/guidify/internal/async"
	"github.com/joseph-ayodele/guidify/internal/cache"
	"github.com/joseph-ayodele/guidify/internal/common"
	"github.com/joseph-ayodele/guidify/internal/export"
	"github.com/joseph-ayodele/guidify/internal/extract"
	"github.com/joseph-ayodele/guidify/internal/llm"
	"github.com/joseph-ayodele/guidify/internal/metrics"
	"github.com/joseph-ayodele/guidify/internal/pipeline"
	repo "github.com/joseph-ayodele/guidify/internal/repository"
	"github.com/joseph-ayodele/guidify/internal/server"
	"github.com/joseph-ayodele/guidify/internal/services/career"
	"github.com/joseph-ayodele/guidify/internal/services/psychometric"
	"github.com/joseph-ayodele/guidify/internal/services/recommend"
)

func main() {
	configPath := flag.String("config", os.Getenv("GUIDIFY_CONFIG"), "optional TOML config file")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		os.Exit(1)
	}
	defer db.Close(logger)
	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	store, closeStore, err := server.NewCacheStore(ctx, cfg.Cache, db, logger)
	if err != nil {
		logger.Error("failed to open cache store", "backend", cfg.Cache.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	recCache := cache.New(store, logger, m)

	queue := async.NewWriteBehind(logger,
		async.WithWorkers(4),
		async.WithQueueSize(256),
		async.WithJobTimeout(30*time.Second),
		async.WithMetrics(m),
	)

	gw := llm.NewGateway(server.NewGenerator(cfg.LLM, logger), logger,
		llm.WithTimeout(cfg.LLM.Timeout.Duration),
		llm.WithDefaultModel(server.DefaultModel(cfg.LLM)),
		llm.WithMetrics(m),
	)

	catalog, err := recommend.LoadCatalog(cfg.Catalog.CollegesPath, cfg.Catalog.NSQFPath)
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	profiles := repo.NewProfileRepository(db, logger)
	personality := repo.NewPersonalityRepository(db, logger)
	fields := extract.New()

	svc := server.Services{
		Pipeline:     pipeline.NewProcessor(logger, server.NewTextExtractor(cfg.OCR, logger), fields, m),
		Recommend:    recommend.NewService(gw, recCache, catalog, fields, queue, logger),
		Career:       career.NewService(gw, profiles, queue, logger),
		Psychometric: psychometric.NewService(gw, personality, profiles, queue, logger, psychometric.WithAnalysisFallbackModels(cfg.LLM.AnalysisFallbackModels...)),
		Activity:     activity.NewService(profiles, logger, activity.WithMetrics(m)),
		Export:       export.NewService(profiles, logger),
		Metrics:      m,
		Health: func(ctx context.Context) error {
			return db.HealthCheck(ctx, 2*time.Second)
		},
	}
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.New(svc, logger, server.WithMaxUploadBytes(cfg.Server.MaxUploadBytes)).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()
	go func() {
		logger.Info("guidify listening", "http_addr", cfg.Server.HTTPAddr, "grpc_addr", cfg.Server.GRPCAddr, "llm_provider", cfg.LLM.Provider)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
}
