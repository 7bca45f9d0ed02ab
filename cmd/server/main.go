package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/railyard/rails-server-go/internal/config"
	"github.com/railyard/rails-server-go/internal/engine"
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/metrics"
	"github.com/railyard/rails-server-go/internal/repository"
	"github.com/railyard/rails-server-go/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file (empty for defaults and environment only)")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting rails server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Action log
	var store repository.Store
	if cfg.Database.Persistent() {
		db, err := repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		stats := db.Stat()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)
		pg := repository.NewPostgresStore(db)
		if cfg.Database.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				logger.Fatal("failed to migrate database", zap.Error(err))
			}
		}
		store = pg
	} else {
		logger.Warn("no database configured; action logs are kept in memory")
		store = repository.NewMemoryStore()
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	opts := []engine.Option{
		engine.WithStore(store),
		engine.WithMetrics(m),
		engine.WithResolver(engine.DirResolver(cfg.Engine.VariantDir)),
		engine.WithStrictChecks(cfg.Engine.StrictChecks),
		engine.WithMaxGames(cfg.Engine.MaxGames),
	}
	if cfg.Engine.ReplayDir != "" {
		if err := os.MkdirAll(cfg.Engine.ReplayDir, 0o755); err != nil {
			logger.Fatal("failed to create replay directory", zap.Error(err))
		}
		opts = append(opts, engine.WithRecorder(game.NewReplayRecorder(logger, cfg.Engine.ReplayDir)))
	}
	eng := engine.New(logger, opts...)

	loaded, err := eng.LoadAll(ctx)
	if err != nil {
		logger.Error("some games could not be restored", zap.Int("loaded", loaded), zap.Error(err))
	} else {
		logger.Info("games restored", zap.Int("loaded", loaded))
	}

	hub := server.NewHub(logger, m, cfg.Server.HTTP.AllowedOrigins)
	go hub.Run(ctx)
	eng.SetNotificationHandler(hub.Notify)

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(server.ChainUnaryInterceptors(
			server.RecoveryInterceptor(logger),
			server.LoggingInterceptor(logger),
			server.MetricsInterceptor(m),
		)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    cfg.Server.GRPC.KeepaliveTime,
			Timeout: cfg.Server.GRPC.KeepaliveTimeout,
		}),
		grpc.MaxConcurrentStreams(uint32(cfg.Server.GRPC.MaxConcurrentStreams)),
	)
	server.RegisterGameServiceServer(grpcServer,
		server.NewGameService(eng, logger, cfg.Engine.DefaultVariant, cfg.Engine.VariantDir))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(server.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}

	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	httpOpts := server.HTTPOptions{
		DefaultVariant: cfg.Engine.DefaultVariant,
		VariantDir:     cfg.Engine.VariantDir,
		RequestTimeout: cfg.Server.HTTP.RequestTimeout,
	}
	if cfg.Metrics.Enabled {
		httpOpts.MetricsPath = cfg.Metrics.Path
		httpOpts.Gatherer = reg
	}
	httpServer := &http.Server{
		Addr:        cfg.Server.HTTP.Address,
		Handler:     server.NewHTTPServer(eng, hub, logger, httpOpts).Handler(),
		ReadTimeout: cfg.Server.HTTP.ReadTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.HTTP.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(serveErr))
		}
	}()

	logger.Info("rails server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("http_address", cfg.Server.HTTP.Address),
		zap.Strings("variants", engine.Variants(cfg.Engine.VariantDir)),
		zap.Int("max_games", cfg.Engine.MaxGames),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	cancel()
	grpcServer.GracefulStop()

	logger.Info("rails server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
