package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/cubescan/internal/auth"
	"github.com/example/cubescan/internal/config"
	"github.com/example/cubescan/internal/facecolor"
	"github.com/example/cubescan/internal/facestore"
	"github.com/example/cubescan/internal/handlers"
	"github.com/example/cubescan/internal/logging"
	"github.com/example/cubescan/internal/repository"
	"github.com/example/cubescan/internal/solver"
	"github.com/example/cubescan/internal/solverrpc"
	"github.com/example/cubescan/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// runServe starts the HTTP API and, when withGRPC is set, the solver RPC
// server next to it. It returns when ctx is done or either server fails.
func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger, withGRPC bool) error {
	strategy, err := facecolor.StrategyByName(cfg.ClassifierStrategy)
	if err != nil {
		return err
	}
	classifier := facecolor.New(strategy, facecolor.WithCanonicalSize(cfg.CanonicalSize))

	var redisClient *redis.Client
	if cfg.StoreBackend == config.StoreRedis {
		redisCtx, redisCancel := context.WithTimeout(ctx, 5*time.Second)
		redisClient, err = initRedis(redisCtx, cfg.RedisAddr, logger)
		redisCancel()
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	var store facestore.Store
	var cache usecase.Cache
	var memory *facestore.Memory
	if redisClient != nil {
		store = facestore.NewRedis(facestore.NewRedisHashClient(redisClient), cfg.SessionTTL, logger)
		cache = usecase.NewRedisCache(redisClient)
	} else {
		memory = facestore.NewMemory(cfg.SessionTTL, logger)
		store = memory
	}

	var grpcListener net.Listener
	if withGRPC {
		grpcListener, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return logging.NewOperationError("main.listen_grpc", "", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	cubeSolver, closeSolver, err := newSolver(gctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSolver()

	var history usecase.HistoryRepository
	if cfg.DatabaseDSN != "" {
		dbCtx, dbCancel := context.WithTimeout(ctx, 15*time.Second)
		db, err := initDatabase(dbCtx, cfg.DatabaseDSN, logger)
		if err != nil {
			dbCancel()
			return err
		}
		repo := repository.NewHistoryRepository(db, logger)
		err = repo.AutoMigrate(dbCtx)
		dbCancel()
		if err != nil {
			return logging.NewOperationError("main.auto_migrate", "", err)
		}
		history = repo
	}

	uc := usecase.NewCubeUseCase(classifier, store, cubeSolver, history, cache, logger, usecase.Options{
		LowConfidence:    cfg.LowConfidence,
		MaxImagePixels:   cfg.MaxImagePixels,
		SolutionCacheTTL: cfg.SolutionCacheTTL,
		SolverTimeout:    cfg.SolverTimeout,
	})

	r := gin.Default()
	handlers.RegisterRoutes(r, uc, auth.NewTokens(cfg.JWTSecret), handlers.Options{MaxBodyBytes: cfg.MaxBodyBytes})

	if memory != nil {
		g.Go(func() error {
			memory.Run(gctx, 0)
			return nil
		})
	}

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	g.Go(func() error {
		logger.Info("cubescan API listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("strategy", classifier.Strategy()),
			zap.String("store", cfg.StoreBackend),
			zap.String("solver", cfg.SolverMode),
			zap.Bool("history", history != nil))
		return serveHTTPServer(gctx, server, cfg.ShutdownTimeout, logger)
	})

	if grpcListener != nil {
		g.Go(func() error {
			return solverrpc.Serve(gctx, grpcListener, cubeSolver, logger)
		})
	}

	return g.Wait()
}

// newSolver builds the configured solver and starts loading its tables.
func newSolver(ctx context.Context, cfg *config.Config, logger *zap.Logger) (solver.Solver, func(), error) {
	if cfg.SolverMode == config.SolverRemote {
		client, err := solverrpc.Dial(cfg.SolverAddr, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil
	}

	local := solver.NewLocal(solver.WithMaxDepth(cfg.SolverMaxDepth), solver.WithLogger(logger.Named("solver")))
	go func() {
		if err := local.Warm(ctx); err != nil && ctx.Err() == nil {
			logger.Error("solver warm-up failed", zap.Error(err))
		}
	}()
	return local, func() {}, nil
}

func initDatabase(ctx context.Context, dsn string, zapLogger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, logging.NewOperationError("main.open_database", "", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, logging.NewOperationError("main.database_handle", "", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		wrapped := logging.NewOperationError("main.ping_database", "", err)
		zapLogger.Error("database ping failed", zap.Error(wrapped))
		return nil, wrapped
	}

	return db, nil
}

func initRedis(ctx context.Context, addr string, zapLogger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		wrapped := logging.NewOperationError("main.ping_redis", "", err)
		zapLogger.Error("redis connection failed", zap.Error(wrapped), zap.String("addr", addr))
		_ = client.Close()
		return nil, wrapped
	}
	return client, nil
}

func serveHTTPServer(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithListener(ctx, server, shutdownTimeout, logger, nil)
}

// serveHTTPServerWithListener serves until ctx is done, then drains
// in-flight requests for up to shutdownTimeout.
func serveHTTPServerWithListener(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down HTTP server", zap.Error(context.Cause(ctx)))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
