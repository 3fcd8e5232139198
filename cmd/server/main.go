package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"newsletter/internal/app"
	"newsletter/internal/config"
	"newsletter/internal/db"
	"newsletter/internal/handlers"
	"newsletter/internal/server"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(start())
}

// start returns the process exit code so deferred cleanup runs before exit.
func start() int {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file loaded")
	}

	appCfg := config.LoadApp()
	logger, err := newLogger(appCfg)
	if err != nil {
		log.Printf("Failed to build logger: %v", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return exitCode(logger, run(ctx, appCfg, config.LoadDatabase(), logger))
}

// exitCode treats cancellation by a signal as a clean stop.
func exitCode(logger *zap.Logger, err error) int {
	switch {
	case err == nil:
		logger.Info("Server stopped")
		return 0
	case errors.Is(err, context.Canceled):
		logger.Info("Server stopped before startup completed", zap.Error(err))
		return 0
	default:
		logger.Error("Server stopped", zap.Error(err))
		return 1
	}
}

func run(ctx context.Context, appCfg config.AppConfig, dbCfg config.DatabaseConfig, logger *zap.Logger) error {
	logger.Info("Starting newsletter service", zap.String("commit", CommitSHA))

	pool, err := db.Connect(ctx, dbCfg.URL(), db.DefaultRetryPolicy, logger)
	if err != nil {
		return err
	}
	repo := db.NewRepository(pool, logger.Named("repository"))
	defer repo.Close()

	if appCfg.EnsureSchema {
		if err := db.EnsureSchema(ctx, pool); err != nil {
			return err
		}
	}

	h := handlers.New(app.New(repo))
	srv := server.New(appCfg.ListenAddr(), server.NewRouter(h, logger.Named("http")), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newLogger(cfg config.AppConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zcfg.Level = level
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}
