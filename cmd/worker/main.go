package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clipstage/backend/config"
	"github.com/clipstage/backend/internal/archive"
	"github.com/clipstage/backend/pkg/queue"
	redispkg "github.com/clipstage/backend/pkg/redis"
	"github.com/clipstage/backend/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	logger := newLogger()
	defer logger.Sync()

	if cfg.Redis.Addr == "" {
		logger.Fatal("REDIS_ADDR is required for the archive worker")
	}
	if cfg.AWS.ArchiveBucket == "" {
		logger.Fatal("AWS_S3_ARCHIVE_BUCKET is required for the archive worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := redispkg.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	s3c, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		ArchiveBucket:        cfg.AWS.ArchiveBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Fatal("s3 init", zap.Error(err))
	}

	processor := archive.NewProcessor(s3c, queue.NewQueue(rdb.Client, logger), logger)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("signal received, stopping")
		cancel()
	}()

	logger.Info("archive worker started", zap.String("bucket", cfg.AWS.ArchiveBucket))
	processor.Run(ctx)
	logger.Info("archive worker stopped")
}

func newLogger() *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := zapCfg.Build()
	if err != nil {
		panic("logger: " + err.Error())
	}
	return logger
}
