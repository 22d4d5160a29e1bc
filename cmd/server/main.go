package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clipstage/backend/config"
	"github.com/clipstage/backend/internal/events"
	"github.com/clipstage/backend/internal/library"
	"github.com/clipstage/backend/internal/live"
	"github.com/clipstage/backend/internal/middleware"
	"github.com/clipstage/backend/internal/platform"
	"github.com/clipstage/backend/internal/playback"
	"github.com/clipstage/backend/internal/readiness"
	"github.com/clipstage/backend/internal/uploads"
	"github.com/clipstage/backend/pkg/queue"
	redispkg "github.com/clipstage/backend/pkg/redis"
	"github.com/clipstage/backend/pkg/response"
	"github.com/clipstage/backend/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	logger := newLogger()
	defer logger.Sync()

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	client := platform.NewClient(platform.ClientConfig{
		BaseURL:   cfg.Stream.APIBase,
		AccountID: cfg.Stream.AccountID,
		APIToken:  cfg.Stream.APIToken,
	}, nil, logger)

	var signer playback.Signer
	if cfg.Stream.SigningKeyID != "" && cfg.Stream.SigningKeyPEM != "" {
		pemBytes, err := os.ReadFile(cfg.Stream.SigningKeyPEM)
		if err != nil {
			logger.Fatal("read signing key", zap.String("path", cfg.Stream.SigningKeyPEM), zap.Error(err))
		}
		ts, err := playback.NewTokenSigner(cfg.Stream.SigningKeyID, pemBytes)
		if err != nil {
			logger.Fatal("parse signing key", zap.Error(err))
		}
		signer = ts
	}
	resolver := playback.NewResolver(playback.Config{
		Subdomain:             cfg.Stream.Subdomain,
		RequireSignedPlayback: cfg.Stream.RequireSignedPlayback,
		TokenTTL:              time.Duration(cfg.Stream.TokenTTLMinutes) * time.Minute,
	}, signer, client, logger)

	// Redis powers the cross-instance event bridge and the archive queue.
	// Both degrade gracefully when no Redis is configured.
	var (
		hub        *events.Hub
		archQueue  *queue.Queue
		archBucket *storage.S3
	)
	if cfg.Redis.Addr != "" {
		rdb, err := redispkg.NewClient(rootCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
		ps := events.NewRedisPubSub(rdb.Client, logger)
		hub = events.NewHub(logger, ps, ps)
		archQueue = queue.NewQueue(rdb.Client, logger)
	} else {
		logger.Warn("REDIS_ADDR not set; events stay local, archiving disabled")
		hub = events.NewHub(logger, nil, nil)
	}
	if cfg.AWS.ArchiveBucket != "" {
		s3c, err := storage.NewS3(rootCtx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ArchiveBucket:        cfg.AWS.ArchiveBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Fatal("s3 init", zap.Error(err))
		}
		archBucket = s3c
	}

	poller := readiness.NewPoller(client, client,
		time.Duration(cfg.Poller.IntervalSeconds)*time.Second,
		cfg.Poller.MaxAttempts,
		cfg.Stream.CaptionLanguage,
		logger)

	uploadTransport := uploads.NewTransport(nil, logger)
	uploadHandler := uploads.NewHandler(client, uploadTransport, poller, hub, uploads.Options{
		MaxDurationSeconds: cfg.Stream.UploadMaxDurationSeconds,
		AllowedOrigins:     cfg.Stream.UploadAllowedOrigins,
		RequireSignedURLs:  cfg.Stream.RequireSignedPlayback,
	}, rootCtx, logger)

	source := live.NewRTPSource(live.RTPSourceConfig{
		VideoPort: cfg.Ingest.RTPVideoPort,
		AudioPort: cfg.Ingest.RTPAudioPort,
	}, logger)
	dialer := live.NewWHIPDialer([]webrtc.ICEServer{{URLs: cfg.Ingest.ICEUrls}}, nil, logger)
	liveTransport := live.NewTransport(client, source, dialer, logger)
	liveTransport.SetStateFunc(func(state live.State, liveInputUID string) {
		hub.Broadcast(events.ChannelStudio, events.EventLiveState, gin.H{
			"state":      state,
			"live_input": liveInputUID,
		})
	})
	liveTransport.SetFaultFunc(func(op string, err error) {
		hub.Broadcast(events.ChannelStudio, events.EventLiveFault, gin.H{
			"op":    op,
			"error": err.Error(),
		})
	})
	liveHandler := live.NewHandler(liveTransport, client, resolver, logger)

	aggregator := library.NewAggregator(client, resolver, logger)
	libraryHandler := library.NewHandler(aggregator, client, resolver,
		archQueue, archBucket, cfg.Stream.CaptionLanguage, logger)

	router := gin.New()
	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.MaxMultipartMemory = 64 << 20

	router.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok"})
	})
	router.GET("/ws", events.ServeWs(hub, logger))

	api := router.Group("/api/v1")
	{
		api.GET("/library", libraryHandler.List)

		api.POST("/videos/upload", uploadHandler.Upload)
		api.GET("/videos/:id", libraryHandler.Get)
		api.DELETE("/videos/:id", libraryHandler.Delete)
		api.POST("/videos/:id/captions", libraryHandler.Captions)
		api.POST("/videos/:id/archive", libraryHandler.Archive)
		api.GET("/videos/:id/archive", libraryHandler.ArchiveURL)

		api.POST("/live/start", liveHandler.Start)
		api.POST("/live/stop", liveHandler.Stop)
		api.POST("/live/pause", liveHandler.Pause)
		api.POST("/live/resume", liveHandler.Resume)
		api.GET("/live/status", liveHandler.Status)
		api.GET("/live", liveHandler.List)
		api.DELETE("/live/:id", liveHandler.Delete)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	// Cancel background readiness watches, then close the live session if
	// one is still up so the capture device and ingest session get released.
	rootCancel()
	if liveTransport.State() != live.StateDisconnected {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := liveTransport.Stop(stopCtx); err != nil {
			logger.Warn("live session stop on shutdown", zap.Error(err))
		}
		cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
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
