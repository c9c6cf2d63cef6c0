package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/Muragesh-24/ENGIGROW/internal/auth"
	"github.com/Muragesh-24/ENGIGROW/internal/backup"
	"github.com/Muragesh-24/ENGIGROW/internal/cache"
	"github.com/Muragesh-24/ENGIGROW/internal/config"
	apphttp "github.com/Muragesh-24/ENGIGROW/internal/http"
	"github.com/Muragesh-24/ENGIGROW/internal/observability"
	"github.com/Muragesh-24/ENGIGROW/internal/repository/sqlite"
	"github.com/Muragesh-24/ENGIGROW/internal/search"
	"github.com/Muragesh-24/ENGIGROW/internal/service"
	"github.com/Muragesh-24/ENGIGROW/internal/storage"
)

func main() {
	configPath := pflag.String("config", "", "path to a config file (yaml, json or toml)")
	pflag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	logger, err = observability.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("setup logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	postRepo := sqlite.NewPostRepository(db)
	collabRepo := sqlite.NewCollaborationRepository(db)

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := postRepo.Init(ctx); err != nil {
		logger.Fatalf("init post repository: %v", err)
	}
	if err := collabRepo.Init(ctx); err != nil {
		logger.Fatalf("init collaboration repository: %v", err)
	}

	tokens, err := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatalf("setup token service: %v", err)
	}

	index, err := search.NewIndex()
	if err != nil {
		logger.Fatalf("create search index: %v", err)
	}
	defer index.Close()
	existing, err := postRepo.List(ctx)
	if err != nil {
		logger.Fatalf("load posts for search index: %v", err)
	}
	if err := index.IndexPosts(existing); err != nil {
		logger.Fatalf("seed search index: %v", err)
	}
	logger.Infof("search index seeded with %d posts", len(existing))

	postOpts := []service.PostOption{
		service.WithPostIndex(index),
		service.WithPostLogger(logger),
	}
	if cfg.Cache.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.Cache.RedisURL)
		if err != nil {
			logger.Warnf("redis unavailable, continuing without feed cache: %v", err)
		} else {
			defer client.Close()
			postOpts = append(postOpts, service.WithFeedCache(cache.NewFeedCache(client, cfg.Cache.TTL, logger)))
			logger.Info("feed cache enabled")
		}
	}

	userService := service.NewUserService(userRepo, cfg.Auth.BcryptCost)
	postService := service.NewPostService(postRepo, postOpts...)
	collabService := service.NewCollaborationService(collabRepo)

	var storageSvc storage.Service
	if cfg.Backup.Interval > 0 {
		storageSvc, err = buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup storage: %v", err)
		}
	}
	backups := backup.NewWorker(backup.Config{
		Interval:  cfg.Backup.Interval,
		Retain:    cfg.Backup.Retain,
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
		Logger:    logger,
	}, sqlite.NewSnapshotter(db), storageSvc)
	if err := backups.Start(ctx); err != nil {
		logger.Fatalf("start backups: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(userService, postService, collabService, tokens, logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	backups.Shutdown()

	logger.Info("bye")
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
