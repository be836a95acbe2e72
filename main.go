package main

import (
	"log"
	"time"

	"PatternStudio-server/config"
	"PatternStudio-server/models"
	"PatternStudio-server/routers"
	"PatternStudio-server/routers/api"
	"PatternStudio-server/service"
	"PatternStudio-server/store"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	config.InitConfig()
	cfg := config.AppConfig

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Sync()

	// 各协作方按配置选择实现：外部服务未配置时退回内存实现，
	// 服务降级运行而不是直接崩溃。
	var kv store.VersionedStore
	var asynqClient *asynq.Client
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		kv = store.NewRedisStore(rdb, logger)
		asynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
	} else {
		logger.Warn("Redis 未配置，模板集合使用内存存储，重启后丢失")
		kv = store.NewMemoryStore()
	}

	var patterns store.PatternRepository
	var history store.HistoryRepository
	if cfg.MySQL.DSN != "" {
		models.InitDB()
		patterns = store.NewGormPatternRepository(models.GormDB, logger)
		history = store.NewGormHistoryRepository(models.GormDB, logger)
	} else {
		logger.Warn("MySQL 未配置，图案库和历史记录使用内存存储")
		patterns = store.NewMemoryPatternRepository()
		history = store.NewMemoryHistoryRepository()
	}

	var blobs store.BlobStore
	if cfg.MinIO.Endpoint != "" {
		mc, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Fatal("MinIO 初始化失败", zap.Error(err))
		}
		blobs = store.NewMinioBlobStore(mc, cfg.MinIO.Bucket, cfg.MinIO.Domain, logger)
	} else {
		logger.Warn("MinIO 未配置，Blob 使用内存存储")
		blobs = store.NewMemoryBlobStore()
	}

	registry := service.NewSessionRegistry()
	generator := service.NewWorkerGenerator(cfg.AI.ImageAPI, time.Duration(cfg.AI.TimeoutSeconds)*time.Second, logger)
	orch := service.NewOrchestrator(generator, blobs, history, registry, cfg.AI.CostPerImage, logger)
	dispatcher := service.NewDispatcher(asynqClient, orch, logger)
	if asynqClient != nil {
		service.NewProcessor(orch, logger).StartProcessor(cfg.Redis.Addr, cfg.Redis.Password)
	}

	a := &api.API{
		TemplateSets: store.NewTemplateSetRepository(kv, logger),
		Patterns:     patterns,
		History:      service.NewHistoryService(history, blobs, logger),
		Orchestrator: orch,
		Registry:     registry,
		Dispatcher:   dispatcher,
		Blobs:        blobs,
		Logger:       logger,
	}

	r := routers.InitRouter(a)
	logger.Info("Server starting", zap.String("port", cfg.Server.Port))
	if err := r.Run(cfg.Server.Port); err != nil {
		logger.Fatal("服务启动失败", zap.Error(err))
	}
}
