package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/visual-search/internal/cfg"
	v1Http "github.com/DRSN-tech/visual-search/internal/delivery/v1/http"
	"github.com/DRSN-tech/visual-search/internal/imaging"
	"github.com/DRSN-tech/visual-search/internal/infrastructure/audit"
	"github.com/DRSN-tech/visual-search/internal/infrastructure/encoder"
	"github.com/DRSN-tech/visual-search/internal/infrastructure/fetcher"
	"github.com/DRSN-tech/visual-search/internal/infrastructure/kafka"
	s3Repo "github.com/DRSN-tech/visual-search/internal/repository/minio"
	redisRepo "github.com/DRSN-tech/visual-search/internal/repository/redis"
	"github.com/DRSN-tech/visual-search/internal/repository/vecstore"
	"github.com/DRSN-tech/visual-search/internal/usecase"
	"github.com/DRSN-tech/visual-search/pkg/clients"
	"github.com/DRSN-tech/visual-search/pkg/closer"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/DRSN-tech/visual-search/pkg/logger"
	"github.com/go-chi/chi/v5"
)

func Run() {
	logger := logger.NewSlogLogger()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	// Контекст живёт до конца graceful shutdown: от него отсчитываются
	// таймауты фоновых загрузок аудита
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	cl := closer.New()

	// === Индекс каталога ===
	store := vecstore.NewStore(cfg.Store, logger)
	if err := store.Load(); err != nil {
		logger.Errorf(err, "failed to load vector store")
		os.Exit(1)
	}

	// === Энкодер ===
	enc := encoder.NewEncoder(cfg.Encoder, logger)
	encCtx, encCancel := context.WithTimeout(rootCtx, 10*time.Second)
	if err := enc.Init(encCtx); err != nil {
		encCancel()
		logger.Errorf(err, "failed to connect to encoder")
		os.Exit(1)
	}
	encCancel()

	// Артефакты, собранные другой моделью, бесполезны для этого энкодера
	storeDim, _ := store.Dim()
	if enc.Dim() != storeDim {
		logger.Errorf(e.ErrDimensionMismatch, "encoder dim %d does not match store dim %d, rebuild the index", enc.Dim(), storeDim)
		os.Exit(1)
	}

	// === Опциональный кэш ответов ===
	var cacheRepo usecase.SearchCacheRepository
	if cfg.Redis.Enabled {
		redisClient := clients.NewRedisClient(cfg.Redis)
		redisCtx, redisCancel := context.WithTimeout(rootCtx, 5*time.Second)
		if err := redisClient.Ping(redisCtx); err != nil {
			redisCancel()
			logger.Errorf(err, "failed to connect to redis")
			os.Exit(1)
		}
		redisCancel()

		cacheRepo = redisRepo.NewSearchCacheRepo(redisClient, cfg.Redis, logger)
		cl.Add(func(ctx context.Context) error {
			return redisClient.Client.Close()
		})
		logger.Infof("search cache enabled: %s", cfg.Redis.Addr)
	}

	// === Опциональная аналитика запросов ===
	var analytics usecase.AnalyticsInfra
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(logger, cfg.Kafka)
		if err := producer.EnsureTopic(10 * time.Second); err != nil {
			logger.Errorf(err, "failed to ensure kafka topic")
			os.Exit(1)
		}

		analytics = producer
		cl.Add(func(ctx context.Context) error {
			return producer.Close()
		})
		logger.Infof("search analytics enabled: topic %s", cfg.Kafka.Topic)
	}

	// === Опциональный аудит изображений-запросов ===
	var auditInfra usecase.AuditInfra
	if cfg.Minio.Enabled {
		minioClient, err := clients.NewMinIOClient(cfg.Minio)
		if err != nil {
			logger.Errorf(err, "failed to initialize minio client")
			os.Exit(1)
		}

		minioCtx, minioCancel := context.WithTimeout(rootCtx, 10*time.Second)
		if err := clients.EnsureBucket(minioCtx, minioClient, cfg.Minio.BucketName); err != nil {
			minioCancel()
			logger.Errorf(err, "failed to initialize MinIO bucket")
			os.Exit(1)
		}
		minioCancel()

		auditInfrastructure := audit.NewAuditInfrastructure(s3Repo.NewQueryImageRepo(minioClient, cfg.Minio), logger, rootCtx)
		auditInfra = auditInfrastructure
		cl.Add(func(ctx context.Context) error {
			return auditInfrastructure.Wait(ctx)
		})
		logger.Infof("query image audit enabled: bucket %s", cfg.Minio.BucketName)
	}

	// === Usecase ===
	searchUC := usecase.NewSearchUC(
		store,
		imaging.NewNormalizer(),
		enc,
		fetcher.NewFetcher(cfg.Fetcher, logger),
		cacheRepo,
		auditInfra,
		analytics,
		cfg.Search,
		logger,
	)
	catalogUC := usecase.NewCatalogUC(store, enc, logger)

	// === HTTP ===
	r := chi.NewRouter()
	router := v1Http.NewRouter(r, logger)
	router.Init(searchUC, catalogUC, cfg.Http)

	httpSrv := v1Http.NewServer(r, cfg.Http)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server started on port %s (%d products, dim %d, model %s)",
			cfg.Http.Port, store.Len(), storeDim, enc.ModelVersion())
		if err := httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf(err, "HTTP server failed")
			errCh <- err
		}
	}()

	// SIGHUP перечитывает артефакты без остановки сервиса;
	// при ошибке остаётся последний успешно загруженный снимок
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			logger.Infof("reloading vector store")
			if err := store.Load(); err != nil {
				logger.Errorf(err, "vector store reload failed, keeping previous snapshot")
			}
		}
	}()

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var appErr error
	select {
	case appErr = <-errCh:
		logger.Errorf(appErr, "HTTP server fatal error")
	case <-shutdown:
		logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown ===
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Stop(shutdownCtx); err != nil {
		logger.Errorf(err, "HTTP server shutdown error")
	} else {
		logger.Infof("HTTP server stopped")
	}

	// Фоновые компоненты закрываются в обратном порядке регистрации
	if err := cl.Close(shutdownCtx); err != nil {
		logger.Warnf("shutdown cleanup error: %v", err)
	}

	logger.Infof("Application shutdown complete")
	if appErr != nil {
		os.Exit(1)
	}
}
