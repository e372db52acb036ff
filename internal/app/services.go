package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"bazario/internal/queue"
	"bazario/internal/repo"
	"bazario/internal/services"
	"bazario/internal/sourceclient"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Services holds all application services
type Services struct {
	DB               *gorm.DB
	DataSourceRepo   *repo.DataSourceRepository
	ImportTaskRepo   *repo.ImportTaskRepository
	ImportRunRepo    *repo.ImportRunRepository
	CatalogRepo      *repo.CatalogRepository
	SourceClient     *sourceclient.Client
	StorageService   *services.StorageService
	ImportEngine     *services.ImportEngine
	ImportDispatcher *services.ImportDispatcher
	RunQueue         *queue.MemoryQueue
	KafkaQueue       *queue.KafkaQueue
	KafkaBrokers     []string
}

// NewServices creates a new services container
func NewServices(db *gorm.DB) *Services {
	// Initialize repositories
	dataSourceRepo := repo.NewDataSourceRepository(db)
	importTaskRepo := repo.NewImportTaskRepository(db)
	importRunRepo := repo.NewImportRunRepository(db)
	catalogRepo := repo.NewCatalogRepository(db)

	// Outbound HTTP client for data source endpoints
	sourceClient := sourceclient.NewClient()

	// Initialize storage service for image mirroring
	storageService, err := services.NewStorageService()
	if err != nil {
		// Storage is optional; without it imports keep remote image URLs
		fmt.Printf("Warning: Failed to initialize storage service: %v\n", err)
	}

	// The engine checks its mirror against nil, so an unconfigured storage
	// service must not end up as a typed-nil interface value
	var mirror services.ImageMirror
	if storageService != nil {
		mirror = storageService
	}

	engine := services.NewImportEngine(dataSourceRepo, importRunRepo, catalogRepo, sourceClient, mirror, log.Logger)

	// Dispatch lock: Redis when configured, in-process otherwise
	var runLock services.RunLock
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		runLock = services.NewRedisRunLock(client, 30*time.Second)
		log.Info().Str("addr", addr).Msg("Using Redis dispatch lock")
	} else {
		runLock = services.NewLocalRunLock()
	}

	svc := &Services{
		DB:             db,
		DataSourceRepo: dataSourceRepo,
		ImportTaskRepo: importTaskRepo,
		ImportRunRepo:  importRunRepo,
		CatalogRepo:    catalogRepo,
		SourceClient:   sourceClient,
		StorageService: storageService,
		ImportEngine:   engine,
	}

	// Run queue: Kafka when brokers are configured, in-process otherwise
	var runQueue services.RunQueue
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		svc.KafkaBrokers = strings.Split(brokers, ",")
		kafkaQueue, err := queue.NewKafkaQueue(svc.KafkaBrokers, os.Getenv("KAFKA_RUN_TOPIC"), log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Kafka")
		}
		svc.KafkaQueue = kafkaQueue
		runQueue = kafkaQueue
		log.Info().Strs("brokers", svc.KafkaBrokers).Msg("Using Kafka run queue")
	} else {
		svc.RunQueue = queue.NewMemoryQueue(64, log.Logger)
		runQueue = svc.RunQueue
	}

	svc.ImportDispatcher = services.NewImportDispatcher(importTaskRepo, dataSourceRepo, importRunRepo, engine, runQueue, runLock, log.Logger)

	return svc
}
