package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"pdf-chatbot-backend/internal/ai"
	appsvc "pdf-chatbot-backend/internal/app"
	"pdf-chatbot-backend/internal/config"
	"pdf-chatbot-backend/internal/model"
	mysqlClient "pdf-chatbot-backend/internal/platform/mysql"
	rabbitmqClient "pdf-chatbot-backend/internal/platform/rabbitmq"
	redisClient "pdf-chatbot-backend/internal/platform/redis"
	"pdf-chatbot-backend/internal/repository"
	"pdf-chatbot-backend/internal/storage"
	"pdf-chatbot-backend/internal/worker"
)

// App holds everything the HTTP layer needs. MySQL, Redis, MQConn and
// IngestWorker are nil when the matching service is disabled.
type App struct {
	Config   *config.Config
	Store    *storage.Store
	Answerer appsvc.AnswerService
	Observer appsvc.IngestObserver

	MySQL        *gorm.DB
	Redis        *redis.Client
	MQConn       *amqp.Connection
	IngestWorker *worker.IngestEventWorker

	StartedAt time.Time
}

// NewWithConfig wires the application for cfg. Resources opened before a
// failure are released before returning.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := storage.New(cfg.Storage.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("init storage failed: %w", err)
	}

	llmClient := ai.NewOpenAICompatibleClient(time.Duration(cfg.LLM.TimeoutSeconds) * time.Second)
	answerer := ai.NewAnswerer(llmClient, ai.ChatConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})

	a := &App{
		Config:    cfg,
		Store:     store,
		Answerer:  answerer,
		Observer:  appsvc.NopObserver{},
		StartedAt: time.Now(),
	}
	if err := a.connect(ctx); err != nil {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("release resources after failed start", "error", closeErr)
		}
		return nil, err
	}
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config

	var documentRepo *repository.DocumentRepository
	if cfg.MySQL.Enabled {
		db, err := mysqlClient.New(ctx, cfg.MySQLDSN())
		if err != nil {
			return err
		}
		a.MySQL = db
		if err := db.AutoMigrate(&model.DocumentRecord{}); err != nil {
			return fmt.Errorf("auto migrate tables failed: %w", err)
		}
		documentRepo = repository.NewDocumentRepository(db)
		a.Observer = appsvc.NewRegistryObserver(documentRepo)
	}

	if cfg.Redis.Enabled {
		client, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		a.Redis = client
	}

	if cfg.RabbitMQ.Enabled {
		if documentRepo == nil {
			return errors.New("rabbitmq ingest events require mysql to be enabled")
		}
		conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		a.MQConn = conn

		ingestWorker := worker.NewIngestEventWorker(conn, documentRepo, cfg.RabbitMQ.IngestEventQueue)
		if err := ingestWorker.Start(ctx); err != nil {
			return fmt.Errorf("start ingest event worker failed: %w", err)
		}
		a.IngestWorker = ingestWorker
		a.Observer = rabbitmqClient.NewEventPublisher(conn, cfg.RabbitMQ.IngestEventQueue)
	}
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
