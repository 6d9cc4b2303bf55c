// Package notifier собирает сервис обхода леджера: хранилище, подключение
// к брокеру и сам обходчик с публикацией напоминаний.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/access-engine/internal/config"
	"github.com/magabrotheeeer/access-engine/internal/rabbitmq"
	notifierservice "github.com/magabrotheeeer/access-engine/internal/services/notifier"
	"github.com/magabrotheeeer/access-engine/internal/storage/repository"
)

// App представляет сервис обхода леджера.
type App struct {
	notifierService *notifierservice.NotifierService
	scanInterval    time.Duration
	conn            *amqp.Connection
	ch              *amqp.Channel
	db              *repository.Storage
	logger          *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр сервиса обходчика.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationsExchange, rabbitmq.GetNotificationQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	publisher := rabbitmq.NewReminderPublisher(ch)
	notifierService := notifierservice.NewNotifierService(db, publisher, logger)

	return &App{
		notifierService: notifierService,
		scanInterval:    cfg.ScanInterval,
		conn:            conn,
		ch:              ch,
		db:              db,
		logger:          logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run запускает обходчик до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	a.notifierService.Run(ctx, a.scanInterval)

	a.logger.Info("shutting down notifier service")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close storage", slog.Any("err", err))
	}
	return nil
}
