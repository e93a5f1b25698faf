// Package di assembles the application object graph: logger, store,
// services and the optional fact archive.
package di

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"refdata-backend/application/ports"
	"refdata-backend/application/services"
	"refdata-backend/infrastructure/config"
	ddb "refdata-backend/infrastructure/persistence/dynamodb"
	"refdata-backend/infrastructure/persistence/memory"
	"refdata-backend/infrastructure/persistence/sqlite"
)

// Container holds the assembled application components
type Container struct {
	Logger  *zap.Logger
	Store   ports.Store
	Books   *services.BookService
	History *services.HistoryService
	Actors  ports.ActorResolver

	closers []func() error
}

// InitializeContainer builds every component from the configuration
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	c := &Container{Logger: logger}

	switch cfg.StorageDriver {
	case config.DriverSQLite:
		store, err := sqlite.NewStore(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		c.Store = store
		c.closers = append(c.closers, store.Close)
	default:
		c.Store = memory.NewStore()
	}

	history := services.NewHistoryService(c.Store, logger)
	if cfg.ArchiveEnabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := awsdynamodb.NewFromConfig(awsCfg)
		history.AttachArchive(ddb.NewFactArchive(client, cfg.ArchiveTable, logger))
		logger.Info("fact archive enabled",
			zap.String("table", cfg.ArchiveTable),
			zap.String("region", cfg.AWSRegion))
	}

	linkage := services.NewLinkageIndex(logger)
	c.History = history
	c.Books = services.NewBookService(c.Store, history, linkage, logger)
	c.Actors = services.NewActorService(c.Store, logger)

	return c, nil
}

// Close releases everything the container owns
func (c *Container) Close() error {
	var firstErr error
	for _, close := range c.closers {
		if err := close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsDevelopment() {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = level
	return zapCfg.Build()
}
