package backend

import (
	"context"
	"errors"
	"fmt"
	"os"

	"earntracker/internal/amqp"
	"earntracker/internal/log"
	gsheet "earntracker/internal/sheets/google"
	"earntracker/internal/sheets/memory"
	"earntracker/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create opens SQLite, the report destination and, when configured, the
// AMQP client. A broker that cannot be reached is logged and skipped.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	reports, err := f.createReports(ctx, config)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	var bus *amqp.Client
	if config.AMQPURL != "" {
		bus, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without message bus", "error", err)
			bus = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	f.logger.Info("Initialized backend",
		"db_path", config.SQLiteDBPath,
		"reports", config.Reports.String(),
		"amqp_enabled", bus != nil)

	return &Result{
		Store:   repo,
		Reports: reports,
		Bus:     bus,
		Cleanup: func() error {
			var errs []error
			if bus != nil {
				if err := bus.Close(); err != nil {
					errs = append(errs, fmt.Errorf("amqp: %w", err))
				}
			}
			if err := repo.Close(); err != nil {
				errs = append(errs, fmt.Errorf("storage: %w", err))
			}
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createReports(ctx context.Context, config Config) (Reports, error) {
	if config.Reports == MemoryReports {
		return memory.New(), nil
	}

	creds := []byte(config.GoogleCredentialsJSON)
	if len(creds) == 0 {
		data, err := os.ReadFile(config.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read Google credentials: %w", err)
		}
		creds = data
	}
	cli, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets report writer", "sheet", config.GoogleSheetName)
	return cli, nil
}
