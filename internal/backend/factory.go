package backend

import (
	"context"
	"fmt"
	"log/slog"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/sources"
	"ledger/internal/sources/google"
	"ledger/internal/sources/memory"
	"ledger/internal/storage"

	goption "google.golang.org/api/option"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	// sheetsOptions are passed through to the Sheets client.
	sheetsOptions []goption.ClientOption
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger, sheetsOptions ...goption.ClientOption) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger:        logger,
		sheetsOptions: sheetsOptions,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	seeded, err := repo.SeedIfEmpty(ctx, core.SampleTransactions())
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to seed SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"seeded", seeded)

	return &BackendResult{
		Store:    repo,
		Recorder: repo,
		Ping:     repo.Ping,
		Cleanup:  repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsFile: config.GoogleServiceAccountFile,
	}, f.logger, f.sheetsOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName,
		"cache_ttl", config.GoogleCacheTTL)

	var store sources.TransactionStore = cli
	if config.GoogleCacheTTL > 0 {
		store = cache.NewStore(cli, config.GoogleCacheTTL)
	}
	return &BackendResult{Store: store}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	store := memory.NewSeeded()

	f.logger.Info("Initialized memory backend", "transactions", store.Len())

	return &BackendResult{Store: store}, nil
}
