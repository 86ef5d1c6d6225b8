package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IlyushaZ/vinyl-store/pkg/config"
	"github.com/IlyushaZ/vinyl-store/pkg/database"
	"github.com/IlyushaZ/vinyl-store/pkg/database/memory"
	"github.com/IlyushaZ/vinyl-store/pkg/docstore"
)

// Open connects to the storage backend chosen by cfg.Storage.
func Open(ctx context.Context, cfg *config.Config) (database.Store, func() error, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return memory.New(), func() error { return nil }, nil

	case config.StorageFirestore:
		client, closeClient, err := docstore.New(ctx, cfg.FirestoreProject)
		if err != nil {
			return nil, nil, fmt.Errorf("can't init firestore: %w", err)
		}
		return docstore.NewStore(client), closeClient, nil

	case config.StoragePostgres:
		db, closeDB, err := database.New(cfg.PostgresAddr, cfg.PostgresDB, cfg.PostgresUser, cfg.PostgresPassword)
		if err != nil {
			return nil, nil, fmt.Errorf("can't init database: %w", err)
		}

		if cfg.MigrateOnStart {
			version, err := database.MigrateUp(db)
			if err != nil {
				closeDB()
				return nil, nil, fmt.Errorf("can't migrate: %w", err)
			}
			slog.Info("database migrated", slog.Uint64("version", uint64(version)))
		}

		return database.NewPostgres(db), closeDB, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}
