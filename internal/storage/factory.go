package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaero/internal/common"
	"github.com/ternarybob/quaero/internal/interfaces"
	"github.com/ternarybob/quaero/internal/storage/badger"
	"github.com/ternarybob/quaero/internal/storage/sqlite"
)

// NewStore creates the configured Store backend ("sqlite" or "badger").
func NewStore(logger arbor.ILogger, config *common.Config) (interfaces.Store, error) {
	switch config.Storage.Backend {
	case "badger":
		db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		return badger.NewStore(db, logger), nil
	case "sqlite", "":
		db, err := sqlite.NewSQLiteDB(logger, &config.Storage.SQLite)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return sqlite.NewStore(db, logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (expected 'sqlite' or 'badger')", config.Storage.Backend)
	}
}
