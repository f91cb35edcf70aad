// Package config assembles the runtime configuration the patternctl
// commands hand to the pipeline: statement schema settings and the storage
// gateway selection.
package config

import (
	"spending-pattern-service/internal/parsers"
	"spending-pattern-service/internal/storage"
	"spending-pattern-service/pkg/logger"
)

// CreateStatementConfig creates the statement schema configuration used by
// the CLI. The defaults match common Indian bank exports; aliases map the
// most frequent header variants onto the canonical column names.
func CreateStatementConfig() *parsers.StatementConfig {
	return parsers.DefaultStatementConfig()
}

// OpenStore opens the storage gateway for the given database path. An
// empty path selects the in-memory store, which lives only for the
// duration of the process.
func OpenStore(dbPath string) (storage.Gateway, error) {
	if dbPath == "" {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewSQLiteStore(dbPath, logger.GetGlobalLogger())
}
