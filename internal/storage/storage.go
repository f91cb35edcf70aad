// Package storage persists enriched transactions and merchant pattern
// records. Two implementations exist: a SQLite-backed store for real runs
// and an in-memory store for tests and ephemeral use. Both apply the same
// duplicate-suppression identity on transaction insert.
package storage

import (
	"context"

	"spending-pattern-service/internal/models"
)

// Gateway is the persistence surface the pipeline depends on.
type Gateway interface {
	// InsertTransactions stores enriched transactions for a user, skipping
	// any row whose duplicate identity (date, narration, both amounts with
	// null kept distinct from zero) is already present. Returns how many
	// rows were inserted and how many were skipped as duplicates.
	InsertTransactions(ctx context.Context, userID string, txns []*models.EnrichedTransaction) (inserted, skipped int, err error)

	// UpsertPatterns stores pattern records for a user, replacing any
	// existing record for the same merchant. Individual record failures
	// are logged and skipped; the returned count is the records actually
	// persisted.
	UpsertPatterns(ctx context.Context, userID string, patterns []*models.MerchantPatternStats) (persisted int, err error)

	// ListPatterns returns all stored pattern records for a user, sorted
	// by merchant hint.
	ListPatterns(ctx context.Context, userID string) ([]*models.MerchantPatternStats, error)

	// CountTransactions returns the number of stored transactions for a
	// user.
	CountTransactions(ctx context.Context, userID string) (int, error)

	// Close releases the store's resources.
	Close() error
}
