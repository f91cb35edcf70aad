package storage

import (
	"context"
	"sort"
	"sync"

	"spending-pattern-service/internal/models"
)

// MemoryStore is a Gateway held entirely in process memory. It backs tests
// and runs where no database path is configured.
type MemoryStore struct {
	mu sync.Mutex

	// transactions maps userID -> duplicate key -> transaction.
	transactions map[string]map[string]*models.EnrichedTransaction

	// patterns maps userID -> merchant hint -> pattern record.
	patterns map[string]map[string]*models.MerchantPatternStats
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[string]map[string]*models.EnrichedTransaction),
		patterns:     make(map[string]map[string]*models.MerchantPatternStats),
	}
}

// InsertTransactions stores transactions keyed by their duplicate identity,
// skipping keys already present.
func (m *MemoryStore) InsertTransactions(_ context.Context, userID string, txns []*models.EnrichedTransaction) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKey := m.transactions[userID]
	if byKey == nil {
		byKey = make(map[string]*models.EnrichedTransaction)
		m.transactions[userID] = byKey
	}

	inserted, skipped := 0, 0
	for _, txn := range txns {
		key := txn.DuplicateKey()
		if _, exists := byKey[key]; exists {
			skipped++
			continue
		}
		byKey[key] = txn
		inserted++
	}
	return inserted, skipped, nil
}

// UpsertPatterns replaces any stored record for the same merchant.
func (m *MemoryStore) UpsertPatterns(_ context.Context, userID string, patterns []*models.MerchantPatternStats) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byMerchant := m.patterns[userID]
	if byMerchant == nil {
		byMerchant = make(map[string]*models.MerchantPatternStats)
		m.patterns[userID] = byMerchant
	}

	for _, p := range patterns {
		byMerchant[p.MerchantHint] = p
	}
	return len(patterns), nil
}

// ListPatterns returns the user's pattern records sorted by merchant hint.
func (m *MemoryStore) ListPatterns(_ context.Context, userID string) ([]*models.MerchantPatternStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byMerchant := m.patterns[userID]
	out := make([]*models.MerchantPatternStats, 0, len(byMerchant))
	for _, p := range byMerchant {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].MerchantHint < out[j].MerchantHint
	})
	return out, nil
}

// CountTransactions returns the number of stored transactions for the user.
func (m *MemoryStore) CountTransactions(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transactions[userID]), nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
