package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"spending-pattern-service/internal/models"
)

func storedTxn(date string, narration string, withdrawal, deposit decimal.NullDecimal) *models.EnrichedTransaction {
	d, _ := models.ParseStatementDate(date)
	return &models.EnrichedTransaction{
		StatementRow: models.StatementRow{
			Date:       d,
			Narration:  narration,
			Withdrawal: withdrawal,
			Deposit:    deposit,
		},
		MoneyFlow:    models.FlowOutflow,
		Level1Tag:    models.Level1UPI,
		Level2Tag:    models.Level2Expense,
		Level3Tag:    models.Level3Unknown,
		MerchantHint: "test merchant",
		BatchID:      "batch-1",
	}
}

func amount(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func TestMemoryStoreDuplicateSuppression(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	txns := []*models.EnrichedTransaction{
		storedTxn("2024-01-05", "upi-shop-payment", amount(100), decimal.NullDecimal{}),
		storedTxn("2024-01-06", "upi-shop-payment", amount(100), decimal.NullDecimal{}),
	}

	inserted, skipped, err := store.InsertTransactions(ctx, "user-1", txns)
	if err != nil {
		t.Fatalf("InsertTransactions() error = %v", err)
	}
	if inserted != 2 || skipped != 0 {
		t.Fatalf("first insert = (%d, %d), want (2, 0)", inserted, skipped)
	}

	// Re-inserting the same rows must skip everything.
	inserted, skipped, err = store.InsertTransactions(ctx, "user-1", txns)
	if err != nil {
		t.Fatalf("InsertTransactions() error = %v", err)
	}
	if inserted != 0 || skipped != 2 {
		t.Fatalf("second insert = (%d, %d), want (0, 2)", inserted, skipped)
	}

	count, err := store.CountTransactions(ctx, "user-1")
	if err != nil {
		t.Fatalf("CountTransactions() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountTransactions() = %d, want 2", count)
	}
}

func TestMemoryStoreNullAmountDistinctFromZero(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	nullDeposit := storedTxn("2024-01-05", "charge", amount(100), decimal.NullDecimal{})
	zeroDeposit := storedTxn("2024-01-05", "charge", amount(100), amount(0))

	inserted, skipped, err := store.InsertTransactions(ctx, "user-1",
		[]*models.EnrichedTransaction{nullDeposit, zeroDeposit})
	if err != nil {
		t.Fatalf("InsertTransactions() error = %v", err)
	}
	if inserted != 2 || skipped != 0 {
		t.Errorf("insert = (%d, %d), want (2, 0): null deposit must not collide with zero", inserted, skipped)
	}
}

func TestMemoryStoreUsersIsolated(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	txn := storedTxn("2024-01-05", "upi-shop", amount(100), decimal.NullDecimal{})
	if _, _, err := store.InsertTransactions(ctx, "user-1", []*models.EnrichedTransaction{txn}); err != nil {
		t.Fatalf("InsertTransactions() error = %v", err)
	}

	inserted, skipped, err := store.InsertTransactions(ctx, "user-2", []*models.EnrichedTransaction{txn})
	if err != nil {
		t.Fatalf("InsertTransactions() error = %v", err)
	}
	if inserted != 1 || skipped != 0 {
		t.Errorf("insert for second user = (%d, %d), want (1, 0)", inserted, skipped)
	}
}

func TestMemoryStoreUpsertPatternsReplaces(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := &models.MerchantPatternStats{
		MerchantHint: "netflix entertainment",
		TxnCount:     2,
		AvgAmount:    decimal.NewFromInt(199),
	}
	if _, err := store.UpsertPatterns(ctx, "user-1", []*models.MerchantPatternStats{first}); err != nil {
		t.Fatalf("UpsertPatterns() error = %v", err)
	}

	second := &models.MerchantPatternStats{
		MerchantHint: "netflix entertainment",
		TxnCount:     3,
		AvgAmount:    decimal.NewFromInt(199),
	}
	persisted, err := store.UpsertPatterns(ctx, "user-1", []*models.MerchantPatternStats{second})
	if err != nil {
		t.Fatalf("UpsertPatterns() error = %v", err)
	}
	if persisted != 1 {
		t.Fatalf("UpsertPatterns() persisted = %d, want 1", persisted)
	}

	listed, err := store.ListPatterns(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListPatterns() error = %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("ListPatterns() returned %d records, want 1", len(listed))
	}
	if listed[0].TxnCount != 3 {
		t.Errorf("TxnCount after upsert = %d, want 3", listed[0].TxnCount)
	}
}

func TestMemoryStoreListPatternsSorted(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	patterns := []*models.MerchantPatternStats{
		{MerchantHint: "zomato orders", TxnCount: 2},
		{MerchantHint: "amazon retail", TxnCount: 2},
	}
	if _, err := store.UpsertPatterns(ctx, "user-1", patterns); err != nil {
		t.Fatalf("UpsertPatterns() error = %v", err)
	}

	listed, err := store.ListPatterns(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListPatterns() error = %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("ListPatterns() returned %d records, want 2", len(listed))
	}
	if listed[0].MerchantHint != "amazon retail" || listed[1].MerchantHint != "zomato orders" {
		t.Errorf("patterns not sorted: %q, %q", listed[0].MerchantHint, listed[1].MerchantHint)
	}
}
