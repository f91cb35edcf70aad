package aggregator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spending-pattern-service/internal/models"
)

func expenseTxn(merchant string, date time.Time, amount float64, l3 models.Level3Tag) *models.EnrichedTransaction {
	return &models.EnrichedTransaction{
		StatementRow: models.StatementRow{
			Date:       date,
			Narration:  "test narration",
			Withdrawal: decimal.NewNullDecimal(decimal.NewFromFloat(amount)),
		},
		MoneyFlow:    models.FlowOutflow,
		Level1Tag:    models.Level1UPI,
		Level2Tag:    models.Level2Expense,
		Level3Tag:    l3,
		MerchantHint: merchant,
	}
}

func day(d int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d-1)
}

func TestAggregateSubscriptionPattern(t *testing.T) {
	now := day(75)
	txns := []*models.EnrichedTransaction{
		expenseTxn("netflix entertainment", day(1), 199, "OTT"),
		expenseTxn("netflix entertainment", day(31), 199, "OTT"),
		expenseTxn("netflix entertainment", day(61), 199, "OTT"),
	}

	patterns := NewAggregator(nil).Aggregate(txns, now)
	if len(patterns) != 1 {
		t.Fatalf("Aggregate() produced %d patterns, want 1", len(patterns))
	}

	p := patterns[0]
	if p.MerchantHint != "netflix entertainment" {
		t.Errorf("MerchantHint = %q", p.MerchantHint)
	}
	if p.TxnCount != 3 {
		t.Errorf("TxnCount = %d, want 3", p.TxnCount)
	}
	if !p.TotalAmount.Equal(decimal.NewFromInt(597)) {
		t.Errorf("TotalAmount = %s, want 597", p.TotalAmount)
	}
	if !p.AvgAmount.Equal(decimal.NewFromInt(199)) {
		t.Errorf("AvgAmount = %s, want 199", p.AvgAmount)
	}
	if !p.AmountStd.IsZero() {
		t.Errorf("AmountStd = %s, want 0", p.AmountStd)
	}
	if p.ActiveDurationDays != 60 {
		t.Errorf("ActiveDurationDays = %d, want 60", p.ActiveDurationDays)
	}
	if p.AvgGapDays != 30 {
		t.Errorf("AvgGapDays = %f, want 30", p.AvgGapDays)
	}
	if p.GapStdDays != 0 {
		t.Errorf("GapStdDays = %f, want 0", p.GapStdDays)
	}
	if p.GapMinDays != 30 || p.GapMaxDays != 30 {
		t.Errorf("gap range = [%d, %d], want [30, 30]", p.GapMinDays, p.GapMaxDays)
	}
	if p.LastTxnDaysAgo != 14 {
		t.Errorf("LastTxnDaysAgo = %d, want 14", p.LastTxnDaysAgo)
	}
	if p.DominantLevel3Tag != "OTT" || p.Level3Confidence != 1.0 {
		t.Errorf("dominant L3 = %s (%.4f), want OTT (1.0)", p.DominantLevel3Tag, p.Level3Confidence)
	}
}

func TestAggregateMinimumGroupSize(t *testing.T) {
	now := day(10)
	txns := []*models.EnrichedTransaction{
		expenseTxn("one off shop", day(3), 500, models.Level3Unknown),
		expenseTxn("corner cafe", day(2), 120, "FOOD"),
		expenseTxn("corner cafe", day(7), 180, "FOOD"),
	}

	patterns := NewAggregator(nil).Aggregate(txns, now)
	if len(patterns) != 1 {
		t.Fatalf("Aggregate() produced %d patterns, want 1", len(patterns))
	}
	if patterns[0].MerchantHint != "corner cafe" {
		t.Errorf("MerchantHint = %q, want %q", patterns[0].MerchantHint, "corner cafe")
	}
}

func TestAggregateIgnoresNonExpenses(t *testing.T) {
	now := day(10)
	income := expenseTxn("acme corp", day(1), 90000, models.Level3Unknown)
	income.Level2Tag = models.Level2Income
	income2 := expenseTxn("acme corp", day(5), 90000, models.Level3Unknown)
	income2.Level2Tag = models.Level2Income

	patterns := NewAggregator(nil).Aggregate([]*models.EnrichedTransaction{income, income2}, now)
	if len(patterns) != 0 {
		t.Fatalf("Aggregate() produced %d patterns from income rows, want 0", len(patterns))
	}
}

func TestAggregateAmountSpread(t *testing.T) {
	now := day(30)
	txns := []*models.EnrichedTransaction{
		expenseTxn("swiggy orders", day(1), 100, "FOOD"),
		expenseTxn("swiggy orders", day(8), 300, "FOOD"),
	}

	patterns := NewAggregator(nil).Aggregate(txns, now)
	if len(patterns) != 1 {
		t.Fatalf("Aggregate() produced %d patterns, want 1", len(patterns))
	}

	p := patterns[0]
	if !p.AvgAmount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("AvgAmount = %s, want 200", p.AvgAmount)
	}
	// Population std of {100, 300} is 100.
	if !p.AmountStd.Equal(decimal.NewFromInt(100)) {
		t.Errorf("AmountStd = %s, want 100", p.AmountStd)
	}
	if !p.AmountMin.Equal(decimal.NewFromInt(100)) || !p.AmountMax.Equal(decimal.NewFromInt(300)) {
		t.Errorf("amount range = [%s, %s], want [100, 300]", p.AmountMin, p.AmountMax)
	}
}

func TestAggregateSameDayRepeatsExcludedFromCadence(t *testing.T) {
	now := day(20)
	txns := []*models.EnrichedTransaction{
		expenseTxn("corner cafe", day(5), 100, "FOOD"),
		expenseTxn("corner cafe", day(5), 150, "FOOD"),
		expenseTxn("corner cafe", day(15), 120, "FOOD"),
	}

	patterns := NewAggregator(nil).Aggregate(txns, now)
	if len(patterns) != 1 {
		t.Fatalf("Aggregate() produced %d patterns, want 1", len(patterns))
	}

	p := patterns[0]
	if p.AvgGapDays != 10 {
		t.Errorf("AvgGapDays = %f, want 10 (same-day gap excluded)", p.AvgGapDays)
	}
	if p.GapMinDays != 10 || p.GapMaxDays != 10 {
		t.Errorf("gap range = [%d, %d], want [10, 10]", p.GapMinDays, p.GapMaxDays)
	}
}

func TestAggregateDominantTagTieBreak(t *testing.T) {
	now := day(40)
	a := expenseTxn("mixed merchant", day(1), 100, "FOOD")
	b := expenseTxn("mixed merchant", day(10), 100, "RETAIL")

	patterns := NewAggregator(nil).Aggregate([]*models.EnrichedTransaction{a, b}, now)
	if len(patterns) != 1 {
		t.Fatalf("Aggregate() produced %d patterns, want 1", len(patterns))
	}

	p := patterns[0]
	if p.DominantLevel3Tag != "FOOD" {
		t.Errorf("DominantLevel3Tag = %s, want FOOD (earliest on tie)", p.DominantLevel3Tag)
	}
	if p.Level3Confidence != 0.5 {
		t.Errorf("Level3Confidence = %.4f, want 0.5", p.Level3Confidence)
	}
}

func TestAggregateOutputSortedByMerchant(t *testing.T) {
	now := day(40)
	txns := []*models.EnrichedTransaction{
		expenseTxn("zomato orders", day(1), 100, "FOOD"),
		expenseTxn("zomato orders", day(8), 100, "FOOD"),
		expenseTxn("amazon retail", day(2), 500, "RETAIL"),
		expenseTxn("amazon retail", day(20), 700, "RETAIL"),
	}

	patterns := NewAggregator(nil).Aggregate(txns, now)
	if len(patterns) != 2 {
		t.Fatalf("Aggregate() produced %d patterns, want 2", len(patterns))
	}
	if patterns[0].MerchantHint != "amazon retail" || patterns[1].MerchantHint != "zomato orders" {
		t.Errorf("patterns not sorted by merchant: %q, %q", patterns[0].MerchantHint, patterns[1].MerchantHint)
	}
}
