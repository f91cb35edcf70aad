package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseNullDecimal(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		want      string
	}{
		{"plain number", "199.50", true, "199.5"},
		{"thousands separator", "1,23,456.78", true, "123456.78"},
		{"currency prefix", "Rs.500", true, "500"},
		{"inr prefix", "INR 750.25", true, "750.25"},
		{"whitespace", "  42  ", true, "42"},
		{"zero is a value", "0", true, "0"},
		{"empty is null", "", false, ""},
		{"whitespace only is null", "   ", false, ""},
		{"garbage is null", "n/a", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseNullDecimal(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("ParseNullDecimal(%q).Valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
			}
			if tt.wantValid && got.Decimal.String() != tt.want {
				t.Errorf("ParseNullDecimal(%q) = %s, want %s", tt.input, got.Decimal, tt.want)
			}
		})
	}
}

func TestParseStatementDate(t *testing.T) {
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
	}{
		{"iso", "2024-03-15"},
		{"day first slash", "15/03/2024"},
		{"day first dash", "15-03-2024"},
		{"short year", "15/03/24"},
		{"month name", "15 Mar 2024"},
		{"timestamp truncated", "2024-03-15 14:30:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatementDate(tt.input)
			if err != nil {
				t.Fatalf("ParseStatementDate(%q) error = %v", tt.input, err)
			}
			if !got.Equal(want) {
				t.Errorf("ParseStatementDate(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}

	if _, err := ParseStatementDate("not a date"); err == nil {
		t.Error("ParseStatementDate(not a date) succeeded, want error")
	}
	if _, err := ParseStatementDate(""); err == nil {
		t.Error("ParseStatementDate(empty) succeeded, want error")
	}
}

func TestDuplicateKeyNullVersusZero(t *testing.T) {
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	base := EnrichedTransaction{
		StatementRow: StatementRow{
			Date:       date,
			Narration:  "upi-shop-payment",
			Withdrawal: decimal.NewNullDecimal(decimal.NewFromInt(100)),
		},
	}

	withZeroDeposit := base
	withZeroDeposit.Deposit = decimal.NewNullDecimal(decimal.Zero)

	if base.DuplicateKey() == withZeroDeposit.DuplicateKey() {
		t.Error("null deposit and zero deposit produced the same duplicate key")
	}

	same := base
	if base.DuplicateKey() != same.DuplicateKey() {
		t.Error("identical rows produced different duplicate keys")
	}
}

func TestEffectiveAmount(t *testing.T) {
	w := decimal.NewNullDecimal(decimal.NewFromInt(150))
	d := decimal.NewNullDecimal(decimal.NewFromInt(900))

	tests := []struct {
		name   string
		txn    EnrichedTransaction
		want   string
		wantOK bool
	}{
		{
			"outflow uses withdrawal",
			EnrichedTransaction{StatementRow: StatementRow{Withdrawal: w, Deposit: d}, MoneyFlow: FlowOutflow},
			"150", true,
		},
		{
			"inflow uses deposit",
			EnrichedTransaction{StatementRow: StatementRow{Withdrawal: w, Deposit: d}, MoneyFlow: FlowInflow},
			"900", true,
		},
		{
			"unknown falls back to positive withdrawal",
			EnrichedTransaction{StatementRow: StatementRow{Withdrawal: w}, MoneyFlow: FlowUnknown},
			"150", true,
		},
		{
			"unknown falls back to positive deposit",
			EnrichedTransaction{StatementRow: StatementRow{Deposit: d}, MoneyFlow: FlowUnknown},
			"900", true,
		},
		{
			"no amounts",
			EnrichedTransaction{MoneyFlow: FlowUnknown},
			"", false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.txn.EffectiveAmount()
			if ok != tt.wantOK {
				t.Fatalf("EffectiveAmount() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.String() != tt.want {
				t.Errorf("EffectiveAmount() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStatementRowValidate(t *testing.T) {
	valid := StatementRow{
		Date:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Narration: "upi-shop",
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() on valid row = %v", err)
	}

	noDate := StatementRow{Narration: "upi-shop"}
	if err := noDate.Validate(); err == nil {
		t.Error("Validate() accepted zero date")
	}

	noNarration := StatementRow{Date: valid.Date, Narration: "   "}
	if err := noNarration.Validate(); err == nil {
		t.Error("Validate() accepted blank narration")
	}
}

func TestMerchantPatternStatsValidate(t *testing.T) {
	ok := MerchantPatternStats{MerchantHint: "corner cafe", TxnCount: 2}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	single := MerchantPatternStats{MerchantHint: "corner cafe", TxnCount: 1}
	if err := single.Validate(); err == nil {
		t.Error("Validate() accepted a single-transaction pattern")
	}

	unnamed := MerchantPatternStats{TxnCount: 3}
	if err := unnamed.Validate(); err == nil {
		t.Error("Validate() accepted an empty merchant hint")
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	if got := DaysBetween(a, b); got != 30 {
		t.Errorf("DaysBetween() = %d, want 30", got)
	}
	if got := DaysBetween(a, a); got != 0 {
		t.Errorf("DaysBetween(same) = %d, want 0", got)
	}
}

func TestEvidenceCoversAllStatFields(t *testing.T) {
	p := MerchantPatternStats{
		MerchantHint: "corner cafe",
		TxnCount:     2,
		TotalAmount:  decimal.NewFromInt(300),
	}

	evidence := p.Evidence()
	for _, key := range []string{
		"merchant_hint", "txn_count", "total_amount", "avg_amount",
		"amount_std", "amount_min", "amount_max", "active_duration_days",
		"avg_gap_days", "gap_std_days", "gap_min_days", "gap_max_days",
		"last_txn_days_ago", "dominant_level_1_tag", "level_1_confidence",
		"dominant_level_2_tag", "level_2_confidence",
		"dominant_level_3_tag", "level_3_confidence",
	} {
		if _, exists := evidence[key]; !exists {
			t.Errorf("Evidence() missing key %q", key)
		}
	}
}
