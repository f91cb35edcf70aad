package normalizer

import (
	"testing"

	"spending-pattern-service/internal/parsers"
)

func rawTable(rows ...parsers.RawRecord) *parsers.RawTable {
	return &parsers.RawTable{
		Columns: parsers.DefaultStatementConfig().RequiredColumns(),
		Rows:    rows,
	}
}

func record(date, narration, withdrawal, deposit string) parsers.RawRecord {
	return parsers.RawRecord{
		"Date":            date,
		"Narration":       narration,
		"Withdrawal Amt.": withdrawal,
		"Deposit Amt.":    deposit,
	}
}

func TestCleanTypedRow(t *testing.T) {
	n := NewNormalizer(nil)

	result := n.Clean(rawTable(record("2024-01-05", "UPI-Swiggy-order", "250.00", "")))
	if len(result.Rows) != 1 {
		t.Fatalf("Clean() kept %d rows, want 1", len(result.Rows))
	}

	row := result.Rows[0]
	if row.Narration != "UPI-Swiggy-order" {
		t.Errorf("Narration = %q", row.Narration)
	}
	if row.Date.Format("2006-01-02") != "2024-01-05" {
		t.Errorf("Date = %s", row.Date)
	}
	if !row.Withdrawal.Valid || row.Withdrawal.Decimal.String() != "250" {
		t.Errorf("Withdrawal = %+v, want 250", row.Withdrawal)
	}
	if row.Deposit.Valid {
		t.Errorf("Deposit = %+v, want null", row.Deposit)
	}
}

func TestCleanDropsRowsMissingCriticalFields(t *testing.T) {
	n := NewNormalizer(nil)

	result := n.Clean(rawTable(
		record("2024-01-05", "", "100", ""),          // no narration
		record("not a date", "upi-shop", "100", ""),  // unparseable date
		record("2024-01-06", "upi-shop", "100", ""),  // clean
	))

	if len(result.Rows) != 1 {
		t.Fatalf("Clean() kept %d rows, want 1", len(result.Rows))
	}
	if result.DroppedRows != 2 {
		t.Errorf("DroppedRows = %d, want 2", result.DroppedRows)
	}
	if result.AbsentDates != 1 {
		t.Errorf("AbsentDates = %d, want 1", result.AbsentDates)
	}
	if result.InputRows != 3 {
		t.Errorf("InputRows = %d, want 3", result.InputRows)
	}
}

func TestCleanKeepsRowsWithBothAmountsAbsent(t *testing.T) {
	n := NewNormalizer(nil)

	result := n.Clean(rawTable(record("2024-01-05", "reversal note", "", "")))
	if len(result.Rows) != 1 {
		t.Fatalf("Clean() kept %d rows, want 1 (amountless rows survive)", len(result.Rows))
	}
	if result.AbsentAmount != 1 {
		t.Errorf("AbsentAmount = %d, want 1", result.AbsentAmount)
	}

	row := result.Rows[0]
	if row.Withdrawal.Valid || row.Deposit.Valid {
		t.Errorf("amounts = %+v / %+v, want both null", row.Withdrawal, row.Deposit)
	}
}

func TestCleanCoercesFormattedAmounts(t *testing.T) {
	n := NewNormalizer(nil)

	result := n.Clean(rawTable(record("2024-01-05", "neft cr", "", "1,23,456.78")))
	if len(result.Rows) != 1 {
		t.Fatalf("Clean() kept %d rows, want 1", len(result.Rows))
	}
	if got := result.Rows[0].Deposit.Decimal.String(); got != "123456.78" {
		t.Errorf("Deposit = %s, want 123456.78", got)
	}
}
