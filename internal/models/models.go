// Package models defines the core data types for the statement enrichment
// pipeline: normalized statement rows, enriched transactions, and the
// per-merchant pattern evidence records produced by aggregation.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyFlow represents the direction of money movement on a statement line.
type MoneyFlow string

const (
	FlowOutflow MoneyFlow = "OUTFLOW"
	FlowInflow  MoneyFlow = "INFLOW"
	FlowUnknown MoneyFlow = "UNKNOWN"
)

// String returns the string representation of MoneyFlow
func (m MoneyFlow) String() string {
	return string(m)
}

// IsValid checks if the money flow value is valid
func (m MoneyFlow) IsValid() bool {
	return m == FlowOutflow || m == FlowInflow || m == FlowUnknown
}

// Level1Tag identifies the payment rail or channel of a transaction.
type Level1Tag string

const (
	Level1Salary           Level1Tag = "SALARY"
	Level1InterestDividend Level1Tag = "INTEREST_DIVIDEND"
	Level1ReversalRefund   Level1Tag = "REVERSAL_REFUND"
	Level1InternalTransfer Level1Tag = "INTERNAL_TRANSFER"
	Level1UPI              Level1Tag = "UPI"
	Level1ACH              Level1Tag = "ACH"
	Level1IMPS             Level1Tag = "IMPS"
	Level1NEFT             Level1Tag = "NEFT"
	Level1RTGS             Level1Tag = "RTGS"
	Level1Card             Level1Tag = "CARD"
	Level1Cash             Level1Tag = "CASH"
	Level1Unknown          Level1Tag = "UNKNOWN"
)

// String returns the string representation of Level1Tag
func (t Level1Tag) String() string {
	return string(t)
}

// Level2Tag identifies the economic role of a transaction.
type Level2Tag string

const (
	Level2Income     Level2Tag = "INCOME"
	Level2Expense    Level2Tag = "EXPENSE"
	Level2Transfer   Level2Tag = "TRANSFER"
	Level2Adjustment Level2Tag = "ADJUSTMENT"
	Level2Unknown    Level2Tag = "UNKNOWN"
)

// String returns the string representation of Level2Tag
func (t Level2Tag) String() string {
	return string(t)
}

// Level3Tag is a coarse spending category, assigned only to expenses.
type Level3Tag string

// Level3Unknown is the fallback category for non-expenses and unmatched
// narrations. The concrete category values live in the enricher's keyword
// table; this package only fixes the fallback.
const Level3Unknown Level3Tag = "UNKNOWN"

// String returns the string representation of Level3Tag
func (t Level3Tag) String() string {
	return string(t)
}

// MerchantUnknown is the merchant hint used when no usable candidate
// survives noise filtering.
const MerchantUnknown = "UNKNOWN"

// StatementRow is one cleaned bank statement line. Amounts are nullable:
// an absent amount and an explicit zero are different facts and both are
// preserved through the pipeline.
type StatementRow struct {
	Date       time.Time           `json:"date"`
	Narration  string              `json:"narration"`
	Withdrawal decimal.NullDecimal `json:"withdrawal_amount"`
	Deposit    decimal.NullDecimal `json:"deposit_amount"`
}

// Validate performs basic validation on the StatementRow
func (r *StatementRow) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("statement row date cannot be zero")
	}

	if strings.TrimSpace(r.Narration) == "" {
		return fmt.Errorf("statement row narration cannot be empty")
	}

	return nil
}

// HasWithdrawal reports whether the withdrawal amount is present (valid),
// regardless of its value.
func (r *StatementRow) HasWithdrawal() bool {
	return r.Withdrawal.Valid
}

// HasDeposit reports whether the deposit amount is present (valid).
func (r *StatementRow) HasDeposit() bool {
	return r.Deposit.Valid
}

// String returns a string representation of the StatementRow
func (r *StatementRow) String() string {
	return fmt.Sprintf("StatementRow{Date: %s, Narration: %q, Withdrawal: %s, Deposit: %s}",
		r.Date.Format("2006-01-02"), r.Narration,
		FormatNullDecimal(r.Withdrawal), FormatNullDecimal(r.Deposit))
}

// EnrichedTransaction is a StatementRow plus the five derived attributes
// produced by the enrichment passes. Instances are created once per ingested
// row and never mutated afterwards.
type EnrichedTransaction struct {
	StatementRow

	MoneyFlow    MoneyFlow `json:"money_flow"`
	Level1Tag    Level1Tag `json:"level_1_tag"`
	Level2Tag    Level2Tag `json:"level_2_tag"`
	Level3Tag    Level3Tag `json:"level_3_tag"`
	MerchantHint string    `json:"merchant_hint"`

	// BatchID ties the row back to the upload that produced it.
	BatchID string `json:"batch_id"`
}

// DuplicateKey returns the identity used for duplicate suppression on
// insert: date, narration and both amounts, with null amounts kept distinct
// from any numeric value (including zero).
func (t *EnrichedTransaction) DuplicateKey() string {
	var b strings.Builder
	b.WriteString(t.Date.Format("2006-01-02"))
	b.WriteByte('|')
	b.WriteString(t.Narration)
	b.WriteByte('|')
	b.WriteString(FormatNullDecimal(t.Withdrawal))
	b.WriteByte('|')
	b.WriteString(FormatNullDecimal(t.Deposit))
	return b.String()
}

// EffectiveAmount returns the amount matching the transaction's own flow
// direction: withdrawal for OUTFLOW, deposit for INFLOW. When the flow is
// UNKNOWN it falls back to whichever amount field carries a positive value.
func (t *EnrichedTransaction) EffectiveAmount() (decimal.Decimal, bool) {
	switch t.MoneyFlow {
	case FlowOutflow:
		if t.Withdrawal.Valid {
			return t.Withdrawal.Decimal, true
		}
	case FlowInflow:
		if t.Deposit.Valid {
			return t.Deposit.Decimal, true
		}
	default:
		if t.Withdrawal.Valid && t.Withdrawal.Decimal.IsPositive() {
			return t.Withdrawal.Decimal, true
		}
		if t.Deposit.Valid && t.Deposit.Decimal.IsPositive() {
			return t.Deposit.Decimal, true
		}
	}
	return decimal.Zero, false
}

// String returns a string representation of the EnrichedTransaction
func (t *EnrichedTransaction) String() string {
	return fmt.Sprintf("EnrichedTransaction{Date: %s, Narration: %q, Flow: %s, L1: %s, L2: %s, L3: %s, Merchant: %q}",
		t.Date.Format("2006-01-02"), t.Narration, t.MoneyFlow,
		t.Level1Tag, t.Level2Tag, t.Level3Tag, t.MerchantHint)
}

// MerchantPatternStats is the aggregated evidence record for one merchant's
// expense history for one user. It carries facts only; no judgment about
// whether the pattern is desirable is made here.
type MerchantPatternStats struct {
	MerchantHint string `json:"merchant_hint"`

	TxnCount    int             `json:"txn_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AvgAmount   decimal.Decimal `json:"avg_amount"`
	AmountStd   decimal.Decimal `json:"amount_std"`
	AmountMin   decimal.Decimal `json:"amount_min"`
	AmountMax   decimal.Decimal `json:"amount_max"`

	ActiveDurationDays int     `json:"active_duration_days"`
	AvgGapDays         float64 `json:"avg_gap_days"`
	GapStdDays         float64 `json:"gap_std_days"`
	GapMinDays         int     `json:"gap_min_days"`
	GapMaxDays         int     `json:"gap_max_days"`

	LastTxnDaysAgo int `json:"last_txn_days_ago"`

	DominantLevel1Tag Level1Tag `json:"dominant_level_1_tag"`
	Level1Confidence  float64   `json:"level_1_confidence"`
	DominantLevel2Tag Level2Tag `json:"dominant_level_2_tag"`
	Level2Confidence  float64   `json:"level_2_confidence"`
	DominantLevel3Tag Level3Tag `json:"dominant_level_3_tag"`
	Level3Confidence  float64   `json:"level_3_confidence"`
}

// Validate performs basic validation on the MerchantPatternStats
func (s *MerchantPatternStats) Validate() error {
	if strings.TrimSpace(s.MerchantHint) == "" {
		return fmt.Errorf("pattern merchant hint cannot be empty")
	}

	if s.TxnCount < 2 {
		return fmt.Errorf("pattern requires at least 2 transactions, got %d", s.TxnCount)
	}

	return nil
}

// Evidence returns the pattern record as a plain fact map for hand-off to
// the external reasoning collaborator. Consumers must treat it as read-only.
func (s *MerchantPatternStats) Evidence() map[string]interface{} {
	return map[string]interface{}{
		"merchant_hint":        s.MerchantHint,
		"txn_count":            s.TxnCount,
		"total_amount":         s.TotalAmount.String(),
		"avg_amount":           s.AvgAmount.String(),
		"amount_std":           s.AmountStd.String(),
		"amount_min":           s.AmountMin.String(),
		"amount_max":           s.AmountMax.String(),
		"active_duration_days": s.ActiveDurationDays,
		"avg_gap_days":         s.AvgGapDays,
		"gap_std_days":         s.GapStdDays,
		"gap_min_days":         s.GapMinDays,
		"gap_max_days":         s.GapMaxDays,
		"last_txn_days_ago":    s.LastTxnDaysAgo,
		"dominant_level_1_tag": s.DominantLevel1Tag.String(),
		"level_1_confidence":   s.Level1Confidence,
		"dominant_level_2_tag": s.DominantLevel2Tag.String(),
		"level_2_confidence":   s.Level2Confidence,
		"dominant_level_3_tag": s.DominantLevel3Tag.String(),
		"level_3_confidence":   s.Level3Confidence,
	}
}

// String returns a string representation of the MerchantPatternStats
func (s *MerchantPatternStats) String() string {
	return fmt.Sprintf("MerchantPatternStats{Merchant: %q, Count: %d, Avg: %s, AvgGap: %.2f}",
		s.MerchantHint, s.TxnCount, s.AvgAmount.String(), s.AvgGapDays)
}

// Utility functions for parsing and formatting statement values

// FormatNullDecimal renders a nullable decimal for keys and display, keeping
// null distinguishable from every numeric value.
func FormatNullDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return "null"
	}
	return d.Decimal.String()
}

// ParseNullDecimal parses a nullable decimal from a raw statement cell.
// Empty or unparseable values become null, never zero. Thousands separators,
// currency markers and surrounding whitespace are stripped first.
func ParseNullDecimal(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}

	// Remove common currency symbols and thousand separators
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.TrimPrefix(s, "Rs.")
	s = strings.TrimPrefix(s, "INR")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}

	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// statementDateFormats are the calendar date layouts accepted from real
// statements. Day-first layouts come before month-first ones because the
// source data is predominantly Indian bank exports.
var statementDateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"02/01/06",
	"02-01-2006",
	"02-01-06",
	"2006/01/02",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseStatementDate attempts to parse a statement date using the accepted
// layouts. The time-of-day portion, if any, is truncated to the calendar day.
func ParseStatementDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	var lastErr error
	for _, format := range statementDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// DaysBetween returns the whole number of days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
