// Package normalizer performs the hygiene pass over raw statement tables:
// amount coercion, date parsing and removal of rows missing critical fields.
// It applies no business logic; classification belongs to the enricher.
package normalizer

import (
	"strings"

	"spending-pattern-service/internal/models"
	"spending-pattern-service/internal/parsers"
	"spending-pattern-service/pkg/logger"
)

// Result carries the cleaned rows plus counts for the upload report.
type Result struct {
	Rows         []*models.StatementRow
	InputRows    int
	DroppedRows  int
	AbsentDates  int
	AbsentAmount int
}

// Normalizer converts a RawTable into typed statement rows.
type Normalizer struct {
	config *parsers.StatementConfig
	logger logger.Logger
}

// NewNormalizer creates a Normalizer bound to the ingestion schema.
func NewNormalizer(config *parsers.StatementConfig) *Normalizer {
	if config == nil {
		config = parsers.DefaultStatementConfig()
	}

	return &Normalizer{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("normalizer"),
	}
}

// Clean coerces amounts and dates and drops rows missing the critical
// fields (date and narration). Rows whose amounts both fail coercion are
// kept; they simply carry two absent amounts and classify as UNKNOWN later.
func (n *Normalizer) Clean(table *parsers.RawTable) *Result {
	result := &Result{
		InputRows: len(table.Rows),
		Rows:      make([]*models.StatementRow, 0, len(table.Rows)),
	}

	for _, record := range table.Rows {
		row := n.cleanRecord(record, result)
		if row == nil {
			result.DroppedRows++
			continue
		}
		result.Rows = append(result.Rows, row)
	}

	n.logger.WithFields(logger.Fields{
		"input_rows":   result.InputRows,
		"clean_rows":   len(result.Rows),
		"dropped_rows": result.DroppedRows,
	}).Info("Data cleaning complete")

	return result
}

// cleanRecord types one record, returning nil when a critical field is
// missing or unparseable.
func (n *Normalizer) cleanRecord(record parsers.RawRecord, result *Result) *models.StatementRow {
	narration := strings.TrimSpace(record.Get(n.config.NarrationColumn))
	if narration == "" {
		return nil
	}

	date, err := models.ParseStatementDate(record.Get(n.config.DateColumn))
	if err != nil {
		// Unparseable date means the row cannot anchor any temporal
		// statistics; it is dropped like a missing date.
		result.AbsentDates++
		return nil
	}

	withdrawal := models.ParseNullDecimal(record.Get(n.config.WithdrawalColumn))
	deposit := models.ParseNullDecimal(record.Get(n.config.DepositColumn))
	if !withdrawal.Valid && !deposit.Valid {
		result.AbsentAmount++
	}

	return &models.StatementRow{
		Date:       date,
		Narration:  narration,
		Withdrawal: withdrawal,
		Deposit:    deposit,
	}
}
