// Package reporter renders upload results and merchant pattern records for
// human and programmatic consumers.
//
// Supported output formats:
//   - Console: human-readable tabular output for terminal display
//   - JSON: structured data for programmatic consumption
//   - CSV: comma-separated pattern rows for spreadsheet tools
//
// The reporter only formats; it never recomputes statistics and never
// mutates the records it is given.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"spending-pattern-service/internal/models"
	"spending-pattern-service/internal/pipeline"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportGenerator renders results in a configured format.
type ReportGenerator struct {
	format OutputFormat
}

// NewReportGenerator creates a generator for the given format.
func NewReportGenerator(format OutputFormat) (*ReportGenerator, error) {
	if !format.IsValid() {
		return nil, fmt.Errorf("invalid output format: %s", format)
	}
	return &ReportGenerator{format: format}, nil
}

// WriteUploadReport renders the outcome of one upload.
func (rg *ReportGenerator) WriteUploadReport(result *pipeline.UploadResult, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("upload result cannot be nil")
	}

	switch rg.format {
	case FormatConsole:
		return rg.writeUploadConsole(result, writer)
	case FormatJSON:
		return writeJSON(result, writer)
	case FormatCSV:
		return rg.writePatternCSV(result.Patterns, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.format)
	}
}

// WritePatternReport renders stored pattern records outside the context of
// an upload, e.g. for the patterns listing command.
func (rg *ReportGenerator) WritePatternReport(userID string, patterns []*models.MerchantPatternStats, writer io.Writer) error {
	switch rg.format {
	case FormatConsole:
		fmt.Fprintf(writer, "MERCHANT PATTERNS\n")
		fmt.Fprintf(writer, "User: %s\n", userID)
		fmt.Fprintf(writer, "Generated: %s\n\n", time.Now().UTC().Format(time.RFC3339))
		rg.printPatternTable(patterns, writer)
		return nil
	case FormatJSON:
		evidence := make([]map[string]interface{}, len(patterns))
		for i, p := range patterns {
			evidence[i] = p.Evidence()
		}
		return writeJSON(map[string]interface{}{
			"user_id":  userID,
			"patterns": evidence,
		}, writer)
	case FormatCSV:
		return rg.writePatternCSV(patterns, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.format)
	}
}

func (rg *ReportGenerator) writeUploadConsole(result *pipeline.UploadResult, writer io.Writer) error {
	fmt.Fprintf(writer, "STATEMENT UPLOAD REPORT\n")
	fmt.Fprintf(writer, "Upload ID: %s\n", result.UploadID)
	fmt.Fprintf(writer, "File: %s\n", result.FileName)
	fmt.Fprintf(writer, "Duration: %v\n\n", result.Elapsed)

	if !result.Success {
		fmt.Fprintf(writer, "=== FAILED ===\n")
		fmt.Fprintf(writer, "Stage:      %s\n", result.Stage)
		fmt.Fprintf(writer, "Diagnostic: %s\n", result.Diagnostic)
		return nil
	}

	stats := result.Statistics
	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	fmt.Fprintf(writer, "%-28s %d\n", "Rows read:", stats.RowsRead)
	fmt.Fprintf(writer, "%-28s %d\n", "Rows after cleaning:", stats.CleanRows)
	fmt.Fprintf(writer, "%-28s %d\n", "Rows dropped:", stats.RowsDropped)
	fmt.Fprintf(writer, "%-28s %d\n", "Transactions persisted:", stats.TransactionsPersisted)
	fmt.Fprintf(writer, "%-28s %d\n", "Duplicates skipped:", stats.DuplicatesSkipped)
	fmt.Fprintf(writer, "%-28s %d\n", "Patterns aggregated:", stats.PatternsAggregated)
	fmt.Fprintf(writer, "%-28s %d\n\n", "Patterns persisted:", stats.PatternsPersisted)

	if len(result.Patterns) > 0 {
		fmt.Fprintf(writer, "=== MERCHANT PATTERNS ===\n")
		rg.printPatternTable(result.Patterns, writer)
	}

	return nil
}

func (rg *ReportGenerator) printPatternTable(patterns []*models.MerchantPatternStats, writer io.Writer) {
	if len(patterns) == 0 {
		fmt.Fprintf(writer, "No patterns recorded.\n")
		return
	}

	fmt.Fprintf(writer, "%-28s %6s %12s %12s %10s %10s %-16s\n",
		"Merchant", "Txns", "Total", "Avg", "Avg Gap", "Last Seen", "Category")
	for _, p := range patterns {
		fmt.Fprintf(writer, "%-28s %6d %12s %12s %9.1fd %9dd %-16s\n",
			truncate(p.MerchantHint, 28), p.TxnCount,
			p.TotalAmount.StringFixed(2), p.AvgAmount.StringFixed(2),
			p.AvgGapDays, p.LastTxnDaysAgo, p.DominantLevel3Tag)
	}
}

var patternCSVHeader = []string{
	"merchant_hint", "txn_count",
	"total_amount", "avg_amount", "amount_std", "amount_min", "amount_max",
	"active_duration_days", "avg_gap_days", "gap_std_days", "gap_min_days", "gap_max_days",
	"last_txn_days_ago",
	"dominant_level_1_tag", "level_1_confidence",
	"dominant_level_2_tag", "level_2_confidence",
	"dominant_level_3_tag", "level_3_confidence",
}

func (rg *ReportGenerator) writePatternCSV(patterns []*models.MerchantPatternStats, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	defer csvWriter.Flush()

	if err := csvWriter.Write(patternCSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, p := range patterns {
		record := []string{
			p.MerchantHint, strconv.Itoa(p.TxnCount),
			p.TotalAmount.String(), p.AvgAmount.String(), p.AmountStd.String(),
			p.AmountMin.String(), p.AmountMax.String(),
			strconv.Itoa(p.ActiveDurationDays),
			formatFloat(p.AvgGapDays), formatFloat(p.GapStdDays),
			strconv.Itoa(p.GapMinDays), strconv.Itoa(p.GapMaxDays),
			strconv.Itoa(p.LastTxnDaysAgo),
			p.DominantLevel1Tag.String(), formatFloat(p.Level1Confidence),
			p.DominantLevel2Tag.String(), formatFloat(p.Level2Confidence),
			p.DominantLevel3Tag.String(), formatFloat(p.Level3Confidence),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	return nil
}

func writeJSON(v interface{}, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
