package parsers

import (
	"fmt"
	"strings"
)

// StatementConfig describes the tabular schema expected from a bank
// statement export and the container-level limits applied before parsing.
type StatementConfig struct {
	DateColumn       string            `json:"date_column"`
	NarrationColumn  string            `json:"narration_column"`
	WithdrawalColumn string            `json:"withdrawal_column"`
	DepositColumn    string            `json:"deposit_column"`
	Delimiter        rune              `json:"delimiter"`
	ColumnAliases    map[string]string `json:"column_aliases,omitempty"`
	MaxFileSizeBytes int64             `json:"max_file_size_bytes"`
	Description      string            `json:"description,omitempty"`
}

// DefaultStatementConfig returns the schema used by the common statement
// exports this pipeline was built around (HDFC-style column headers).
func DefaultStatementConfig() *StatementConfig {
	return &StatementConfig{
		DateColumn:       "Date",
		NarrationColumn:  "Narration",
		WithdrawalColumn: "Withdrawal Amt.",
		DepositColumn:    "Deposit Amt.",
		Delimiter:        ',',
		MaxFileSizeBytes: 50 * 1024 * 1024,
		ColumnAliases: map[string]string{
			"Txn Date":         "Date",
			"Transaction Date": "Date",
			"Value Date":       "Date",
			"Description":      "Narration",
			"Particulars":      "Narration",
			"Debit":            "Withdrawal Amt.",
			"Withdrawal":       "Withdrawal Amt.",
			"Credit":           "Deposit Amt.",
			"Deposit":          "Deposit Amt.",
		},
		Description: "Standard bank statement export",
	}
}

// Validate checks if the statement configuration is valid
func (sc *StatementConfig) Validate() error {
	if strings.TrimSpace(sc.DateColumn) == "" {
		return fmt.Errorf("date column cannot be empty")
	}

	if strings.TrimSpace(sc.NarrationColumn) == "" {
		return fmt.Errorf("narration column cannot be empty")
	}

	if strings.TrimSpace(sc.WithdrawalColumn) == "" {
		return fmt.Errorf("withdrawal column cannot be empty")
	}

	if strings.TrimSpace(sc.DepositColumn) == "" {
		return fmt.Errorf("deposit column cannot be empty")
	}

	if sc.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("max file size must be positive")
	}

	return nil
}

// RequiredColumns returns the exact column names the schema check enforces.
func (sc *StatementConfig) RequiredColumns() []string {
	return []string{
		sc.DateColumn,
		sc.NarrationColumn,
		sc.WithdrawalColumn,
		sc.DepositColumn,
	}
}

// CanonicalColumn maps a raw header to its canonical schema name, resolving
// aliases. Unknown headers pass through unchanged.
func (sc *StatementConfig) CanonicalColumn(header string) string {
	header = strings.TrimSpace(header)
	if canonical, exists := sc.ColumnAliases[header]; exists {
		return canonical
	}
	return header
}

// allowedExtensions is the fixed set of accepted container formats.
var allowedExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xls":  true,
}

// AllowedExtensions lists the accepted file extensions for error messages.
func AllowedExtensions() []string {
	return []string{".csv", ".xlsx", ".xls"}
}
