package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"spending-pattern-service/cmd/patternctl/config"
	"spending-pattern-service/internal/enricher"
	"spending-pattern-service/internal/pipeline"
	"spending-pattern-service/internal/reporter"
	pkgerrors "spending-pattern-service/pkg/errors"
)

// Flags for the process command
var (
	statementFile string
	userID        string
	dbPath        string
	outputFormat  string
	outputFile    string
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process a bank statement into spending patterns",
	Long: `Process ingests one bank statement export, cleans and enriches every
row, persists the enriched transactions, and aggregates per-merchant
spending patterns.

The statement must carry the columns Date, Narration, Withdrawal Amt.
and Deposit Amt. Re-processing the same file is safe: rows already
stored are skipped.

Expense rows are categorized as ` + categoryList() + `
when the narration matches known keywords.

Examples:
  # Process into an in-memory store and print the patterns
  patternctl process --file statement.csv --user alice

  # Persist to a SQLite database
  patternctl process --file statement.xlsx --user alice --db spending.db

  # Machine-readable output
  patternctl process --file statement.csv --user alice \
    --output-format json --output-file result.json`,

	PreRunE: validateProcessFlags,
	RunE:    runProcess,
}

// categoryList renders the recognized expense categories for the help text.
func categoryList() string {
	categories := enricher.Level3Categories()
	names := make([]string, len(categories))
	for i, category := range categories {
		names[i] = category.String()
	}
	return strings.Join(names, ", ")
}

func init() {
	rootCmd.AddCommand(processCmd)

	// Required flags
	processCmd.Flags().StringVarP(&statementFile, "file", "f", "", "path to the bank statement file (required)")
	processCmd.Flags().StringVarP(&userID, "user", "u", "", "identifier of the statement owner (required)")

	// Storage flags
	processCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default: in-memory, discarded on exit)")

	// Output flags
	processCmd.Flags().StringVarP(&outputFormat, "output-format", "o", "console", "output format: console, json, csv")
	processCmd.Flags().StringVar(&outputFile, "output-file", "", "output file path (default: stdout)")

	// Mark required flags
	processCmd.MarkFlagRequired("file")
	processCmd.MarkFlagRequired("user")

	// Bind flags to viper
	viper.BindPFlag("file", processCmd.Flags().Lookup("file"))
	viper.BindPFlag("user", processCmd.Flags().Lookup("user"))
	viper.BindPFlag("db", processCmd.Flags().Lookup("db"))
	viper.BindPFlag("output-format", processCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", processCmd.Flags().Lookup("output-file"))
}

func validateProcessFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	statementFile = viper.GetString("file")
	userID = viper.GetString("user")
	dbPath = viper.GetString("db")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")

	if statementFile == "" {
		return fmt.Errorf("file is required")
	}
	if userID == "" {
		return fmt.Errorf("user is required")
	}

	if err := validateFileExists(statementFile, "statement file"); err != nil {
		return err
	}

	if !reporter.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	handler := NewCLIErrorHandler()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Processing statement...\n")
		fmt.Fprintf(os.Stderr, "Statement file: %s\n", statementFile)
		fmt.Fprintf(os.Stderr, "User: %s\n", userID)
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
		if dbPath != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
		}
	}

	store, err := config.OpenStore(dbPath)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer store.Close()

	orch, err := pipeline.NewUploadOrchestrator(store, config.CreateStatementConfig(), nil)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	file, err := os.Open(statementFile)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer file.Close()

	size := int64(-1)
	if info, serr := file.Stat(); serr == nil {
		size = info.Size()
	}

	result := orch.ProcessUpload(ctx, &pipeline.UploadRequest{
		UserID:   userID,
		FileName: statementFile,
		Reader:   file,
		Size:     size,
	})

	if err := writeReport(result); err != nil {
		os.Exit(handler.HandleError(err))
	}

	if !result.Success {
		os.Exit(handler.HandleError(result.Err))
	}

	return nil
}

// writeReport renders the upload result to the configured destination.
func writeReport(result *pipeline.UploadResult) error {
	rg, err := reporter.NewReportGenerator(reporter.OutputFormat(outputFormat))
	if err != nil {
		return err
	}

	out := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := rg.WriteUploadReport(result, out); err != nil {
		return pkgerrors.InternalError("render report", err)
	}
	return nil
}
