package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"spending-pattern-service/cmd/patternctl/config"
	"spending-pattern-service/internal/reporter"
)

// Flags for the patterns command
var (
	patternsUserID string
	patternsDBPath string
	patternsFormat string
)

// patternsCmd represents the patterns command
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List stored merchant spending patterns",
	Long: `Patterns lists the merchant spending pattern records previously
persisted for a user, sorted by merchant.

Examples:
  patternctl patterns --user alice --db spending.db
  patternctl patterns --user alice --db spending.db --output-format csv`,

	PreRunE: validatePatternsFlags,
	RunE:    runPatterns,
}

func init() {
	rootCmd.AddCommand(patternsCmd)

	patternsCmd.Flags().StringVarP(&patternsUserID, "user", "u", "", "identifier of the statement owner (required)")
	patternsCmd.Flags().StringVar(&patternsDBPath, "db", "", "SQLite database path (required)")
	patternsCmd.Flags().StringVarP(&patternsFormat, "output-format", "o", "console", "output format: console, json, csv")

	patternsCmd.MarkFlagRequired("user")
	patternsCmd.MarkFlagRequired("db")
}

func validatePatternsFlags(cmd *cobra.Command, args []string) error {
	if patternsUserID == "" {
		return fmt.Errorf("user is required")
	}
	if patternsDBPath == "" {
		return fmt.Errorf("db is required: stored patterns live in a database file")
	}
	if err := validateFileExists(patternsDBPath, "database file"); err != nil {
		return err
	}
	if !reporter.OutputFormat(patternsFormat).IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", patternsFormat)
	}
	return nil
}

func runPatterns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	handler := NewCLIErrorHandler()

	store, err := config.OpenStore(patternsDBPath)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer store.Close()

	patterns, err := store.ListPatterns(ctx, patternsUserID)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Found %d pattern records for %s\n", len(patterns), patternsUserID)
	}

	rg, err := reporter.NewReportGenerator(reporter.OutputFormat(patternsFormat))
	if err != nil {
		return err
	}
	return rg.WritePatternReport(patternsUserID, patterns, os.Stdout)
}
