// Command statement_generator produces synthetic bank statement CSV files
// for exercising the ingestion pipeline: recurring subscription debits,
// irregular food and retail spending, salary credits and transfer noise.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// StatementGenerator generates bank statement CSV files
type StatementGenerator struct {
	Rows      int
	StartDate time.Time
	EndDate   time.Time
	Seed      int64
}

// subscription is a merchant that recurs on a fixed cadence
type subscription struct {
	narration string
	amount    decimal.Decimal
	gapDays   int
}

var subscriptions = []subscription{
	{"UPI-Netflix Entertainment-908812345@ybl-Subscription", decimal.NewFromInt(199), 30},
	{"UPI-Spotify India-776655443@okaxis-Premium", decimal.NewFromInt(119), 30},
	{"NACH-Cult Fit-Membership Auto Debit", decimal.NewFromInt(999), 30},
}

var randomNarrations = []string{
	"UPI-Swiggy-order payment-4455%d@ybl",
	"UPI-Zomato Order-9988%d@paytm",
	"POS %d Big Basket Store",
	"UPI-Uber Ride-trip %d",
	"CARD-Amazon Purchase-%d",
	"ATM WDL Station Road %d",
	"UPI-Local Kirana Mart-%d@okhdfc",
}

func main() {
	var (
		output    = flag.String("output", "generated_statement.csv", "Output CSV file path")
		rows      = flag.Int("rows", 200, "Number of statement rows to generate")
		startDate = flag.String("start-date", "2024-01-01", "Start date (YYYY-MM-DD)")
		endDate   = flag.String("end-date", "2024-12-31", "End date (YYYY-MM-DD)")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "Random seed for reproducible generation")
	)
	flag.Parse()

	start, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		log.Fatalf("Invalid start date: %v", err)
	}
	end, err := time.Parse("2006-01-02", *endDate)
	if err != nil {
		log.Fatalf("Invalid end date: %v", err)
	}
	if !start.Before(end) {
		log.Fatalf("Start date must be before end date")
	}

	generator := &StatementGenerator{
		Rows:      *rows,
		StartDate: start,
		EndDate:   end,
		Seed:      *seed,
	}

	if err := generator.WriteCSV(*output); err != nil {
		log.Fatalf("Generation failed: %v", err)
	}

	fmt.Printf("Generated %d statement rows in %s (seed %d)\n", *rows, *output, *seed)
}

// WriteCSV emits the synthetic statement to path.
func (g *StatementGenerator) WriteCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"Date", "Narration", "Withdrawal Amt.", "Deposit Amt."}); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(g.Seed))

	// Subscriptions first: fixed-cadence debits across the whole window.
	remaining := g.Rows
	for _, sub := range subscriptions {
		for d := g.StartDate; !d.After(g.EndDate) && remaining > 0; d = d.AddDate(0, 0, sub.gapDays) {
			if err := writer.Write([]string{
				d.Format("2006-01-02"), sub.narration, sub.amount.StringFixed(2), "",
			}); err != nil {
				return err
			}
			remaining--
		}
	}

	// Monthly salary credits.
	for d := g.StartDate; !d.After(g.EndDate) && remaining > 0; d = d.AddDate(0, 1, 0) {
		if err := writer.Write([]string{
			d.Format("2006-01-02"),
			"NEFT CR-ACME CORP PVT LTD-SALARY " + d.Format("Jan 2006"),
			"",
			"85000.00",
		}); err != nil {
			return err
		}
		remaining--
	}

	// Fill the rest with irregular spending.
	window := int(g.EndDate.Sub(g.StartDate).Hours() / 24)
	for ; remaining > 0; remaining-- {
		d := g.StartDate.AddDate(0, 0, rng.Intn(window+1))
		narration := fmt.Sprintf(randomNarrations[rng.Intn(len(randomNarrations))], rng.Intn(100000))
		amount := decimal.NewFromInt(int64(50 + rng.Intn(2500))).StringFixed(2)
		if err := writer.Write([]string{d.Format("2006-01-02"), narration, amount, ""}); err != nil {
			return err
		}
	}

	return nil
}
