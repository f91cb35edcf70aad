package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"spending-pattern-service/internal/models"
	"spending-pattern-service/internal/pipeline"
)

func samplePattern() *models.MerchantPatternStats {
	return &models.MerchantPatternStats{
		MerchantHint:       "netflix entertainment",
		TxnCount:           3,
		TotalAmount:        decimal.NewFromInt(597),
		AvgAmount:          decimal.NewFromInt(199),
		AmountStd:          decimal.Zero,
		AmountMin:          decimal.NewFromInt(199),
		AmountMax:          decimal.NewFromInt(199),
		ActiveDurationDays: 60,
		AvgGapDays:         30,
		GapMinDays:         30,
		GapMaxDays:         30,
		LastTxnDaysAgo:     14,
		DominantLevel1Tag:  models.Level1UPI,
		Level1Confidence:   1,
		DominantLevel2Tag:  models.Level2Expense,
		Level2Confidence:   1,
		DominantLevel3Tag:  "OTT",
		Level3Confidence:   1,
	}
}

func sampleResult() *pipeline.UploadResult {
	return &pipeline.UploadResult{
		UploadID: "upload-1",
		UserID:   "user-1",
		FileName: "statement.csv",
		Success:  true,
		Stage:    pipeline.StageSuccess,
		Statistics: pipeline.Statistics{
			RowsRead:              4,
			CleanRows:             4,
			TransactionsPersisted: 4,
			PatternsAggregated:    1,
			PatternsPersisted:     1,
		},
		Patterns: []*models.MerchantPatternStats{samplePattern()},
	}
}

func TestNewReportGeneratorRejectsUnknownFormat(t *testing.T) {
	if _, err := NewReportGenerator("xml"); err == nil {
		t.Fatal("NewReportGenerator(xml) succeeded, want error")
	}
}

func TestConsoleUploadReport(t *testing.T) {
	rg, err := NewReportGenerator(FormatConsole)
	if err != nil {
		t.Fatalf("NewReportGenerator() error = %v", err)
	}

	var buf bytes.Buffer
	if err := rg.WriteUploadReport(sampleResult(), &buf); err != nil {
		t.Fatalf("WriteUploadReport() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"STATEMENT UPLOAD REPORT", "netflix entertainment", "Transactions persisted:", "OTT"} {
		if !strings.Contains(out, want) {
			t.Errorf("console report missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleUploadReportFailure(t *testing.T) {
	rg, _ := NewReportGenerator(FormatConsole)

	result := &pipeline.UploadResult{
		UploadID:   "upload-2",
		FileName:   "bad.csv",
		Success:    false,
		Stage:      pipeline.StageParse,
		Diagnostic: "PARSE: missing required columns",
	}

	var buf bytes.Buffer
	if err := rg.WriteUploadReport(result, &buf); err != nil {
		t.Fatalf("WriteUploadReport() error = %v", err)
	}
	if !strings.Contains(buf.String(), "FAILED") || !strings.Contains(buf.String(), "missing required columns") {
		t.Errorf("failure report incomplete:\n%s", buf.String())
	}
}

func TestJSONUploadReportRoundTrips(t *testing.T) {
	rg, _ := NewReportGenerator(FormatJSON)

	var buf bytes.Buffer
	if err := rg.WriteUploadReport(sampleResult(), &buf); err != nil {
		t.Fatalf("WriteUploadReport() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded["upload_id"] != "upload-1" {
		t.Errorf("upload_id = %v, want upload-1", decoded["upload_id"])
	}
}

func TestCSVPatternReport(t *testing.T) {
	rg, _ := NewReportGenerator(FormatCSV)

	var buf bytes.Buffer
	if err := rg.WritePatternReport("user-1", []*models.MerchantPatternStats{samplePattern()}, &buf); err != nil {
		t.Fatalf("WritePatternReport() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("report is not valid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("CSV has %d rows, want header + 1 record", len(records))
	}
	if records[1][0] != "netflix entertainment" {
		t.Errorf("first record merchant = %q", records[1][0])
	}
	if len(records[0]) != len(records[1]) {
		t.Errorf("header and record lengths differ: %d vs %d", len(records[0]), len(records[1]))
	}
}
