// Package pipeline drives one statement upload through the full sequence
// of stages: validation, parsing, cleaning, enrichment, conversion,
// persistence and aggregation. The run is a state machine that is terminal
// on the first stage failure; the result always reports the stage reached.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"spending-pattern-service/internal/aggregator"
	"spending-pattern-service/internal/enricher"
	"spending-pattern-service/internal/models"
	"spending-pattern-service/internal/normalizer"
	"spending-pattern-service/internal/parsers"
	"spending-pattern-service/internal/storage"
	pkgerrors "spending-pattern-service/pkg/errors"
	"spending-pattern-service/pkg/logger"
)

// Stage names one step of the upload state machine.
type Stage string

const (
	StageValidate            Stage = "VALIDATE"
	StageParse               Stage = "PARSE"
	StageClean               Stage = "CLEAN"
	StageEnrich              Stage = "ENRICH"
	StageConvert             Stage = "CONVERT"
	StagePersistTransactions Stage = "PERSIST_TRANSACTIONS"
	StageAggregate           Stage = "AGGREGATE"
	StagePersistPatterns     Stage = "PERSIST_PATTERNS"
	StageSuccess             Stage = "SUCCESS"
)

// UploadRequest describes one statement file to process.
type UploadRequest struct {
	UserID   string
	FileName string
	Reader   io.Reader
	// Size is the declared file size in bytes; pass a negative value when
	// unknown and the size cap is enforced while reading instead.
	Size int64
}

// Statistics carries the per-stage counts of a successful run.
type Statistics struct {
	RowsRead              int `json:"rows_read"`
	CleanRows             int `json:"clean_rows"`
	RowsDropped           int `json:"rows_dropped"`
	TransactionsPersisted int `json:"transactions_persisted"`
	DuplicatesSkipped     int `json:"duplicates_skipped"`
	PatternsAggregated    int `json:"patterns_aggregated"`
	PatternsPersisted     int `json:"patterns_persisted"`
}

// UploadResult is the structured outcome of one upload. Success carries
// statistics and the aggregated patterns; failure carries the stage reached
// and a diagnostic. No stack traces leak through here.
type UploadResult struct {
	UploadID string `json:"upload_id"`
	UserID   string `json:"user_id"`
	FileName string `json:"file_name"`

	Success    bool       `json:"success"`
	Stage      Stage      `json:"stage"`
	Statistics Statistics `json:"statistics"`
	Diagnostic string     `json:"diagnostic,omitempty"`

	Patterns []*models.MerchantPatternStats `json:"patterns,omitempty"`

	Elapsed time.Duration `json:"elapsed_ns"`

	// Err is the underlying stage error for programmatic callers. It is
	// not serialized.
	Err error `json:"-"`
}

// UploadOrchestrator wires the stages together over a storage gateway.
// One orchestrator handles any number of uploads; each call to
// ProcessUpload is an independent sequential run.
type UploadOrchestrator struct {
	ingestor   *parsers.FileIngestor
	normalizer *normalizer.Normalizer
	enricher   *enricher.Enricher
	aggregator *aggregator.Aggregator
	store      storage.Gateway
	logger     logger.Logger

	// now supplies the recency reference for aggregation.
	now func() time.Time
}

// NewUploadOrchestrator creates an orchestrator over the given store.
func NewUploadOrchestrator(store storage.Gateway, config *parsers.StatementConfig, log logger.Logger) (*UploadOrchestrator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if config == nil {
		config = parsers.DefaultStatementConfig()
	}

	ingestor, err := parsers.NewFileIngestor(config)
	if err != nil {
		return nil, err
	}

	return &UploadOrchestrator{
		ingestor:   ingestor,
		normalizer: normalizer.NewNormalizer(config),
		enricher:   enricher.NewEnricher(log),
		aggregator: aggregator.NewAggregator(log),
		store:      store,
		logger:     log.WithComponent("pipeline"),
	}, nil
}

// WithClock overrides the recency reference clock. Intended for tests.
func (o *UploadOrchestrator) WithClock(now func() time.Time) *UploadOrchestrator {
	o.now = now
	return o
}

// ProcessUpload runs the full state machine for one file. The returned
// result is always non-nil; Err is set alongside Success=false when a
// stage fails. Once transaction persistence has committed, later failures
// leave those transactions in place and the result says which stage broke.
func (o *UploadOrchestrator) ProcessUpload(ctx context.Context, req *UploadRequest) *UploadResult {
	uploadID := uuid.New().String()
	tracker := logger.NewStageTracker(uploadID, o.logger)

	result := &UploadResult{
		UploadID: uploadID,
		UserID:   req.UserID,
		FileName: req.FileName,
	}

	log := o.logger.WithFields(logger.Fields{
		"upload_id": uploadID,
		"user_id":   req.UserID,
		"file":      req.FileName,
	})
	log.Info("Processing upload")

	defer func() {
		tracker.Finish()
		result.Elapsed = tracker.Elapsed()
	}()

	// VALIDATE
	tracker.Enter(string(StageValidate))
	if err := o.validate(req); err != nil {
		return o.fail(result, StageValidate, err, log)
	}

	// PARSE
	tracker.Enter(string(StageParse))
	table, stats, err := o.ingestor.Parse(req.Reader, req.FileName)
	if err != nil {
		return o.fail(result, StageParse, err, log)
	}
	result.Statistics.RowsRead = len(table.Rows)
	if stats.HasErrors() {
		log.WithField("row_errors", stats.ErrorCount).Warn("Some rows failed to parse and were skipped")
	}

	// CLEAN
	tracker.Enter(string(StageClean))
	cleaned := o.normalizer.Clean(table)
	result.Statistics.CleanRows = len(cleaned.Rows)
	result.Statistics.RowsDropped = cleaned.DroppedRows
	if len(cleaned.Rows) == 0 {
		return o.fail(result, StageClean,
			pkgerrors.CleaningError(pkgerrors.CodeNoValidRows, "no rows survived cleaning", nil), log)
	}

	// ENRICH
	tracker.Enter(string(StageEnrich))
	enriched := o.enricher.Enrich(cleaned.Rows, uploadID)

	// CONVERT
	tracker.Enter(string(StageConvert))
	converted := o.convert(enriched, log)
	if len(converted) == 0 {
		return o.fail(result, StageConvert,
			pkgerrors.CleaningError(pkgerrors.CodeNoValidRows, "no enriched rows passed validation", nil), log)
	}

	// PERSIST_TRANSACTIONS
	tracker.Enter(string(StagePersistTransactions))
	inserted, skipped, err := o.store.InsertTransactions(ctx, req.UserID, converted)
	if err != nil {
		return o.fail(result, StagePersistTransactions, err, log)
	}
	result.Statistics.TransactionsPersisted = inserted
	result.Statistics.DuplicatesSkipped = skipped

	// AGGREGATE runs over the user's full persisted history semantics by
	// recomputing from this batch; duplicates were already suppressed so
	// re-running the same file cannot inflate the stored patterns.
	tracker.Enter(string(StageAggregate))
	patterns := o.aggregator.Aggregate(converted, o.referenceTime())
	result.Statistics.PatternsAggregated = len(patterns)

	// PERSIST_PATTERNS
	tracker.Enter(string(StagePersistPatterns))
	persisted, err := o.store.UpsertPatterns(ctx, req.UserID, patterns)
	if err != nil {
		// Transactions are already committed; report the partial success
		// honestly instead of masking it.
		return o.fail(result, StagePersistPatterns, err, log)
	}
	result.Statistics.PatternsPersisted = persisted

	result.Success = true
	result.Stage = StageSuccess
	result.Patterns = patterns

	log.WithFields(logger.Fields{
		"rows_read":          result.Statistics.RowsRead,
		"clean_rows":         result.Statistics.CleanRows,
		"persisted":          result.Statistics.TransactionsPersisted,
		"duplicates_skipped": result.Statistics.DuplicatesSkipped,
		"patterns":           result.Statistics.PatternsPersisted,
	}).Info("Upload processed")

	return result
}

// validate checks the declared request before any bytes are read.
func (o *UploadOrchestrator) validate(req *UploadRequest) error {
	if req.UserID == "" {
		return pkgerrors.ConfigurationError(pkgerrors.CodeMissingConfig, "user_id", "", nil)
	}
	return o.ingestor.ValidateFile(req.FileName, req.Size)
}

// convert filters the enriched batch down to structurally valid rows.
// Invalid rows are logged and skipped, never fatal.
func (o *UploadOrchestrator) convert(enriched []*models.EnrichedTransaction, log logger.Logger) []*models.EnrichedTransaction {
	out := make([]*models.EnrichedTransaction, 0, len(enriched))
	for _, txn := range enriched {
		if err := txn.Validate(); err != nil {
			perr := pkgerrors.EnrichmentError("row conversion", err)
			log.WithError(perr).WithField("narration", txn.Narration).Warn("Dropping invalid enriched row")
			continue
		}
		out = append(out, txn)
	}
	return out
}

func (o *UploadOrchestrator) fail(result *UploadResult, stage Stage, err error, log logger.Logger) *UploadResult {
	result.Success = false
	result.Stage = stage
	result.Err = err
	result.Diagnostic = string(stage) + ": " + diagnosticMessage(err)
	log.WithError(err).WithField("stage", string(stage)).Error("Upload failed")
	return result
}

// diagnosticMessage renders an error for external callers: the structured
// message without stack traces or wrapped causes.
func diagnosticMessage(err error) string {
	if err == nil {
		return "unknown failure"
	}
	if perr, ok := pkgerrors.AsPipelineError(err); ok {
		return perr.Message
	}
	return err.Error()
}

func (o *UploadOrchestrator) referenceTime() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now().UTC()
}
