package storage

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"spending-pattern-service/internal/models"
	pkgerrors "spending-pattern-service/pkg/errors"
	"spending-pattern-service/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	txn_date TEXT NOT NULL,
	narration TEXT NOT NULL,
	withdrawal_amount TEXT,
	deposit_amount TEXT,
	money_flow TEXT NOT NULL,
	level_1_tag TEXT NOT NULL,
	level_2_tag TEXT NOT NULL,
	level_3_tag TEXT NOT NULL,
	merchant_hint TEXT NOT NULL,
	batch_id TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_transactions_user_date
	ON transactions(user_id, txn_date);

CREATE TABLE IF NOT EXISTS merchant_patterns (
	user_id TEXT NOT NULL,
	merchant_hint TEXT NOT NULL,
	txn_count INTEGER NOT NULL,
	total_amount TEXT NOT NULL,
	avg_amount TEXT NOT NULL,
	amount_std TEXT NOT NULL,
	amount_min TEXT NOT NULL,
	amount_max TEXT NOT NULL,
	active_duration_days INTEGER NOT NULL,
	avg_gap_days REAL NOT NULL,
	gap_std_days REAL NOT NULL,
	gap_min_days INTEGER NOT NULL,
	gap_max_days INTEGER NOT NULL,
	last_txn_days_ago INTEGER NOT NULL,
	dominant_level_1_tag TEXT NOT NULL,
	level_1_confidence REAL NOT NULL,
	dominant_level_2_tag TEXT NOT NULL,
	level_2_confidence REAL NOT NULL,
	dominant_level_3_tag TEXT NOT NULL,
	level_3_confidence REAL NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (user_id, merchant_hint)
);
`

// SQLiteStore is a Gateway backed by a SQLite database file. Amounts are
// stored as decimal strings so no precision is lost; a NULL column value
// means the statement cell was absent, which is distinct from "0".
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path and
// ensures the schema exists.
func NewSQLiteStore(path string, log logger.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, pkgerrors.PersistenceError(pkgerrors.CodeStorageFailure, "open database", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pkgerrors.PersistenceError(pkgerrors.CodeStorageFailure, "create schema", err)
	}

	return &SQLiteStore{db: db, logger: log.WithComponent("sqlite_store")}, nil
}

// InsertTransactions inserts rows inside a single database transaction,
// probing each row's duplicate identity first. The probe uses IS so a NULL
// amount only matches NULL, never zero.
func (s *SQLiteStore) InsertTransactions(ctx context.Context, userID string, txns []*models.EnrichedTransaction) (int, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, pkgerrors.PersistenceError(pkgerrors.CodeStorageFailure, "begin transaction", err)
	}
	defer tx.Rollback()

	probe, err := tx.PrepareContext(ctx, `
		SELECT COUNT(1) FROM transactions
		WHERE user_id = ? AND txn_date = ? AND narration = ?
		  AND withdrawal_amount IS ? AND deposit_amount IS ?`)
	if err != nil {
		return 0, 0, pkgerrors.PersistenceError(pkgerrors.CodeStorageFailure, "prepare duplicate probe", err)
	}
	defer probe.Close()

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			user_id, txn_date, narration, withdrawal_amount, deposit_amount,
			money_flow, level_1_tag, level_2_tag, level_3_tag, merchant_hint, batch_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, 0, pkgerrors.PersistenceError(pkgerrors.CodeStorageFailure, "prepare insert", err)
	}
	defer insert.Close()

	inserted, skipped := 0, 0
	for _, txn := range txns {
		date := txn.Date.Format("2006-01-02")
		withdrawal := nullDecimalValue(txn.Withdrawal)
		deposit := nullDecimalValue(txn.Deposit)

		var count int
		if err := probe.QueryRowContext(ctx, userID, date, txn.Narration, withdrawal, deposit).Scan(&count); err != nil {
			return inserted, skipped, pkgerrors.PersistenceError(pkgerrors.CodeStorageFailure, "probe duplicate", err)
		}
		if count > 0 {
			skipped++
			continue
		}

		if _, err := insert.ExecContext(ctx,
			userID, date, txn.Narration, withdrawal, deposit,
			txn.MoneyFlow.String(), txn.Level1Tag.String(), txn.Level2Tag.String(),
			txn.Level3Tag.String(), txn.MerchantHint, txn.BatchID,
		); err != nil {
			return inserted, skipped, pkgerrors.PersistenceError(pkgerrors.CodeStorageFailure, "insert transaction", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, pkgerrors.PersistenceError(pkgerrors.CodeStorageFailure, "commit transactions", err)
	}
	return inserted, skipped, nil
}

// UpsertPatterns writes each pattern record independently so one bad
// record cannot block the rest of the batch. Failures are logged with the
// merchant named and counted out of the result.
func (s *SQLiteStore) UpsertPatterns(ctx context.Context, userID string, patterns []*models.MerchantPatternStats) (int, error) {
	const upsert = `
		INSERT INTO merchant_patterns (
			user_id, merchant_hint, txn_count,
			total_amount, avg_amount, amount_std, amount_min, amount_max,
			active_duration_days, avg_gap_days, gap_std_days, gap_min_days, gap_max_days,
			last_txn_days_ago,
			dominant_level_1_tag, level_1_confidence,
			dominant_level_2_tag, level_2_confidence,
			dominant_level_3_tag, level_3_confidence,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(user_id, merchant_hint) DO UPDATE SET
			txn_count = excluded.txn_count,
			total_amount = excluded.total_amount,
			avg_amount = excluded.avg_amount,
			amount_std = excluded.amount_std,
			amount_min = excluded.amount_min,
			amount_max = excluded.amount_max,
			active_duration_days = excluded.active_duration_days,
			avg_gap_days = excluded.avg_gap_days,
			gap_std_days = excluded.gap_std_days,
			gap_min_days = excluded.gap_min_days,
			gap_max_days = excluded.gap_max_days,
			last_txn_days_ago = excluded.last_txn_days_ago,
			dominant_level_1_tag = excluded.dominant_level_1_tag,
			level_1_confidence = excluded.level_1_confidence,
			dominant_level_2_tag = excluded.dominant_level_2_tag,
			level_2_confidence = excluded.level_2_confidence,
			dominant_level_3_tag = excluded.dominant_level_3_tag,
			level_3_confidence = excluded.level_3_confidence,
			updated_at = excluded.updated_at`

	persisted := 0
	var failures []*pkgerrors.PipelineError
	for _, p := range patterns {
		_, err := s.db.ExecContext(ctx, upsert,
			userID, p.MerchantHint, p.TxnCount,
			p.TotalAmount.String(), p.AvgAmount.String(), p.AmountStd.String(),
			p.AmountMin.String(), p.AmountMax.String(),
			p.ActiveDurationDays, p.AvgGapDays, p.GapStdDays, p.GapMinDays, p.GapMaxDays,
			p.LastTxnDaysAgo,
			p.DominantLevel1Tag.String(), p.Level1Confidence,
			p.DominantLevel2Tag.String(), p.Level2Confidence,
			p.DominantLevel3Tag.String(), p.Level3Confidence,
		)
		if err != nil {
			perr := pkgerrors.PersistenceError(pkgerrors.CodeStorageFailure, "upsert pattern", err).
				WithContext("merchant", p.MerchantHint)
			s.logger.WithError(perr).WithFields(logger.Fields{
				"user_id":  userID,
				"merchant": p.MerchantHint,
			}).Error("Failed to persist pattern record, skipping")
			failures = append(failures, perr)
			continue
		}
		persisted++
	}

	if len(failures) > 0 {
		summary := pkgerrors.NewErrorSummary(failures)
		s.logger.WithFields(logger.Fields{
			"user_id":   userID,
			"failed":    summary.Total,
			"persisted": persisted,
		}).Warn(summary.Error())
	}
	return persisted, nil
}

// ListPatterns returns the user's pattern records sorted by merchant hint.
func (s *SQLiteStore) ListPatterns(ctx context.Context, userID string) ([]*models.MerchantPatternStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT merchant_hint, txn_count,
			total_amount, avg_amount, amount_std, amount_min, amount_max,
			active_duration_days, avg_gap_days, gap_std_days, gap_min_days, gap_max_days,
			last_txn_days_ago,
			dominant_level_1_tag, level_1_confidence,
			dominant_level_2_tag, level_2_confidence,
			dominant_level_3_tag, level_3_confidence
		FROM merchant_patterns
		WHERE user_id = ?
		ORDER BY merchant_hint`, userID)
	if err != nil {
		return nil, pkgerrors.PersistenceError(pkgerrors.CodeStorageFailure, "query patterns", err)
	}
	defer rows.Close()

	var out []*models.MerchantPatternStats
	for rows.Next() {
		var p models.MerchantPatternStats
		var total, avg, std, min, max string
		var l1, l2, l3 string
		if err := rows.Scan(
			&p.MerchantHint, &p.TxnCount,
			&total, &avg, &std, &min, &max,
			&p.ActiveDurationDays, &p.AvgGapDays, &p.GapStdDays, &p.GapMinDays, &p.GapMaxDays,
			&p.LastTxnDaysAgo,
			&l1, &p.Level1Confidence,
			&l2, &p.Level2Confidence,
			&l3, &p.Level3Confidence,
		); err != nil {
			return nil, pkgerrors.PersistenceError(pkgerrors.CodeStorageFailure, "scan pattern row", err)
		}

		p.TotalAmount = mustDecimal(total)
		p.AvgAmount = mustDecimal(avg)
		p.AmountStd = mustDecimal(std)
		p.AmountMin = mustDecimal(min)
		p.AmountMax = mustDecimal(max)
		p.DominantLevel1Tag = models.Level1Tag(l1)
		p.DominantLevel2Tag = models.Level2Tag(l2)
		p.DominantLevel3Tag = models.Level3Tag(l3)
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.PersistenceError(pkgerrors.CodeStorageFailure, "iterate pattern rows", err)
	}
	return out, nil
}

// CountTransactions returns the number of stored transactions for the user.
func (s *SQLiteStore) CountTransactions(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM transactions WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, pkgerrors.PersistenceError(pkgerrors.CodeStorageFailure, "count transactions", err)
	}
	return count, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// nullDecimalValue converts a nullable decimal to its SQL value: NULL when
// absent, otherwise the exact decimal string.
func nullDecimalValue(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

// mustDecimal parses a decimal string written by this store. Stored values
// were produced by decimal.String so a parse failure means corruption; it
// degrades to zero rather than failing the whole listing.
func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
