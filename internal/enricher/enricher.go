// Package enricher derives classification facts from raw statement rows.
// Every derivation is a pure function of the row itself plus the fixed
// rule tables in rules.go, so the same input always yields the same
// enrichment. Anything the rules cannot decide degrades to UNKNOWN
// rather than guessing.
package enricher

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"spending-pattern-service/internal/models"
	"spending-pattern-service/pkg/logger"
)

// Enricher applies the deterministic classification passes to statement
// rows.
type Enricher struct {
	logger logger.Logger
}

// NewEnricher creates an enricher.
func NewEnricher(log logger.Logger) *Enricher {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Enricher{logger: log.WithComponent("enricher")}
}

// Enrich classifies every row and stamps the batch identifier on the
// results. Rows are never dropped here; unclassifiable rows carry UNKNOWN
// tags.
func (e *Enricher) Enrich(rows []*models.StatementRow, batchID string) []*models.EnrichedTransaction {
	out := make([]*models.EnrichedTransaction, 0, len(rows))
	unknownL1 := 0
	for _, row := range rows {
		txn := e.EnrichRow(row)
		txn.BatchID = batchID
		if txn.Level1Tag == models.Level1Unknown {
			unknownL1++
		}
		out = append(out, txn)
	}

	e.logger.WithFields(logger.Fields{
		"batch_id":        batchID,
		"rows":            len(rows),
		"unknown_level_1": unknownL1,
	}).Info("Enrichment complete")

	return out
}

// EnrichRow runs the classification passes over a single row: money flow,
// payment rail, transaction nature, spending category and merchant hint.
func (e *Enricher) EnrichRow(row *models.StatementRow) *models.EnrichedTransaction {
	narration := normalizeNarration(row.Narration)

	txn := &models.EnrichedTransaction{
		StatementRow: *row,
		MoneyFlow:    ClassifyMoneyFlow(row),
		Level1Tag:    ClassifyLevel1(narration),
	}
	txn.Level2Tag = ClassifyLevel2(row, txn.Level1Tag)
	txn.Level3Tag = ClassifyLevel3(narration, txn.Level2Tag)
	txn.MerchantHint = ExtractMerchantHint(narration)
	return txn
}

// ClassifyMoneyFlow decides direction from the amount columns alone. A
// positive withdrawal wins over any deposit value; rows with neither a
// positive withdrawal nor a positive deposit are UNKNOWN.
func ClassifyMoneyFlow(row *models.StatementRow) models.MoneyFlow {
	if positiveAmount(row.Withdrawal) {
		return models.FlowOutflow
	}
	if positiveAmount(row.Deposit) {
		return models.FlowInflow
	}
	return models.FlowUnknown
}

// ClassifyLevel1 matches the normalized narration against the ordered
// rail table. First match wins.
func ClassifyLevel1(narration string) models.Level1Tag {
	for _, rule := range level1Rules {
		if rule.Pattern.MatchString(narration) {
			return rule.Tag
		}
	}
	return models.Level1Unknown
}

// ClassifyLevel2 derives the transaction nature from the level-1 tag and
// the shape of the amount columns. Refunds and self transfers classify on
// the tag alone. INCOME requires a clean credit (deposit present and
// positive, withdrawal absent) over an income rail; EXPENSE requires the
// mirror-image clean debit over an expense rail. Everything else,
// including rows where both amount columns are populated, stays UNKNOWN.
func ClassifyLevel2(row *models.StatementRow, level1 models.Level1Tag) models.Level2Tag {
	switch level1 {
	case models.Level1ReversalRefund:
		return models.Level2Adjustment
	case models.Level1InternalTransfer:
		return models.Level2Transfer
	}

	cleanCredit := positiveAmount(row.Deposit) && !row.Withdrawal.Valid
	cleanDebit := positiveAmount(row.Withdrawal) && !row.Deposit.Valid

	if cleanCredit && incomeRails[level1] {
		return models.Level2Income
	}
	if cleanDebit && expenseRails[level1] {
		return models.Level2Expense
	}
	return models.Level2Unknown
}

// ClassifyLevel3 assigns a spending category by substring match against
// the ordered keyword table. Only EXPENSE rows are categorized; income,
// transfers and adjustments are not spending.
func ClassifyLevel3(narration string, level2 models.Level2Tag) models.Level3Tag {
	if level2 != models.Level2Expense {
		return models.Level3Unknown
	}
	for _, rule := range level3Categories {
		for _, keyword := range rule.Keywords {
			if strings.Contains(narration, keyword) {
				return rule.Category
			}
		}
	}
	return models.Level3Unknown
}

// ExtractMerchantHint pulls the most name-like token out of a normalized
// narration. Narrations are split on "-" (the common bank field
// separator), noise and reference-number tokens are discarded, and the
// survivors are ranked by how much they look like a human-readable name:
// multi-word first, then alphabetic character count, then raw length. The
// sort is stable so equal candidates keep narration order.
func ExtractMerchantHint(narration string) string {
	if narration == "" {
		return models.MerchantUnknown
	}

	tokens := strings.Split(narration, "-")
	candidates := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if len(token) < 3 {
			continue
		}
		if strings.Contains(token, "@") {
			continue
		}
		if longDigitRun.MatchString(token) {
			continue
		}
		if containsNoise(token) {
			continue
		}
		candidates = append(candidates, token)
	}

	if len(candidates) == 0 {
		return models.MerchantUnknown
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		aSpace := strings.Contains(a, " ")
		bSpace := strings.Contains(b, " ")
		if aSpace != bSpace {
			return aSpace
		}
		aAlpha := len(alphaChar.FindAllString(a, -1))
		bAlpha := len(alphaChar.FindAllString(b, -1))
		if aAlpha != bAlpha {
			return aAlpha > bAlpha
		}
		return len(a) > len(b)
	})

	return candidates[0]
}

func positiveAmount(d decimal.NullDecimal) bool {
	return d.Valid && d.Decimal.IsPositive()
}

func containsNoise(token string) bool {
	for _, noise := range merchantNoisePatterns {
		if strings.Contains(token, noise) {
			return true
		}
	}
	return false
}

// normalizeNarration lowercases the narration and collapses whitespace so
// the rule tables see a canonical form.
func normalizeNarration(narration string) string {
	narration = strings.ToLower(strings.TrimSpace(narration))
	return whitespaceRun.ReplaceAllString(narration, " ")
}
