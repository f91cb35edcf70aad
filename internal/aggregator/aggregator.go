// Package aggregator folds enriched expense transactions into per-merchant
// pattern statistics: amount distribution, cadence between visits, recency
// and dominant classification tags. Only facts are computed here; judging
// whether a pattern is a problem is someone else's job.
package aggregator

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"spending-pattern-service/internal/models"
	pkgerrors "spending-pattern-service/pkg/errors"
	"spending-pattern-service/pkg/logger"
)

// minPatternTxns is the smallest group that yields a pattern. A single
// purchase is an event, not a habit.
const minPatternTxns = 2

// Aggregator computes MerchantPatternStats from enriched transactions.
// The reference instant for recency is passed in per call so results are
// reproducible.
type Aggregator struct {
	logger logger.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(log logger.Logger) *Aggregator {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Aggregator{logger: log.WithComponent("aggregator")}
}

// Aggregate groups expense transactions by merchant hint and computes one
// pattern record per merchant with at least two transactions. The output
// is sorted by merchant hint. Non-expense transactions never contribute.
func (a *Aggregator) Aggregate(txns []*models.EnrichedTransaction, now time.Time) []*models.MerchantPatternStats {
	groups := make(map[string][]*models.EnrichedTransaction)
	order := make([]string, 0)
	expenses := 0
	for _, txn := range txns {
		if txn.Level2Tag != models.Level2Expense {
			continue
		}
		expenses++
		if _, seen := groups[txn.MerchantHint]; !seen {
			order = append(order, txn.MerchantHint)
		}
		groups[txn.MerchantHint] = append(groups[txn.MerchantHint], txn)
	}

	patterns := make([]*models.MerchantPatternStats, 0, len(groups))
	for _, merchant := range order {
		group := groups[merchant]
		if len(group) < minPatternTxns {
			continue
		}
		patterns = append(patterns, a.buildPattern(merchant, group, now))
	}

	sort.Slice(patterns, func(i, j int) bool {
		return patterns[i].MerchantHint < patterns[j].MerchantHint
	})

	a.logger.WithFields(logger.Fields{
		"transactions": len(txns),
		"expenses":     expenses,
		"merchants":    len(groups),
		"patterns":     len(patterns),
	}).Info("Aggregation complete")

	return patterns
}

// buildPattern computes the full statistics record for one merchant group.
// The group is sorted by date ascending before any cadence math.
func (a *Aggregator) buildPattern(merchant string, group []*models.EnrichedTransaction, now time.Time) *models.MerchantPatternStats {
	sorted := make([]*models.EnrichedTransaction, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	stats := &models.MerchantPatternStats{
		MerchantHint: merchant,
		TxnCount:     len(sorted),
	}

	a.fillAmountStats(stats, sorted)
	fillCadenceStats(stats, sorted, now)
	fillDominantTags(stats, sorted)
	return stats
}

// fillAmountStats computes total, mean, population standard deviation and
// range of the per-transaction amounts, all rounded to two decimals.
func (a *Aggregator) fillAmountStats(stats *models.MerchantPatternStats, group []*models.EnrichedTransaction) {
	amounts := make([]decimal.Decimal, 0, len(group))
	total := decimal.Zero
	for _, txn := range group {
		amount, ok := txn.EffectiveAmount()
		if !ok {
			perr := pkgerrors.AggregationError("amount extraction", nil)
			a.logger.WithError(perr).WithField("narration", txn.Narration).Warn("Expense without usable amount, counted as zero")
			amount = decimal.Zero
		}
		amounts = append(amounts, amount)
		total = total.Add(amount)
	}

	n := decimal.NewFromInt(int64(len(amounts)))
	mean := total.Div(n)

	min, max := amounts[0], amounts[0]
	for _, amount := range amounts[1:] {
		if amount.LessThan(min) {
			min = amount
		}
		if amount.GreaterThan(max) {
			max = amount
		}
	}

	values := make([]float64, len(amounts))
	for i, amount := range amounts {
		values[i] = amount.InexactFloat64()
	}

	stats.TotalAmount = total.Round(2)
	stats.AvgAmount = mean.Round(2)
	stats.AmountStd = decimal.NewFromFloat(populationStd(values)).Round(2)
	stats.AmountMin = min.Round(2)
	stats.AmountMax = max.Round(2)
}

// fillCadenceStats computes the day gaps between consecutive transactions.
// Zero gaps (same-day repeats) are excluded so cadence reflects distinct
// visit days. Groups with no positive gap report zeroed cadence fields.
func fillCadenceStats(stats *models.MerchantPatternStats, sorted []*models.EnrichedTransaction, now time.Time) {
	first := sorted[0].Date
	last := sorted[len(sorted)-1].Date

	stats.ActiveDurationDays = models.DaysBetween(first, last)
	stats.LastTxnDaysAgo = models.DaysBetween(last, now)

	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gap := models.DaysBetween(sorted[i-1].Date, sorted[i].Date)
		if gap > 0 {
			gaps = append(gaps, float64(gap))
		}
	}
	if len(gaps) == 0 {
		return
	}

	sum := 0.0
	minGap, maxGap := gaps[0], gaps[0]
	for _, gap := range gaps {
		sum += gap
		if gap < minGap {
			minGap = gap
		}
		if gap > maxGap {
			maxGap = gap
		}
	}

	stats.AvgGapDays = round2(sum / float64(len(gaps)))
	stats.GapStdDays = round2(populationStd(gaps))
	stats.GapMinDays = int(minGap)
	stats.GapMaxDays = int(maxGap)
}

// fillDominantTags finds the most frequent tag at each classification
// level and its share of the group. Ties resolve to the tag encountered
// first in date order.
func fillDominantTags(stats *models.MerchantPatternStats, sorted []*models.EnrichedTransaction) {
	n := float64(len(sorted))

	l1 := make([]string, len(sorted))
	l2 := make([]string, len(sorted))
	l3 := make([]string, len(sorted))
	for i, txn := range sorted {
		l1[i] = txn.Level1Tag.String()
		l2[i] = txn.Level2Tag.String()
		l3[i] = txn.Level3Tag.String()
	}

	tag, count := dominant(l1)
	stats.DominantLevel1Tag = models.Level1Tag(tag)
	stats.Level1Confidence = round4(float64(count) / n)

	tag, count = dominant(l2)
	stats.DominantLevel2Tag = models.Level2Tag(tag)
	stats.Level2Confidence = round4(float64(count) / n)

	tag, count = dominant(l3)
	stats.DominantLevel3Tag = models.Level3Tag(tag)
	stats.Level3Confidence = round4(float64(count) / n)
}

// dominant returns the most frequent value and its count, preferring the
// value seen earliest on ties.
func dominant(values []string) (string, int) {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}

	best := ""
	bestCount := 0
	for _, v := range values {
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best, bestCount
}

// populationStd computes the population standard deviation (divide by N).
// The sample size here is the whole population of observed transactions,
// not a sample from it.
func populationStd(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
