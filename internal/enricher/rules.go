package enricher

import (
	"regexp"

	"spending-pattern-service/internal/models"
)

// Level1Rule pairs a payment-rail tag with the narration pattern that
// assigns it. Rules are evaluated strictly in slice order and the first
// match wins, so priority lives in the data, not in control flow.
type Level1Rule struct {
	Tag     models.Level1Tag
	Pattern *regexp.Regexp
}

// level1Rules is the fixed priority-ordered rail classification table.
// SALARY sits above everything else: a salary credit routed over NEFT must
// never degrade into a generic bank-rail transfer. REVERSAL_REFUND outranks
// the rails for the same reason. The vocabulary is India-focused.
var level1Rules = []Level1Rule{
	{models.Level1Salary, regexp.MustCompile(`\b(salary|payroll|wages|ctc|employer)\b`)},
	{models.Level1InterestDividend, regexp.MustCompile(`\b(interest|dividend|fd int|rd int|tds)\b`)},
	{models.Level1ReversalRefund, regexp.MustCompile(`\b(refund|reversal|reversed|chargeback|failed|return)\b`)},
	{models.Level1InternalTransfer, regexp.MustCompile(`\b(self|own|internal|to self)\b`)},
	{models.Level1UPI, regexp.MustCompile(`\b(upi|@ybl|@ok|@axis|@hdfc|@sbi|@icici|paytm|phonepe|gpay|googlepay|amazonpay|bhim)\b`)},
	{models.Level1ACH, regexp.MustCompile(`\b(ach|nach|ecs|mandate|auto debit|si)\b`)},
	{models.Level1IMPS, regexp.MustCompile(`\b(imps|mmt|mobile transfer)\b`)},
	{models.Level1NEFT, regexp.MustCompile(`\b(neft|n-e-f-t|neft cr|neft dr)\b`)},
	{models.Level1RTGS, regexp.MustCompile(`\b(rtgs|r-t-g-s)\b`)},
	{models.Level1Card, regexp.MustCompile(`\b(pos|card|debit card|credit card|visa|mastercard|rupay|amex|ecom|online)\b`)},
	{models.Level1Cash, regexp.MustCompile(`\b(cash|atm|atm wdl|cash wdl|cash dep|withdrawal)\b`)},
}

// incomeRails are the level-1 tags that, on a clean credit, classify as
// INCOME. CREDIT over other rails (e.g. CARD) stays UNKNOWN on purpose;
// guessing a more complete mapping would trade correctness for coverage.
var incomeRails = map[models.Level1Tag]bool{
	models.Level1Salary:           true,
	models.Level1InterestDividend: true,
	models.Level1NEFT:             true,
	models.Level1RTGS:             true,
	models.Level1ACH:              true,
}

// expenseRails are the level-1 tags that, on a clean debit, classify as
// EXPENSE.
var expenseRails = map[models.Level1Tag]bool{
	models.Level1UPI:  true,
	models.Level1Card: true,
	models.Level1Cash: true,
	models.Level1IMPS: true,
	models.Level1NEFT: true,
	models.Level1RTGS: true,
	models.Level1ACH:  true,
}

// CategoryRule pairs a coarse spending category with its keyword list.
// The table is an explicit ordered slice: earlier categories win when a
// narration matches keywords from more than one.
type CategoryRule struct {
	Category models.Level3Tag
	Keywords []string
}

// level3Categories is the fixed spending-category keyword table, applied
// only to EXPENSE rows.
var level3Categories = []CategoryRule{
	{"OTT", []string{"netflix", "hotstar", "zee5", "sony liv", "spotify", "apple music", "prime video"}},
	{"FOOD", []string{"swiggy", "zomato", "uber eats", "dominos", "pizza hut", "kfc", "mcdonald", "restaurant", "cafe", "burger king", "food delivery"}},
	{"FUEL", []string{"petrol", "diesel", "fuel", "hpcl", "bpcl", "indian oil", "shell"}},
	{"TRANSPORT", []string{"uber", "ola", "rapido", "metro", "irctc"}},
	{"RETAIL", []string{"amazon", "flipkart", "myntra", "ajio", "meesho", "big basket"}},
	{"HEALTH_FITNESS", []string{"gym", "cult", "fitness", "physio"}},
	{"UTILITIES", []string{"electricity", "water bill", "gas bill", "broadband", "wifi"}},
}

// merchantNoisePatterns are substrings that disqualify a narration token
// from being a merchant identity: bank names, rail identifiers, wallet
// brands and collection boilerplate.
var merchantNoisePatterns = []string{
	"upi", "imps", "neft", "rtgs", "hdfc", "sbi", "icici", "axis", "yesb",
	"bank", "sbipmopad", "yesb0yblupi", "paytm", "phonepe", "gpay",
	"googlepay", "vyapar", "merchant", "collect",
}

// longDigitRun flags tokens that are account/reference numbers rather than
// names.
var longDigitRun = regexp.MustCompile(`\d{4,}`)

// alphaChar counts the name-like content of a candidate token.
var alphaChar = regexp.MustCompile(`[a-z]`)

// whitespaceRun collapses repeated whitespace during narration
// normalization.
var whitespaceRun = regexp.MustCompile(`\s+`)

// Level3Categories exposes the ordered category names, e.g. for reporting.
func Level3Categories() []models.Level3Tag {
	out := make([]models.Level3Tag, len(level3Categories))
	for i, rule := range level3Categories {
		out[i] = rule.Category
	}
	return out
}
