package matcher

import (
	"math"
	"strings"
	"time"

	"github.com/reconflow/reconflow/internal/model"
)

// Amount component points by tolerance band.
const (
	amountExactPoints = 40
	amount1pctPoints  = 38
	amount5pctPoints  = 30
	amount10pctPoints = 20
)

// Date component points by day-difference band.
const (
	dateSameDayPoints = 25
	date3DayPoints    = 22
	date7DayPoints    = 15
	date14DayPoints   = 8
	date30DayPoints   = 3
)

const (
	partnerStrongPoints = 25
	partnerWeakPoints   = 20
	ibanPoints          = 10
	referencePoints     = 5
	// referenceDateBonus bypasses normal date tolerance: a matching
	// invoice number is trusted over date proximity.
	referenceDateBonus = 10
)

// FileScore is the component breakdown of one (file, transaction)
// evaluation. Total is the confidence callers compare to thresholds.
type FileScore struct {
	Total     float64
	Amount    float64
	Date      float64
	Partner   float64
	IBAN      float64
	Reference float64
}

// FileScorer links a receipt/invoice file to a transaction with an
// additive point score, each component independently capped.
type FileScorer struct {
	th Thresholds
}

// NewFileScorer creates a file scorer with the given thresholds.
func NewFileScorer(th Thresholds) *FileScorer {
	return &FileScorer{th: th}
}

// Score evaluates one file against one transaction. The file must have
// completed extraction; unextracted files score zero.
func (s *FileScorer) Score(file *model.File, txn *model.Transaction) FileScore {
	var sc FileScore
	if file == nil || txn == nil || !file.Extracted {
		return sc
	}

	sc.Amount = amountScore(file, txn)
	sc.Date = dateScore(file.Date, txn.Date)

	partnerMatched := file.PartnerID != "" && file.PartnerID == txn.PartnerID
	if partnerMatched {
		sc.Partner = partnerWeakPoints
		if txn.PartnerMatchConfidence >= s.th.PartnerAutoApply {
			sc.Partner = partnerStrongPoints
		}

		switch {
		case sc.Partner == partnerStrongPoints && sc.Date >= date7DayPoints:
			// Same partner and close date: likely the recurring
			// invoice for this period, reward the date signal.
			sc.Date *= 1.5
		case sc.Date < date14DayPoints:
			// Same partner but distant date: probably the wrong
			// month's invoice, not the wrong partner.
			sc.Partner *= 0.6
		}
	}

	if ibanMatches(file.IBAN, txn.CounterpartyIBAN) {
		sc.IBAN = ibanPoints
	}

	if referenceInText(txn.Reference, file.Text) {
		sc.Reference = referencePoints
		sc.Date += referenceDateBonus
	}

	sc.Total = sc.Amount + sc.Date + sc.Partner + sc.IBAN + sc.Reference
	return sc
}

// ShouldAutoConnect reports whether the score clears the auto-connect
// threshold.
func (s *FileScorer) ShouldAutoConnect(sc FileScore) bool {
	return sc.Total >= s.th.FileAutoConnect
}

// IsSuggestion reports whether the score clears the suggestion floor.
func (s *FileScorer) IsSuggestion(sc FileScore) bool {
	return sc.Total >= s.th.FileSuggestion
}

// WithinWindow is the candidate prefilter: only files whose extracted
// date falls within the configured window around the transaction date
// are scored at all.
func (s *FileScorer) WithinWindow(file *model.File, txn *model.Transaction) bool {
	if file.Date.IsZero() || txn.Date.IsZero() {
		return false
	}
	return daysBetween(file.Date, txn.Date) <= s.th.FileDateWindowDays
}

func amountScore(file *model.File, txn *model.Transaction) float64 {
	if file.AmountCents == 0 || txn.AmountCents == 0 {
		return 0
	}

	fa := math.Abs(float64(file.AmountCents))
	ta := math.Abs(float64(txn.AmountCents))
	diff := math.Abs(fa-ta) / fa

	var points float64
	switch {
	case fa == ta:
		points = amountExactPoints
	case diff <= 0.01:
		points = amount1pctPoints
	case diff <= 0.05:
		points = amount5pctPoints
	case diff <= 0.10:
		points = amount10pctPoints
	default:
		return 0
	}

	if file.Currency != "" && txn.Currency != "" &&
		!strings.EqualFold(file.Currency, txn.Currency) {
		points /= 2
	}
	return points
}

func dateScore(fileDate, txnDate time.Time) float64 {
	if fileDate.IsZero() || txnDate.IsZero() {
		return 0
	}

	switch days := daysBetween(fileDate, txnDate); {
	case days == 0:
		return dateSameDayPoints
	case days <= 3:
		return date3DayPoints
	case days <= 7:
		return date7DayPoints
	case days <= 14:
		return date14DayPoints
	case days <= 30:
		return date30DayPoints
	default:
		return 0
	}
}

func ibanMatches(a, b string) bool {
	na, nb := NormalizeIBAN(a), NormalizeIBAN(b)
	return na != "" && na == nb
}

// referenceInText checks whether the transaction's payment reference
// appears in the file's extracted text. Very short references are too
// ambiguous to count.
func referenceInText(reference, text string) bool {
	ref := strings.TrimSpace(reference)
	if len(ref) < 4 || text == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(ref))
}

func daysBetween(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}
