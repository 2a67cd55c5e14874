package matcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reconflow/reconflow/internal/model"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestFileScorer_AutoConnectOnStrongEvidence(t *testing.T) {
	s := NewFileScorer(DefaultThresholds())

	file := &model.File{
		Extracted:   true,
		AmountCents: 129900,
		Currency:    "EUR",
		Date:        day("2024-03-10"),
		PartnerID:   "p1",
	}
	txn := &model.Transaction{
		AmountCents:            129900,
		Currency:               "EUR",
		Date:                   day("2024-03-10"),
		PartnerID:              "p1",
		PartnerMatchConfidence: 95,
	}

	sc := s.Score(file, txn)
	// Exact amount, same day and a strong partner overlap must cross
	// the auto-connect threshold.
	assert.GreaterOrEqual(t, sc.Total, 85.0)
	assert.True(t, s.ShouldAutoConnect(sc))
}

func TestFileScorer_AmountBands(t *testing.T) {
	s := NewFileScorer(DefaultThresholds())
	base := day("2024-03-10")

	tests := []struct {
		name       string
		fileAmount int64
		txnAmount  int64
		fileCurr   string
		txnCurr    string
		want       float64
	}{
		{name: "exact", fileAmount: 10000, txnAmount: 10000, want: 40},
		{name: "within 1 percent", fileAmount: 10000, txnAmount: 10099, want: 38},
		{name: "within 5 percent", fileAmount: 10000, txnAmount: 10400, want: 30},
		{name: "within 10 percent", fileAmount: 10000, txnAmount: 10900, want: 20},
		{name: "beyond tolerance", fileAmount: 10000, txnAmount: 12000, want: 0},
		{name: "currency mismatch halves", fileAmount: 10000, txnAmount: 10000, fileCurr: "USD", txnCurr: "EUR", want: 20},
		{name: "sign-insensitive", fileAmount: 10000, txnAmount: -10000, want: 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := &model.File{Extracted: true, AmountCents: tt.fileAmount, Currency: tt.fileCurr, Date: base}
			txn := &model.Transaction{AmountCents: tt.txnAmount, Currency: tt.txnCurr, Date: base.AddDate(0, 0, 60)}
			sc := s.Score(file, txn)
			assert.Equal(t, tt.want, sc.Amount)
		})
	}
}

func TestFileScorer_DateBands(t *testing.T) {
	s := NewFileScorer(DefaultThresholds())

	tests := []struct {
		daysOff int
		want    float64
	}{
		{daysOff: 0, want: 25},
		{daysOff: 3, want: 22},
		{daysOff: 7, want: 15},
		{daysOff: 14, want: 8},
		{daysOff: 30, want: 3},
		{daysOff: 31, want: 0},
	}

	for _, tt := range tests {
		file := &model.File{Extracted: true, Date: day("2024-03-10")}
		txn := &model.Transaction{Date: day("2024-03-10").AddDate(0, 0, tt.daysOff)}
		sc := s.Score(file, txn)
		assert.Equal(t, tt.want, sc.Date, "%d days off", tt.daysOff)
	}
}

func TestFileScorer_PartnerDateInteraction(t *testing.T) {
	s := NewFileScorer(DefaultThresholds())

	file := &model.File{
		Extracted: true,
		Date:      day("2024-03-10"),
		PartnerID: "p1",
	}

	// Strong partner and close date: the date score gets a recurring
	// invoice boost.
	txn := &model.Transaction{
		Date:                   day("2024-03-11"),
		PartnerID:              "p1",
		PartnerMatchConfidence: 95,
	}
	sc := s.Score(file, txn)
	assert.Equal(t, 25.0, sc.Partner)
	assert.Equal(t, 22*1.5, sc.Date)

	// Partner matches but the date is a month off: probably the wrong
	// month's invoice, so the partner score is discounted.
	txn = &model.Transaction{
		Date:                   day("2024-04-05"),
		PartnerID:              "p1",
		PartnerMatchConfidence: 95,
	}
	sc = s.Score(file, txn)
	assert.Equal(t, 25*0.6, sc.Partner)
}

func TestFileScorer_ReferenceBonusBypassesDateTolerance(t *testing.T) {
	s := NewFileScorer(DefaultThresholds())

	// Amount matches, the extracted date is 15 days off (worth only 3
	// points) but the invoice number appears in the extracted text.
	file := &model.File{
		Extracted:   true,
		AmountCents: 499900,
		Date:        day("2024-03-25"),
		Text:        "Rechnung RE-2024.014 Betrag 4.999,00 EUR",
	}
	txn := &model.Transaction{
		AmountCents: 499900,
		Date:        day("2024-03-10"),
		Reference:   "RE-2024.014",
	}

	sc := s.Score(file, txn)
	assert.Equal(t, 5.0, sc.Reference)
	assert.Equal(t, 3.0+10.0, sc.Date)
	assert.GreaterOrEqual(t, sc.Total, 50.0,
		"reference evidence must carry the pair over the suggestion floor")
	assert.True(t, s.IsSuggestion(sc))
	assert.False(t, s.ShouldAutoConnect(sc))
}

func TestFileScorer_ShortReferencesIgnored(t *testing.T) {
	s := NewFileScorer(DefaultThresholds())

	file := &model.File{Extracted: true, Date: day("2024-03-10"), Text: "nr 12 details"}
	txn := &model.Transaction{Date: day("2024-03-10"), Reference: "12"}

	sc := s.Score(file, txn)
	assert.Zero(t, sc.Reference)
}

func TestFileScorer_IBANComponent(t *testing.T) {
	s := NewFileScorer(DefaultThresholds())

	file := &model.File{
		Extracted: true,
		Date:      day("2024-03-10"),
		IBAN:      "DE89 3704 0044 0532 0130 00",
	}
	txn := &model.Transaction{
		Date:             day("2024-03-10"),
		CounterpartyIBAN: "de89370400440532013000",
	}

	sc := s.Score(file, txn)
	assert.Equal(t, 10.0, sc.IBAN)
}

func TestFileScorer_UnextractedFileScoresZero(t *testing.T) {
	s := NewFileScorer(DefaultThresholds())

	file := &model.File{AmountCents: 10000, Date: day("2024-03-10")}
	txn := &model.Transaction{AmountCents: 10000, Date: day("2024-03-10")}

	assert.Zero(t, s.Score(file, txn).Total)
}

func TestFileScorer_WithinWindow(t *testing.T) {
	s := NewFileScorer(DefaultThresholds())

	file := &model.File{Date: day("2024-03-10")}
	assert.True(t, s.WithinWindow(file, &model.Transaction{Date: day("2024-04-08")}))
	assert.False(t, s.WithinWindow(file, &model.Transaction{Date: day("2024-04-15")}))
	assert.False(t, s.WithinWindow(&model.File{}, &model.Transaction{Date: day("2024-03-10")}))
}
