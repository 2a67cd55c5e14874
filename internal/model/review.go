package model

// ReviewRowKind tags the variant held by a ReviewRow.
type ReviewRowKind string

// Review row kinds.
const (
	ReviewRowMatch     ReviewRowKind = "match"
	ReviewRowCandidate ReviewRowKind = "candidate"
)

// MatchRow is a transaction with an applied match, shown in history.
type MatchRow struct {
	Transaction Transaction
	FileID      string
	Confidence  float64
	Origin      LinkOrigin
}

// CandidateRow is a transaction with pending suggestions awaiting a
// user decision.
type CandidateRow struct {
	Transaction Transaction
	FileIDs     []string
	BestScore   float64
}

// ReviewRow is a tagged union over matched and candidate transaction
// rows. Exactly one of Match/Candidate is set, per Kind.
type ReviewRow struct {
	Match     *MatchRow
	Candidate *CandidateRow
	Kind      ReviewRowKind
}

// NewMatchRow builds a match-variant review row.
func NewMatchRow(m MatchRow) ReviewRow {
	return ReviewRow{Kind: ReviewRowMatch, Match: &m}
}

// NewCandidateRow builds a candidate-variant review row.
func NewCandidateRow(c CandidateRow) ReviewRow {
	return ReviewRow{Kind: ReviewRowCandidate, Candidate: &c}
}
