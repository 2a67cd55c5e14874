package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/reconflow/reconflow/internal/matcher"
	"github.com/reconflow/reconflow/internal/model"
	"github.com/reconflow/reconflow/internal/storage"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "List applied matches and candidates awaiting a decision",
		Long: `Show recently matched transactions alongside transactions that have
scored file candidates below the auto-connect threshold. Candidates are
rescored live so the list always reflects the current extraction state.`,
		RunE: runReview,
	}

	cmd.Flags().Int("limit", 25, "Maximum rows per section")
	return cmd
}

func runReview(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	ctx := cmd.Context()

	store, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	th := loadThresholds()
	scorer := matcher.NewFileScorer(th)

	rows, err := buildReviewRows(cmd, store, scorer, th, limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("Nothing to review")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATE\tDATE\tAMOUNT\tCOUNTERPARTY\tDETAIL")
	for _, row := range rows {
		switch row.Kind {
		case model.ReviewRowMatch:
			m := row.Match
			fmt.Fprintf(w, "matched\t%s\t%s\t%s\t%s (%.0f, %s)\n",
				m.Transaction.Date.Format("2006-01-02"),
				formatCents(m.Transaction.AmountCents, m.Transaction.Currency),
				m.Transaction.Counterparty,
				m.FileID, m.Confidence, m.Origin)
		case model.ReviewRowCandidate:
			c := row.Candidate
			fmt.Fprintf(w, "candidate\t%s\t%s\t%s\t%d file(s), best %.0f\n",
				c.Transaction.Date.Format("2006-01-02"),
				formatCents(c.Transaction.AmountCents, c.Transaction.Currency),
				c.Transaction.Counterparty,
				len(c.FileIDs), c.BestScore)
		default:
			return fmt.Errorf("unknown review row kind %q", row.Kind)
		}
	}
	return w.Flush()
}

// buildReviewRows assembles match rows from completed transactions and
// candidate rows by rescoring files around each incomplete transaction.
func buildReviewRows(cmd *cobra.Command, store *storage.SQLiteStore, scorer *matcher.FileScorer, th matcher.Thresholds, limit int) ([]model.ReviewRow, error) {
	ctx := cmd.Context()

	var rows []model.ReviewRow

	matched, err := store.ListMatchedTransactions(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range matched {
		txn := matched[i]
		for _, fileID := range txn.FileIDs {
			file, err := store.GetFile(ctx, fileID)
			if err != nil {
				return nil, err
			}
			sc := scorer.Score(file, &txn)
			rows = append(rows, model.NewMatchRow(model.MatchRow{
				Transaction: txn,
				FileID:      fileID,
				Confidence:  sc.Total,
				Origin:      model.OriginAuto,
			}))
		}
	}

	candidates, err := collectCandidates(cmd, store, scorer, th, limit)
	if err != nil {
		return nil, err
	}
	rows = append(rows, candidates...)
	return rows, nil
}

func collectCandidates(cmd *cobra.Command, store *storage.SQLiteStore, scorer *matcher.FileScorer, th matcher.Thresholds, limit int) ([]model.ReviewRow, error) {
	ctx := cmd.Context()

	var rows []model.ReviewRow
	cursor := ""
	for len(rows) < limit {
		txns, err := store.ListIncompleteTransactions(ctx, cursor, 100)
		if err != nil {
			return nil, err
		}
		if len(txns) == 0 {
			break
		}

		for i := range txns {
			txn := &txns[i]
			cursor = txn.ID

			files, err := store.ListFilesNearDate(ctx, txn.Date, th.FileDateWindowDays)
			if err != nil {
				return nil, err
			}

			type scored struct {
				id    string
				total float64
			}
			var hits []scored
			for j := range files {
				file := &files[j]
				if txn.IsFileRejected(file.ID) || txn.HasFile(file.ID) {
					continue
				}
				sc := scorer.Score(file, txn)
				if scorer.IsSuggestion(sc) && !scorer.ShouldAutoConnect(sc) {
					hits = append(hits, scored{id: file.ID, total: sc.Total})
				}
			}
			if len(hits) == 0 {
				continue
			}

			sort.Slice(hits, func(a, b int) bool { return hits[a].total > hits[b].total })
			if len(hits) > th.MaxSuggestions {
				hits = hits[:th.MaxSuggestions]
			}

			ids := make([]string, len(hits))
			for j, h := range hits {
				ids[j] = h.id
			}
			rows = append(rows, model.NewCandidateRow(model.CandidateRow{
				Transaction: *txn,
				FileIDs:     ids,
				BestScore:   hits[0].total,
			}))
			if len(rows) >= limit {
				break
			}
		}
	}
	return rows, nil
}

// formatCents renders a cent amount with the currency code, e.g.
// "-25.50 EUR".
func formatCents(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	out := fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
	if currency != "" {
		out += " " + strings.ToUpper(currency)
	}
	return out
}
