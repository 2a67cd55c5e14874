package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/reconflow/reconflow/internal/matcher"
	"github.com/reconflow/reconflow/internal/model"
)

func connectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect extracted files to incomplete transactions",
		Long: `Score every extracted file near each incomplete transaction's date
and connect the ones that clear the auto-connect threshold. Weaker
candidates are left for the review command.`,
		RunE: runConnect,
	}

	cmd.Flags().Bool("dry-run", false, "Score without writing any connections")
	return cmd
}

func runConnect(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	ctx := cmd.Context()

	store, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	th := loadThresholds()
	scorer := matcher.NewFileScorer(th)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Scoring files"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var processed, connected, candidates int
	cursor := ""
	for {
		txns, err := store.ListIncompleteTransactions(ctx, cursor, 100)
		if err != nil {
			return err
		}
		if len(txns) == 0 {
			break
		}

		for i := range txns {
			txn := &txns[i]
			cursor = txn.ID
			processed++
			_ = bar.Add(1)

			files, err := store.ListFilesNearDate(ctx, txn.Date, th.FileDateWindowDays)
			if err != nil {
				return err
			}

			var best *model.File
			var bestScore matcher.FileScore
			suggested := 0
			for j := range files {
				file := &files[j]
				if txn.IsFileRejected(file.ID) || txn.HasFile(file.ID) {
					continue
				}
				sc := scorer.Score(file, txn)
				if scorer.IsSuggestion(sc) {
					suggested++
				}
				if sc.Total > bestScore.Total {
					best = file
					bestScore = sc
				}
			}

			if suggested > 0 {
				candidates++
			}
			if best == nil || !scorer.ShouldAutoConnect(bestScore) {
				continue
			}

			if dryRun {
				fmt.Printf("would connect %s -> %s (%.0f)\n", best.FileName, txn.ID, bestScore.Total)
				connected++
				continue
			}

			txn.FileIDs = append(txn.FileIDs, best.ID)
			txn.Complete = true
			if err := store.UpdateTransactionResolution(ctx, txn); err != nil {
				return err
			}
			best.TransactionIDs = append(best.TransactionIDs, txn.ID)
			if err := store.SaveFile(ctx, best); err != nil {
				return err
			}
			connected++
		}
	}
	_ = bar.Finish()

	verb := "connected"
	if dryRun {
		verb = "would connect"
	}
	fmt.Printf("Scored %d transaction(s): %s %d file(s), %d with review candidates\n",
		processed, verb, connected, candidates)
	return nil
}
