package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/reconflow/reconflow/internal/common"
	"github.com/reconflow/reconflow/internal/extract"
	"github.com/reconflow/reconflow/internal/mailbox"
	"github.com/reconflow/reconflow/internal/model"
	"github.com/reconflow/reconflow/internal/orchestrator"
)

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Manage and run the mailbox search queue",
	}

	cmd.AddCommand(searchEnqueueCmd())
	cmd.AddCommand(searchRunCmd())
	cmd.AddCommand(searchHistoryCmd())
	return cmd
}

func searchEnqueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue [transaction-id]",
		Short: "Queue a search job for one transaction or all incomplete ones",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			item := &model.SearchQueueItem{
				Scope:       model.ScopeAllIncomplete,
				TriggeredBy: model.TriggerSchedule,
			}
			if len(args) == 1 {
				if _, err := store.GetTransaction(ctx, args[0]); err != nil {
					return fmt.Errorf("transaction %s: %w", args[0], err)
				}
				item.Scope = model.ScopeSingleTransaction
				item.TransactionID = args[0]
				item.TriggeredBy = model.TriggerEvent
			}

			if err := store.CreateQueueItem(ctx, item); err != nil {
				return err
			}
			fmt.Printf("Enqueued %s (%s)\n", item.ID, item.Scope)
			return nil
		},
	}
	return cmd
}

func searchRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process pending search queue items until the queue is drained",
		Long: `Claim and process queue items one at a time. Each item gets a fresh
execution context with its own mailbox client, released when the item
finishes. Items exceeding the per-invocation time budget are
checkpointed back to pending and picked up again on the next claim.`,
		RunE: runSearchWorker,
	}

	cmd.Flags().Duration("budget", 0, "Wall-clock budget per queue item invocation (0 = default)")
	cmd.Flags().Bool("once", false, "Process at most one queue item")
	return cmd
}

func runSearchWorker(cmd *cobra.Command, _ []string) error {
	budget, _ := cmd.Flags().GetDuration("budget")
	once, _ := cmd.Flags().GetBool("once")
	ctx := cmd.Context()

	store, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	th := loadThresholds()
	mbCfg := mailboxConfig()
	extractor := extract.NewQueue(store)

	factory := func(ctx context.Context) (*orchestrator.Execution, error) {
		client, err := mailbox.NewClient(ctx, mbCfg)
		if err != nil {
			return nil, err
		}
		exec := orchestrator.NewExecution(store, client, extractor, th)
		return exec, nil
	}

	var opts []orchestrator.Option
	if budget > 0 {
		opts = append(opts, orchestrator.WithBudget(budget))
	}
	processor := orchestrator.NewProcessor(store, factory, opts...)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Processing queue"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var processed, failed int
	for {
		item, err := processor.ProcessNext(ctx)
		if errors.Is(err, common.ErrNoPendingWork) {
			break
		}
		if err != nil {
			failed++
			slog.Error("Queue item failed",
				"error", err,
				"item_id", itemID(item),
				"retry_count", itemRetries(item))
			if errors.Is(err, common.ErrReauthRequired) {
				_ = bar.Finish()
				return common.NewUserError("mailbox needs re-authentication, run 'reconflow auth'", err)
			}
			if ctx.Err() != nil {
				_ = bar.Finish()
				return ctx.Err()
			}
			if once {
				break
			}
			continue
		}

		processed++
		_ = bar.Add(1)
		slog.Info("Queue item processed",
			"item_id", item.ID,
			"status", string(item.Status),
			"transactions", item.TransactionsProcessed,
			"matches", item.MatchesFound)
		if once {
			break
		}
	}
	_ = bar.Finish()

	fmt.Printf("Processed %d queue item(s), %d failure(s)\n", processed, failed)
	return nil
}

func searchHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <transaction-id>",
		Short: "Show the search attempt audit trail for a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			attempts, err := store.ListAttempts(ctx, args[0])
			if err != nil {
				return err
			}
			if len(attempts) == 0 {
				fmt.Println("No search attempts recorded")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tSTRATEGY\tCANDIDATES\tMATCHES\tBEST\tQUERIES\tERRORS")
			for _, a := range attempts {
				fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d\t%.0f\t%d\t%s\n",
					a.UpdatedAt.Format("2006-01-02 15:04"),
					a.Strategy,
					a.CandidatesEvaluated, a.CandidatesFound,
					a.MatchesFound,
					a.BestScore,
					a.QueriesIssued,
					strings.Join(a.Errors, "; "))
			}
			return w.Flush()
		},
	}
	return cmd
}

func itemID(item *model.SearchQueueItem) string {
	if item == nil {
		return ""
	}
	return item.ID
}

func itemRetries(item *model.SearchQueueItem) int {
	if item == nil {
		return 0
	}
	return item.RetryCount
}
