package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reconflow/reconflow/internal/model"
	"github.com/reconflow/reconflow/internal/ofx"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import bank transactions from OFX or QFX files. Re-importing the
same file is safe: rows are deduplicated by a content hash over date,
amount, currency, counterparty and account.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	ctx := cmd.Context()

	var files []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
			continue
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to import")
	}

	parser := ofx.NewParser()
	var all []model.Transaction
	seen := make(map[string]bool)

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			slog.Error("Failed to open file", "file", path, "error", err)
			continue
		}

		txns, err := parser.ParseFile(ctx, f)
		_ = f.Close()
		if err != nil {
			slog.Error("Failed to parse file", "file", filepath.Base(path), "error", err)
			continue
		}

		for _, txn := range txns {
			if seen[txn.Hash] {
				continue
			}
			seen[txn.Hash] = true
			all = append(all, txn)
		}
		slog.Info("Parsed file", "file", filepath.Base(path), "transactions", len(txns))
	}

	if len(all) == 0 {
		return fmt.Errorf("no transactions found in %d file(s)", len(files))
	}

	if dryRun {
		fmt.Printf("Would import %d transaction(s) from %d file(s)\n", len(all), len(files))
		return nil
	}

	store, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveTransactions(ctx, all); err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	fmt.Printf("Imported %d transaction(s) from %d file(s)\n", len(all), len(files))
	return nil
}
