package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/reconflow/reconflow/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage no-receipt categories",
	}

	cmd.AddCommand(categoriesListCmd())
	cmd.AddCommand(categoriesAddCmd())
	return cmd
}

func categoriesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List no-receipt categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categories, err := store.ListCategories(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPARTNERS\tPATTERNS\tUSED")
			for _, c := range categories {
				name := c.Name
				if c.ReceiptLost {
					name += " (manual only)"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n",
					c.ID, name, len(c.MatchedPartnerIDs), len(c.LearnedPatterns), c.TransactionCount)
			}
			return w.Flush()
		},
	}
}

func categoriesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a no-receipt category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			partnerIDs, _ := cmd.Flags().GetStringSlice("partner")
			patterns, _ := cmd.Flags().GetStringSlice("pattern")
			ctx := cmd.Context()

			store, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			category := &model.Category{
				ID:                uuid.New().String(),
				Name:              args[0],
				MatchedPartnerIDs: partnerIDs,
			}
			for _, p := range patterns {
				category.LearnedPatterns = append(category.LearnedPatterns, model.LearnedPattern{
					Glob:       strings.TrimSpace(p),
					Confidence: 80,
				})
			}

			if err := store.SaveCategory(ctx, category); err != nil {
				return err
			}
			fmt.Printf("Added category %s (%s)\n", category.Name, category.ID)
			return nil
		},
	}

	cmd.Flags().StringSlice("partner", nil, "Associated partner ID (repeatable)")
	cmd.Flags().StringSlice("pattern", nil, "Glob pattern, e.g. '*bank fee*' (repeatable)")
	return cmd
}
