package main

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/reconflow/reconflow/internal/matcher"
	"github.com/reconflow/reconflow/internal/model"
	"github.com/reconflow/reconflow/internal/service"
)

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Resolve partners and categories for incomplete transactions",
		Long: `Run the partner matcher and no-receipt category classifier over all
incomplete transactions. Matches above the auto-apply threshold are
applied; weaker matches are stored as ranked suggestions for review.`,
		RunE: runMatch,
	}

	cmd.Flags().Int("limit", 0, "Maximum transactions to process (0 = all)")
	return cmd
}

func runMatch(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	ctx := cmd.Context()

	store, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	th := loadThresholds()
	partnerMatcher := matcher.NewPartnerMatcher(th)
	classifier := matcher.NewCategoryClassifier(th)

	userPartners, err := store.ListPartners(ctx, model.PartnerTypeUser)
	if err != nil {
		return err
	}
	globalPartners, err := store.ListPartners(ctx, model.PartnerTypeGlobal)
	if err != nil {
		return err
	}
	categories, err := store.ListCategories(ctx)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Matching transactions"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var processed, partnersApplied, categoriesApplied int
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

			partnerChanged := applyPartnerMatches(partnerMatcher, txn, userPartners, globalPartners)
			if partnerChanged {
				partnersApplied++
			}

			categoryChanged, err := applyCategorySuggestions(ctx, store, classifier, txn, categories)
			if err != nil {
				return err
			}
			if categoryChanged {
				categoriesApplied++
			}

			if err := store.UpdateTransactionResolution(ctx, txn); err != nil {
				return err
			}

			processed++
			_ = bar.Add(1)
			if limit > 0 && processed >= limit {
				break
			}
		}

		if limit > 0 && processed >= limit {
			break
		}
	}
	_ = bar.Finish()

	fmt.Printf("Processed %d transaction(s): %d partner(s) applied, %d category(s) applied\n",
		processed, partnersApplied, categoriesApplied)
	return nil
}

// applyPartnerMatches runs the partner matcher for one transaction and
// applies or suggests per the auto-apply policy. Manual links are
// never overwritten.
func applyPartnerMatches(m *matcher.PartnerMatcher, txn *model.Transaction, userPartners, globalPartners []model.Partner) bool {
	matches := m.Match(*txn, userPartners, globalPartners)
	if len(matches) == 0 {
		return false
	}

	txn.PartnerSuggestions = matches

	best := matches[0]
	if !m.ShouldAutoApply(best) || !txn.CanSetPartner(model.OriginAuto) {
		return false
	}
	if txn.PartnerID == best.PartnerID {
		return false
	}

	txn.PartnerID = best.PartnerID
	txn.PartnerType = best.Type
	txn.PartnerLinkOrigin = model.OriginAuto
	txn.PartnerMatchConfidence = best.Confidence
	return true
}

// applyCategorySuggestions classifies the transaction into no-receipt
// categories. Only transactions without a connected file are eligible
// for an applied category.
func applyCategorySuggestions(ctx context.Context, store service.Store, c *matcher.CategoryClassifier, txn *model.Transaction, categories []model.Category) (bool, error) {
	var partner *model.Partner
	hasFileHistory := false
	if txn.PartnerID != "" {
		p, err := store.GetPartner(ctx, txn.PartnerID)
		if err != nil {
			return false, err
		}
		partner = p
		hasFileHistory, err = store.PartnerHasFileHistory(ctx, txn.PartnerID)
		if err != nil {
			return false, err
		}
	}

	suggestions := c.Classify(txn, partner, categories, hasFileHistory)
	if len(suggestions) == 0 {
		return false, nil
	}

	txn.CategorySuggestions = suggestions

	best := suggestions[0]
	if len(txn.FileIDs) > 0 || !c.ShouldAutoApply(best) || !txn.CanSetCategory(model.OriginAuto) {
		return false, nil
	}
	if txn.NoReceiptCategoryID == best.CategoryID {
		return false, nil
	}

	txn.NoReceiptCategoryID = best.CategoryID
	txn.CategoryLinkOrigin = model.OriginAuto
	txn.Complete = true
	if err := store.IncrementCategoryUsage(ctx, best.CategoryID); err != nil {
		return false, err
	}
	return true, nil
}
