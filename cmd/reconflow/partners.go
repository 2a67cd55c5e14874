package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/reconflow/reconflow/internal/model"
)

func partnersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partners",
		Short: "Manage counterparty partners",
	}

	cmd.AddCommand(partnersListCmd())
	cmd.AddCommand(partnersAddCmd())
	cmd.AddCommand(partnersDeleteCmd())
	cmd.AddCommand(partnersPromoteCandidatesCmd())
	return cmd
}

func partnersListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List partners",
		RunE: func(cmd *cobra.Command, _ []string) error {
			global, _ := cmd.Flags().GetBool("global")
			ctx := cmd.Context()

			store, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			partnerType := model.PartnerTypeUser
			if global {
				partnerType = model.PartnerTypeGlobal
			}
			partners, err := store.ListPartners(ctx, partnerType)
			if err != nil {
				return err
			}
			if len(partners) == 0 {
				fmt.Println("No partners")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tALIASES\tIBANS\tDOMAINS")
			for _, p := range partners {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					p.ID, p.Name,
					strings.Join(p.Aliases, ", "),
					len(p.IBANs),
					strings.Join(p.EmailDomains, ", "))
			}
			return w.Flush()
		},
	}

	cmd.Flags().Bool("global", false, "List global partners instead of user partners")
	return cmd
}

func partnersAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a user partner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			aliases, _ := cmd.Flags().GetStringSlice("alias")
			ibans, _ := cmd.Flags().GetStringSlice("iban")
			domains, _ := cmd.Flags().GetStringSlice("domain")
			vatID, _ := cmd.Flags().GetString("vat-id")
			website, _ := cmd.Flags().GetString("website")
			ctx := cmd.Context()

			store, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			partner := &model.Partner{
				ID:           uuid.New().String(),
				Type:         model.PartnerTypeUser,
				Name:         args[0],
				VATID:        vatID,
				Website:      website,
				Aliases:      aliases,
				IBANs:        ibans,
				EmailDomains: domains,
			}
			if err := store.SavePartner(ctx, partner); err != nil {
				return err
			}
			fmt.Printf("Added partner %s (%s)\n", partner.Name, partner.ID)
			return nil
		},
	}

	cmd.Flags().StringSlice("alias", nil, "Alias, may contain * wildcards (repeatable)")
	cmd.Flags().StringSlice("iban", nil, "Known IBAN (repeatable)")
	cmd.Flags().StringSlice("domain", nil, "Email domain for mailbox search (repeatable)")
	cmd.Flags().String("vat-id", "", "VAT identifier")
	cmd.Flags().String("website", "", "Website URL")
	return cmd
}

func partnersDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a partner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hard, _ := cmd.Flags().GetBool("hard")
			ctx := cmd.Context()

			store, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeletePartner(ctx, args[0], hard); err != nil {
				return err
			}
			fmt.Printf("Deleted partner %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().Bool("hard", false, "Remove the row entirely instead of soft-deleting")
	return cmd
}

// partnersPromoteCandidatesCmd lists user partners that look stable
// enough to promote into the shared global set: several learned
// patterns and at least one hard identifier.
func partnersPromoteCandidatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promote-candidates",
		Short: "List user partners eligible for promotion to global",
		RunE: func(cmd *cobra.Command, _ []string) error {
			minPatterns, _ := cmd.Flags().GetInt("min-patterns")
			ctx := cmd.Context()

			store, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			partners, err := store.ListPartners(ctx, model.PartnerTypeUser)
			if err != nil {
				return err
			}

			var candidates []model.Partner
			for _, p := range partners {
				if len(p.LearnedPatterns) < minPatterns {
					continue
				}
				if len(p.IBANs) == 0 && p.VATID == "" {
					continue
				}
				candidates = append(candidates, p)
			}
			if len(candidates) == 0 {
				fmt.Println("No promotion candidates")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPATTERNS\tIBANS\tVAT")
			for _, p := range candidates {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					p.ID, p.Name, len(p.LearnedPatterns), len(p.IBANs), p.VATID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int("min-patterns", 2, "Minimum learned patterns required")
	return cmd
}
