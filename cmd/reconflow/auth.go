package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reconflow/reconflow/internal/common"
	"github.com/reconflow/reconflow/internal/mailbox"
)

func authCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate the mailbox integration",
		Long: `Run the interactive OAuth flow for the configured mailbox account and
persist the token. Required once before 'search run' and again whenever
a job fails with a re-authentication error.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := mailboxConfig()
			if cfg.CredentialsPath == "" {
				return fmt.Errorf("%w: mailbox.credentials", common.ErrMissingConfig)
			}
			return mailbox.Authenticate(cmd.Context(), cfg.CredentialsPath, cfg.TokenPath)
		},
	}
}
