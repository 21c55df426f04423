package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"example.com/matchwatch/internal/auth"
	"example.com/matchwatch/internal/config"
)

// NewTokenCommand creates the token command, which mints bearer tokens for the roster API.
func NewTokenCommand(cfg config.Config) *cobra.Command {
	var (
		subject string
		scopes  []string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:           "token",
		Short:         "Issue a bearer token for the roster API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := auth.Issue(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, subject, scopes, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "rosterctl", "token subject")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{auth.ScopeRosterRead, auth.ScopeRosterWrite}, "granted scopes")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
