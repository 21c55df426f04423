// Package cli implements the rosterctl command tree.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"example.com/matchwatch/internal/config"
	"example.com/matchwatch/internal/domain"
	"example.com/matchwatch/internal/persistence"
)

// RootOptions holds flags shared by every subcommand.
type RootOptions struct {
	DSN string

	// OpenStore overrides how the roster store is opened (for testing).
	OpenStore func(ctx context.Context, dsn string) (domain.RosterAdmin, func(), error)
}

// NewRootCommand creates the rosterctl command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:   "rosterctl",
		Short: "Manage the roster of tracked gamertags",
		Long: `Manage the roster of tracked gamertags.

Each owner id tracks at most one gamertag. Registering a new gamertag for an
owner replaces the old one; toggle pauses or resumes match notices.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", cfg.RosterDSN, "roster store DSN (postgres:// or sqlite://)")

	cmd.AddCommand(
		NewRegisterCommand(opts),
		NewToggleCommand(opts),
		NewListCommand(opts),
		NewTokenCommand(cfg),
	)
	return cmd
}

func (o *RootOptions) service(ctx context.Context) (*domain.Service, func(), error) {
	open := o.OpenStore
	if open == nil {
		open = func(ctx context.Context, dsn string) (domain.RosterAdmin, func(), error) {
			return persistence.Open(ctx, dsn)
		}
	}
	store, closeFn, err := open(ctx, o.DSN)
	if err != nil {
		return nil, nil, err
	}
	return domain.NewService(store), closeFn, nil
}
