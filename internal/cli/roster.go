package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"example.com/matchwatch/internal/domain"
)

// NewRegisterCommand creates the register command.
func NewRegisterCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "register <owner-id> <gamertag>",
		Short:         "Track a gamertag for an owner",
		Example:       `  rosterctl register 184467 "Foo Bar"`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := parseOwnerID(args[0])
			if err != nil {
				return err
			}
			// Gamertags may contain spaces; accept them unquoted.
			gamertag := strings.Join(args[1:], " ")

			svc, closeFn, err := opts.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			key, err := svc.Register(cmd.Context(), ownerID, gamertag)
			if errors.Is(err, domain.ErrIdentityTaken) {
				return fmt.Errorf("Someone has already registered as %s", domain.NormalizeKey(gamertag))
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), domain.RegisterMessage(key))
			return nil
		},
	}
}

// NewToggleCommand creates the toggle command.
func NewToggleCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "toggle <owner-id>",
		Short:         "Pause or resume match notices for an owner",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := parseOwnerID(args[0])
			if err != nil {
				return err
			}

			svc, closeFn, err := opts.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			enabled, err := svc.Toggle(cmd.Context(), ownerID)
			if errors.Is(err, domain.ErrIdentityNotFound) {
				return fmt.Errorf("owner %d has not registered a gamertag", ownerID)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), domain.ToggleMessage(enabled))
			return nil
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List registered gamertags",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := opts.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			regs, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "OWNER\tGAMERTAG\tENABLED\tLATEST MATCH")
			for _, reg := range regs {
				latest := "-"
				if reg.Identity.LastSeenRecordID != nil {
					latest = *reg.Identity.LastSeenRecordID
				}
				fmt.Fprintf(w, "%d\t%s\t%t\t%s\n", reg.OwnerID, reg.Identity.Key, reg.Identity.Enabled, latest)
			}
			return w.Flush()
		},
	}
}

func parseOwnerID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NotValidf("owner id %q", raw)
	}
	return id, nil
}
