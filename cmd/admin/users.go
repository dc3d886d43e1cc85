package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newUsersCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts",
	}

	var revoke bool
	promote := &cobra.Command{
		Use:   "promote EMAIL",
		Short: "Grant (or with --revoke, remove) admin access",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withStore(cmd, func(ctx context.Context, s *store) error {
				user, err := s.users.GetByEmail(ctx, args[0])
				if err != nil {
					return fmt.Errorf("looking up %s: %w", args[0], err)
				}
				if err := s.users.SetAdmin(ctx, user.ID, !revoke); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is_admin=%t\n", user.Email, !revoke)
				return nil
			})
		},
	}
	promote.Flags().BoolVar(&revoke, "revoke", false, "Remove admin access instead")

	cmd.AddCommand(promote)
	return cmd
}
