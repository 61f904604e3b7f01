package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mrwiat/internal/wallet"
)

func parseAccount(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid account id %q", raw)
	}
	return id, nil
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <account>",
		Short: "Show an account balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := parseAccount(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			balance, err := wallet.NewService(s.backend.Ledger(), &s.logger).GetBalance(cmd.Context(), accountID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %d balance %d\n", accountID, balance)
			return nil
		},
	}
}

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <account> <delta>",
		Short: "Add or subtract points; the balance never drops below zero",
		Example: `  walletctl add 123456789 500
  walletctl add 123456789 -200`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := parseAccount(args[0])
			if err != nil {
				return err
			}
			delta, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid delta %q", args[1])
			}
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			adj, err := wallet.NewService(s.backend.Ledger(), &s.logger).Adjust(cmd.Context(), accountID, delta)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %d: %d -> %d\n", accountID, adj.Before, adj.After)
			return nil
		},
	}
	// Let negative deltas through as arguments.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <account> <balance>",
		Short: "Overwrite a balance (negative values clamp to zero)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := parseAccount(args[0])
			if err != nil {
				return err
			}
			balance, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid balance %q", args[1])
			}
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			adj, err := wallet.NewService(s.backend.Ledger(), &s.logger).SetBalance(cmd.Context(), accountID, balance)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %d: %d -> %d\n", accountID, adj.Before, adj.After)
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}
