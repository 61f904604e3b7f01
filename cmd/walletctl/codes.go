package main

import (
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mrwiat/internal/vouchergen"
)

func newGenCodesCmd() *cobra.Command {
	var (
		rawTiers []string
		length   int
		asCSV    bool
	)
	cmd := &cobra.Command{
		Use:   "gen-codes",
		Short: "Generate single-use voucher codes",
		Long: `Generate random A-Z0-9 voucher codes and insert them. Codes that collide
with existing ones are regenerated until every tier has its count.`,
		Example: `  walletctl gen-codes
  walletctl gen-codes --tier 50=10 --tier 100=10 --tier 500=5 --length 12 --csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tiers := vouchergen.DefaultTiers
			if len(rawTiers) > 0 {
				tiers = make([]vouchergen.Tier, 0, len(rawTiers))
				for _, raw := range rawTiers {
					tier, err := vouchergen.ParseTier(raw)
					if err != nil {
						return err
					}
					tiers = append(tiers, tier)
				}
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			created, err := vouchergen.New(s.backend.Vouchers(), length, &s.logger).Generate(cmd.Context(), tiers)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asCSV {
				w := csv.NewWriter(out)
				_ = w.Write([]string{"code", "points"})
				for _, v := range created {
					_ = w.Write([]string{v.Code, strconv.FormatInt(v.Points, 10)})
				}
				w.Flush()
				return w.Error()
			}
			for _, v := range created {
				fmt.Fprintf(out, "%s  (%d points)\n", v.Code, v.Points)
			}
			fmt.Fprintf(out, "generated %d codes\n", len(created))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&rawTiers, "tier", nil, "points=count, repeatable (default 50=10, 100=10, 500=5)")
	cmd.Flags().IntVar(&length, "length", vouchergen.DefaultLength, "code length")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "print code,points CSV")
	return cmd
}
