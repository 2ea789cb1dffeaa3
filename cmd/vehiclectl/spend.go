package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var spendCmd = &cobra.Command{
	Use:   "spend",
	Short: "Show provider spend from the call ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		days, _ := cmd.Flags().GetInt("days")

		service, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer service.Close(ctx)

		if service.Calls == nil {
			return eris.New("provider call ledger is disabled (POSTGRES_DSN not set)")
		}

		since := time.Now().AddDate(0, 0, -days)
		total, err := service.Calls.TotalCostSince(ctx, since)
		if err != nil {
			return eris.Wrap(err, "sum provider spend")
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "spend since %s: £%s\n", since.Format("2006-01-02"), total.StringFixed(2))
		return err
	},
}

func init() {
	rootCmd.AddCommand(spendCmd)
	spendCmd.Flags().Int("days", 30, "Look-back window in days")
}
