package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <vrm>",
	Short: "Run a complete vehicle check and print the result",
	Long: `Runs the four provider calls for a registration mark, stores the merged
record and reconciles every live listing for the mark. A fresh stored
record is returned without provider calls unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mileage, _ := cmd.Flags().GetInt("mileage")
		force, _ := cmd.Flags().GetBool("force")

		service, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer service.Close(ctx)

		result, err := service.Aggregator.FetchCompleteVehicleData(ctx, args[0], mileage, force)
		if err != nil {
			return eris.Wrap(err, "vehicle check")
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <vrm>",
	Short: "Copy the stored vehicle record onto its listings without calling providers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		service, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer service.Close(ctx)

		warnings, err := service.Maintenance.ReconcileVRM(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "reconcile")
		}
		for _, w := range warnings {
			cmd.PrintErrln("warning:", w)
		}
		cmd.Println("reconciled", args[0])
		return nil
	},
}

var refreshListingCmd = &cobra.Command{
	Use:   "refresh-listing <advert-id>",
	Short: "Re-run the vehicle check for one advert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		force, _ := cmd.Flags().GetBool("force")

		service, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer service.Close(ctx)

		result, err := service.Maintenance.RefreshListing(ctx, args[0], force)
		if err != nil {
			return eris.Wrap(err, "refresh listing")
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd, reconcileCmd, refreshListingCmd)
	checkCmd.Flags().Int("mileage", 0, "Mileage to value the vehicle at")
	checkCmd.Flags().Bool("force", false, "Ignore a fresh stored record")
	refreshListingCmd.Flags().Bool("force", true, "Ignore a fresh stored record")
}
