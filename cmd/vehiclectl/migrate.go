package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"vehicle-data-service/internal/usecase"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Idempotent data repairs",
}

var migrateDuplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Collapse marks with more than one vehicle record",
	Long: `Keeps the newest record per mark as current, copies the others to the
snapshot log, deletes them and repoints their listings. Safe to re-run.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")

		service, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer service.Close(ctx)

		report, err := service.Maintenance.CollapseDuplicateVehicles(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "migrate duplicates")
		}
		return printReport(cmd, report)
	},
}

var migrateDanglingCmd = &cobra.Command{
	Use:   "dangling-refs",
	Short: "Relink or clear listing references to missing vehicle records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		pageSize, _ := cmd.Flags().GetInt("page-size")

		service, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer service.Close(ctx)

		report, err := service.Maintenance.RepairDanglingListingRefs(ctx, pageSize)
		if err != nil {
			return eris.Wrap(err, "migrate dangling refs")
		}
		return printReport(cmd, report)
	},
}

func printReport(cmd *cobra.Command, report *usecase.MigrationReport) error {
	cmd.Printf("examined=%d changed=%d failed=%d\n", report.Examined, report.Changed, report.Failed)
	if report.Failed > 0 {
		return eris.Errorf("%d item(s) failed, see log", report.Failed)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateDuplicatesCmd, migrateDanglingCmd)
	migrateDuplicatesCmd.Flags().Int("limit", 0, "Maximum marks to process (0 = all)")
	migrateDanglingCmd.Flags().Int("page-size", 100, "Listings read per page")
}
