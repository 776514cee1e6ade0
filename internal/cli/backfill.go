package cli

import (
	"github.com/spf13/cobra"

	"dispute-analytics/internal/app"
)

var (
	backfillTenant string
	backfillFrom   string
	backfillTo     string
	backfillDryRun bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Fetch disputes for a range and persist them synchronously",
	RunE: func(cmd *cobra.Command, args []string) error {
		rng, err := parseRange(backfillFrom, backfillTo)
		if err != nil {
			return err
		}

		a := getApp()
		a.Out = cmd.OutOrStdout()
		return a.Backfill(cmd.Context(), app.BackfillOptions{
			Tenant: backfillTenant,
			Range:  rng,
			DryRun: backfillDryRun,
		})
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillTenant, "tenant", "", "Tenant id (defaults to default_tenant)")
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "Start date (YYYY-MM-DD or RFC3339, inclusive)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "End date (YYYY-MM-DD or RFC3339, inclusive)")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "Run without writing to storage")
}
