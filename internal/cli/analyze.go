package cli

import (
	"github.com/spf13/cobra"

	"dispute-analytics/internal/app"
)

var (
	analyzeTenant string
	analyzeFrom   string
	analyzeTo     string
	analyzePretty bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the analytics pipeline once and print the payload",
	RunE: func(cmd *cobra.Command, args []string) error {
		rng, err := parseRange(analyzeFrom, analyzeTo)
		if err != nil {
			return err
		}

		a := getApp()
		a.Out = cmd.OutOrStdout()
		return a.Analyze(cmd.Context(), app.AnalyzeOptions{
			Tenant: analyzeTenant,
			Range:  rng,
			Pretty: analyzePretty,
		})
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTenant, "tenant", "", "Tenant id (defaults to default_tenant)")
	analyzeCmd.Flags().StringVar(&analyzeFrom, "from", "", "Start date (YYYY-MM-DD or RFC3339, inclusive)")
	analyzeCmd.Flags().StringVar(&analyzeTo, "to", "", "End date (YYYY-MM-DD or RFC3339, inclusive)")
	analyzeCmd.Flags().BoolVar(&analyzePretty, "pretty", false, "Indent JSON output")
}
