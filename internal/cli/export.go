package cli

import (
	"github.com/spf13/cobra"

	"dispute-analytics/internal/app"
)

var (
	exportTenant  string
	exportFrom    string
	exportTo      string
	exportPNGPath string
	exportCSVPath string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the monthly dispute trend as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		rng, err := parseRange(exportFrom, exportTo)
		if err != nil {
			return err
		}

		return getApp().Export(cmd.Context(), app.ExportOptions{
			Tenant:  exportTenant,
			Range:   rng,
			PNGPath: exportPNGPath,
			CSVPath: exportCSVPath,
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportTenant, "tenant", "", "Tenant id (defaults to default_tenant)")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start date (YYYY-MM-DD or RFC3339, inclusive)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End date (YYYY-MM-DD or RFC3339, inclusive)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart (defaults to export.png_path)")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data (defaults to export.csv_path)")
}
