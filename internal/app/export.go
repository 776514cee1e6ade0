package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"

	chart "github.com/wcharczuk/go-chart/v2"

	"dispute-analytics/internal/analytics"
	"dispute-analytics/internal/service"
)

// Export renders the monthly dispute trend as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" {
		opts.CSVPath = a.Config.Export.CSVPath
	}
	if opts.PNGPath == "" {
		opts.PNGPath = a.Config.Export.PNGPath
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	p, err := a.openPipeline(ctx, service.Deps{})
	if err != nil {
		return err
	}
	defer p.Close()

	result, err := p.svc.Analyze(ctx, service.Request{TenantID: opts.Tenant, Range: opts.Range})
	if err != nil {
		return err
	}

	trend := result.ByMonth
	if len(trend.Months) == 0 {
		a.Logger.Info().Msg("no disputes found for export window")
		return nil
	}
	a.Logger.Info().Int("months", len(trend.Months)).Strs("statuses", trend.Statuses()).Msg("exporting monthly trend")

	if opts.CSVPath != "" {
		if err := writeTrendCSV(opts.CSVPath, trend); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if len(trend.Months) < 2 {
			a.Logger.Warn().Msg("chart needs at least two months; skipping PNG")
			return nil
		}
		if err := writeTrendPNG(opts.PNGPath, trend, a.Config.Export.ChartWidth, a.Config.Export.ChartHeight); err != nil {
			return err
		}
	}

	return nil
}

func writeTrendCSV(path string, trend analytics.MonthlyTrend) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	statuses := trend.Statuses()
	header := []string{"month", "all_count", "all_amount"}
	for _, status := range statuses {
		header = append(header, status+"_count", status+"_amount")
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for i, month := range trend.Months {
		record := []string{
			month,
			strconv.Itoa(trend.All[i].Count),
			trend.All[i].Amount.StringFixed(2),
		}
		for _, status := range statuses {
			b := trend.ByStatus[status][i]
			record = append(record, strconv.Itoa(b.Count), b.Amount.StringFixed(2))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeTrendPNG(path string, trend analytics.MonthlyTrend, width, height int) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}

	x := make([]float64, len(trend.Months))
	ticks := make([]chart.Tick, len(trend.Months))
	for i, month := range trend.Months {
		x[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: month}
	}

	series := []chart.Series{
		chart.ContinuousSeries{Name: "All", XValues: x, YValues: counts(trend.All)},
	}
	for _, status := range trend.Statuses() {
		series = append(series, chart.ContinuousSeries{
			Name:    status,
			XValues: x,
			YValues: counts(trend.ByStatus[status]),
		})
	}

	graph := chart.Chart{
		Width:  width,
		Height: height,
		XAxis: chart.XAxis{
			Name:  "Month",
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name: "Disputes",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func counts(buckets []analytics.Bucket) []float64 {
	out := make([]float64, len(buckets))
	for i, b := range buckets {
		out[i] = float64(b.Count)
	}
	return out
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
