package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"dispute-analytics/internal/storage"
)

// Show prints the most recently stored dispute copies.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	backend, err := storage.Open(ctx, a.Config)
	if err != nil {
		return err
	}
	defer backend.Close()

	store := backend.Disputes
	if store == nil {
		return errors.New("persistence disabled; set persistence.driver to show stored disputes")
	}

	disputes, err := store.ListRecentDisputes(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(disputes) == 0 {
		fmt.Fprintln(a.Out, "no disputes found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Initiated (UTC)\tTenant\tDispute\tStatus\tReason\tAmount\tReporting\tCountry\tGateway")

	for _, d := range disputes {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s %s\t%s\t%s\t%s\n",
			formatTime(d.InitiatedAt),
			d.TenantID,
			d.DisputeID,
			d.Status,
			sanitizeInline(d.Reason),
			d.Amount.StringFixed(2),
			d.Currency,
			d.ReportingAmount.StringFixed(2),
			orDash(d.ShippingCountry),
			orDash(d.Gateway),
		)
	}

	return writer.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return sanitizeInline(v)
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	return cleaned
}
