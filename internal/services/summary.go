package services

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/Lllllllleong/geminiocr/internal/models"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WriteSummary renders the human-facing report for a finished batch.
func WriteSummary(w io.Writer, resp *models.BatchResponse, pricing models.Pricing) {
	fmt.Fprintf(w, "\n✓ Successfully processed %d/%d documents\n", len(resp.Successes), resp.Total)
	if len(resp.Failures) > 0 {
		fmt.Fprintf(w, "✗ %d documents failed (see errors in output)\n", len(resp.Failures))
	}
	fmt.Fprintf(w, "  Inputs: %s\n", FormatInventory(resp.Inventory))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Token Usage & Cost")
	t.SetStyle(table.StyleLight)
	t.AppendRow(table.Row{"Input tokens", formatTokens(resp.Usage.InputTokens)})
	t.AppendRow(table.Row{"Output tokens", formatTokens(resp.Usage.OutputTokens)})
	t.AppendRow(table.Row{"Total tokens", formatTokens(resp.Usage.TotalTokens)})
	t.AppendFooter(table.Row{"Estimated cost", FormatCost(resp.Usage.CostUSD)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	fmt.Fprintln(w)
	t.Render()

	fmt.Fprintf(w, "  Pricing: $%.2f/1M input, $%.2f/1M output\n", pricing.InputPerMillion, pricing.OutputPerMillion)
	fmt.Fprintf(w, "✓ Output written to: %s\n", resp.OutputURI)
}

// FormatInventory describes the discovered inputs, e.g. "3 images, 2 PDFs (14 pages)".
func FormatInventory(inv models.Inventory) string {
	return fmt.Sprintf("%s, %s (%s)",
		humanize.Comma(int64(inv.Images))+" "+plural(inv.Images, "image", "images"),
		humanize.Comma(int64(inv.PDFs))+" "+plural(inv.PDFs, "PDF", "PDFs"),
		humanize.Comma(int64(inv.PDFPages))+" "+plural(inv.PDFPages, "page", "pages"),
	)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// FormatCost renders a USD amount to four decimal places.
func FormatCost(usd float64) string {
	return fmt.Sprintf("$%.4f USD", usd)
}

func formatTokens(n uint64) string {
	if n > math.MaxInt64 {
		return fmt.Sprintf("%d", n)
	}
	return humanize.Comma(int64(n))
}

// FailureLines returns the failure messages in index order.
func FailureLines(failures []models.ResultEntry) []string {
	lines := make([]string, 0, len(failures))
	for _, f := range failures {
		lines = append(lines, strings.TrimSpace(f.Outcome.Failure))
	}
	return lines
}
