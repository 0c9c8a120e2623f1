package services

import (
	"fmt"
	"strings"

	"github.com/Lllllllleong/geminiocr/internal/models"
)

const (
	documentSeparator = "\n\n---\n\n"
	failedHeading     = "## Failed Documents\n\n"
)

// Aggregate sums token usage over successful entries and prices it.
// Failed entries contribute nothing.
func Aggregate(successes []models.ResultEntry, pricing models.Pricing) models.UsageTotals {
	var totals models.UsageTotals
	for _, entry := range successes {
		if !entry.Outcome.OK() {
			continue
		}
		u := entry.Outcome.Extraction.Usage
		totals.InputTokens += u.InputTokens
		totals.OutputTokens += u.OutputTokens
		totals.TotalTokens += u.TotalTokens
	}
	totals.CostUSD = pricing.Cost(totals.InputTokens, totals.OutputTokens)
	return totals
}

// SourceMarker is the attribution comment written before each document's text.
func SourceMarker(name string) string {
	return fmt.Sprintf("<!-- Source: %s -->", name)
}

// Render serializes the sorted entries into the final markdown document.
// The output depends only on the entries, never on completion order.
func Render(successes, failures []models.ResultEntry) []byte {
	var b strings.Builder
	for i, entry := range successes {
		if i > 0 {
			b.WriteString(documentSeparator)
		}
		b.WriteString(SourceMarker(entry.Document.Name))
		b.WriteString("\n\n")
		b.WriteString(entry.Outcome.Extraction.Text)
	}

	if len(failures) > 0 {
		b.WriteString(documentSeparator)
		b.WriteString(failedHeading)
		for _, entry := range failures {
			fmt.Fprintf(&b, "[ERROR: %s]\n\n", entry.Outcome.Failure)
		}
	}
	return []byte(b.String())
}
