package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lukemcguire/hubcrawl/record"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	cellStyle    = lipgloss.NewStyle()
)

// renderSummary produces a Lip Gloss styled summary of a harvested batch.
func renderSummary(batch *record.Batch, path string, elapsed time.Duration) string {
	var builder strings.Builder

	if batch.Count == 0 {
		builder.WriteString(warnStyle.Render("No records harvested."))
		builder.WriteString("\n")
		builder.WriteString(dimStyle.Render("Listing: " + batch.SourceURL))
		builder.WriteString("\n")
		return builder.String()
	}

	builder.WriteString(titleStyle.Render(fmt.Sprintf("Harvested %d of %d requested records", batch.Count, batch.Requested)))
	builder.WriteString("\n")

	rows := make([][]string, 0, len(batch.Records))
	for _, rec := range batch.Records {
		stat := rec.Downloads
		if stat == "" {
			stat = rec.Stars
		}
		enriched := ""
		if !rec.CrawledAt.IsZero() {
			enriched = "yes"
		}
		rows = append(rows, []string{rec.ID, rec.Name, stat, rec.Likes, enriched})
	}

	recordTable := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Identifier", "Name", "Downloads/Stars", "Likes", "Detail").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Rows(rows...)

	builder.WriteString(recordTable.Render())
	builder.WriteString("\n\n")

	builder.WriteString(successStyle.Render("Saved " + path))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf("Batch %s in %s", batch.ID, elapsed.Round(time.Millisecond))))
	builder.WriteString("\n")

	return builder.String()
}
