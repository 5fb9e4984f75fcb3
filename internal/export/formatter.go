// Package export renders report snapshots and record collections into the
// formats pasted into office communication tools: a markdown preview, a
// rich HTML table with a flat TSV fallback, bulk CSV, and a spreadsheet
// workbook. Rendering never mutates the snapshot it is given.
package export

import (
	"fmt"
	"html"
	"strings"

	"github.com/mhartley/claim-audit/internal/models"
)

// Formatter renders snapshots and schedules.
type Formatter struct{}

// NewFormatter creates a formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Preview renders the hierarchical markdown document shown in-app. The
// result seeds an editable buffer; edits stay in the buffer until committed.
func (f *Formatter) Preview(s *models.ReportSnapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", s.Title)
	fmt.Fprintf(&b, "Period: %s – %s\n\n", s.RangeStart.Format("2006-01-02"), s.RangeEnd.Format("2006-01-02"))

	b.WriteString("## Totals\n\n")
	fmt.Fprintf(&b, "- Total spend: $%s\n", s.TotalSpend.StringFixed(2))
	fmt.Fprintf(&b, "- Requests: %d\n", s.TotalRequests)
	fmt.Fprintf(&b, "- Pending: %d\n", s.PendingCount)
	if s.UnknownCount > 0 {
		fmt.Fprintf(&b, "- Missing staff/location details: %d\n", s.UnknownCount)
	}
	b.WriteString("\n")

	writeRankingSection(&b, "Top staff", s.TopStaff)
	writeRankingSection(&b, "Top locations", s.TopLocation)

	if s.HighestSingle != nil {
		b.WriteString("## Highest single item\n\n")
		fmt.Fprintf(&b, "%s — $%s (%s)\n",
			s.HighestSingle.StaffName,
			s.HighestSingle.Amount.StringFixed(2),
			s.HighestSingle.ClientLocation)
	}

	return b.String()
}

func writeRankingSection(b *strings.Builder, heading string, rows []models.RankedTotal) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for i, row := range rows {
		fmt.Fprintf(b, "%d. %s — $%s (%d)\n", i+1, row.Name, row.Total.StringFixed(2), row.Count)
	}
	b.WriteString("\n")
}

// RichTable renders the snapshot rankings as an HTML table for rich-text
// paste targets.
func (f *Formatter) RichTable(s *models.ReportSnapshot) string {
	var b strings.Builder

	b.WriteString("<table>\n")
	fmt.Fprintf(&b, "<caption>%s</caption>\n", html.EscapeString(s.Title))
	b.WriteString("<tr><th>Staff</th><th>Total</th><th>Requests</th></tr>\n")
	for _, row := range s.TopStaff {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>$%s</td><td>%d</td></tr>\n",
			html.EscapeString(row.Name), row.Total.StringFixed(2), row.Count)
	}
	fmt.Fprintf(&b, "<tr><td><b>Total</b></td><td><b>$%s</b></td><td><b>%d</b></td></tr>\n",
		s.TotalSpend.StringFixed(2), s.TotalRequests)
	b.WriteString("</table>\n")

	return b.String()
}

// FlatTable renders the same table as tab-delimited text, the fallback for
// paste targets that reject rich content.
func (f *Formatter) FlatTable(s *models.ReportSnapshot) string {
	var b strings.Builder

	b.WriteString(s.Title + "\n")
	b.WriteString("Staff\tTotal\tRequests\n")
	for _, row := range s.TopStaff {
		fmt.Fprintf(&b, "%s\t$%s\t%d\n", row.Name, row.Total.StringFixed(2), row.Count)
	}
	fmt.Fprintf(&b, "Total\t$%s\t%d\n", s.TotalSpend.StringFixed(2), s.TotalRequests)

	return b.String()
}

// ScheduleTable renders the end-of-day schedule as flat text.
func (f *Formatter) ScheduleTable(title string, entries []models.ScheduleEntry) string {
	var b strings.Builder

	b.WriteString(title + "\n")
	b.WriteString("Time in\tTime out\tActivity\tClient\tStaff\tAmount\tStatus\n")
	for _, e := range entries {
		amount := ""
		if !e.IsIdle {
			amount = "$" + e.Amount.StringFixed(2)
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.TimeIn.Format("15:04"),
			e.TimeOut.Format("15:04"),
			e.Activity,
			e.ClientName,
			e.StaffName,
			amount,
			e.Status)
	}

	return b.String()
}
